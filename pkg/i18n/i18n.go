package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var builtin embed.FS

// Translator renders user-facing messages from message files named
// active.<lang>.json.
type Translator struct {
	bundle      *goi18n.Bundle
	defaultLang string
}

// New builds a translator preloaded with the embedded en and id messages.
func New(defaultLang string) (*Translator, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		tag = language.English
	}

	bundle := goi18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle, defaultLang: tag.String()}
	if err := t.LoadFS(builtin, "locales/active.en.json", "locales/active.id.json"); err != nil {
		return nil, err
	}
	return t, nil
}

// Load adds an override message file from disk.
func (t *Translator) Load(path string) error {
	if _, err := t.bundle.LoadMessageFile(path); err != nil {
		return fmt.Errorf("load messages %s: %w", path, err)
	}
	return nil
}

func (t *Translator) LoadFS(fsys fs.FS, paths ...string) error {
	for _, p := range paths {
		if _, err := t.bundle.LoadMessageFileFS(fsys, p); err != nil {
			return fmt.Errorf("load messages %s: %w", p, err)
		}
	}
	return nil
}

// Localize renders messageID for lang (an Accept-Language value or a tag).
// It returns fallback when no message is known.
func (t *Translator) Localize(lang, messageID string, data map[string]interface{}, fallback string) string {
	localizer := goi18n.NewLocalizer(t.bundle, lang, t.defaultLang)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}
