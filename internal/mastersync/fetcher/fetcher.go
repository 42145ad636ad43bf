// Package fetcher downloads spreadsheet CSV exports.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const gvizTemplate = "https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s"

// SheetCSVURL builds the CSV export URL for one tab of a shared sheet.
func SheetCSVURL(sheetID, tab string) string {
	return fmt.Sprintf(gvizTemplate, url.PathEscape(sheetID), url.QueryEscape(tab))
}

type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Fetch returns the body of url as text. A non-2xx status or an HTML body
// (the sign-in page served for private sheets) is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch sheet: unexpected status %s", resp.Status)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("fetch sheet: got an HTML page, is the sheet shared?")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sheet body: %w", err)
	}
	return string(body), nil
}
