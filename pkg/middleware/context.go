package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type localeKey struct{}

// WithLocale stores the caller's preferred language on ctx.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, localeKey{}, lang)
}

// LocaleFromContext returns the caller's language, or "" when unknown.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextInterceptor copies request metadata the handlers care about into the
// context. Language comes from x-lang, then accept-language.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			for _, key := range []string{"x-lang", "accept-language"} {
				if v := md.Get(key); len(v) > 0 && strings.TrimSpace(v[0]) != "" {
					ctx = WithLocale(ctx, strings.TrimSpace(v[0]))
					break
				}
			}
		}
		return handler(ctx, req)
	}
}
