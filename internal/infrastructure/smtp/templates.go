package smtp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/go-api-magiclink/internal/domain"
)

//go:embed templates/*.html
var embeddedFS embed.FS

// TemplateSource resolves the raw template text for a template key. A source
// without the key returns an error wrapping domain.ErrNotFound.
type TemplateSource interface {
	Template(ctx context.Context, key string) (string, error)
}

// EmbeddedSource serves the templates compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Template(_ context.Context, key string) (string, error) {
	b, err := embeddedFS.ReadFile("templates/" + key + ".html")
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("template %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ChainSource tries each source in order, moving on only when a source does not have the key.
type ChainSource []TemplateSource

func (c ChainSource) Template(ctx context.Context, key string) (string, error) {
	for _, src := range c {
		text, err := src.Template(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		return text, err
	}
	return "", fmt.Errorf("template %q: %w", key, domain.ErrNotFound)
}

// render executes the "subject" and "body" blocks of text against model.
func render(text string, model domain.MagicLinkModel) (subject, body string, err error) {
	tmpl, err := template.New("email").Parse(text)
	if err != nil {
		return "", "", fmt.Errorf("parse template: %w", err)
	}
	var sb, bb bytes.Buffer
	if err := tmpl.ExecuteTemplate(&sb, "subject", model); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.ExecuteTemplate(&bb, "body", model); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}
