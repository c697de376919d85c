// Package markdown renders the content pages under content/pages.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// Document is a rendered page and its frontmatter.
type Document struct {
	HTML []byte
	Meta map[string]any
}

// Text returns a string frontmatter value, or "" when missing or not a string.
func (d *Document) Text(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, &frontmatter.Extender{}),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(goldmarkhtml.WithXHTML()),
		),
	}
}

// Render converts source to HTML. Frontmatter that is not valid YAML is
// ignored; the body still renders.
func (p *Parser) Render(source []byte) (*Document, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer

	err := p.md.Convert(source, &buf, parser.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc := &Document{HTML: buf.Bytes(), Meta: map[string]any{}}
	if data := frontmatter.Get(ctx); data != nil {
		if data.Decode(&doc.Meta) != nil {
			doc.Meta = map[string]any{}
		}
	}
	return doc, nil
}
