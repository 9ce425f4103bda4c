package docengine

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"vellum/internal/domain/models/doc"
)

// HTMLImporter turns pasted or uploaded HTML into text blocks. Two stages:
// sanitize with a UGC policy (scripts, event handlers and javascript: URLs
// stripped), then convert the surviving markup to markdown and split it
// into one text block per paragraph group.
type HTMLImporter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLImporter creates an importer with the default sanitization policy.
func NewHTMLImporter() *HTMLImporter {
	return &HTMLImporter{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

// Import converts HTML into a sequence of text blocks ready to insert into
// a document tree.
func (i *HTMLImporter) Import(ctx context.Context, html string) ([]*doc.Block, error) {
	sanitized := i.policy.Sanitize(html)

	markdown, err := i.converter.ConvertString(sanitized)
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}

	var blocks []*doc.Block
	for _, chunk := range splitMarkdownChunks(markdown) {
		b := NewBlock(doc.BlockText)
		b.Content = chunk
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// splitMarkdownChunks splits markdown on blank lines into trimmed,
// non-empty chunks.
func splitMarkdownChunks(markdown string) []string {
	var chunks []string
	for _, part := range strings.Split(markdown, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}
