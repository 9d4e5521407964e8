package library

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Extractor reduces a book file to plain text. Directory walking and
// format handling live here so the matching core only ever sees strings.
type Extractor interface {
	Extract(path string) (string, error)
}

// extractors by lowercased file extension
func defaultExtractors() map[string]Extractor {
	plain := plainExtractor{}
	md := markdownExtractor{}
	return map[string]Extractor{
		".txt":      plain,
		".text":     plain,
		".md":       md,
		".markdown": md,
		".epub":     epubExtractor{},
		".pdf":      pdfExtractor{},
	}
}

type plainExtractor struct{}

func (plainExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// markdownExtractor strips markdown structure by walking the goldmark AST
// and keeping only the text segments, so highlights made in a rendered view
// still match the source file.
type markdownExtractor struct{}

func (markdownExtractor) Extract(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		// Blank line between blocks keeps paragraph boundaries visible
		// to line/sentence windowing.
		switch n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			b.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk markdown %s: %w", path, err)
	}

	return strings.TrimSpace(b.String()), nil
}

type pdfExtractor struct{}

func (pdfExtractor) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	return buf.String(), nil
}

// ExtractorFor returns the extractor for a path, or false when the format
// is not one of the supported textual sources.
func ExtractorFor(path string) (Extractor, bool) {
	e, ok := defaultExtractors()[strings.ToLower(filepath.Ext(path))]
	return e, ok
}
