package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/DmitryBarskov/klippings/internal/normalizer"
)

// ErrBookNotFound means no library candidate matched a clip's title/author.
var ErrBookNotFound = errors.New("book not found in library")

// AmbiguousError means several candidates matched equally well, so the
// locator refuses to guess.
type AmbiguousError struct {
	Title      string
	Candidates []string // file paths of the tied candidates, sorted
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous book %q: %d candidates (%s)",
		e.Title, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// BookSource is a book file reduced to text, loaded at most once per run.
type BookSource struct {
	Title    string
	Author   string
	FilePath string
	Raw      string
	Norm     *normalizer.Normalized
}

// candidate is a discovered library file whose text has not necessarily
// been loaded yet.
type candidate struct {
	path        string
	title       string // derived from filename
	author      string
	foldedTitle string
	foldedAuth  string
	extractor   Extractor

	once   sync.Once
	source *BookSource
	err    error
}

func (c *candidate) load(nz *normalizer.Normalizer) (*BookSource, error) {
	c.once.Do(func() {
		raw, err := c.extractor.Extract(c.path)
		if err != nil {
			c.err = err
			return
		}
		c.source = &BookSource{
			Title:    c.title,
			Author:   c.author,
			FilePath: c.path,
			Raw:      raw,
			Norm:     nz.Normalize(raw),
		}
	})
	return c.source, c.err
}

// Locator maps a clip's title/author to a BookSource backed by a file in
// the library directory. Candidates are discovered eagerly (cheap stat-level
// walk); their text is loaded and normalized lazily, once, on first use.
// Resolution is safe for concurrent callers.
type Locator struct {
	norm       *normalizer.Normalizer
	candidates []*candidate
}

// NewLocator scans dir recursively for supported book files.
func NewLocator(dir string, nz *normalizer.Normalizer) (*Locator, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("library directory: %w", err)
	}

	l := &Locator{norm: nz}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext, ok := ExtractorFor(path)
		if !ok {
			return nil
		}
		title, author := TitleAuthorFromFilename(path)
		l.candidates = append(l.candidates, &candidate{
			path:        path,
			title:       title,
			author:      author,
			foldedTitle: nz.Fold(title),
			foldedAuth:  nz.Fold(author),
			extractor:   ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan library %s: %w", dir, err)
	}

	return l, nil
}

// Len returns the number of discovered candidates.
func (l *Locator) Len() int {
	return len(l.candidates)
}

// Resolve finds the book backing a clip. Policy: exact folded title+author
// match first; then exact title-only match if exactly one candidate carries
// that title; a tie is an AmbiguousError, no match is ErrBookNotFound.
// I/O or extraction failure for the winning candidate surfaces as an error
// for this book only.
func (l *Locator) Resolve(title, author string) (*BookSource, error) {
	foldedTitle := l.norm.Fold(title)
	foldedAuth := l.norm.Fold(author)

	var titleMatches, fullMatches []*candidate
	for _, c := range l.candidates {
		if c.foldedTitle != foldedTitle {
			continue
		}
		titleMatches = append(titleMatches, c)
		if foldedAuth != "" && c.foldedAuth == foldedAuth {
			fullMatches = append(fullMatches, c)
		}
	}

	winners := fullMatches
	if len(winners) == 0 {
		winners = titleMatches
	}

	switch len(winners) {
	case 0:
		return nil, ErrBookNotFound
	case 1:
		return winners[0].load(l.norm)
	default:
		paths := make([]string, len(winners))
		for i, c := range winners {
			paths[i] = c.path
		}
		sort.Strings(paths)
		return nil, &AmbiguousError{Title: title, Candidates: paths}
	}
}
