package annotate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/DmitryBarskov/klippings/internal/clippings"
	"github.com/DmitryBarskov/klippings/internal/library"
	"github.com/DmitryBarskov/klippings/internal/match"
	"github.com/DmitryBarskov/klippings/internal/normalizer"
	"github.com/DmitryBarskov/klippings/internal/window"
)

// WarningKind classifies recoverable problems encountered during a run.
type WarningKind string

const (
	WarnSkippedEntry   WarningKind = "skipped_entry"
	WarnBookNotFound   WarningKind = "book_not_found"
	WarnAmbiguousBook  WarningKind = "ambiguous_book"
	WarnBookUnreadable WarningKind = "book_unreadable"
	WarnMatchNotFound  WarningKind = "match_not_found"
)

type Warning struct {
	Kind    WarningKind
	Message string
}

// AnnotatedClip is one clip joined with the context extracted around its
// match in the source book.
type AnnotatedClip struct {
	Entry         clippings.ClipEntry
	Note          string // note attached to this highlight, if any
	ContextBefore string
	ContextAfter  string
	Match         match.Result
}

// BookSection groups the annotated clips of one book. Source is nil when
// the book could not be resolved in the library.
type BookSection struct {
	Title  string
	Author string
	Source *library.BookSource
	Clips  []AnnotatedClip
}

// Resolved reports whether a library file backs this section.
func (s *BookSection) Resolved() bool { return s.Source != nil }

// Pipeline runs the full annotation flow: group clips by book, resolve each
// book once, match and window every content-bearing clip, order and
// deduplicate. Books keep the order they first appear in the export.
type Pipeline struct {
	norm     *normalizer.Normalizer
	locator  *library.Locator
	matcher  *match.Matcher
	windower *window.Windower
	dedup    bool
	logger   *log.Logger

	warnings []Warning
}

// NewPipeline wires the stages together. The normalizer must be the same
// one the locator normalizes book text with, so clip content and book text
// fold identically.
func NewPipeline(norm *normalizer.Normalizer, locator *library.Locator, matcher *match.Matcher, windower *window.Windower, dedup bool, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		norm:     norm,
		locator:  locator,
		matcher:  matcher,
		windower: windower,
		dedup:    dedup,
		logger:   logger,
	}
}

func (p *Pipeline) warn(kind WarningKind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, Warning{Kind: kind, Message: msg})
	p.logger.Warn(msg, "kind", string(kind))
}

// Warnings returns everything that went wrong but did not stop the run,
// including parser skips recorded via RecordSkips.
func (p *Pipeline) Warnings() []Warning {
	return p.warnings
}

// RecordSkips folds parser skip records into the run's warnings.
func (p *Pipeline) RecordSkips(skipped []clippings.Skipped) {
	for _, s := range skipped {
		p.warn(WarnSkippedEntry, "skipped export %s", s)
	}
}

// Run annotates all entries and returns one section per book, in the order
// books first appear in the export.
func (p *Pipeline) Run(entries []clippings.ClipEntry) []BookSection {
	groups, order := groupByBook(entries)

	sections := make([]BookSection, 0, len(order))
	for _, key := range order {
		group := groups[key]
		sections = append(sections, p.annotateBook(group))
	}
	return sections
}

func groupByBook(entries []clippings.ClipEntry) (map[string][]clippings.ClipEntry, []string) {
	groups := make(map[string][]clippings.ClipEntry)
	var order []string
	for _, e := range entries {
		key := strings.ToLower(e.Title) + "|" + strings.ToLower(e.Author)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	return groups, order
}

func (p *Pipeline) annotateBook(entries []clippings.ClipEntry) BookSection {
	section := BookSection{
		Title:  entries[0].Title,
		Author: entries[0].Author,
	}

	source := p.resolveBook(section.Title, section.Author)
	section.Source = source

	highlights, notes := splitNotes(entries)
	maxLoc := maxLocation(entries)

	for _, e := range highlights {
		section.Clips = append(section.Clips, p.annotateClip(e, source, section.Title, maxLoc))
	}

	p.attachNotes(&section, notes, maxLoc)
	orderClips(section.Clips)
	if p.dedup {
		section.Clips = dedupeClips(section.Clips)
	}

	return section
}

func (p *Pipeline) resolveBook(title, author string) *library.BookSource {
	source, err := p.locator.Resolve(title, author)
	if err == nil {
		return source
	}

	var ambiguous *library.AmbiguousError
	switch {
	case errors.Is(err, library.ErrBookNotFound):
		p.warn(WarnBookNotFound, "no library file for %q (%s)", title, authorOrUnknown(author))
	case errors.As(err, &ambiguous):
		p.warn(WarnAmbiguousBook, "%v", ambiguous)
	default:
		// I/O or extraction failure degrades this book to unresolved.
		p.warn(WarnBookUnreadable, "failed to load book for %q: %v", title, err)
	}
	return nil
}

// annotateClip matches and windows one content-bearing clip. Bookmarks and
// clips of unresolved books pass through with a NotFound match and no
// context. maxLocation is the largest location seen across the book's
// clips, letting the matcher scale location hints to the book.
func (p *Pipeline) annotateClip(e clippings.ClipEntry, source *library.BookSource, bookTitle string, maxLocation int) AnnotatedClip {
	clip := AnnotatedClip{Entry: e, Match: match.Result{Confidence: match.NotFound}}

	if e.Type == clippings.EntryTypeBookmark || source == nil {
		return clip
	}

	clip.Match = p.matcher.Match(
		p.norm.Fold(e.Text),
		match.LocationHint{Start: e.Location, End: e.LocationEnd, MaxLocation: maxLocation},
		source.Norm,
	)
	if clip.Match.Confidence == match.NotFound {
		p.warn(WarnMatchNotFound, "passage not found in %q: %s", bookTitle, excerpt(e.Text))
		return clip
	}

	clip.ContextBefore, clip.ContextAfter = p.windower.Extract(
		source.Raw, source.Norm, clip.Match.Offset, clip.Match.Length)
	return clip
}

// maxLocation returns the largest location appearing in the group, bookends
// included, or zero when no entry carries one.
func maxLocation(entries []clippings.ClipEntry) int {
	maxLoc := 0
	for _, e := range entries {
		if e.LocationEnd > maxLoc {
			maxLoc = e.LocationEnd
		}
		if e.Location > maxLoc {
			maxLoc = e.Location
		}
	}
	return maxLoc
}

// splitNotes separates note entries from everything else so they can be
// attached to the highlight at the same location.
func splitNotes(entries []clippings.ClipEntry) (rest, notes []clippings.ClipEntry) {
	for _, e := range entries {
		if e.Type == clippings.EntryTypeNote {
			notes = append(notes, e)
			continue
		}
		rest = append(rest, e)
	}
	return rest, notes
}

// attachNotes pins each note to the highlight sharing its location; notes
// with no matching highlight stay as standalone clips and go through the
// matcher themselves, since a note may quote the source.
func (p *Pipeline) attachNotes(section *BookSection, notes []clippings.ClipEntry, maxLocation int) {
	for _, note := range notes {
		attached := false
		for i := range section.Clips {
			c := &section.Clips[i]
			if c.Entry.Type != clippings.EntryTypeHighlight {
				continue
			}
			if sameLocation(c.Entry, note) {
				if c.Note == "" {
					c.Note = note.Text
				} else {
					c.Note = c.Note + "\n\n" + note.Text
				}
				attached = true
				break
			}
		}
		if !attached {
			section.Clips = append(section.Clips, p.annotateClip(note, section.Source, section.Title, maxLocation))
		}
	}
}

func sameLocation(h, note clippings.ClipEntry) bool {
	if note.Location > 0 && h.Location > 0 {
		return note.Location >= h.Location && (h.LocationEnd == 0 || note.Location <= h.LocationEnd)
	}
	if note.Page > 0 && h.Page > 0 {
		return note.Page == h.Page
	}
	return false
}

// orderClips sorts by location ascending, falling back to export order for
// clips without a location.
func orderClips(clips []AnnotatedClip) {
	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i].Entry, clips[j].Entry
		switch {
		case a.HasLocation() && b.HasLocation():
			if a.Location != b.Location {
				return a.Location < b.Location
			}
			return a.ExportIndex < b.ExportIndex
		case a.HasLocation():
			return true
		case b.HasLocation():
			return false
		default:
			return a.ExportIndex < b.ExportIndex
		}
	})
}

// dedupeClips drops exact-content repeats, keeping the earliest by AddedAt
// (first-seen when timestamps are absent or equal). Idempotent. Bookmarks
// have no content and are never deduplicated against each other unless they
// share a location.
func dedupeClips(clips []AnnotatedClip) []AnnotatedClip {
	type seenKey struct {
		kind clippings.EntryType
		text string
		loc  int
	}
	best := make(map[seenKey]int) // key -> index in result
	var out []AnnotatedClip

	for _, c := range clips {
		key := seenKey{kind: c.Entry.Type, text: c.Entry.Text}
		if c.Entry.Text == "" {
			key.loc = c.Entry.Location
		}
		if i, dup := best[key]; dup {
			kept := out[i]
			if !c.Entry.AddedAt.IsZero() && !kept.Entry.AddedAt.IsZero() &&
				c.Entry.AddedAt.Before(kept.Entry.AddedAt) {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	return out
}

func authorOrUnknown(author string) string {
	if author == "" {
		return "unknown author"
	}
	return author
}

func excerpt(s string) string {
	const max = 60
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
