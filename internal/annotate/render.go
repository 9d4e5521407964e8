package annotate

import (
	"fmt"
	"strings"

	"github.com/DmitryBarskov/klippings/internal/clippings"
	"github.com/DmitryBarskov/klippings/internal/match"
)

// Render produces the final markdown document: one section per book, one
// block per clip with its metadata, surrounding context and the highlighted
// text set off as a blockquote. Writing the result anywhere is the
// caller's job.
func Render(sections []BookSection) string {
	var b strings.Builder

	b.WriteString("# Book Notes\n")

	for _, section := range sections {
		b.WriteString("\n## ")
		b.WriteString(section.Title)
		if section.Author != "" {
			fmt.Fprintf(&b, " (%s)", section.Author)
		}
		b.WriteString("\n")

		if !section.Resolved() {
			b.WriteString("\n*Source text not found in library; clips shown without context.*\n")
		}

		for _, clip := range section.Clips {
			renderClip(&b, clip, section.Resolved())
		}

		b.WriteString("\n---\n")
	}

	return b.String()
}

func renderClip(b *strings.Builder, clip AnnotatedClip, resolved bool) {
	fmt.Fprintf(b, "\n### %s\n", clipHeading(clip.Entry))

	if clip.Entry.Type == clippings.EntryTypeBookmark {
		return
	}

	switch clip.Match.Confidence {
	case match.Exact, match.Fuzzy:
		if clip.Match.Confidence == match.Fuzzy {
			fmt.Fprintf(b, "\n*Approximate match (similarity %.2f).*\n", clip.Match.Score)
		}
		if clip.ContextBefore != "" {
			fmt.Fprintf(b, "\n%s\n", clip.ContextBefore)
		}
		fmt.Fprintf(b, "\n> %s\n", blockquote(clip.Entry.Text))
		if clip.ContextAfter != "" {
			fmt.Fprintf(b, "\n%s\n", clip.ContextAfter)
		}
	default:
		fmt.Fprintf(b, "\n> %s\n", blockquote(clip.Entry.Text))
		if resolved {
			b.WriteString("\n*Passage not located in the source text.*\n")
		}
	}

	if clip.Note != "" {
		fmt.Fprintf(b, "\n**Note:** %s\n", clip.Note)
	}
}

func clipHeading(e clippings.ClipEntry) string {
	parts := []string{clipKindLabel(e.Type)}

	if e.Page > 0 {
		if e.PageEnd > 0 && e.PageEnd != e.Page {
			parts = append(parts, fmt.Sprintf("page %d-%d", e.Page, e.PageEnd))
		} else {
			parts = append(parts, fmt.Sprintf("page %d", e.Page))
		}
	}
	if e.Location > 0 {
		if e.LocationEnd > 0 && e.LocationEnd != e.Location {
			parts = append(parts, fmt.Sprintf("location %d-%d", e.Location, e.LocationEnd))
		} else {
			parts = append(parts, fmt.Sprintf("location %d", e.Location))
		}
	}
	if !e.AddedAt.IsZero() {
		parts = append(parts, e.AddedAt.Format("2006-01-02 15:04"))
	}

	return strings.Join(parts, " · ")
}

func clipKindLabel(t clippings.EntryType) string {
	switch t {
	case clippings.EntryTypeBookmark:
		return "Bookmark"
	case clippings.EntryTypeNote:
		return "Note"
	default:
		return "Highlight"
	}
}

func blockquote(s string) string {
	return strings.ReplaceAll(s, "\n", "\n> ")
}

// CountRendered returns the number of clips across all sections. The CLI
// exits non-zero only when this is zero: partial success with warnings is
// still success.
func CountRendered(sections []BookSection) int {
	n := 0
	for _, s := range sections {
		n += len(s.Clips)
	}
	return n
}
