package database

import (
	"fmt"
	"strings"

	"github.com/DmitryBarskov/klippings/internal/annotate"
	"github.com/DmitryBarskov/klippings/internal/entities"
)

// FromSection converts an annotated book section into its persistence form.
func FromSection(section annotate.BookSection) *entities.Book {
	book := &entities.Book{
		Title:    section.Title,
		Author:   section.Author,
		Resolved: section.Resolved(),
	}
	if section.Source != nil {
		book.FilePath = section.Source.FilePath
	}

	for _, clip := range section.Clips {
		e := clip.Entry
		book.Clips = append(book.Clips, entities.Clip{
			Kind:            entities.EntryKind(e.Type),
			Text:            e.Text,
			Note:            clip.Note,
			Page:            e.Page,
			Location:        e.Location,
			LocationEnd:     e.LocationEnd,
			ContextPrefix:   clip.ContextBefore,
			ContextSuffix:   clip.ContextAfter,
			MatchConfidence: string(clip.Match.Confidence),
			MatchScore:      clip.Match.Score,
			AddedAt:         e.AddedAt,
			ExternalID:      externalID(section.Title, clip),
		})
	}
	return book
}

// externalID is a stable per-clip identity across repeated imports of a
// growing export file.
func externalID(title string, clip annotate.AnnotatedClip) string {
	e := clip.Entry
	loc := e.Location
	if loc == 0 {
		loc = e.Page
	}
	return fmt.Sprintf("kindle-%s-%d-%d", sanitizeForID(title), loc, e.AddedAt.Unix())
}

func sanitizeForID(s string) string {
	// Keep only alphanumeric characters and convert to lowercase
	var result strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		}
	}
	return result.String()
}
