package clippings

import (
	"strings"
	"testing"
	"time"
)

func TestParser_ParseEntries_BasicHighlight(t *testing.T) {
	input := `The_Power_of_Now (Eckhart Tolle)
- Your Highlight on page 8 | Location 64-64 | Added on Tuesday, April 15, 2025 10:16:21 PM

would change for the better. Values would shift in the flotsam
==========
`

	parser := NewParser()
	entries, skipped, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped blocks, got %v", skipped)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Title != "The_Power_of_Now" {
		t.Errorf("expected title 'The_Power_of_Now', got '%s'", entry.Title)
	}
	if entry.Author != "Eckhart Tolle" {
		t.Errorf("expected author 'Eckhart Tolle', got '%s'", entry.Author)
	}
	if entry.Type != EntryTypeHighlight {
		t.Errorf("expected type highlight, got '%s'", entry.Type)
	}
	if entry.Page != 8 {
		t.Errorf("expected page 8, got %d", entry.Page)
	}
	if entry.Location != 64 {
		t.Errorf("expected location 64, got %d", entry.Location)
	}
	if entry.LocationEnd != 64 {
		t.Errorf("expected location end 64, got %d", entry.LocationEnd)
	}
	if entry.Text != "would change for the better. Values would shift in the flotsam" {
		t.Errorf("unexpected text: %s", entry.Text)
	}
	expectedDate := time.Date(2025, time.April, 15, 22, 16, 21, 0, time.UTC)
	if !entry.AddedAt.Equal(expectedDate) {
		t.Errorf("expected date %v, got %v", expectedDate, entry.AddedAt)
	}
}

func TestParser_ParseEntries_Note(t *testing.T) {
	input := `The_Power_of_Now (Eckhart Tolle)
- Your Note on page 31 | Location 307 | Added on Tuesday, April 15, 2025 11:33:26 PM

Watch the thinker or be present in the moment
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Type != EntryTypeNote {
		t.Errorf("expected type note, got '%s'", entry.Type)
	}
	if entry.Page != 31 {
		t.Errorf("expected page 31, got %d", entry.Page)
	}
	if entry.Location != 307 {
		t.Errorf("expected location 307, got %d", entry.Location)
	}
	if entry.LocationEnd != 0 {
		t.Errorf("expected no location end, got %d", entry.LocationEnd)
	}
}

func TestParser_ParseEntries_BookmarkKept(t *testing.T) {
	input := `Fahrenheit 451 (Ray Bradbury)
- Your Bookmark at location 346 | Added on Saturday, 26 March 2016 15:46:21


==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Type != EntryTypeBookmark {
		t.Errorf("expected type bookmark, got '%s'", entry.Type)
	}
	if entry.Location != 346 {
		t.Errorf("expected location 346, got %d", entry.Location)
	}
	if entry.Text != "" {
		t.Errorf("expected empty text, got '%s'", entry.Text)
	}
}

func TestParser_ParseEntries_EmptyHighlightBecomesBookmark(t *testing.T) {
	input := `Some Book (Somebody)
- Your Highlight at location 100-101 | Added on Saturday, 26 March 2016 15:46:21

` + "   " + `
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Type != EntryTypeBookmark {
		t.Errorf("expected empty highlight to degrade to bookmark, got '%s'", entries[0].Type)
	}
}

func TestParser_ParseEntries_LocationOnlyFormat(t *testing.T) {
	input := `Fahrenheit 451 (Ray Bradbury)
- Your Highlight at location 784-785 | Added on Saturday, 26 March 2016 18:37:26

Who knows who might be the target of the well-read man?
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Location != 784 {
		t.Errorf("expected location 784, got %d", entry.Location)
	}
	if entry.LocationEnd != 785 {
		t.Errorf("expected location end 785, got %d", entry.LocationEnd)
	}
	if entry.Page != 0 {
		t.Errorf("expected page 0, got %d", entry.Page)
	}
}

func TestParser_ParseEntries_NoAuthor(t *testing.T) {
	input := `Harry_Potter_und_die_Kammer_des_Schreckens
- Your Highlight on page 207-207 | Added on Monday, April 21, 2025 8:55:24 PM

Harry drehte sich auf die Seite
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Title != "Harry_Potter_und_die_Kammer_des_Schreckens" {
		t.Errorf("unexpected title: %s", entry.Title)
	}
	if entry.Author != "" {
		t.Errorf("expected empty author, got '%s'", entry.Author)
	}
	if entry.Page != 207 || entry.PageEnd != 207 {
		t.Errorf("expected page 207-207, got %d-%d", entry.Page, entry.PageEnd)
	}
}

func TestParser_ParseEntries_MalformedBlockSkippedWithWarning(t *testing.T) {
	input := `Good Book (Author)
- Your Highlight at location 10-11 | Added on Saturday, 26 March 2016 18:37:26

keep this one
==========
Broken Book (Author)
this line is not valid metadata

should be skipped
==========
Another Good Book (Author)
- Your Highlight at location 20-21 | Added on Saturday, 26 March 2016 18:40:00

and this one
==========
`

	parser := NewParser()
	entries, skipped, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped block, got %d", len(skipped))
	}
	if skipped[0].Block != 2 {
		t.Errorf("expected block 2 to be skipped, got %d", skipped[0].Block)
	}
	if entries[0].Title != "Good Book" || entries[1].Title != "Another Good Book" {
		t.Errorf("stream did not continue past malformed block: %+v", entries)
	}
}

func TestParser_ParseEntries_BOMTolerated(t *testing.T) {
	input := "\ufeff" + `First Book (Author)
- Your Highlight at location 5-6 | Added on Saturday, 26 March 2016 18:37:26

some text
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "First Book" {
		t.Errorf("BOM leaked into title: %q", entries[0].Title)
	}
}

func TestParser_ParseEntries_NoTrailingSeparator(t *testing.T) {
	input := `Last Book (Author)
- Your Highlight at location 42-43 | Added on Saturday, 26 March 2016 18:37:26

the final entry`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "the final entry" {
		t.Errorf("unexpected text: %s", entries[0].Text)
	}
}

func TestParser_ParseEntries_ExportIndexPreserved(t *testing.T) {
	input := `A (X)
- Your Highlight at location 1-2 | Added on Saturday, 26 March 2016 18:37:26

one
==========
B (Y)
- Your Highlight at location 3-4 | Added on Saturday, 26 March 2016 18:38:26

two
==========
`

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ExportIndex != i {
			t.Errorf("entry %d has export index %d", i, e.ExportIndex)
		}
	}
}

// Parsing is lossless for recognized fields: title, author, type, location
// and content survive a parse of their re-serialized block.
func TestParser_ParseEntries_RoundTrip(t *testing.T) {
	original := ClipEntry{
		Title:       "Bleak House",
		Author:      "Charles Dickens",
		Type:        EntryTypeHighlight,
		Location:    120,
		LocationEnd: 121,
		Text:        "It was the best of times",
	}

	block := original.Title + " (" + original.Author + ")\n" +
		"- Your Highlight at location 120-121 | Added on Saturday, 26 March 2016 18:37:26\n\n" +
		original.Text + "\n==========\n"

	parser := NewParser()
	entries, _, err := parser.ParseEntries(strings.NewReader(block))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.Title != original.Title || got.Author != original.Author ||
		got.Type != original.Type || got.Location != original.Location ||
		got.LocationEnd != original.LocationEnd || got.Text != original.Text {
		t.Errorf("round trip lost fields: %+v", got)
	}
}
