package entities

import (
	"time"
)

type EntryKind string

const (
	EntryKindHighlight EntryKind = "highlight"
	EntryKindNote      EntryKind = "note"
	EntryKindBookmark  EntryKind = "bookmark"
)

// Book is a persisted book with its annotated clips.
type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"index;size:512" json:"title"`
	Author    string    `gorm:"index;size:256" json:"author"`
	FilePath  string    `gorm:"size:1024" json:"file_path,omitempty"`
	Resolved  bool      `json:"resolved"`
	Clips     []Clip    `gorm:"foreignKey:BookID" json:"clips,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clip is a persisted annotated clipping. Context around the matched
// passage lands in ContextPrefix/ContextSuffix; MatchConfidence records how
// the passage was located (exact, fuzzy, not_found).
type Clip struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	BookID uint      `gorm:"index" json:"book_id"`
	Kind   EntryKind `gorm:"size:20;default:'highlight'" json:"kind"`
	Text   string    `gorm:"type:text" json:"text"`
	Note   string    `gorm:"type:text" json:"note,omitempty"`

	Page        int `json:"page,omitempty"`
	Location    int `json:"location,omitempty"`
	LocationEnd int `json:"location_end,omitempty"`

	ContextPrefix   string  `gorm:"type:text" json:"context_prefix,omitempty"`
	ContextSuffix   string  `gorm:"type:text" json:"context_suffix,omitempty"`
	MatchConfidence string  `gorm:"size:20" json:"match_confidence,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`

	AddedAt   time.Time `json:"added_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Dedup key across repeated imports.
	ExternalID string `gorm:"uniqueIndex;size:256" json:"external_id,omitempty"`

	Book Book `gorm:"foreignKey:BookID" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

func (Clip) TableName() string {
	return "clips"
}
