package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DmitryBarskov/klippings/internal/entities"
)

// Database stores annotated books and clips in a local sqlite file so
// repeated runs against a growing clippings export stay deduplicated.
type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.Clip{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveBook upserts a book by title+author and appends its clips,
// deduplicating by external ID so re-imports are no-ops.
func (d *Database) SaveBook(book *entities.Book) error {
	var existing entities.Book
	err := d.DB.Where("title = ? AND author = ?", book.Title, book.Author).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		clips := book.Clips
		book.Clips = nil
		if err := d.DB.Create(book).Error; err != nil {
			return fmt.Errorf("failed to create book %q: %w", book.Title, err)
		}
		book.Clips = clips
	case err != nil:
		return fmt.Errorf("failed to look up book %q: %w", book.Title, err)
	default:
		existing.FilePath = book.FilePath
		existing.Resolved = book.Resolved
		if err := d.DB.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update book %q: %w", book.Title, err)
		}
		book.ID = existing.ID
	}

	for i := range book.Clips {
		clip := &book.Clips[i]
		clip.BookID = book.ID
		if err := d.saveClip(clip); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) saveClip(clip *entities.Clip) error {
	if clip.ExternalID != "" {
		var count int64
		if err := d.DB.Model(&entities.Clip{}).
			Where("external_id = ?", clip.ExternalID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check clip %q: %w", clip.ExternalID, err)
		}
		if count > 0 {
			return nil
		}
	}
	if err := d.DB.Create(clip).Error; err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}
	return nil
}

// GetBookByTitleAndAuthor loads a book with its clips ordered by location.
func (d *Database) GetBookByTitleAndAuthor(title, author string) (*entities.Book, error) {
	var book entities.Book
	err := d.DB.Preload("Clips", func(db *gorm.DB) *gorm.DB {
		return db.Order("location ASC, added_at ASC")
	}).Where("title = ? AND author = ?", title, author).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CountClips returns the number of stored clips.
func (d *Database) CountClips() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Clip{}).Count(&count).Error
	return count, err
}
