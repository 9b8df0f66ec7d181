package vocab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=../mocks/vocab/mock_repository.go -package=mock_vocab

// Repository defines operations for the persistent vocabulary image cache.
type Repository interface {
	FindByKey(ctx context.Context, key string, language Language) (*Image, error)
	Create(ctx context.Context, image *Image) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindByKey returns the cached image for a (key, language) pair, or nil if
// none exists.
func (r *DBRepository) FindByKey(ctx context.Context, key string, language Language) (*Image, error) {
	var image Image
	err := r.db.GetContext(ctx, &image,
		"SELECT * FROM vocabulary_images WHERE vocabulary_key = ? AND language = ?",
		key, language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(vocabulary_images) > %w", err)
	}
	return &image, nil
}

// Create inserts a new cache entry. When two requests race on the same pair,
// the unique (vocabulary_key, language) index keeps the first written row and
// the later insert is a no-op rather than an error.
func (r *DBRepository) Create(ctx context.Context, image *Image) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO vocabulary_images (vocabulary_key, language, image_url)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE image_url = image_url`,
		image.VocabularyKey, image.Language, image.ImageURL)
	if err != nil {
		return fmt.Errorf("db.ExecContext(insert vocabulary_image) > %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("result.LastInsertId() > %w", err)
	}
	image.ID = id
	return nil
}
