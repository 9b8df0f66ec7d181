// Package vocab provides the vocabulary image domain model and persistent cache.
package vocab

import (
	"fmt"
	"strings"
	"time"
)

// Language is the target language of a vocabulary word.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageChinese    Language = "zh"
)

// Name returns the English name of the language for prompt building.
func (l Language) Name() string {
	switch l {
	case LanguageVietnamese:
		return "Vietnamese"
	case LanguageChinese:
		return "Chinese"
	}
	return string(l)
}

// ParseLanguage validates a language tag from an external request.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageVietnamese:
		return LanguageVietnamese, nil
	case LanguageChinese:
		return LanguageChinese, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// NormalizeKey converts a vocabulary word into its cache key form:
// trimmed, lower-cased, with internal whitespace runs collapsed to a single
// underscore. The key and the language together identify one cache entry.
func NormalizeKey(vocabulary string) string {
	return strings.Join(strings.Fields(strings.ToLower(vocabulary)), "_")
}

// Image is one cached illustration for a (vocabulary_key, language) pair.
// Entries are immutable once written and never expire.
type Image struct {
	ID            int64     `db:"id"`
	VocabularyKey string    `db:"vocabulary_key"`
	Language      Language  `db:"language"`
	ImageURL      string    `db:"image_url"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ObjectName builds the storage object name for a generated image. The
// timestamp keeps concurrent generations for the same pair from overwriting
// each other's uploads.
func ObjectName(key string, language Language, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d.png", key, language, now.UnixMilli())
}
