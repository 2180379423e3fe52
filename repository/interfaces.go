package repository

import (
	"errors"

	"github.com/melvy13/fruitveg-classifier-app/models"
	"gorm.io/gorm"
)

// ErrStoreWrite wraps any failure to persist or delete history
var ErrStoreWrite = errors.New("history store write failed")

// ErrNotFound is returned by GetByID for an unknown id. It is the gorm
// sentinel so callers can check either name.
var ErrNotFound = gorm.ErrRecordNotFound

// HistoryRepositoryInterface defines the methods for classification history.
// Records are immutable: there is no update.
type HistoryRepositoryInterface interface {
	// Insert stores a copy of rec and returns its new id. rec is left
	// untouched if the write fails.
	Insert(rec *models.ClassificationHistory) (uint, error)
	// ListAll returns every record, newest first (timestamp DESC, id DESC)
	ListAll() ([]models.ClassificationHistory, error)
	// Search matches query case-insensitively against label and display name
	Search(query string) ([]models.ClassificationHistory, error)
	GetByID(id uint) (*models.ClassificationHistory, error)
	// Delete removes one record; an unknown id is not an error
	Delete(id uint) error
	DeleteAll() error
	Count() (int64, error)
	Close() error
}
