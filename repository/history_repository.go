package repository

import (
	"fmt"
	"strings"

	"github.com/melvy13/fruitveg-classifier-app/database"
	"github.com/melvy13/fruitveg-classifier-app/models"
	"gorm.io/gorm"
)

const historyOrder = "timestamp DESC, id DESC"

// GormHistoryRepository stores history in sqlite through GORM
type GormHistoryRepository struct {
	DB *gorm.DB
}

// NewGormHistoryRepository creates a new instance of GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{DB: db}
}

// Insert writes a copy of rec with a fresh id
func (r *GormHistoryRepository) Insert(rec *models.ClassificationHistory) (uint, error) {
	row := *rec
	row.ID = 0
	if row.SchemaVersion == 0 {
		row.SchemaVersion = models.CurrentSchemaVersion
	}
	if err := r.DB.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: failed to insert history for %s: %w", ErrStoreWrite, rec.Label, err)
	}
	rec.ID = row.ID
	rec.SchemaVersion = row.SchemaVersion
	return row.ID, nil
}

// ListAll returns every record, newest first
func (r *GormHistoryRepository) ListAll() ([]models.ClassificationHistory, error) {
	history := []models.ClassificationHistory{}
	if err := r.DB.Order(historyOrder).Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return history, nil
}

// Search matches label or display name, case-insensitive
func (r *GormHistoryRepository) Search(query string) ([]models.ClassificationHistory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.ListAll()
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	history := []models.ClassificationHistory{}
	err := r.DB.
		Where("LOWER(label) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order(historyOrder).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search history for '%s': %w", query, err)
	}
	return history, nil
}

// GetByID retrieves a record by its ID
func (r *GormHistoryRepository) GetByID(id uint) (*models.ClassificationHistory, error) {
	var rec models.ClassificationHistory
	err := r.DB.First(&rec, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get history by id %d: %w", id, err)
	}
	return &rec, nil
}

// Delete removes a record by its ID
func (r *GormHistoryRepository) Delete(id uint) error {
	if err := r.DB.Delete(&models.ClassificationHistory{}, id).Error; err != nil {
		return fmt.Errorf("%w: failed to delete history %d: %w", ErrStoreWrite, id, err)
	}
	return nil
}

// DeleteAll empties the table. Saved images are left on disk.
func (r *GormHistoryRepository) DeleteAll() error {
	err := r.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ClassificationHistory{}).Error
	if err != nil {
		return fmt.Errorf("%w: failed to clear history: %w", ErrStoreWrite, err)
	}
	return nil
}

func (r *GormHistoryRepository) Count() (int64, error) {
	var count int64
	if err := r.DB.Model(&models.ClassificationHistory{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

func (r *GormHistoryRepository) Close() error {
	return database.CloseGormDB(r.DB)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
