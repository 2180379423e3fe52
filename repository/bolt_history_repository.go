package repository

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/melvy13/fruitveg-classifier-app/models"
	"go.etcd.io/bbolt"
)

var bucketHistory = []byte("classification_history")

// BoltHistoryRepository keeps history in a single bbolt bucket: big-endian
// sequence ids as keys, JSON records as values.
type BoltHistoryRepository struct {
	db *bbolt.DB
}

func NewBoltHistoryRepository(path string) (*BoltHistoryRepository, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt history at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &BoltHistoryRepository{db: db}, nil
}

func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func (r *BoltHistoryRepository) Insert(rec *models.ClassificationHistory) (uint, error) {
	row := *rec
	if row.SchemaVersion == 0 {
		row.SchemaVersion = models.CurrentSchemaVersion
	}
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		row.ID = uint(seq)
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put(idKey(seq), data)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert history for %s: %w", ErrStoreWrite, rec.Label, err)
	}
	rec.ID = row.ID
	rec.SchemaVersion = row.SchemaVersion
	return row.ID, nil
}

// scan decodes every record accepted by keep and sorts newest first
func (r *BoltHistoryRepository) scan(keep func(*models.ClassificationHistory) bool) ([]models.ClassificationHistory, error) {
	history := []models.ClassificationHistory{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(k, v []byte) error {
			var rec models.ClassificationHistory
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt history record %x: %w", k, err)
			}
			if keep == nil || keep(&rec) {
				history = append(history, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(history, func(i, j int) bool {
		if history[i].Timestamp != history[j].Timestamp {
			return history[i].Timestamp > history[j].Timestamp
		}
		return history[i].ID > history[j].ID
	})
	return history, nil
}

func (r *BoltHistoryRepository) ListAll() ([]models.ClassificationHistory, error) {
	history, err := r.scan(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return history, nil
}

func (r *BoltHistoryRepository) Search(query string) ([]models.ClassificationHistory, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	history, err := r.scan(func(rec *models.ClassificationHistory) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(rec.Label), q) ||
			strings.Contains(strings.ToLower(rec.DisplayName), q)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search history for '%s': %w", query, err)
	}
	return history, nil
}

func (r *BoltHistoryRepository) GetByID(id uint) (*models.ClassificationHistory, error) {
	var rec models.ClassificationHistory
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get(idKey(uint64(id)))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get history by id %d: %w", id, err)
	}
	return &rec, nil
}

func (r *BoltHistoryRepository) Delete(id uint) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Delete(idKey(uint64(id)))
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete history %d: %w", ErrStoreWrite, id, err)
	}
	return nil
}

// DeleteAll removes every record but keeps the bucket sequence, so ids are
// never handed out twice.
func (r *BoltHistoryRepository) DeleteAll() error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to clear history: %w", ErrStoreWrite, err)
	}
	return nil
}

func (r *BoltHistoryRepository) Count() (int64, error) {
	var count int64
	err := r.db.View(func(tx *bbolt.Tx) error {
		count = int64(tx.Bucket(bucketHistory).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

func (r *BoltHistoryRepository) Close() error {
	return r.db.Close()
}
