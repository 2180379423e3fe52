package database

import (
	"fmt"
	"log"
	"path"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/melvy13/fruitveg-classifier-app/models"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// LegacyHistoryTable is where a version 1 history table is kept after upgrade
const LegacyHistoryTable = "classification_history_v1"

// legacyMarkerColumn only exists in the version 1 layout, which used
// camelCase column names and a single per-serving profile.
const legacyMarkerColumn = "imagePath"

type legacyRow struct {
	ID                 uint
	Label              string
	DisplayName        string
	Confidence         float32
	ImagePath          string
	Timestamp          int64
	Calories           float64
	Protein            float64
	Fat                float64
	Carbs              float64
	Fiber              float64
	Sugar              float64
	VitaminC           float64
	ServingDescription string
}

// MigrateHistory brings the history table to the current schema. A version 1
// table is renamed to LegacyHistoryTable and its rows are copied into a fresh
// table, keeping ids and timestamps. Per-100g values, which version 1 never
// stored, are taken from the reference table when the label is known. The
// whole upgrade is one transaction; after it commits there is nothing left to
// detect, so running it again is a no-op. Image paths are rewritten to
// capturesSubDir/<file name>, the layout the media store serves from.
// Returns the number of rows copied.
func MigrateHistory(db *gorm.DB, table *nutrition.Table, capturesSubDir string) (int, error) {
	legacy, err := hasLegacyHistoryLayout(db)
	if err != nil {
		return 0, err
	}
	if !legacy {
		return 0, AutoMigrateModels(db)
	}

	log.Printf("database.migrate: found version 1 history table, upgrading")
	copied := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().RenameTable(models.ClassificationHistory{}.TableName(), LegacyHistoryTable); err != nil {
			return fmt.Errorf("failed to rename legacy history table: %w", err)
		}
		if err := AutoMigrateModels(tx); err != nil {
			return err
		}

		rows, err := selectLegacyRows(tx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			rec := upgradeLegacyRow(row, table, capturesSubDir)
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to copy legacy history row %d: %w", row.ID, err)
			}
			copied++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("history upgrade failed: %w", err)
	}

	log.Printf("database.migrate: upgraded %d history rows, old table kept as %s", copied, LegacyHistoryTable)
	return copied, nil
}

func hasLegacyHistoryLayout(db *gorm.DB) (bool, error) {
	m := db.Migrator()
	if !m.HasTable(&models.ClassificationHistory{}) {
		return false, nil
	}
	if m.HasTable(LegacyHistoryTable) {
		// a previous upgrade already ran; never clobber its backup
		return false, nil
	}
	return m.HasColumn(&models.ClassificationHistory{}, legacyMarkerColumn), nil
}

func selectLegacyRows(tx *gorm.DB) ([]legacyRow, error) {
	queryBuilder := psql.Select(
		"id", "label", "displayName", "confidence", "imagePath", "timestamp",
		"calories", "protein", "fat", "carbs", "fiber", "sugar", "vitaminC",
		"servingDescription",
	).From(LegacyHistoryTable).
		OrderBy("id ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for legacy history: %w", err)
	}

	rows, err := tx.Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy history: %w", err)
	}
	defer rows.Close()

	var out []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(
			&r.ID, &r.Label, &r.DisplayName, &r.Confidence, &r.ImagePath, &r.Timestamp,
			&r.Calories, &r.Protein, &r.Fat, &r.Carbs, &r.Fiber, &r.Sugar, &r.VitaminC,
			&r.ServingDescription,
		); err != nil {
			return nil, fmt.Errorf("failed to scan legacy history row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legacy history rows: %w", err)
	}
	return out, nil
}

// legacyImagePath maps a version 1 path, which was absolute on the device,
// to one relative to the media root
func legacyImagePath(p, capturesSubDir string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if capturesSubDir == "" {
		return base
	}
	return path.Join(capturesSubDir, base)
}

func upgradeLegacyRow(row legacyRow, table *nutrition.Table, capturesSubDir string) models.ClassificationHistory {
	rec := models.ClassificationHistory{
		ID:                 row.ID,
		Label:              row.Label,
		DisplayName:        row.DisplayName,
		Confidence:         row.Confidence,
		ImagePath:          legacyImagePath(row.ImagePath, capturesSubDir),
		Timestamp:          row.Timestamp,
		ServingDescription: row.ServingDescription,

		CaloriesPerServing:   row.Calories,
		ProteinPerServing:    row.Protein,
		FatPerServing:        row.Fat,
		TotalCarbsPerServing: row.Carbs,
		FiberPerServing:      row.Fiber,
		SugarPerServing:      row.Sugar,
		VitaminCPerServing:   row.VitaminC,

		SchemaVersion: models.CurrentSchemaVersion,
	}

	if table == nil {
		return rec
	}
	data, err := table.Lookup(row.Label)
	if err != nil {
		log.Printf("database.migrate: no reference data for legacy label '%s', per-100g left empty", row.Label)
		return rec
	}
	p := data.Per100g
	rec.CaloriesPer100g = p.Calories
	rec.WaterPer100g = p.Water
	rec.ProteinPer100g = p.Protein
	rec.FatPer100g = p.Fat
	rec.TotalCarbsPer100g = p.TotalCarbs
	rec.FiberPer100g = p.Fiber
	rec.SugarPer100g = p.Sugar
	rec.VitaminCPer100g = p.VitaminC
	// version 1 never stored water; scale it from the same serving
	rec.WaterPerServing = p.Water * float64(data.ServingSize.Amount) / 100.0
	return rec
}
