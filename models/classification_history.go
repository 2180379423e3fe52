package models

import (
	"time"

	"github.com/melvy13/fruitveg-classifier-app/nutrition"
)

// CurrentSchemaVersion is written on every new row. Version 1 rows only
// carried a per-serving profile under bare nutrient column names.
const CurrentSchemaVersion = 2

// TimestampLayout is how history cards show when a classification happened
const TimestampLayout = "Jan 02, 2006 at 03:04 PM"

// ClassificationHistory is one saved classification. Rows are immutable once
// written; the only mutations are delete and delete-all.
type ClassificationHistory struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Label       string  `gorm:"not null;index" json:"label"`
	DisplayName string  `gorm:"not null" json:"display_name"`
	Confidence  float32 `gorm:"not null" json:"confidence"`
	ImagePath   string  `gorm:"not null" json:"image_path"`      // relative to the media root
	Timestamp   int64   `gorm:"not null;index" json:"timestamp"` // unix ms

	ServingDescription string `gorm:"" json:"serving_description"`

	CaloriesPerServing   float64 `gorm:"not null;default:0" json:"calories_per_serving"`
	WaterPerServing      float64 `gorm:"not null;default:0" json:"water_per_serving"`
	ProteinPerServing    float64 `gorm:"not null;default:0" json:"protein_per_serving"`
	FatPerServing        float64 `gorm:"not null;default:0" json:"fat_per_serving"`
	TotalCarbsPerServing float64 `gorm:"not null;default:0" json:"total_carbs_per_serving"`
	FiberPerServing      float64 `gorm:"not null;default:0" json:"fiber_per_serving"`
	SugarPerServing      float64 `gorm:"not null;default:0" json:"sugar_per_serving"`
	VitaminCPerServing   float64 `gorm:"not null;default:0" json:"vitamin_c_per_serving"`

	CaloriesPer100g   float64 `gorm:"column:calories_per_100g;not null;default:0" json:"calories_per_100g"`
	WaterPer100g      float64 `gorm:"column:water_per_100g;not null;default:0" json:"water_per_100g"`
	ProteinPer100g    float64 `gorm:"column:protein_per_100g;not null;default:0" json:"protein_per_100g"`
	FatPer100g        float64 `gorm:"column:fat_per_100g;not null;default:0" json:"fat_per_100g"`
	TotalCarbsPer100g float64 `gorm:"column:total_carbs_per_100g;not null;default:0" json:"total_carbs_per_100g"`
	FiberPer100g      float64 `gorm:"column:fiber_per_100g;not null;default:0" json:"fiber_per_100g"`
	SugarPer100g      float64 `gorm:"column:sugar_per_100g;not null;default:0" json:"sugar_per_100g"`
	VitaminCPer100g   float64 `gorm:"column:vitamin_c_per_100g;not null;default:0" json:"vitamin_c_per_100g"`

	TopPredictions string `gorm:"type:text" json:"top_predictions"` // "label:prob,label:prob,..."

	CapturedAt    *int64 `gorm:"" json:"captured_at,omitempty"` // EXIF DateTime, unix ms
	SchemaVersion int    `gorm:"not null;default:1" json:"schema_version"`
}

// TableName explicitly sets the table name for GORM.
func (ClassificationHistory) TableName() string {
	return "classification_history"
}

// ApplyNutrition copies both nutrient bases of d onto the record
func (h *ClassificationHistory) ApplyNutrition(d nutrition.Display) {
	h.ServingDescription = d.ServingDescription

	s := d.PerServing
	h.CaloriesPerServing = s.Calories
	h.WaterPerServing = s.Water
	h.ProteinPerServing = s.Protein
	h.FatPerServing = s.Fat
	h.TotalCarbsPerServing = s.TotalCarbs
	h.FiberPerServing = s.Fiber
	h.SugarPerServing = s.Sugar
	h.VitaminCPerServing = s.VitaminC

	p := d.Per100g
	h.CaloriesPer100g = p.Calories
	h.WaterPer100g = p.Water
	h.ProteinPer100g = p.Protein
	h.FatPer100g = p.Fat
	h.TotalCarbsPer100g = p.TotalCarbs
	h.FiberPer100g = p.Fiber
	h.SugarPer100g = p.Sugar
	h.VitaminCPer100g = p.VitaminC
}

func (h ClassificationHistory) PerServing() nutrition.Values {
	return nutrition.Values{
		Calories:   h.CaloriesPerServing,
		Water:      h.WaterPerServing,
		Protein:    h.ProteinPerServing,
		Fat:        h.FatPerServing,
		TotalCarbs: h.TotalCarbsPerServing,
		Fiber:      h.FiberPerServing,
		Sugar:      h.SugarPerServing,
		VitaminC:   h.VitaminCPerServing,
	}
}

func (h ClassificationHistory) Per100g() nutrition.Values {
	return nutrition.Values{
		Calories:   h.CaloriesPer100g,
		Water:      h.WaterPer100g,
		Protein:    h.ProteinPer100g,
		Fat:        h.FatPer100g,
		TotalCarbs: h.TotalCarbsPer100g,
		Fiber:      h.FiberPer100g,
		Sugar:      h.SugarPer100g,
		VitaminC:   h.VitaminCPer100g,
	}
}

// FormatTimestamp renders the record time in loc (local time if nil)
func (h ClassificationHistory) FormatTimestamp(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(h.Timestamp).In(loc).Format(TimestampLayout)
}
