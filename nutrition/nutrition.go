// Package nutrition holds the bundled reference table and per-serving scaling.
package nutrition

import "errors"

// ErrNotFound is returned when a label has no reference entry
var ErrNotFound = errors.New("nutrition data not found")

// Values is an amount of each tracked nutrient for some mass basis.
// Energy is kcal, vitamin C is mg, everything else is grams.
type Values struct {
	Calories   float64 `json:"calories"`
	Water      float64 `json:"water"`
	Protein    float64 `json:"protein"`
	Fat        float64 `json:"fat"`
	TotalCarbs float64 `json:"total_carbs"`
	Fiber      float64 `json:"fiber"`
	Sugar      float64 `json:"sugar"`
	VitaminC   float64 `json:"vitamin_c"`
}

// Scaled multiplies every field by m
func (v Values) Scaled(m float64) Values {
	return Values{
		Calories:   v.Calories * m,
		Water:      v.Water * m,
		Protein:    v.Protein * m,
		Fat:        v.Fat * m,
		TotalCarbs: v.TotalCarbs * m,
		Fiber:      v.Fiber * m,
		Sugar:      v.Sugar * m,
		VitaminC:   v.VitaminC * m,
	}
}

type ServingSize struct {
	Amount      int    `json:"amount"` // grams
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description"`
}

// Data is one entry of the reference table
type Data struct {
	DisplayName string      `json:"display_name"`
	ServingSize ServingSize `json:"serving_size"`
	Per100g     Values      `json:"per_100g"`
}

// Display is what the result card shows: both bases side by side
type Display struct {
	DisplayName        string `json:"display_name"`
	ServingDescription string `json:"serving_description"`
	Per100g            Values `json:"per_100g"`
	PerServing         Values `json:"per_serving"`
}

// Scale derives the per-serving profile linearly from the per-100g one.
// No rounding happens here; formatting is left to the presentation layer.
func Scale(data Data) Display {
	multiplier := float64(data.ServingSize.Amount) / 100.0
	return Display{
		DisplayName:        data.DisplayName,
		ServingDescription: data.ServingSize.Description,
		Per100g:            data.Per100g,
		PerServing:         data.Per100g.Scaled(multiplier),
	}
}
