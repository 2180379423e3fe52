package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
)

type NutritionHandler struct {
	Table  *nutrition.Table
	Labels []string // the classifier label set, in model order
}

type NutritionEntryDTO struct {
	Label string `json:"label"`
	nutrition.Display
}

// ListNutrition returns the whole reference table in natural label order
func (h *NutritionHandler) ListNutrition(w http.ResponseWriter, r *http.Request) {
	labels := h.Table.Labels()
	entries := make([]NutritionEntryDTO, 0, len(labels))
	for _, label := range labels {
		d, err := h.Table.Display(label)
		if err != nil {
			continue
		}
		entries = append(entries, NutritionEntryDTO{Label: label, Display: d})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *NutritionHandler) GetNutrition(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	d, err := h.Table.Display(label)
	if err != nil {
		if errors.Is(err, nutrition.ErrNotFound) {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "No nutrition data for '"+label+"'")
			return
		}
		writeInternalError(w, "load nutrition", err)
		return
	}
	writeJSON(w, http.StatusOK, NutritionEntryDTO{Label: label, Display: d})
}

type LabelDTO struct {
	Index        int    `json:"index"`
	Label        string `json:"label"`
	DisplayName  string `json:"display_name"`
	HasNutrition bool   `json:"has_nutrition"`
}

// ListLabels returns the classifier label set in model output order
func (h *NutritionHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	out := make([]LabelDTO, len(h.Labels))
	for i, label := range h.Labels {
		_, err := h.Table.Lookup(label)
		out[i] = LabelDTO{Index: i, Label: label, DisplayName: h.Table.DisplayName(label), HasNutrition: err == nil}
	}
	writeJSON(w, http.StatusOK, out)
}
