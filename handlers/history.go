package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/models"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
	"github.com/melvy13/fruitveg-classifier-app/repository"
	"github.com/melvy13/fruitveg-classifier-app/utils"
)

// HistoryEditor performs deletes and publishes the matching events
type HistoryEditor interface {
	DeleteHistory(id uint) error
	ClearHistory() error
}

type HistoryHandler struct {
	Repo       repository.HistoryRepositoryInterface
	Editor     HistoryEditor
	Location   *time.Location
	CaptureURL func(imagePath string) string
	Store      media.Store // captures, for export
}

// HistoryResponseDTO is one history card
type HistoryResponseDTO struct {
	ID                 uint                    `json:"id"`
	Label              string                  `json:"label"`
	DisplayName        string                  `json:"display_name"`
	Confidence         float32                 `json:"confidence"`
	ImagePath          string                  `json:"image_path"`
	ImageURL           string                  `json:"image_url,omitempty"`
	Timestamp          int64                   `json:"timestamp"`
	FormattedTimestamp string                  `json:"formatted_timestamp"`
	CapturedAt         *int64                  `json:"captured_at,omitempty"`
	ServingDescription string                  `json:"serving_description"`
	PerServing         nutrition.Values        `json:"per_serving"`
	Per100g            nutrition.Values        `json:"per_100g"`
	TopPredictions     []classifier.Prediction `json:"top_predictions"`
}

func (h *HistoryHandler) toDTO(rec models.ClassificationHistory) HistoryResponseDTO {
	top, err := classifier.ParsePredictions(rec.TopPredictions)
	if err != nil {
		log.Printf("handlers.history: record %d has unreadable top predictions: %v", rec.ID, err)
		top = []classifier.Prediction{}
	}
	dto := HistoryResponseDTO{
		ID:                 rec.ID,
		Label:              rec.Label,
		DisplayName:        rec.DisplayName,
		Confidence:         rec.Confidence,
		ImagePath:          rec.ImagePath,
		Timestamp:          rec.Timestamp,
		FormattedTimestamp: rec.FormatTimestamp(h.Location),
		CapturedAt:         rec.CapturedAt,
		ServingDescription: rec.ServingDescription,
		PerServing:         rec.PerServing(),
		Per100g:            rec.Per100g(),
		TopPredictions:     top,
	}
	if h.CaptureURL != nil && rec.ImagePath != "" {
		dto.ImageURL = h.CaptureURL(rec.ImagePath)
	}
	return dto
}

func (h *HistoryHandler) toDTOList(history []models.ClassificationHistory) []HistoryResponseDTO {
	dtos := make([]HistoryResponseDTO, len(history))
	for i, rec := range history {
		dtos[i] = h.toDTO(rec)
	}
	return dtos
}

func parseHistoryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid history id")
		return 0, false
	}
	return uint(id), true
}

// ListHistory handles GET /api/history, with optional ?q= search
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	var (
		history []models.ClassificationHistory
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		history, err = h.Repo.Search(q)
	} else {
		history, err = h.Repo.ListAll()
	}
	if err != nil {
		writeInternalError(w, "load history", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTOList(history))
}

func (h *HistoryHandler) CountHistory(w http.ResponseWriter, r *http.Request) {
	count, err := h.Repo.Count()
	if err != nil {
		writeInternalError(w, "count history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseHistoryID(w, r)
	if !ok {
		return
	}
	rec, err := h.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "History record not found")
			return
		}
		writeInternalError(w, "load history record", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDTO(*rec))
}

// DeleteHistory is idempotent: deleting an unknown id still answers 204
func (h *HistoryHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseHistoryID(w, r)
	if !ok {
		return
	}
	if err := h.Editor.DeleteHistory(id); err != nil {
		writeInternalError(w, "delete history record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HistoryHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Editor.ClearHistory(); err != nil {
		writeInternalError(w, "clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory streams every record and its capture as a ZIP download
func (h *HistoryHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Repo.ListAll()
	if err != nil {
		writeInternalError(w, "load history", err)
		return
	}

	filename := fmt.Sprintf("history_%s.zip", time.Now().In(h.location()).Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// headers are already sent; a failure here can only be logged
	if _, err := utils.WriteHistoryArchive(w, history, h.Store); err != nil {
		log.Printf("handlers.history: export aborted: %v", err)
	}
}

func (h *HistoryHandler) location() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}
