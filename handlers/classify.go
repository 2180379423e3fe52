package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/services"
)

const classifyFormField = "image"

// Classifier is the part of ClassificationService the upload endpoint needs
type Classifier interface {
	Classify(ctx context.Context, src io.Reader) (*services.Outcome, error)
}

type ClassifyHandler struct {
	Service        Classifier
	MaxUploadBytes int64
	CaptureURL     func(imagePath string) string
}

// ClassifyResponse is the outcome plus the non-fatal warnings
type ClassifyResponse struct {
	*services.Outcome
	ImageURL string   `json:"image_url,omitempty"`
	Warnings []string `json:"warnings"`
}

// Classify handles POST /api/classify with a multipart "image" field
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "Upload exceeds the size limit")
			return
		}
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Expected a multipart form with an 'image' field")
		return
	}

	file, header, err := r.FormFile(classifyFormField)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Missing 'image' field")
		return
	}
	defer file.Close()

	outcome, err := h.Service.Classify(r.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrInvalidImage):
			WriteAPIError(w, http.StatusUnprocessableEntity, CodeInvalidImage, "The uploaded file could not be decoded as an image")
		case errors.Is(err, classifier.ErrInferenceFailure):
			log.Printf("handlers.classify: inference failed for %s: %v", header.Filename, err)
			WriteAPIError(w, http.StatusInternalServerError, CodeInferenceFailure, "Classification failed")
		default:
			writeInternalError(w, "classify image", err)
		}
		return
	}

	resp := ClassifyResponse{Outcome: outcome, Warnings: outcome.Warnings()}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if outcome.ImagePath != "" && h.CaptureURL != nil {
		resp.ImageURL = h.CaptureURL(outcome.ImagePath)
	}
	writeJSON(w, http.StatusOK, resp)
}
