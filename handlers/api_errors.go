package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/mdobak/go-xerrors"
)

// error codes used across the API
const (
	CodeInvalidImage     = "invalid_image"
	CodeInferenceFailure = "inference_failure"
	CodeNotFound         = "not_found"
	CodeBadRequest       = "bad_request"
	CodeInternal         = "internal"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeInternalError logs err with a stack trace and answers 500 without
// leaking the cause to the client
func writeInternalError(w http.ResponseWriter, action string, err error) {
	log.Printf("handlers: %s failed: %+v", action, xerrors.New(err))
	WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to "+action)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode response: %v", err)
	}
}
