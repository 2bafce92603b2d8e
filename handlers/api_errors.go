package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Error codes used in APIErrorDetail.Code.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeNotFound         = "not_found"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal_error"
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

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Errorf("handlers: Error encoding JSON response: %v", err)
		}
	}
}
