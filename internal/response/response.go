// Package response writes the JSON envelopes every endpoint answers with.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

var now = time.Now

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any, message string) {
	Success(w, http.StatusOK, data, message)
}

func Created(w http.ResponseWriter, data any, message string) {
	Success(w, http.StatusCreated, data, message)
}

func Success(w http.ResponseWriter, status int, data any, message string) {
	if message == "" {
		message = "Success"
	}
	JSON(w, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
	})
}

// Fail writes an error envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, message string, details any) {
	JSON(w, status, Envelope{
		Success:   false,
		Error:     message,
		Details:   details,
		Timestamp: now().UTC().Format(time.RFC3339Nano),
	})
}

// Error maps err onto an error envelope. Untyped errors become a logged 500.
func Error(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var ae *appErrors.AppError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		ae = appErrors.Validation(verrs)
	case errors.As(err, &ae):
	default:
		ae = appErrors.Internal(err)
	}

	if ae.Status < http.StatusInternalServerError {
		Fail(w, ae.Status, ae.Message, ae.Details)
		return
	}
	if log != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	Fail(w, ae.Status, "Internal server error", nil)
}
