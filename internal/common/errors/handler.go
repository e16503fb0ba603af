package errors

import (
	"net/http"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// PageWriter renders the failure page body.
type PageWriter func(w http.ResponseWriter, status int, title, message string)

// ErrorHandler turns pipeline and handler errors into failure responses.
type ErrorHandler struct {
	logger Logger
	write  PageWriter
}

func NewErrorHandler(logger Logger, write PageWriter) *ErrorHandler {
	if write == nil {
		write = plainPage
	}
	return &ErrorHandler{logger: logger, write: write}
}

// Handle logs err and writes the mapped status with a user-facing message.
// It returns the normalized error.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) *StandardError {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"code":    string(stdErr.Code),
		"message": stdErr.Message,
		"details": stdErr.Details,
		"path":    r.URL.Path,
		"status":  status,
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}

	h.write(w, status, "Fehler", UserMessage(stdErr.Code))
	return stdErr
}

func plainPage(w http.ResponseWriter, status int, _, message string) {
	http.Error(w, message, status)
}
