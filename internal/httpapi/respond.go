package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/service"
	"latiafanny/backend/internal/store"
)

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// pathID reads a positive int64 route parameter. Anything else is reported as
// not found, the same as an id that does not exist.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, store.ErrNotFound
	}
	return id, nil
}

func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, store.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactiveAccount), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, false, "method not allowed")
}

// writeError maps err to a status. 5xx bodies stay generic; the cause is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
		writeMessage(w, status, false, "internal server error")
		return
	}

	body := map[string]any{"success": false, "message": err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body["errors"] = map[string][]string{verr.Field: {verr.Message}}
	}
	writeJSON(w, status, body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, map[string]any{"success": success, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDocument sends an exported report. CSV is a download, HTML opens in the
// browser for printing.
func writeDocument(w http.ResponseWriter, doc report.Document) {
	disposition := "inline"
	if doc.MIMEType == report.CSVMimeType {
		disposition = "attachment"
	}
	name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(doc.Filename)
	w.Header().Set("Content-Type", doc.MIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
