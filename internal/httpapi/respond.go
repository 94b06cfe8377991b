package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/safar/storefront/internal/database"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondErr maps a domain error to its HTTP status. Anything without a
// domain kind is logged and reported as an internal error.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *database.Error
	if !errors.As(err, &domainErr) {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	resp := ErrorResponse{Error: domainErr.Message}
	if msg := err.Error(); msg != domainErr.Message {
		resp.Details = msg
	}

	var status int
	switch domainErr.Kind {
	case database.KindNotFound:
		status, resp.Code = http.StatusNotFound, "not_found"
	case database.KindInvalidInput:
		status, resp.Code = http.StatusBadRequest, "invalid_input"
	case database.KindUnauthorized:
		status, resp.Code = http.StatusUnauthorized, "unauthorized"
	case database.KindConflict:
		status, resp.Code = http.StatusConflict, "conflict"
	default:
		status, resp.Code = http.StatusInternalServerError, "internal_error"
	}
	respondJSON(w, status, resp)
}

func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid request",
		Code:    "validation_failed",
		Details: strings.Join(fields, "; "),
	})
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// wantsJSON reports whether the client expects a JSON body rather than a
// redirect.
func wantsJSON(r *http.Request) bool {
	return isJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// requestValues reads a flat set of fields from a JSON object body or from
// form values. Missing fields are absent from the map.
func requestValues(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	values := map[string]string{}

	if isJSON(r) {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case nil:
			case string:
				values[key] = v
			case json.Number:
				values[key] = v.String()
			default:
				values[key] = fmt.Sprint(v)
			}
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values, nil
}

// intValue parses values[key], returning def when the field is absent or
// blank.
func intValue(values map[string]string, key string, def int) (int, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func queryInt(r *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func pathID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	return id, err == nil && id > 0
}
