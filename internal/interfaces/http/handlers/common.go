package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/middleware"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error response body.
type ErrorResponse = common.ErrorBody

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its registered HTTP status.  Server-side
// failures are masked with the code's default message.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{Code: string(code), Message: errors.DefaultMessageForCode(code)}

	var ae *errors.AppError
	if !errors.IsServerError(code) && errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Fields = ae.Fields
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.InvalidParam("request body is empty")
		}
		return errors.New(errors.ErrCodeBadRequest, "invalid request body").WithCause(err)
	}
	return nil
}

// pathID parses the named chi URL parameter as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidParam(name + " must be a positive integer")
	}
	return id, nil
}

// subjectOf returns the subject resolved by middleware.Subject.  A missing
// subject yields an anonymous one with no roles.
func subjectOf(r *http.Request) access.Subject {
	s, _ := middleware.SubjectFromContext(r.Context())
	return s
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if d, err := time.Parse(contract.DateLayout, raw); err == nil {
		return &d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		d = contract.DateOf(d)
		return &d, nil
	}
	return nil, errors.NewValidation(map[string]string{field: "must be a date (YYYY-MM-DD)"})
}

// respondError writes err and logs it when it is a server-side failure.
func respondError(logger logging.Logger, w http.ResponseWriter, op string, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || errors.IsServerError(code) {
		logger.Error("failed to "+op,
			logging.String("error_code", code.String()),
			logging.String("error_module", code.Module()),
			logging.Err(err),
		)
	}
	writeAppError(w, err)
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

// queryPage reads limit and offset, capping the limit.
func queryPage(r *http.Request) common.Page {
	return common.Page{Limit: queryInt(r, "limit", 0), Offset: queryInt(r, "offset", 0)}.Clamp()
}

//Personal.AI order the ending
