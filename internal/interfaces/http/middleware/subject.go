package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// SubjectResolver turns an authenticated user ID into an access.Subject.
// *access.Evaluator implements it.
type SubjectResolver interface {
	Resolve(ctx context.Context, userID string) (access.Subject, error)
}

type subjectKey struct{}

// ContextWithSubject stores s in ctx.
func ContextWithSubject(ctx context.Context, s access.Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the subject resolved for this request.
func SubjectFromContext(ctx context.Context) (access.Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(access.Subject)
	return s, ok
}

// Subject resolves the caller's roles once per request.  It must run after
// keycloak.AuthMiddleware.
func Subject(resolver SubjectResolver, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := keycloak.UserIDFromContext(r.Context())
			if !ok {
				writeMiddlewareError(w, errors.Unauthorized("no authenticated user"))
				return
			}
			s, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				logger.Error("failed to resolve permissions", logging.String("user_id", userID), logging.Err(err))
				writeMiddlewareError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), s)))
		})
	}
}

// RequireAccess rejects subjects with no role.  Mounted on the contract
// routes; permission info and preferences stay reachable for everyone.
func RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SubjectFromContext(r.Context())
		if !ok {
			writeMiddlewareError(w, errors.Unauthorized("no resolved subject"))
			return
		}
		if !s.HasAccess() {
			writeMiddlewareError(w, errors.Forbidden(access.ReasonNoAccess))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeMiddlewareError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := errors.DefaultMessageForCode(code)
	var ae *errors.AppError
	if status < 500 && errors.As(err, &ae) {
		msg = ae.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": string(code), "message": msg})
}

//Personal.AI order the ending
