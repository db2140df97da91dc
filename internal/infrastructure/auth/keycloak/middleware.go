package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// realm is advertised in WWW-Authenticate challenges.
const realm = "contractkeeper"

var (
	ErrMissingAuthHeader = errors.New(errors.ErrCodeUnauthorized, "missing bearer token")
	ErrInvalidAuthFormat = errors.New(errors.ErrCodeUnauthorized, "authorization header is not a bearer token")
)

// AuthMiddlewareConfig lists the routes served without a token.
type AuthMiddlewareConfig struct {
	SkipPaths    []string
	SkipPrefixes []string
}

// AuthMiddleware verifies bearer tokens and puts the caller's identity in
// the request context.
type AuthMiddleware struct {
	verifier     TokenVerifier
	logger       logging.Logger
	skipPaths    map[string]struct{}
	skipPrefixes []string
}

func NewAuthMiddleware(verifier TokenVerifier, logger logging.Logger, cfg AuthMiddlewareConfig) *AuthMiddleware {
	m := &AuthMiddleware{
		verifier:     verifier,
		logger:       logger.Named("auth"),
		skipPaths:    make(map[string]struct{}, len(cfg.SkipPaths)),
		skipPrefixes: cfg.SkipPrefixes,
	}
	for _, p := range cfg.SkipPaths {
		m.skipPaths[p] = struct{}{}
	}
	return m
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.public(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			m.reject(w, r, err, false)
			return
		}
		claims, err := m.verifier.VerifyToken(r.Context(), token)
		if err == nil && claims.UserID() == "" {
			err = ErrTokenMalformed.WithDetail("no subject")
		}
		if err != nil {
			m.reject(w, r, err, true)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims, claims.UserID())))
	})
}

func (m *AuthMiddleware) public(path string) bool {
	if _, ok := m.skipPaths[path]; ok {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// reject writes a 401 with an RFC 6750 challenge, or a 503 when the
// identity provider could not be reached.
func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error, presented bool) {
	m.logger.Warn("Authentication failed",
		logging.String("path", r.URL.Path),
		logging.String("remote", r.RemoteAddr),
		logging.Err(err),
	)

	code := errors.GetCode(err)
	if code != errors.ErrCodeServiceUnavailable {
		code = errors.ErrCodeUnauthorized
	}
	body := common.ErrorBody{Code: string(code), Message: errors.DefaultMessageForCode(code)}

	if code == errors.ErrCodeUnauthorized {
		challenge := fmt.Sprintf("Bearer realm=%q", realm)
		var ae *errors.AppError
		if errors.As(err, &ae) {
			body.Message = ae.Message
			if presented {
				challenge += fmt.Sprintf(", error=\"invalid_token\", error_description=%q", ae.Message)
			}
		}
		w.Header().Set("WWW-Authenticate", challenge)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatusForCode(code))
	_ = json.NewEncoder(w).Encode(body)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthFormat
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrInvalidAuthFormat
	}
	return token, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Request identity
// ─────────────────────────────────────────────────────────────────────────────

type identityKey struct{}

type identity struct {
	claims *TokenClaims
	userID string
}

func withIdentity(ctx context.Context, claims *TokenClaims, userID string) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, identity{claims: claims, userID: userID})
	return logging.ContextWithUserID(ctx, userID)
}

// ClaimsFromContext returns the verified token claims of the caller.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id.claims, ok && id.claims != nil
}

// UserIDFromContext returns the caller's user ID, the token's preferred username.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id.userID, ok && id.userID != ""
}

// ContextWithUserID authenticates ctx as userID without a token.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return withIdentity(ctx, nil, userID)
}

//Personal.AI order the ending
