// Package keycloak authenticates API callers against a Keycloak realm and
// exposes the realm's users and groups as the directories the contract
// services consult for admin status, group membership and owner profiles.
package keycloak

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	stdliberrors "errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// TokenVerifier is the slice of Client the HTTP middleware depends on.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*TokenClaims, error)
}

// TokenClaims represents the claims in a JWT token.
type TokenClaims struct {
	Subject           string    `json:"sub"`
	Email             string    `json:"email"`
	PreferredUsername string    `json:"preferred_username"`
	Name              string    `json:"name"`
	RealmRoles        []string  `json:"realm_roles"`
	Groups            []string  `json:"groups"`
	IssuedAt          time.Time `json:"iat"`
	ExpiresAt         time.Time `json:"exp"`
	Issuer            string    `json:"iss"`
	Audience          []string  `json:"aud"`
	Scope             string    `json:"scope"`
}

// UserID is the identifier contracts are owned by: the realm username,
// or the subject when the token carries no username.
func (c *TokenClaims) UserID() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject
}

// KeycloakConfig configuration for Keycloak client.
type KeycloakConfig struct {
	BaseURL                  string        `mapstructure:"base_url"`
	Realm                    string        `mapstructure:"realm"`
	ClientID                 string        `mapstructure:"client_id"`
	ClientSecret             string        `mapstructure:"client_secret"`
	AdminGroup               string        `mapstructure:"admin_group"`
	PublicKeyRefreshInterval time.Duration `mapstructure:"public_key_refresh_interval"`
	RequestTimeout           time.Duration `mapstructure:"request_timeout"`
	RetryAttempts            int           `mapstructure:"retry_attempts"`
	RetryDelay               time.Duration `mapstructure:"retry_delay"`
	TLSInsecureSkipVerify    bool          `mapstructure:"tls_insecure_skip_verify"`
}

// Validate checks the fields required to talk to the realm.
func (c KeycloakConfig) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.NewValidationOp("keycloak", "base_url", "required")
	case c.Realm == "":
		return errors.NewValidationOp("keycloak", "realm", "required")
	case c.ClientID == "":
		return errors.NewValidationOp("keycloak", "client_id", "required")
	}
	return nil
}

func (c KeycloakConfig) realmURL() string {
	return fmt.Sprintf("%s/realms/%s", strings.TrimRight(c.BaseURL, "/"), c.Realm)
}

func (c KeycloakConfig) adminURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", strings.TrimRight(c.BaseURL, "/"), c.Realm)
}

// Client verifies access tokens and queries the realm admin API with a
// client_credentials service token.
type Client struct {
	config            KeycloakConfig
	httpClient        *http.Client
	jwksCache         *jwksCache
	serviceTokenCache *serviceTokenEntry
	logger            logging.Logger
	metrics           *prometheus.AppMetrics

	stop     chan struct{}
	stopOnce sync.Once
}

type serviceTokenEntry struct {
	token     string
	expiresAt time.Time
	mu        sync.RWMutex
}

func (s *serviceTokenEntry) get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, time.Now().Add(30 * time.Second).Before(s.expiresAt)
}

func (s *serviceTokenEntry) set(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
}

type jwksCache struct {
	keys   map[string]*rsa.PublicKey
	mu     sync.RWMutex
	client *http.Client
	url    string
	logger logging.Logger
}

func (c *jwksCache) refresh(ctx context.Context) error {
	c.logger.Debug("Refreshing JWKS cache", logging.String("url", c.url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: %s", resp.Status)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			c.logger.Warn("Failed to decode modulus", logging.String("kid", key.Kid), logging.Err(err))
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			c.logger.Warn("Failed to decode exponent", logging.String("kid", key.Kid), logging.Err(err))
			continue
		}
		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		keys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
	return nil
}

// getKey looks kid up, refreshing once on a miss to pick up rotated keys.
func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, ErrJWKSRefreshFailed.WithCause(err)
	}
	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrTokenInvalidSignature.WithDetail("unknown kid " + kid)
	}
	return key, nil
}

// ClientOption is a function option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMetrics records authentication outcomes.
func WithMetrics(m *prometheus.AppMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// Errors
var (
	ErrTokenExpired          = errors.New(errors.ErrCodeUnauthorized, "token expired")
	ErrTokenInvalidSignature = errors.New(errors.ErrCodeUnauthorized, "invalid token signature")
	ErrTokenInvalidIssuer    = errors.New(errors.ErrCodeUnauthorized, "invalid token issuer")
	ErrTokenInvalidAudience  = errors.New(errors.ErrCodeUnauthorized, "invalid token audience")
	ErrTokenMalformed        = errors.New(errors.ErrCodeUnauthorized, "malformed token")
	ErrKeycloakUnavailable   = errors.New(errors.ErrCodeServiceUnavailable, "keycloak unavailable")
	ErrJWKSRefreshFailed     = errors.New(errors.ErrCodeServiceUnavailable, "jwks refresh failed")
)

// NewClient fetches the realm's signing keys and starts refreshing them
// every PublicKeyRefreshInterval until Close.
func NewClient(cfg KeycloakConfig, logger logging.Logger, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PublicKeyRefreshInterval == 0 {
		cfg.PublicKeyRefreshInterval = 5 * time.Minute
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.AdminGroup == "" {
		cfg.AdminGroup = "admin"
	}

	client := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSInsecureSkipVerify}, //nolint:gosec // opt-in for dev realms
			},
		},
		serviceTokenCache: &serviceTokenEntry{},
		logger:            logger.Named("keycloak"),
		stop:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(client)
	}

	client.jwksCache = &jwksCache{
		client: client.httpClient,
		url:    cfg.realmURL() + "/protocol/openid-connect/certs",
		logger: client.logger,
	}

	initCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := client.jwksCache.refresh(initCtx); err != nil {
		return nil, ErrKeycloakUnavailable.WithCause(err).WithDetail("initial JWKS fetch")
	}

	go client.refreshLoop()
	return client, nil
}

func (c *Client) refreshLoop() {
	ticker := time.NewTicker(c.config.PublicKeyRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
			if err := c.jwksCache.refresh(ctx); err != nil {
				c.logger.Error("Failed to refresh JWKS", logging.Err(err))
			}
			cancel()
		}
	}
}

// Close stops the background key refresh.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// VerifyToken checks signature, issuer and audience (or azp) of rawToken
// and maps its claims.
func (c *Client) VerifyToken(ctx context.Context, rawToken string) (claims *TokenClaims, err error) {
	defer func() {
		prometheus.RecordAuthAttempt(c.metrics, err == nil, failureReason(err))
	}()

	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return nil, ErrTokenMalformed
	}
	kid, ok := unverified.Header["kid"].(string)
	if !ok {
		return nil, ErrTokenMalformed
	}
	key, err := c.jwksCache.getKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithIssuer(c.config.realmURL()))
	if err != nil {
		switch {
		case stdliberrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case stdliberrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalidSignature
		case stdliberrors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrTokenInvalidIssuer
		}
		return nil, errors.Wrap(err, errors.ErrCodeUnauthorized, "token verification failed")
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if !c.audienceAccepted(mc) {
		return nil, ErrTokenInvalidAudience
	}
	return mapClaims(mc), nil
}

func failureReason(err error) string {
	var appErr *errors.AppError
	if err == nil || !errors.As(err, &appErr) {
		return ""
	}
	return appErr.Message
}

func (c *Client) audienceAccepted(mc jwt.MapClaims) bool {
	if aud, err := mc.GetAudience(); err == nil {
		for _, a := range aud {
			if a == c.config.ClientID {
				return true
			}
		}
	}
	azp, _ := mc["azp"].(string)
	return azp == c.config.ClientID
}

func mapClaims(mc jwt.MapClaims) *TokenClaims {
	tc := &TokenClaims{}
	tc.Subject, _ = mc.GetSubject()
	tc.Issuer, _ = mc.GetIssuer()
	tc.Audience, _ = mc.GetAudience()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		tc.IssuedAt = iat.Time
	}
	tc.Email, _ = mc["email"].(string)
	tc.PreferredUsername, _ = mc["preferred_username"].(string)
	tc.Name, _ = mc["name"].(string)
	tc.Scope, _ = mc["scope"].(string)

	if realmAccess, ok := mc["realm_access"].(map[string]interface{}); ok {
		tc.RealmRoles = stringSlice(realmAccess["roles"])
	}
	tc.Groups = stringSlice(mc["groups"])
	return tc
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetServiceToken returns a cached client_credentials token, fetching a
// new one when it expires within 30s.
func (c *Client) GetServiceToken(ctx context.Context) (string, error) {
	if token, ok := c.serviceTokenCache.get(); ok {
		return token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	body := form.Encode()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.realmURL()+"/protocol/openid-connect/token", strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeUnauthorized, "service token request rejected").
			WithDetail(resp.Status)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode service token")
	}

	c.serviceTokenCache.set(result.AccessToken, time.Now().Add(time.Duration(result.ExpiresIn)*time.Second))
	return result.AccessToken, nil
}

// Health probes the realm's discovery document.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			c.config.realmURL()+"/.well-known/openid-configuration", nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrKeycloakUnavailable.WithDetail(resp.Status)
	}
	return nil
}

// doWithRetry rebuilds the request per attempt so bodies are never reused.
// Responses below 500 are returned to the caller as-is.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.config.RetryAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ErrKeycloakUnavailable.WithCause(ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(1<<i)):
			}
		}

		req, err := build()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build keycloak request")
		}
		if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
			req.Header.Set("X-Request-ID", reqID)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			err = fmt.Errorf("keycloak responded %s", resp.Status)
		}
		lastErr = err
	}
	return nil, ErrKeycloakUnavailable.WithCause(lastErr)
}

//Personal.AI order the ending
