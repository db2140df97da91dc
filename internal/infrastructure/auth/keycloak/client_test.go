package keycloak

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type mockUser struct {
	id, username, email, first, last string
	groups                           []string
}

type mockKeycloak struct {
	server      *httptest.Server
	privateKey  *rsa.PrivateKey
	kid         string
	tokenCalls  atomic.Int32
	adminCalls  atomic.Int32
	users       []mockUser
	failHealthy bool
}

func setupTestKeycloak(t *testing.T) (*mockKeycloak, *Client) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mk := &mockKeycloak{
		privateKey: privateKey,
		kid:        "test-key-id",
		users: []mockUser{
			{id: "u-1", username: "alice", email: "alice@example.com", first: "Alice", last: "Liddell", groups: []string{"admin", "legal"}},
			{id: "u-2", username: "bob", email: "bob@example.com", groups: []string{"legal"}},
			{id: "u-3", username: "carol", email: "carol@example.com", first: "Carol"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/test-realm/protocol/openid-connect/certs", mk.handleJWKS)
	mux.HandleFunc("/realms/test-realm/protocol/openid-connect/token", mk.handleToken)
	mux.HandleFunc("/realms/test-realm/.well-known/openid-configuration", mk.handleOpenIDConfig)
	mux.HandleFunc("/admin/realms/test-realm/", mk.handleAdmin)
	mk.server = httptest.NewServer(mux)
	t.Cleanup(mk.server.Close)

	cfg := KeycloakConfig{
		BaseURL:                  mk.server.URL,
		Realm:                    "test-realm",
		ClientID:                 "test-client",
		ClientSecret:             "test-secret",
		PublicKeyRefreshInterval: time.Hour,
		RequestTimeout:           time.Second,
		RetryAttempts:            1,
		RetryDelay:               time.Millisecond,
	}
	client, err := NewClient(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mk, client
}

func (mk *mockKeycloak) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	pub := &mk.privateKey.PublicKey
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"keys": []map[string]interface{}{{
			"kid": mk.kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (mk *mockKeycloak) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.Form.Get("client_secret") != "test-secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	mk.tokenCalls.Add(1)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "service-token",
		"expires_in":   3600,
	})
}

func (mk *mockKeycloak) handleOpenIDConfig(w http.ResponseWriter, _ *http.Request) {
	if mk.failHealthy {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"issuer": mk.server.URL + "/realms/test-realm",
	})
}

func (mk *mockKeycloak) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer service-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	mk.adminCalls.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/admin/realms/test-realm")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case path == "/users":
		out := []map[string]interface{}{}
		for _, u := range mk.users {
			if u.username == r.URL.Query().Get("username") {
				out = append(out, userJSON(u))
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "groups":
		for _, u := range mk.users {
			if u.id == parts[1] {
				out := []map[string]interface{}{}
				for _, g := range u.groups {
					out = append(out, map[string]interface{}{"id": "g-" + g, "name": g, "path": "/" + g})
				}
				_ = json.NewEncoder(w).Encode(page(out, r))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	case path == "/groups":
		name := r.URL.Query().Get("search")
		out := []map[string]interface{}{}
		for _, g := range []string{"admin", "legal"} {
			if g == name {
				out = append(out, map[string]interface{}{"id": "g-" + g, "name": g, "path": "/" + g})
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case len(parts) == 3 && parts[0] == "groups" && parts[2] == "members":
		out := []map[string]interface{}{}
		for _, u := range mk.users {
			for _, g := range u.groups {
				if "g-"+g == parts[1] {
					out = append(out, userJSON(u))
				}
			}
		}
		_ = json.NewEncoder(w).Encode(page(out, r))
	default:
		http.NotFound(w, r)
	}
}

// page applies the admin API's first/max parameters; max defaults to 100.
func page(items []map[string]interface{}, r *http.Request) []map[string]interface{} {
	first, _ := strconv.Atoi(r.URL.Query().Get("first"))
	limit, err := strconv.Atoi(r.URL.Query().Get("max"))
	if err != nil {
		limit = 100
	}
	if first >= len(items) {
		return []map[string]interface{}{}
	}
	end := first + limit
	if end > len(items) {
		end = len(items)
	}
	return items[first:end]
}

func userJSON(u mockUser) map[string]interface{} {
	return map[string]interface{}{
		"id": u.id, "username": u.username, "email": u.email,
		"firstName": u.first, "lastName": u.last, "enabled": true,
	}
}

func (mk *mockKeycloak) signToken(claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = mk.kid
	signed, _ := token.SignedString(mk.privateKey)
	return signed
}

func (mk *mockKeycloak) validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "0b6f-uuid",
		"iss":                mk.server.URL + "/realms/test-realm",
		"aud":                []string{"test-client"},
		"exp":                time.Now().Add(time.Hour).Unix(),
		"iat":                time.Now().Unix(),
		"email":              "alice@example.com",
		"preferred_username": "alice",
	}
}

func TestNewClient_ValidConfig(t *testing.T) {
	_, client := setupTestKeycloak(t)
	assert.NotNil(t, client)
}

func TestNewClient_MissingConfig(t *testing.T) {
	_, err := NewClient(KeycloakConfig{}, logging.NewNopLogger())
	assert.True(t, errors.IsValidation(err))
}

func TestNewClient_KeycloakDown(t *testing.T) {
	_, err := NewClient(KeycloakConfig{
		BaseURL:        "http://127.0.0.1:1",
		Realm:          "r",
		ClientID:       "c",
		RequestTimeout: 200 * time.Millisecond,
	}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestVerifyToken_ValidToken(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	claims := mk.validClaims()
	claims["realm_access"] = map[string]interface{}{"roles": []string{"offline_access"}}
	claims["groups"] = []string{"legal"}

	got, err := client.VerifyToken(context.Background(), mk.signToken(claims))
	require.NoError(t, err)
	assert.Equal(t, "0b6f-uuid", got.Subject)
	assert.Equal(t, "alice", got.UserID())
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, []string{"offline_access"}, got.RealmRoles)
	assert.Equal(t, []string{"legal"}, got.Groups)
}

func TestVerifyToken_AuthorizedPartyAccepted(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	claims := mk.validClaims()
	claims["aud"] = []string{"account"}
	claims["azp"] = "test-client"

	_, err := client.VerifyToken(context.Background(), mk.signToken(claims))
	assert.NoError(t, err)
}

func TestVerifyToken_WrongAudience(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	claims := mk.validClaims()
	claims["aud"] = []string{"someone-else"}

	_, err := client.VerifyToken(context.Background(), mk.signToken(claims))
	assert.Equal(t, ErrTokenInvalidAudience, err)
}

func TestVerifyToken_WrongIssuer(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	claims := mk.validClaims()
	claims["iss"] = "https://evil.example.com/realms/test-realm"

	_, err := client.VerifyToken(context.Background(), mk.signToken(claims))
	assert.Equal(t, ErrTokenInvalidIssuer, err)
}

func TestVerifyToken_ExpiredToken(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	claims := mk.validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := client.VerifyToken(context.Background(), mk.signToken(claims))
	assert.Equal(t, ErrTokenExpired, err)
}

func TestVerifyToken_InvalidSignature(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, mk.validClaims())
	token.Header["kid"] = mk.kid
	signed, err := token.SignedString(otherKey)
	require.NoError(t, err)

	_, err = client.VerifyToken(context.Background(), signed)
	assert.Equal(t, ErrTokenInvalidSignature, err)
}

func TestVerifyToken_UnknownKid(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, mk.validClaims())
	token.Header["kid"] = "rotated-away"
	signed, err := token.SignedString(mk.privateKey)
	require.NoError(t, err)

	_, err = client.VerifyToken(context.Background(), signed)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
}

func TestVerifyToken_Malformed(t *testing.T) {
	_, client := setupTestKeycloak(t)

	_, err := client.VerifyToken(context.Background(), "not-a-jwt")
	assert.Equal(t, ErrTokenMalformed, err)
}

func TestGetServiceToken_Cached(t *testing.T) {
	mk, client := setupTestKeycloak(t)

	token, err := client.GetServiceToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "service-token", token)

	token2, err := client.GetServiceToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, token2)
	assert.Equal(t, int32(1), mk.tokenCalls.Load())
}

func TestGetServiceToken_Rejected(t *testing.T) {
	mk, client := setupTestKeycloak(t)
	client.config.ClientSecret = "wrong"

	_, err := client.GetServiceToken(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	assert.Zero(t, mk.tokenCalls.Load())
}

func TestHealth(t *testing.T) {
	mk, client := setupTestKeycloak(t)
	assert.NoError(t, client.Health(context.Background()))

	mk.failHealthy = true
	assert.True(t, errors.IsCode(client.Health(context.Background()), errors.ErrCodeServiceUnavailable))
}

func TestHealth_ServerDown(t *testing.T) {
	mk, client := setupTestKeycloak(t)
	mk.server.Close()

	err := client.Health(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestJWKSCache_ConcurrentRead(t *testing.T) {
	mk, client := setupTestKeycloak(t)
	token := mk.signToken(mk.validClaims())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.VerifyToken(context.Background(), token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestClose_Idempotent(t *testing.T) {
	_, client := setupTestKeycloak(t)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

//Personal.AI order the ending
