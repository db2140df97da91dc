// Package talk posts reminder messages into a Nextcloud Talk conversation
// through the OCS chat API.
package talk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// TokenSource yields the target conversation token.  The token is an admin
// setting and may change at runtime, so it is read on every send.
type TokenSource interface {
	TalkChatToken(ctx context.Context) (string, error)
}

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Username       string        `mapstructure:"username"`
	AppPassword    string        `mapstructure:"app_password"`
	ActorName      string        `mapstructure:"actor_name"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Enabled reports whether a Nextcloud instance is configured.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

// Client implements reminder.ChatTransport.
type Client struct {
	config     Config
	tokens     TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

var _ reminder.ChatTransport = (*Client)(nil)

var (
	ErrNotConfigured = errors.New(errors.ErrCodeTransportNotConfigured, "talk chat token is not configured")
	ErrRoomNotFound  = errors.New(errors.ErrCodeTransportFailure, "talk conversation not found")
)

func NewClient(cfg Config, tokens TokenSource, logger logging.Logger) *Client {
	if cfg.ActorName == "" {
		cfg.ActorName = "ContractKeeper"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config:     cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.Named("talk"),
	}
}

type ocsEnvelope struct {
	OCS struct {
		Meta struct {
			Status     string `json:"status"`
			StatusCode int    `json:"statuscode"`
			Message    string `json:"message"`
		} `json:"meta"`
		Data json.RawMessage `json:"data"`
	} `json:"ocs"`
}

// IsAvailable reports whether the instance answers and has Talk enabled.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if !c.config.Enabled() {
		return false
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/ocs/v2.php/cloud/capabilities", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Talk capabilities probe failed", logging.Err(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Talk capabilities probe rejected", logging.Int("status", resp.StatusCode))
		return false
	}

	var env ocsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false
	}
	var data struct {
		Capabilities map[string]json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(env.OCS.Data, &data); err != nil {
		return false
	}
	_, ok := data.Capabilities["spreed"]
	if !ok {
		c.logger.Warn("Talk app is not available")
	}
	return ok
}

// IsConfigured reports whether a conversation token is set.
func (c *Client) IsConfigured(ctx context.Context) bool {
	token, err := c.tokens.TalkChatToken(ctx)
	return err == nil && token != ""
}

// Send posts message to the configured conversation.
func (c *Client) Send(ctx context.Context, message string) error {
	token, err := c.tokens.TalkChatToken(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeTransportFailure, "failed to read talk chat token")
	}
	if token == "" {
		return ErrNotConfigured
	}
	log := c.logger.With(logging.String("chat_token", AnonymizeToken(token)))

	body, err := json.Marshal(map[string]string{
		"message":          message,
		"actorDisplayName": c.config.ActorName,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode talk message")
	}
	req, err := c.newRequest(ctx, http.MethodPost,
		"/ocs/v2.php/apps/spreed/api/v1/chat/"+url.PathEscape(token), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeTransportFailure, "failed to build talk request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Exception while sending Talk message", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeTransportFailure, "talk request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		log.Info("Talk message sent successfully")
		return nil
	case http.StatusNotFound:
		log.Error("Talk chat not found")
		return ErrRoomNotFound
	default:
		log.Error("Talk message rejected", logging.Int("status", resp.StatusCode))
		return errors.New(errors.ErrCodeTransportFailure, "talk message rejected").
			WithDetail(fmt.Sprintf("status %d", resp.StatusCode))
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.config.Username, c.config.AppPassword)
	req.Header.Set("OCS-APIRequest", "true")
	req.Header.Set("Accept", "application/json")
	if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	return req, nil
}

// AnonymizeToken keeps the first three characters of token for logs.
func AnonymizeToken(token string) string {
	if len(token) <= 3 {
		return "***"
	}
	return token[:3] + "***"
}

//Personal.AI order the ending
