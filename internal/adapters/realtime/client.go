// Package realtime is the adapter for the external realtime call provider.
// The provider is a black box reached over REST: it owns call resources,
// participant membership, recordings, and the AI voice bridge. Nothing in
// this package assumes how the provider implements any of that.
package realtime

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/novameet/meeting-agent-service/internal/config"
)

// Client is the surface of the realtime call provider this service uses.
type Client interface {
	// VerifyWebhook checks the HMAC-SHA256 signature the provider attaches
	// to webhook deliveries.
	VerifyWebhook(body []byte, signature string) bool

	// GenerateUserToken issues a short-lived join credential for a user,
	// with a negative clock-skew allowance on issued-at.
	GenerateUserToken(userID string, ttl, iatSkew time.Duration) (string, error)

	// UpsertUsers registers provider-side identities. Idempotent.
	UpsertUsers(ctx context.Context, users []UpsertUser) error

	// GetOrCreateCall fetches or creates the call resource keyed by
	// (callType, callID). Idempotent.
	GetOrCreateCall(ctx context.Context, callType, callID string, data CallData) error

	// ConnectAgent bridges the AI voice session into a call. Calling it
	// again for an already-bridged agent is safe on the provider side.
	ConnectAgent(ctx context.Context, callType, callID string, session AgentSession) error

	// EndCall tears down the call resource. Used when a meeting is
	// explicitly ended or cancelled.
	EndCall(ctx context.Context, callType, callID string) error
}

// ClientConfig holds the provider credentials and endpoint. The client is
// constructed explicitly and passed into services; there is no package-level
// instance.
type ClientConfig struct {
	APIKey       string
	APISecret    string
	BaseURL      string
	OpenAIAPIKey string
	Timeout      time.Duration
}

// APIClient implements Client against the provider's REST API.
type APIClient struct {
	apiKey       string
	apiSecret    []byte
	baseURL      string
	openAIAPIKey string
	httpClient   *http.Client
}

// NewAPIClient creates a provider client from explicit configuration.
func NewAPIClient(cfg ClientConfig) (*APIClient, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("realtime provider requires api key and secret")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		apiKey:       cfg.APIKey,
		apiSecret:    []byte(cfg.APISecret),
		baseURL:      cfg.BaseURL,
		openAIAPIKey: cfg.OpenAIAPIKey,
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

// VerifyWebhook checks the hex-encoded HMAC-SHA256 of the raw body keyed by
// the API secret.
func (c *APIClient) VerifyWebhook(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateUserToken issues an HS256 user token. issued-at is backdated by
// iatSkew so freshly issued tokens survive clock drift between this service
// and the provider.
func (c *APIClient) GenerateUserToken(userID string, ttl, iatSkew time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Add(-iatSkew).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign user token: %w", err)
	}
	return signed, nil
}

// serverToken issues the short-lived server-scoped JWT attached to every
// provider API request.
func (c *APIClient) serverToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"server": true,
		"exp":    now.Add(5 * time.Minute).Unix(),
		"iat":    now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.apiSecret)
}

// UpsertUsers registers provider-side identities.
func (c *APIClient) UpsertUsers(ctx context.Context, users []UpsertUser) error {
	userMap := make(map[string]UpsertUser, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}
	payload := map[string]interface{}{"users": userMap}
	if err := c.post(ctx, "/api/v2/users", payload); err != nil {
		return fmt.Errorf("failed to upsert users: %w", err)
	}
	return nil
}

// GetOrCreateCall fetches or creates the call resource.
func (c *APIClient) GetOrCreateCall(ctx context.Context, callType, callID string, data CallData) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"created_by_id": data.CreatedByID,
			"custom":        map[string]string{"name": data.Name},
		},
	}
	path := fmt.Sprintf("/api/v2/call/%s/%s", callType, callID)
	if err := c.post(ctx, path, payload); err != nil {
		return fmt.Errorf("failed to get-or-create call %s:%s: %w", callType, callID, err)
	}
	return nil
}

// ConnectAgent bridges the AI voice session into the call with the agent's
// instructions and the configured session tuning.
func (c *APIClient) ConnectAgent(ctx context.Context, callType, callID string, session AgentSession) error {
	if c.openAIAPIKey == "" {
		return fmt.Errorf("openai api key missing: cannot bridge agent into call")
	}
	payload := map[string]interface{}{
		"agent_user_id":  session.AgentUserID,
		"openai_api_key": c.openAIAPIKey,
		"session": map[string]interface{}{
			"instructions":        session.Instructions,
			"modalities":          session.Session.Modalities,
			"voice":               session.Session.Voice,
			"input_audio_format":  session.Session.InputAudioFormat,
			"output_audio_format": session.Session.OutputAudioFormat,
			"turn_detection": map[string]interface{}{
				"type":                session.Session.TurnDetectionType,
				"threshold":           session.Session.VADThreshold,
				"prefix_padding_ms":   session.Session.PrefixPaddingMs,
				"silence_duration_ms": session.Session.SilenceDurationMs,
			},
		},
	}
	path := fmt.Sprintf("/api/v2/call/%s/%s/agent", callType, callID)
	if err := c.post(ctx, path, payload); err != nil {
		return fmt.Errorf("failed to connect agent to call %s:%s: %w", callType, callID, err)
	}
	return nil
}

// EndCall tears down the call resource.
func (c *APIClient) EndCall(ctx context.Context, callType, callID string) error {
	path := fmt.Sprintf("/api/v2/call/%s/%s/mark_ended", callType, callID)
	if err := c.post(ctx, path, map[string]interface{}{}); err != nil {
		return fmt.Errorf("failed to end call %s:%s: %w", callType, callID, err)
	}
	return nil
}

func (c *APIClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s?api_key=%s", c.baseURL, path, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	token, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("failed to sign server token: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("X-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// BotUserID derives the provider identity for an agent bot.
func BotUserID(agentID string) string {
	return config.AgentUserPrefix + agentID
}

// IsBotIdentity reports whether a participant identity belongs to an agent
// bot rather than a human.
func IsBotIdentity(identity string) bool {
	return strings.HasPrefix(identity, config.AgentUserPrefix)
}
