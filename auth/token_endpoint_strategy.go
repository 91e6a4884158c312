package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-quantum-client/core"
)

const (
	KindTokenEndpoint = "token_endpoint"

	defaultRealm               = "cortex"
	defaultClientID            = "iqm_client"
	defaultTokenRequestTimeout = 30 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the identity service endpoint and the password grant
// credentials. Realm and client id default to the values the execution
// service deployments ship with.
type Config struct {
	ServerURL      string
	Realm          string
	ClientID       string
	Username       string
	Password       string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Now            func() time.Time
}

// TokenEndpointStrategy drives password and refresh grants against a
// Keycloak style token endpoint. It holds no credential state; the token
// manager owns the stored pair.
type TokenEndpointStrategy struct {
	cfg        Config
	httpClient HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func NewTokenEndpointStrategy(cfg Config) (*TokenEndpointStrategy, error) {
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("auth: auth server url is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, fmt.Errorf("auth: username and password are required")
	}
	if strings.TrimSpace(cfg.Realm) == "" {
		cfg.Realm = defaultRealm
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		cfg.ClientID = defaultClientID
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &TokenEndpointStrategy{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (*TokenEndpointStrategy) Kind() string {
	return KindTokenEndpoint
}

// Login performs the password grant and returns a fresh credential pair.
func (s *TokenEndpointStrategy) Login(ctx context.Context) (core.Credential, error) {
	if s == nil {
		return core.Credential{}, fmt.Errorf("auth: strategy is nil")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", s.cfg.Username)
	form.Set("password", s.cfg.Password)

	payload, err := s.exchange(ctx, form)
	if err != nil {
		return core.Credential{}, err
	}
	return s.buildCredential(payload), nil
}

// Refresh exchanges the stored refresh token for a new pair.
func (s *TokenEndpointStrategy) Refresh(ctx context.Context, cred core.Credential) (core.Credential, error) {
	if s == nil {
		return core.Credential{}, fmt.Errorf("auth: strategy is nil")
	}
	if strings.TrimSpace(cred.RefreshToken) == "" {
		return core.Credential{}, fmt.Errorf("auth: refresh requires a refresh token")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	payload, err := s.exchange(ctx, form)
	if err != nil {
		return core.Credential{}, err
	}
	return s.buildCredential(payload), nil
}

// Logout invalidates the refresh session at the identity service.
func (s *TokenEndpointStrategy) Logout(ctx context.Context, cred core.Credential) error {
	if s == nil {
		return fmt.Errorf("auth: strategy is nil")
	}
	if strings.TrimSpace(cred.RefreshToken) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("refresh_token", cred.RefreshToken)

	requestCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		s.logoutURL(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("auth: create logout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("auth: logout request failed: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxTokenResponseBodyBytes))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("auth: logout endpoint error (%d)", response.StatusCode)
	}
	return nil
}

func (s *TokenEndpointStrategy) exchange(ctx context.Context, form url.Values) (tokenEndpointPayload, error) {
	if s.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("auth: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	form.Set("client_id", s.cfg.ClientID)

	requestCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		s.tokenURL(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("auth: create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := s.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("auth: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("auth: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, fmt.Errorf("auth: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	var payload tokenEndpointPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, fmt.Errorf(
			"auth: token endpoint error (%d): %s",
			response.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, fmt.Errorf("auth: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("auth: token endpoint response missing access token")
	}
	return payload, nil
}

// buildCredential prefers the exp claim embedded in each token and falls
// back to the advertised expires_in offsets for opaque tokens.
func (s *TokenEndpointStrategy) buildCredential(payload tokenEndpointPayload) core.Credential {
	now := s.cfg.Now()
	cred := core.Credential{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if expiry, err := core.DecodeTokenExpiry(payload.AccessToken); err == nil {
		cred.AccessExpiresAt = expiry
	} else if payload.ExpiresIn > 0 {
		cred.AccessExpiresAt = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	if cred.RefreshToken == "" {
		return cred
	}
	if expiry, err := core.DecodeTokenExpiry(payload.RefreshToken); err == nil {
		cred.RefreshExpiresAt = expiry
	} else if payload.RefreshExpiresIn > 0 {
		cred.RefreshExpiresAt = now.Add(time.Duration(payload.RefreshExpiresIn) * time.Second)
	}
	return cred
}

func (s *TokenEndpointStrategy) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", s.cfg.ServerURL, s.cfg.Realm)
}

func (s *TokenEndpointStrategy) logoutURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", s.cfg.ServerURL, s.cfg.Realm)
}

func describeTokenError(payload tokenEndpointPayload) string {
	code := strings.TrimSpace(payload.ErrorCode)
	description := strings.TrimSpace(payload.ErrorDescription)
	switch {
	case code != "" && description != "":
		return code + ": " + description
	case code != "":
		return code
	case description != "":
		return description
	default:
		return "unknown error"
	}
}

var _ core.SessionStrategy = (*TokenEndpointStrategy)(nil)
