package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// tokenSession is the only cross-caller shared mutable state in a Service.
// The mutex guards the stored credential and the renewal flight pointer;
// no network I/O happens while it is held.
type tokenSession struct {
	mu            sync.Mutex
	credential    Credential
	hasCredential bool
	flight        *tokenFlight
}

// tokenFlight is one in-progress renewal shared by every caller that
// arrives while it runs. token and err are written once before done is
// closed.
type tokenFlight struct {
	done  chan struct{}
	token string
	err   error
}

// GetValidAccessToken returns an access token valid for at least the
// configured lead window, renewing or re-logging-in as needed. Concurrent
// callers over an expired token share a single renewal exchange. A
// service configured without a session strategy returns an empty token
// and no error; the engine then proceeds unauthenticated.
func (s *Service) GetValidAccessToken(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	if s.sessionStrategy == nil {
		return "", nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lead := s.tokenLeadWindow()
	now := s.now()

	s.tokens.mu.Lock()
	if s.tokens.hasCredential && s.tokens.credential.AccessValidAt(now, lead) {
		token := s.tokens.credential.AccessToken
		s.tokens.mu.Unlock()
		return token, nil
	}
	if s.tokens.flight != nil {
		flight := s.tokens.flight
		s.tokens.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", s.mapError(apiTimeoutError("token renewal interrupted", ctx.Err()))
		case <-flight.done:
			return flight.token, flight.err
		}
	}

	flight := &tokenFlight{done: make(chan struct{})}
	s.tokens.flight = flight
	current := s.tokens.credential
	hasCredential := s.tokens.hasCredential
	s.tokens.mu.Unlock()

	startedAt := time.Now().UTC()
	credential, err := s.renewCredential(ctx, current, hasCredential)
	err = s.mapError(err)

	s.tokens.mu.Lock()
	s.tokens.flight = nil
	if err != nil {
		s.tokens.credential = Credential{}
		s.tokens.hasCredential = false
	} else {
		s.tokens.credential = credential
		s.tokens.hasCredential = true
	}
	s.tokens.mu.Unlock()

	flight.token = credential.AccessToken
	flight.err = err
	close(flight.done)

	s.observeOperation(ctx, startedAt, "renew_token", err, map[string]any{
		"strategy": s.sessionStrategy.Kind(),
	})
	return flight.token, flight.err
}

// renewCredential refreshes when the stored refresh token is still usable,
// otherwise performs a full login. A rejected refresh falls back to one
// login attempt before failing.
func (s *Service) renewCredential(ctx context.Context, current Credential, hasCredential bool) (Credential, error) {
	now := s.now()
	lead := s.tokenLeadWindow()

	if !hasCredential || !current.RefreshValidAt(now, lead) {
		credential, err := s.sessionStrategy.Login(ctx)
		if err != nil {
			return Credential{}, authenticationError("login exchange failed", err)
		}
		return validateCredential(credential)
	}

	credential, refreshErr := s.sessionStrategy.Refresh(ctx, current)
	if refreshErr == nil {
		return validateCredential(credential)
	}

	credential, loginErr := s.sessionStrategy.Login(ctx)
	if loginErr != nil {
		return Credential{}, authenticationError(
			fmt.Sprintf("token renewal and login both failed: %v", refreshErr),
			loginErr,
		)
	}
	return validateCredential(credential)
}

func validateCredential(credential Credential) (Credential, error) {
	if strings.TrimSpace(credential.AccessToken) == "" {
		return Credential{}, authenticationError("identity service returned no access token", nil)
	}
	return credential, nil
}

// CloseAuthSession logs the refresh session out at the identity service
// and clears the stored credential. The credential is cleared even when
// logout fails.
func (s *Service) CloseAuthSession(ctx context.Context) (err error) {
	if s == nil || s.sessionStrategy == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "close_session", err, map[string]any{
			"strategy": s.sessionStrategy.Kind(),
		})
	}()

	s.tokens.mu.Lock()
	credential := s.tokens.credential
	hasCredential := s.tokens.hasCredential
	s.tokens.credential = Credential{}
	s.tokens.hasCredential = false
	s.tokens.mu.Unlock()

	if !hasCredential || strings.TrimSpace(credential.RefreshToken) == "" {
		return nil
	}
	if logoutErr := s.sessionStrategy.Logout(ctx, credential); logoutErr != nil {
		err = s.mapError(authenticationError("auth session logout failed", logoutErr))
		return err
	}
	return nil
}

func (s *Service) tokenLeadWindow() time.Duration {
	if s != nil && s.config.TokenLeadWindow > 0 {
		return s.config.TokenLeadWindow
	}
	return DefaultTokenLeadWindow
}

type jwtClaims struct {
	Exp int64 `json:"exp"`
}

// DecodeTokenExpiry extracts the exp claim from a JWT payload without
// verifying the signature. Expiry enforcement belongs to the identity
// service; the client only needs the instant for renewal scheduling.
func DecodeTokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("core: token is not a JWT")
	}
	payload, err := decodeBase64Segment(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("core: decode token payload: %w", err)
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("core: parse token claims: %w", err)
	}
	if claims.Exp <= 0 {
		return time.Time{}, fmt.Errorf("core: token payload has no exp claim")
	}
	return time.Unix(claims.Exp, 0).UTC(), nil
}

func decodeBase64Segment(segment string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(segment); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(segment); err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(segment)
}
