package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/utils"
)

const (
	// AccessTokenEnv is consulted when the token file is missing.
	AccessTokenEnv = "FYERS_ACCESS_TOKEN"
	// TokenTimestampEnv optionally carries the env token's issue time in epoch seconds.
	TokenTimestampEnv = "FYERS_TOKEN_TIMESTAMP"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	Timestamp   epochTime `json:"timestamp"`
}

// epochTime is written as float epoch seconds. RFC3339 strings are also
// accepted on read.
type epochTime struct {
	time.Time
}

func (e epochTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(e.UnixNano())/1e9, 'f', 6, 64)), nil
}

func (e *epochTime) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if t, err := parseEpoch(str); err == nil {
			e.Time = t
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %q", str)
		}
		e.Time = t
		return nil
	}
	t, err := parseEpoch(raw)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %s", raw)
	}
	e.Time = t
	return nil
}

func parseEpoch(s string) (time.Time, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return time.Time{}, err
	}
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), nil
}

// TokenAuthenticator treats a brokerage access token as valid for a fixed
// age after it was issued. Fresh tokens are installed with SaveToken.
type TokenAuthenticator struct {
	Config models.MAuthConfig
	Logger *logger.Logger
	Clock  utils.Clock

	mu       sync.RWMutex
	token    string
	issuedAt time.Time
}

// -----------------------------------------------------------------------------

func NewTokenAuthenticator(cfg models.MAuthConfig, clock utils.Clock, log *logger.Logger) *TokenAuthenticator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	a := &TokenAuthenticator{Config: cfg, Clock: clock, Logger: log}
	if err := a.load(); err != nil {
		log.Warning("No usable access token at startup: %v", err)
	}
	return a
}

// -----------------------------------------------------------------------------

func (a *TokenAuthenticator) maxAge() time.Duration {
	hours := a.Config.TokenMaxAgeHours
	if hours <= 0 {
		hours = 8
	}
	return time.Duration(hours) * time.Hour
}

// -----------------------------------------------------------------------------

// IsAuthenticated reports whether a token is held and still inside its max age.
func (a *TokenAuthenticator) IsAuthenticated(_ context.Context) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.token == "" {
		return false
	}
	return a.Clock.Now().Sub(a.issuedAt) < a.maxAge()
}

// -----------------------------------------------------------------------------

// Reauthenticate reloads the token source. An operator is expected to have
// refreshed it; if not the error wraps helpers.ErrTokenExpired.
func (a *TokenAuthenticator) Reauthenticate(ctx context.Context) error {
	if err := a.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return helpers.NewAuthError("failed to reload access token", err)
	}
	if !a.IsAuthenticated(ctx) {
		return helpers.NewAuthError("re-authentication required", helpers.ErrTokenExpired)
	}
	a.Logger.Info("Access token reloaded")
	return nil
}

// -----------------------------------------------------------------------------

func (a *TokenAuthenticator) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// -----------------------------------------------------------------------------

// SaveToken installs a freshly issued token and writes it to the token file.
func (a *TokenAuthenticator) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return helpers.NewValidationError("access token must not be empty")
	}

	now := a.Clock.Now()
	data, err := json.MarshalIndent(tokenFile{AccessToken: token, Timestamp: epochTime{now}}, "", "  ")
	if err != nil {
		return err
	}

	if a.Config.TokenFile != "" {
		if dir := filepath.Dir(a.Config.TokenFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create token directory: %w", err)
			}
		}
		if err := os.WriteFile(a.Config.TokenFile, data, 0o600); err != nil {
			return fmt.Errorf("failed to write token file: %w", err)
		}
	}

	a.mu.Lock()
	a.token, a.issuedAt = token, now
	a.mu.Unlock()

	a.Logger.Info("Access token saved")
	return nil
}

// -----------------------------------------------------------------------------

func (a *TokenAuthenticator) load() error {
	data, err := os.ReadFile(a.Config.TokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if env := os.Getenv(AccessTokenEnv); env != "" {
			a.loadEnv(env)
			return nil
		}
		return err
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("invalid token file %s: %w", a.Config.TokenFile, err)
	}
	if tf.AccessToken == "" {
		return fmt.Errorf("token file %s has no access_token", a.Config.TokenFile)
	}

	a.mu.Lock()
	a.token, a.issuedAt = tf.AccessToken, tf.Timestamp.Time
	a.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// loadEnv installs the env token. Without a usable issue time it is aged
// from the moment it was first seen.
func (a *TokenAuthenticator) loadEnv(token string) {
	var issued time.Time
	if raw := os.Getenv(TokenTimestampEnv); raw != "" {
		t, err := parseEpoch(raw)
		if err != nil {
			a.Logger.Warning("Ignoring invalid %s %q: %v", TokenTimestampEnv, raw, err)
		} else {
			issued = t
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case !issued.IsZero():
		a.token, a.issuedAt = token, issued
	case a.token != token:
		a.token, a.issuedAt = token, a.Clock.Now()
	}
}
