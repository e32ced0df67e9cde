package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Lllllllleong/documentocr/internal/config"
	"github.com/Lllllllleong/documentocr/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// Authorizer obtains a brand new credential, interactively or not.
type Authorizer interface {
	Authorize(ctx context.Context) (Credential, error)
}

// Refresher exchanges a refresh token for a fresh credential.
type Refresher interface {
	Refresh(ctx context.Context, c Credential) (Credential, error)
}

// Manager owns the credential lifecycle: load from cache, refresh, reauthorize, persist.
type Manager struct {
	store      *TokenStore
	authorizer Authorizer
	refresher  Refresher // nil when the method has no refresh tokens
	now        func() time.Time
	logger     *slog.Logger
}

func NewManager(store *TokenStore, authorizer Authorizer, refresher Refresher) *Manager {
	return &Manager{
		store:      store,
		authorizer: authorizer,
		refresher:  refresher,
		now:        time.Now,
		logger:     slog.With("component", "credentials", "tokenCache", store.Path()),
	}
}

// NewManagerFromSettings builds the authorizer for the configured method from
// the credentials file in the config directory.
func NewManagerFromSettings(settings *config.Settings, prompt io.Writer) (*Manager, error) {
	data, err := os.ReadFile(settings.CredentialsFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &config.MissingCredentialsFileError{File: settings.AuthMethod.CredentialsFile(), ConfigDir: settings.Dirs.ConfigDir}
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	store := NewTokenStore(settings.Dirs.TokenFile(), settings.AuthMethod)

	switch settings.AuthMethod {
	case models.AuthClientSecret:
		oauthConfig, err := google.ConfigFromJSON(data, drive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", settings.AuthMethod.CredentialsFile(), err)
		}
		return NewManager(store, NewConsentAuthorizer(oauthConfig, prompt), &OAuthRefresher{config: oauthConfig}), nil
	case models.AuthServiceAccount:
		jwtConfig, err := google.JWTConfigFromJSON(data, drive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", settings.AuthMethod.CredentialsFile(), err)
		}
		return NewManager(store, &ServiceAccountAuthorizer{config: jwtConfig}, nil), nil
	default:
		return nil, &config.IncorrectAuthMethodError{Value: string(settings.AuthMethod), Available: models.AuthMethods()}
	}
}

// Credential returns a valid credential, walking the cache state machine and
// persisting whatever it had to acquire.
func (m *Manager) Credential(ctx context.Context) (Credential, error) {
	cached, ok, err := m.store.Load()
	if err != nil {
		m.logger.Warn("Ignoring unreadable token cache.", "error", err)
		ok = false
	}

	if ok {
		state := NextState(cached, m.now())
		m.logger.Debug("Loaded cached credential.", "state", state.String())
		switch state {
		case StateValid:
			return cached, nil
		case StateRefreshable:
			if m.refresher != nil {
				refreshed, err := m.refresher.Refresh(ctx, cached)
				if err == nil {
					return m.persist(refreshed)
				}
				m.logger.Warn("Token refresh failed, reauthorizing.", "error", err)
			}
		}
	} else {
		m.logger.Debug("No cached credential.")
	}

	m.logger.Info("Authorizing access to the OCR service.")
	fresh, err := m.authorizer.Authorize(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrAuthExpiredAndUnrefreshable, err)
	}
	return m.persist(fresh)
}

func (m *Manager) persist(c Credential) (Credential, error) {
	if err := m.store.Save(c); err != nil {
		return Credential{}, fmt.Errorf("failed to persist credential: %w", err)
	}
	m.logger.Debug("Credential persisted.", "expiresAt", c.ExpiresAt)
	return c, nil
}

// AuthorizedClient returns an HTTP client that authenticates every request and
// goes back through the state machine whenever the token expires mid-run.
func (m *Manager) AuthorizedClient(ctx context.Context) (*http.Client, error) {
	cred, err := m.Credential(ctx)
	if err != nil {
		return nil, err
	}
	src := oauth2.ReuseTokenSource(cred.Token(), &managerTokenSource{ctx: ctx, manager: m})
	return oauth2.NewClient(ctx, src), nil
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	cred, err := s.manager.Credential(s.ctx)
	if err != nil {
		return nil, err
	}
	return cred.Token(), nil
}
