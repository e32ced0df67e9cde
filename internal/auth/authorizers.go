package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/sync/errgroup"
)

// ConsentAuthorizer runs the installed-app flow: the user opens the printed URL,
// grants access, and Google redirects to a loopback server with the code.
type ConsentAuthorizer struct {
	config     *oauth2.Config
	prompt     io.Writer
	listenAddr string
}

func NewConsentAuthorizer(config *oauth2.Config, prompt io.Writer) *ConsentAuthorizer {
	return &ConsentAuthorizer{config: config, prompt: prompt, listenAddr: "127.0.0.1:0"}
}

type callbackResult struct {
	code string
	err  error
}

func (a *ConsentAuthorizer) Authorize(ctx context.Context) (Credential, error) {
	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to start loopback listener: %w", err)
	}

	cfg := *a.config
	cfg.RedirectURL = "http://" + listener.Addr().String() + "/"
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var res callbackResult
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
				http.Error(w, "Authorization failed. You may close this window.", http.StatusForbidden)
			case q.Get("code") == "":
				res.err = errors.New("authorization response carried no code")
				http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			default:
				res.code = q.Get("code")
				fmt.Fprintln(w, "Authorization complete. You may close this window.")
			}
			select {
			case results <- res:
			default:
			}
		}),
	}

	fmt.Fprintf(a.prompt, "Please visit this URL to authorize access to Google Drive:\n%s\n", authURL)

	var code string
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("loopback server failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		defer server.Shutdown(context.Background())
		select {
		case res := <-results:
			code = res.code
			return res.err
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	if err := eg.Wait(); err != nil {
		return Credential{}, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	slog.Info("Authorization granted.")
	return FromToken(tok), nil
}

// OAuthRefresher refreshes client-secret credentials against the token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

func (r *OAuthRefresher) Refresh(ctx context.Context, c Credential) (Credential, error) {
	// An empty access token forces the token source to hit the endpoint.
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken}).Token()
	if err != nil {
		return Credential{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	return FromToken(tok), nil
}

// ServiceAccountAuthorizer mints tokens from service_account.json without user interaction.
type ServiceAccountAuthorizer struct {
	config *jwt.Config
}

func (a *ServiceAccountAuthorizer) Authorize(ctx context.Context) (Credential, error) {
	tok, err := a.config.TokenSource(ctx).Token()
	if err != nil {
		return Credential{}, fmt.Errorf("failed to obtain service account token: %w", err)
	}
	return FromToken(tok), nil
}
