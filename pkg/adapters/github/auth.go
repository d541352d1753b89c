package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// appJWTLifetime is the maximum lifetime GitHub accepts for an App JWT.
const appJWTLifetime = 10 * time.Minute

// AppOption configures the App token source.
type AppOption func(*appTokenSource)

// WithAppHTTPClient sets the transport for the installation token exchange.
func WithAppHTTPClient(c *http.Client) AppOption {
	return func(s *appTokenSource) {
		s.httpClient = c
	}
}

// WithAppBaseURL points the token exchange at another API root.
func WithAppBaseURL(u *url.URL) AppOption {
	return func(s *appTokenSource) {
		s.baseURL = u
	}
}

type appTokenSource struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	httpClient     *http.Client
	baseURL        *url.URL
	now            func() time.Time
}

// NewAppTokenSource returns a token source that signs an RS256 JWT as the App
// and exchanges it for an installation token. Tokens are reused until expiry.
func NewAppTokenSource(appID, installationID int64, keyPath string, opts ...AppOption) (oauth2.TokenSource, error) {
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("github: failed to read app private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("github: invalid app private key: %w", err)
	}
	s := &appTokenSource{
		appID:          appID,
		installationID: installationID,
		key:            key,
		httpClient:     http.DefaultClient,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return oauth2.ReuseTokenSource(nil, s), nil
}

// AppJWT signs the short-lived App assertion.
func (s *appTokenSource) AppJWT() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		// Backdated to absorb clock drift.
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime - time.Minute)),
		Issuer:    strconv.FormatInt(s.appID, 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	assertion, err := s.AppJWT()
	if err != nil {
		return nil, fmt.Errorf("github: failed to sign app jwt: %w", err)
	}
	client := gh.NewClient(s.httpClient).WithAuthToken(assertion)
	if s.baseURL != nil {
		client.BaseURL = s.baseURL
	}

	tok, _, err := client.Apps.CreateInstallationToken(context.Background(), s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("github: failed to obtain installation token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "token",
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}
