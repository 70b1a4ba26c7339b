package github

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

const (
	// DefaultAssertionTTL is the lifetime of an app assertion when none is configured.
	DefaultAssertionTTL = 9 * time.Minute

	// MaxAssertionTTL is the longest assertion lifetime GitHub accepts.
	MaxAssertionTTL = 10 * time.Minute
)

var _ driven.TokenIssuer = (*TokenIssuer)(nil)

// TokenIssuer exchanges a signed app assertion for an installation token.
// It holds no tokens between calls.
type TokenIssuer struct {
	httpClient *http.Client
	baseURL    *url.URL
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl selects DefaultAssertionTTL;
// a ttl above MaxAssertionTTL is rejected rather than clamped.
func NewTokenIssuer(httpClient *http.Client, baseURL string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl == 0 {
		ttl = DefaultAssertionTTL
	}
	if ttl < 0 || ttl > MaxAssertionTTL {
		return nil, fmt.Errorf("assertion ttl %s outside (0, %s]: %w", ttl, MaxAssertionTTL, model.ErrInvalidConfig)
	}

	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &TokenIssuer{
		httpClient: httpClient,
		baseURL:    u,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// WithClock replaces the clock used for assertion timestamps. Tests only.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// IssueInstallationToken mints a token for org's installation.
func (t *TokenIssuer) IssueInstallationToken(ctx context.Context, org model.OrganizationRecord) (model.AccessToken, error) {
	if org.ClientID == "" {
		return model.AccessToken{}, fmt.Errorf("org %q: missing client id: %w", org.Name, model.ErrInvalidConfig)
	}
	if !org.HasKeyMaterial() {
		return model.AccessToken{}, fmt.Errorf("org %q: missing private key: %w", org.Name, model.ErrInvalidConfig)
	}
	if org.InstallationID <= 0 {
		return model.AccessToken{}, fmt.Errorf("org %q: missing installation id: %w", org.Name, model.ErrInvalidConfig)
	}

	pem, err := loadKey(org)
	if err != nil {
		return model.AccessToken{}, err
	}

	issuedAt := t.now()
	assertion, err := BuildAssertion(org.ClientID, pem, t.ttl, issuedAt)
	if err != nil {
		return model.AccessToken{}, err
	}

	client := gh.NewClient(t.httpClient).WithAuthToken(assertion)
	client.BaseURL = t.baseURL

	tok, resp, err := client.Apps.CreateInstallationToken(ctx, org.InstallationID, nil)
	if err != nil {
		return model.AccessToken{}, classifyExchangeError(resp, err)
	}

	return model.AccessToken{
		Value:     tok.GetToken(),
		IssuedAt:  issuedAt,
		ExpiresAt: tok.GetExpiresAt().Time,
	}, nil
}

// BuildAssertion signs the app assertion {iat, exp, iss} with RS256.
func BuildAssertion(clientID string, pem []byte, ttl time.Duration, now time.Time) (string, error) {
	if ttl > MaxAssertionTTL {
		return "", fmt.Errorf("assertion ttl %s exceeds %s: %w", ttl, MaxAssertionTTL, model.ErrInvalidConfig)
	}

	key, err := parseKey(pem)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    clientID,
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", &model.SigningError{Err: err}
	}
	return signed, nil
}

func loadKey(org model.OrganizationRecord) ([]byte, error) {
	if len(org.PrivateKey) > 0 {
		return org.PrivateKey, nil
	}
	data, err := os.ReadFile(org.PrivateKeyPath)
	if err != nil {
		return nil, &model.KeyMaterialError{Err: fmt.Errorf("reading %s: %w", org.PrivateKeyPath, err)}
	}
	return data, nil
}

func parseKey(pem []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, &model.KeyMaterialError{Err: err}
	}
	return key, nil
}

// classifyExchangeError maps a failed token exchange. Any HTTP answer is an
// auth rejection; no answer at all is a network error.
func classifyExchangeError(resp *gh.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &model.RemoteAuthError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
	}
	if resp != nil && resp.Response != nil {
		return &model.RemoteAuthError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return &model.NetworkError{Op: "create installation token", Err: err}
}
