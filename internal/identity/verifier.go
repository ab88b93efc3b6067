// Package identity authenticates storefront visitors against the external
// identity provider and binds them to their ERP customer record.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// Profile is what the provider asserts about the token holder.
type Profile struct {
	Email         string `json:"email"`
	FirstName     string `json:"given_name"`
	LastName      string `json:"family_name"`
	EmailVerified bool   `json:"email_verified"`
}

// Verifier validates provider access tokens. The token is first checked
// against the tokeninfo endpoint, then exchanged for the holder's profile.
type Verifier struct {
	tokenInfoURL string
	userInfoURL  string
	httpClient   *http.Client
	logger       *logger.Logger
}

func NewVerifier(cfg config.IdentityConfig, logg *logger.Logger) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		tokenInfoURL: cfg.TokenInfoURL,
		userInfoURL:  cfg.UserInfoURL,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logg,
	}
}

// Verify checks the access token and returns the holder's profile. Tokens the
// provider rejects, and holders without a verified email, map to
// CodeUnauthorized.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (*Profile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New(errors.CodeUnauthorized, "access token is required")
	}
	if err := v.checkToken(ctx, accessToken); err != nil {
		return nil, err
	}
	profile, err := v.fetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, errors.New(errors.CodeUnauthorized, "account email is not verified")
	}
	return profile, nil
}

func (v *Verifier) checkToken(ctx context.Context, accessToken string) error {
	endpoint := v.tokenInfoURL + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "building tokeninfo request")
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "identity provider unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.CodeUnauthorized, "access token rejected")
	}
	return nil
}

func (v *Verifier) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "building userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "identity provider unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeUnauthorized, "access token rejected")
	}

	// email_verified arrives as a bool or as the string "true" depending on
	// the endpoint version.
	var raw struct {
		Email         string          `json:"email"`
		FirstName     string          `json:"given_name"`
		LastName      string          `json:"family_name"`
		EmailVerified json.RawMessage `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "decoding userinfo response")
	}
	verified := string(raw.EmailVerified) == "true" || string(raw.EmailVerified) == `"true"`
	return &Profile{
		Email:         raw.Email,
		FirstName:     raw.FirstName,
		LastName:      raw.LastName,
		EmailVerified: verified,
	}, nil
}
