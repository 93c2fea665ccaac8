// internal/adapters/out/auth/identity_toolkit.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

var (
	ErrInvalidLogin    = errors.New("auth: invalid email or password")
	ErrEmailExists     = errors.New("auth: email already registered")
	ErrWeakPassword    = errors.New("auth: password is too weak")
	ErrSessionRevoked  = errors.New("auth: session expired or revoked")
	ErrMissingAPIKey   = errors.New("auth: web api key is empty")
	ErrMalformedTokens = errors.New("auth: malformed token response")
)

// Tokens is what the password endpoints hand back.
type Tokens struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (t Tokens) valid() bool {
	return strings.TrimSpace(t.IDToken) != "" && strings.TrimSpace(t.RefreshToken) != "" && strings.TrimSpace(t.UserID) != ""
}

// PasswordBackend signs shoppers in with email and password.
type PasswordBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (Tokens, error)
	SignUpWithPassword(ctx context.Context, email, password string) (Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// DefaultSecureTokenURL is the token refresh endpoint.
const DefaultSecureTokenURL = "https://securetoken.googleapis.com/v1/token"

// IdentityToolkit implements PasswordBackend with the Identity Toolkit
// relying party API and the secure token endpoint.
type IdentityToolkit struct {
	svc    *identitytoolkit.Service
	apiKey string
	http   *http.Client
	now    func() time.Time

	SecureTokenURL string
}

func NewIdentityToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (*IdentityToolkit, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("auth: identitytoolkit: %w", err)
	}
	return &IdentityToolkit{
		svc:            svc,
		apiKey:         key,
		http:           &http.Client{Timeout: 15 * time.Second},
		now:            time.Now,
		SecureTokenURL: DefaultSecureTokenURL,
	}, nil
}

func (k *IdentityToolkit) SignInWithPassword(ctx context.Context, email, password string) (Tokens, error) {
	resp, err := k.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return Tokens{}, mapToolkitErr(err)
	}
	t := Tokens{
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.LocalId,
		Email:        strings.TrimSpace(resp.Email),
		ExpiresAt:    k.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
	}
	if t.Email == "" {
		t.Email = email
	}
	if !t.valid() {
		return Tokens{}, ErrMalformedTokens
	}
	return t, nil
}

// SignUpWithPassword creates the account and then signs it in to obtain a
// refresh token.
func (k *IdentityToolkit) SignUpWithPassword(ctx context.Context, email, password string) (Tokens, error) {
	_, err := k.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return Tokens{}, mapToolkitErr(err)
	}
	return k.SignInWithPassword(ctx, email, password)
}

type secureTokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type secureTokenError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Refresh exchanges a refresh token for a fresh id token.
func (k *IdentityToolkit) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := k.SecureTokenURL + "?key=" + url.QueryEscape(k.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := k.http.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("auth: refresh: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Tokens{}, fmt.Errorf("auth: refresh: %w", err)
	}

	if res.StatusCode >= 400 {
		var e secureTokenError
		_ = json.Unmarshal(raw, &e)
		if res.StatusCode == http.StatusBadRequest || res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return Tokens{}, fmt.Errorf("%w: %s", ErrSessionRevoked, e.Error.Message)
		}
		return Tokens{}, fmt.Errorf("auth: refresh: status=%d %s", res.StatusCode, e.Error.Message)
	}

	var body secureTokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrMalformedTokens, err)
	}
	secs, _ := strconv.Atoi(strings.TrimSpace(body.ExpiresIn))
	t := Tokens{
		IDToken:      body.IDToken,
		RefreshToken: body.RefreshToken,
		UserID:       body.UserID,
		ExpiresAt:    k.now().Add(time.Duration(secs) * time.Second).UTC(),
	}
	if !t.valid() {
		return Tokens{}, ErrMalformedTokens
	}
	return t, nil
}

func mapToolkitErr(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	msg := strings.ToUpper(gerr.Message)
	switch {
	case strings.Contains(msg, "EMAIL_EXISTS"):
		return ErrEmailExists
	case strings.Contains(msg, "WEAK_PASSWORD"):
		return fmt.Errorf("%w: %s", ErrWeakPassword, gerr.Message)
	case strings.Contains(msg, "INVALID_PASSWORD"),
		strings.Contains(msg, "EMAIL_NOT_FOUND"),
		strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.Contains(msg, "USER_DISABLED"):
		return ErrInvalidLogin
	}
	return err
}
