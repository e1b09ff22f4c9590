package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

const (
	// HeaderCSRFToken carries the anti-forgery token.
	HeaderCSRFToken = "CSRF-Token"
	// SessionCookieName is the cookie holding the session token.
	SessionCookieName = "Authorization"
)

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// HTTPAdapter is the resty implementation of [AuthAdapter].
type HTTPAdapter struct {
	client  *utils.HTTPClient
	baseURL *url.URL

	mu        sync.RWMutex
	csrfToken string

	logger *logger.Logger
}

// NewHTTPAdapter constructs an [HTTPAdapter] for adapterCfg.HTTPAddress.
func NewHTTPAdapter(adapterCfg config.ClientAdapter, log *logger.Logger) (*HTTPAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client := utils.NewHTTPClient(baseURL.String(), adapterCfg.RequestTimeout)

	a := &HTTPAdapter{
		client:  client,
		baseURL: baseURL,
		logger:  log.WithComponent("adapter"),
	}
	client.OnBeforeRequest(a.attachCSRFToken)

	return a, nil
}

func normalizeBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("address must include host and scheme")
	}

	return u, nil
}

// attachCSRFToken adds the anti-forgery header to unsafe methods.
func (a *HTTPAdapter) attachCSRFToken(_ *resty.Client, req *resty.Request) error {
	if safeMethods[req.Method] {
		return nil
	}
	if token := a.csrf(); token != "" {
		req.SetHeader(HeaderCSRFToken, token)
	}
	return nil
}

func (a *HTTPAdapter) csrf() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.csrfToken
}

func (a *HTTPAdapter) setCSRF(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.csrfToken = strings.TrimSpace(token)
}

// Credentials implements [AuthAdapter].
func (a *HTTPAdapter) Credentials() Credentials {
	c := Credentials{CSRFToken: a.csrf()}
	if jar := a.client.GetClient().Jar; jar != nil {
		for _, cookie := range jar.Cookies(a.baseURL) {
			if cookie.Name == SessionCookieName {
				c.SessionCookie = cookie.Value
			}
		}
	}
	return c
}

// SetCredentials implements [AuthAdapter]. Empty fields clear the matching
// state.
func (a *HTTPAdapter) SetCredentials(c Credentials) {
	a.setCSRF(c.CSRFToken)

	jar := a.client.GetClient().Jar
	if jar == nil {
		return
	}
	cookie := &http.Cookie{Name: SessionCookieName, Value: c.SessionCookie, Path: "/"}
	if c.SessionCookie == "" {
		cookie.MaxAge = -1
	}
	jar.SetCookies(a.baseURL, []*http.Cookie{cookie})
}

func (a *HTTPAdapter) request(ctx context.Context) *resty.Request {
	return a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
}

// RequestChallenge implements [AuthAdapter].
func (a *HTTPAdapter) RequestChallenge(ctx context.Context, req models.ChallengeRequest) (models.Challenge, error) {
	var challenge models.Challenge

	resp, err := a.request(ctx).
		SetQueryParam("action", "request").
		SetBody(req).
		SetResult(&challenge).
		Post("/challenge")
	if err != nil {
		return models.Challenge{}, fmt.Errorf("challenge request: %w", err)
	}
	if err = mapHTTPError(resp, "unknown error requesting an auth challenge", http.StatusCreated); err != nil {
		return models.Challenge{}, err
	}

	return challenge, nil
}

// RequestUpgrade implements [AuthAdapter].
func (a *HTTPAdapter) RequestUpgrade(ctx context.Context) (models.Challenge, bool, error) {
	var challenge models.Challenge

	resp, err := a.request(ctx).
		SetQueryParams(map[string]string{"method": "challenge", "action": "request"}).
		SetResult(&challenge).
		Post("/upgrade")
	if err != nil {
		return models.Challenge{}, false, fmt.Errorf("upgrade request: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return models.Challenge{}, true, nil
	}
	if err = mapHTTPError(resp, "unknown error requesting an upgrade challenge", http.StatusCreated); err != nil {
		return models.Challenge{}, false, err
	}

	return challenge, false, nil
}

// SubmitChallenge implements [AuthAdapter].
func (a *HTTPAdapter) SubmitChallenge(ctx context.Context, id string, signed models.SignedChallenge, upgrade bool) (models.ChallengeResponse, error) {
	var result models.ChallengeResponse

	req := a.request(ctx).
		SetPathParam("id", id).
		SetQueryParam("action", "submit").
		SetBody(signed).
		SetResult(&result)
	if upgrade {
		req.SetQueryParam("type", "upgrade")
	}

	resp, err := req.Post("/challenge/{id}")
	if err != nil {
		return models.ChallengeResponse{}, fmt.Errorf("challenge submit: %w", err)
	}
	if err = mapHTTPError(resp, "unknown error submitting challenge", http.StatusOK); err != nil {
		return models.ChallengeResponse{}, err
	}

	if upgrade {
		return result, nil
	}

	token := resp.Header().Get(HeaderCSRFToken)
	if token == "" {
		return models.ChallengeResponse{}, ErrMissingCSRFToken
	}
	a.setCSRF(token)

	return result, nil
}

// Register implements [AuthAdapter].
func (a *HTTPAdapter) Register(ctx context.Context, req models.RegisterRequest) error {
	resp, err := a.request(ctx).SetBody(req).Post("/register")
	if err != nil {
		return fmt.Errorf("register request: %w", err)
	}
	return mapHTTPError(resp, "failed to register account", http.StatusCreated)
}

// ConfirmAccount implements [AuthAdapter].
func (a *HTTPAdapter) ConfirmAccount(ctx context.Context, userID string) error {
	resp, err := a.request(ctx).SetPathParam("id", userID).Post("/confirm_account/{id}")
	if err != nil {
		return fmt.Errorf("confirm account request: %w", err)
	}
	return mapHTTPError(resp, "failed to confirm account", http.StatusNoContent)
}

// WhoAmI implements [AuthAdapter].
func (a *HTTPAdapter) WhoAmI(ctx context.Context) (models.WhoAmI, error) {
	var who models.WhoAmI

	resp, err := a.request(ctx).SetResult(&who).Get("/whoami")
	if err != nil {
		return models.WhoAmI{}, fmt.Errorf("whoami request: %w", err)
	}
	if err = mapHTTPError(resp, "failed backend authentication", http.StatusOK); err != nil {
		return models.WhoAmI{}, err
	}

	return who, nil
}

// GetMasterKeys implements [AuthAdapter].
func (a *HTTPAdapter) GetMasterKeys(ctx context.Context) (models.MasterKeys, error) {
	var keys models.MasterKeys

	resp, err := a.request(ctx).SetResult(&keys).Get("/keys")
	if err != nil {
		return models.MasterKeys{}, fmt.Errorf("keys request: %w", err)
	}
	if err = mapHTTPError(resp, "failed to fetch master keypair", http.StatusOK); err != nil {
		return models.MasterKeys{}, err
	}

	return keys, nil
}

// PostMasterKeys implements [AuthAdapter].
func (a *HTTPAdapter) PostMasterKeys(ctx context.Context, keys models.MasterKeys) error {
	resp, err := a.request(ctx).SetBody(keys).Post("/keys")
	if err != nil {
		return fmt.Errorf("keys request: %w", err)
	}
	return mapHTTPError(resp, "failed to store master keypair", http.StatusCreated)
}

// ChangePassword implements [AuthAdapter].
func (a *HTTPAdapter) ChangePassword(ctx context.Context, update models.PasswordUpdate) error {
	resp, err := a.request(ctx).SetBody(update).Put("/change_password")
	if err != nil {
		return fmt.Errorf("change password request: %w", err)
	}
	return mapHTTPError(resp, "error updating password with API", http.StatusNoContent)
}

// Downgrade implements [AuthAdapter].
func (a *HTTPAdapter) Downgrade(ctx context.Context) error {
	resp, err := a.request(ctx).Post("/downgrade")
	if err != nil {
		return fmt.Errorf("downgrade request: %w", err)
	}
	return mapHTTPError(resp, "failed to downgrade session", http.StatusNoContent)
}

// Logout implements [AuthAdapter]. Local credentials are cleared on success.
func (a *HTTPAdapter) Logout(ctx context.Context) error {
	resp, err := a.request(ctx).Post("/logout")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	if err = mapHTTPError(resp, "failed to log out from API", http.StatusNoContent); err != nil {
		return err
	}

	a.SetCredentials(Credentials{})
	return nil
}

// EnableTOTP implements [AuthAdapter].
func (a *HTTPAdapter) EnableTOTP(ctx context.Context) (models.TOTPInfo, error) {
	var info models.TOTPInfo

	resp, err := a.request(ctx).SetQueryParam("action", "enable").SetResult(&info).Post("/totp")
	if err != nil {
		return models.TOTPInfo{}, fmt.Errorf("enable totp request: %w", err)
	}
	if err = mapHTTPError(resp, "failed to enable TOTP authentication", http.StatusCreated); err != nil {
		return models.TOTPInfo{}, err
	}

	return info, nil
}

// DisableTOTP implements [AuthAdapter].
func (a *HTTPAdapter) DisableTOTP(ctx context.Context) error {
	resp, err := a.request(ctx).SetQueryParam("action", "disable").Post("/totp")
	if err != nil {
		return fmt.Errorf("disable totp request: %w", err)
	}
	return mapHTTPError(resp, "failed to disable TOTP authentication", http.StatusNoContent)
}

// SendVerificationEmail implements [AuthAdapter].
func (a *HTTPAdapter) SendVerificationEmail(ctx context.Context) error {
	resp, err := a.request(ctx).Post("/send-verification-email")
	if err != nil {
		return fmt.Errorf("verification email request: %w", err)
	}
	return mapHTTPError(resp, "failed to send verification email", http.StatusNoContent)
}

// CreateUsername implements [AuthAdapter].
func (a *HTTPAdapter) CreateUsername(ctx context.Context, username string) (models.Username, error) {
	var result models.Username

	resp, err := a.request(ctx).
		SetBody(models.Username{Username: username}).
		SetResult(&result).
		Post("/username")
	if err != nil {
		return models.Username{}, fmt.Errorf("username request: %w", err)
	}
	if err = mapHTTPError(resp, "failed to create username", http.StatusCreated); err != nil {
		return models.Username{}, err
	}

	return result, nil
}

// DeleteUsername implements [AuthAdapter].
func (a *HTTPAdapter) DeleteUsername(ctx context.Context) error {
	resp, err := a.request(ctx).Delete("/username")
	if err != nil {
		return fmt.Errorf("username request: %w", err)
	}
	return mapHTTPError(resp, "failed to delete username", http.StatusNoContent)
}
