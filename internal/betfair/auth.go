package betfair

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Sessions last around 20 minutes on the Italian exchange unless kept
// alive, much shorter than the international wallet.
const sessionLifetime = 20 * time.Minute

// AuthService handles certificate login and session keep-alive
type AuthService struct {
	client *Client
	logger *logrus.Logger
}

// certLoginResponse is the response from the certlogin endpoint
type certLoginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// keepAliveResponse is the response from the keepAlive endpoint
type keepAliveResponse struct {
	Token   string `json:"token"`
	Product string `json:"product"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// NewAuthService creates an auth service bound to the given client
func NewAuthService(client *Client, logger *logrus.Logger) *AuthService {
	return &AuthService{
		client: client,
		logger: logger,
	}
}

// Login performs certificate-based authentication
func (a *AuthService) Login(ctx context.Context) error {
	cfg := a.client.Config()

	a.logger.WithField("username", cfg.Username).Info("Performing certificate login")

	loginResp, err := a.certLogin(ctx)
	if err != nil {
		return NewAuthenticationError("login request failed", err)
	}

	if loginResp.LoginStatus != "SUCCESS" {
		return NewAuthenticationError(fmt.Sprintf("login rejected: %s", loginResp.LoginStatus), nil)
	}

	if loginResp.SessionToken == "" {
		return NewAuthenticationError("no session token in login response", nil)
	}

	a.client.SetSessionToken(loginResp.SessionToken, time.Now().Add(sessionLifetime))

	a.logger.Info("Login successful")
	return nil
}

// KeepAlive extends the current session without re-authenticating
func (a *AuthService) KeepAlive(ctx context.Context) error {
	cfg := a.client.Config()
	token := a.client.SessionToken()
	if token == "" {
		return NewAuthenticationError("no session to keep alive", nil)
	}

	keepAliveURL := keepAliveEndpoint(cfg.LoginURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, keepAliveURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", cfg.AppKey)
	req.Header.Set("X-Authentication", token)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keep-alive request failed: %w", err)
	}
	defer resp.Body.Close()

	var ka keepAliveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ka); err != nil {
		return fmt.Errorf("failed to decode keep-alive response: %w", err)
	}

	if ka.Status != "SUCCESS" {
		a.logger.WithField("error", ka.Error).Warn("Keep-alive failed, re-authenticating")
		return a.Login(ctx)
	}

	a.client.SetSessionToken(ka.Token, time.Now().Add(sessionLifetime))
	return nil
}

// RefreshSession keeps the session alive when it is close to expiry
func (a *AuthService) RefreshSession(ctx context.Context) error {
	if !a.client.NeedsRefresh() {
		return nil
	}
	return a.KeepAlive(ctx)
}

// Logout invalidates the current session
func (a *AuthService) Logout(ctx context.Context) error {
	a.client.SetSessionToken("", time.Time{})
	a.logger.Info("Logged out")
	return nil
}

// certLogin performs the mutual-TLS login request
func (a *AuthService) certLogin(ctx context.Context) (*certLoginResponse, error) {
	cfg := a.client.Config()

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	formData := url.Values{}
	formData.Set("username", cfg.Username)
	formData.Set("password", cfg.Password)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		cfg.LoginURL,
		bytes.NewBufferString(formData.Encode()),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Application", cfg.AppKey)

	httpClient := &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
		Timeout:   30 * time.Second,
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var loginResp certLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, err
	}

	return &loginResp, nil
}

// keepAliveEndpoint derives the keepAlive URL from the certlogin URL.
// The keep-alive endpoint lives on the non-cert identity host.
func keepAliveEndpoint(loginURL string) string {
	u := strings.Replace(loginURL, "identitysso-cert", "identitysso", 1)
	if idx := strings.LastIndex(u, "/"); idx >= 0 {
		u = u[:idx]
	}
	return u + "/keepAlive"
}
