package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/linkedroles-worker/internal/config"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
)

const (
	// DefaultAuthorizeURL is the platform consent screen.
	DefaultAuthorizeURL = "https://discord.com/api/oauth2/authorize"
	// DefaultAPIBaseURL is the versioned REST API root.
	DefaultAPIBaseURL = "https://discord.com/api/v10"

	maxResponseBytes = 1 << 20
)

// DefaultScopes are requested on every authorization.
var DefaultScopes = []string{"role_connections.write", "identify"}

// ProviderClient encapsulates the OAuth and role-connection calls made with a user grant.
type ProviderClient interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domainoauth.ProviderToken, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domainoauth.ProviderToken, error)
	FetchAuthorizationInfo(ctx context.Context, accessToken string) (*domainoauth.AuthorizationInfo, error)
	GetRoleConnection(ctx context.Context, accessToken string) (*domainoauth.RoleConnection, error)
	PutRoleConnection(ctx context.Context, accessToken string, rc domainoauth.RoleConnection) (*domainoauth.RoleConnection, error)
}

// Registrar performs application-level calls authenticated with the bot token.
type Registrar interface {
	RegisterCommands(ctx context.Context, commands any) error
	RegisterRoleConnectionMetadata(ctx context.Context, records []domainoauth.MetadataRecord) ([]domainoauth.MetadataRecord, error)
}

// APIError is a non-success response from the platform API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: status=%d", e.Op, e.Status)
}

// Unwrap lets callers match every APIError against ErrProviderRequest.
func (e *APIError) Unwrap() error {
	return domainoauth.ErrProviderRequest
}

// Settings describes the application the client acts for.
type Settings struct {
	ApplicationID string
	ClientSecret  string
	BotToken      string
	RedirectURI   string
	AuthorizeURL  string
	APIBaseURL    string
	Scopes        []string
}

// SettingsFromConfig derives client settings from runtime configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		ApplicationID: cfg.ApplicationID,
		ClientSecret:  cfg.ClientSecret,
		BotToken:      cfg.BotToken,
		RedirectURI:   cfg.RedirectURI(),
		APIBaseURL:    cfg.APIBaseURL,
	}
}

// HTTPProviderClient is the default HTTP implementation.
type HTTPProviderClient struct {
	httpClient *http.Client
	settings   Settings
}

var (
	_ ProviderClient = (*HTTPProviderClient)(nil)
	_ Registrar      = (*HTTPProviderClient)(nil)
)

// NewHTTPProviderClient constructs the default ProviderClient.
func NewHTTPProviderClient(client *http.Client, settings Settings) *HTTPProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(settings.AuthorizeURL) == "" {
		settings.AuthorizeURL = DefaultAuthorizeURL
	}
	if strings.TrimSpace(settings.APIBaseURL) == "" {
		settings.APIBaseURL = DefaultAPIBaseURL
	}
	settings.APIBaseURL = strings.TrimSuffix(settings.APIBaseURL, "/")
	if len(settings.Scopes) == 0 {
		settings.Scopes = DefaultScopes
	}
	return &HTTPProviderClient{httpClient: client, settings: settings}
}

// AuthorizationURL builds the consent URL carrying state.
func (c *HTTPProviderClient) AuthorizationURL(state string) string {
	authURL, err := url.Parse(c.settings.AuthorizeURL)
	if err != nil {
		authURL = &url.URL{Scheme: "https", Host: "discord.com", Path: "/api/oauth2/authorize"}
	}
	params := authURL.Query()
	params.Set("client_id", c.settings.ApplicationID)
	params.Set("redirect_uri", c.settings.RedirectURI)
	params.Set("response_type", "code")
	params.Set("state", state)
	params.Set("scope", strings.Join(c.settings.Scopes, " "))
	params.Set("prompt", "consent")
	authURL.RawQuery = params.Encode()
	return authURL.String()
}

// ExchangeCode performs the authorization_code grant.
func (c *HTTPProviderClient) ExchangeCode(ctx context.Context, code string) (*domainoauth.ProviderToken, error) {
	data := url.Values{}
	data.Set("client_id", c.settings.ApplicationID)
	data.Set("client_secret", c.settings.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.settings.RedirectURI)
	return c.tokenRequest(ctx, "token exchange", data)
}

// RefreshToken performs the refresh_token grant.
func (c *HTTPProviderClient) RefreshToken(ctx context.Context, refreshToken string) (*domainoauth.ProviderToken, error) {
	data := url.Values{}
	data.Set("client_id", c.settings.ApplicationID)
	data.Set("client_secret", c.settings.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, "token refresh", data)
}

func (c *HTTPProviderClient) tokenRequest(ctx context.Context, op string, data url.Values) (*domainoauth.ProviderToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.APIBaseURL+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token domainoauth.ProviderToken
	if err := c.do(req, op, &token); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, domainoauth.ErrTokenInvalid)
	}
	return &token, nil
}

// FetchAuthorizationInfo loads the current authorization and its user.
func (c *HTTPProviderClient) FetchAuthorizationInfo(ctx context.Context, accessToken string) (*domainoauth.AuthorizationInfo, error) {
	req, err := c.bearerRequest(ctx, http.MethodGet, "/oauth2/@me", accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	var info domainoauth.AuthorizationInfo
	if err := c.do(req, "userinfo", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetRoleConnection reads the role connection of the grant's user.
func (c *HTTPProviderClient) GetRoleConnection(ctx context.Context, accessToken string) (*domainoauth.RoleConnection, error) {
	req, err := c.bearerRequest(ctx, http.MethodGet, c.roleConnectionPath(), accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("build role connection request: %w", err)
	}
	var rc domainoauth.RoleConnection
	if err := c.do(req, "get role connection", &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// PutRoleConnection replaces the role connection of the grant's user.
func (c *HTTPProviderClient) PutRoleConnection(ctx context.Context, accessToken string, rc domainoauth.RoleConnection) (*domainoauth.RoleConnection, error) {
	if rc.Metadata == nil {
		rc.Metadata = map[string]string{}
	}
	payload, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("encode role connection: %w", err)
	}
	req, err := c.bearerRequest(ctx, http.MethodPut, c.roleConnectionPath(), accessToken, payload)
	if err != nil {
		return nil, fmt.Errorf("build role connection request: %w", err)
	}
	var out domainoauth.RoleConnection
	if err := c.do(req, "push role connection", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterCommands overwrites the global application commands.
func (c *HTTPProviderClient) RegisterCommands(ctx context.Context, commands any) error {
	payload, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("encode commands: %w", err)
	}
	req, err := c.botRequest(ctx, http.MethodPut, "/applications/"+c.settings.ApplicationID+"/commands", payload)
	if err != nil {
		return fmt.Errorf("build commands request: %w", err)
	}
	return c.do(req, "register commands", nil)
}

// RegisterRoleConnectionMetadata overwrites the metadata schema used by linked roles.
func (c *HTTPProviderClient) RegisterRoleConnectionMetadata(ctx context.Context, records []domainoauth.MetadataRecord) ([]domainoauth.MetadataRecord, error) {
	if records == nil {
		records = []domainoauth.MetadataRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode metadata records: %w", err)
	}
	req, err := c.botRequest(ctx, http.MethodPut, "/applications/"+c.settings.ApplicationID+"/role-connections/metadata", payload)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	var out []domainoauth.MetadataRecord
	if err := c.do(req, "register metadata", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPProviderClient) roleConnectionPath() string {
	return "/users/@me/applications/" + c.settings.ApplicationID + "/role-connection"
}

func (c *HTTPProviderClient) bearerRequest(ctx context.Context, method, path, accessToken string, body []byte) (*http.Request, error) {
	req, err := newJSONRequest(ctx, method, c.settings.APIBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return req, nil
}

func (c *HTTPProviderClient) botRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	if strings.TrimSpace(c.settings.BotToken) == "" {
		return nil, errors.New("bot token missing")
	}
	req, err := newJSONRequest(ctx, method, c.settings.APIBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.settings.BotToken)
	return req, nil
}

func newJSONRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req, maps non-2xx to *APIError and decodes the body into out when non-nil.
func (c *HTTPProviderClient) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
