package oauth

import "github.com/smallbiznis/linkedroles-worker/internal/domain"

// ProviderToken models the platform token endpoint response.
type ProviderToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Application identifies the OAuth application a grant belongs to.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// AuthorizationInfo is the payload of GET /oauth2/@me.
type AuthorizationInfo struct {
	Application Application  `json:"application"`
	Scopes      []string     `json:"scopes"`
	Expires     string       `json:"expires"`
	User        *domain.User `json:"user,omitempty"`
}

// RoleConnection is the role-connection resource for one user and application.
type RoleConnection struct {
	PlatformName     string            `json:"platform_name,omitempty"`
	PlatformUsername string            `json:"platform_username,omitempty"`
	Metadata         map[string]string `json:"metadata"`
}

// MetadataType enumerates role-connection metadata comparison types.
type MetadataType int

const (
	MetadataIntegerLessThanOrEqual     MetadataType = 1
	MetadataIntegerGreaterThanOrEqual  MetadataType = 2
	MetadataIntegerEqual               MetadataType = 3
	MetadataIntegerNotEqual            MetadataType = 4
	MetadataDatetimeLessThanOrEqual    MetadataType = 5
	MetadataDatetimeGreaterThanOrEqual MetadataType = 6
	MetadataBooleanEqual               MetadataType = 7
	MetadataBooleanNotEqual            MetadataType = 8
)

// MetadataRecord describes one role-connection metadata field registered for the application.
type MetadataRecord struct {
	Type        MetadataType `json:"type"`
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}
