package oauth

import "errors"

var (
	// ErrProviderRequest signals a non-success response from the platform API.
	ErrProviderRequest = errors.New("oauth: provider request failed")
	// ErrInvalidState indicates the callback state does not match the issued cookie.
	ErrInvalidState = errors.New("oauth: invalid state")
	// ErrTokenInvalid indicates an empty or unusable token response.
	ErrTokenInvalid = errors.New("oauth: token invalid")
	// ErrTokenNotFound signals that no grant is stored for the user.
	ErrTokenNotFound = errors.New("oauth: token not found")
	// ErrIdentityMissing indicates the authorization info carried no user.
	ErrIdentityMissing = errors.New("oauth: identity missing")
)
