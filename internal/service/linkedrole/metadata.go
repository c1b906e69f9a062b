package linkedrole

import (
	"context"
	"maps"

	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
)

// MetadataSource builds the role connection pushed for an identified user.
type MetadataSource interface {
	RoleConnection(ctx context.Context, info domainoauth.AuthorizationInfo) (domainoauth.RoleConnection, error)
}

// StaticMetadata pushes the same metadata for every user, named after the platform.
type StaticMetadata struct {
	PlatformName string
	Metadata     map[string]string
}

var _ MetadataSource = StaticMetadata{}

// RoleConnection implements MetadataSource.
func (m StaticMetadata) RoleConnection(_ context.Context, info domainoauth.AuthorizationInfo) (domainoauth.RoleConnection, error) {
	rc := domainoauth.RoleConnection{
		PlatformName: m.PlatformName,
		Metadata:     map[string]string{},
	}
	maps.Copy(rc.Metadata, m.Metadata)
	if info.User != nil {
		rc.PlatformUsername = info.User.Username
	}
	return rc, nil
}
