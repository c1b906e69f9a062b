package linkedrole

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	oauthadapter "github.com/smallbiznis/linkedroles-worker/internal/adapter/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/repository"
)

const tracerName = "github.com/smallbiznis/linkedroles-worker/internal/service/linkedrole"

// Service orchestrates the linked-role OAuth flow and the stored grant lifecycle.
type Service interface {
	BuildAuthorizationURL() (authURL, state string, err error)
	HandleCallback(ctx context.Context, code string) (*CallbackResult, error)
	ExchangeCode(ctx context.Context, code string) (*domain.TokenRecord, error)
	FetchIdentity(ctx context.Context, record domain.TokenRecord) (*domainoauth.AuthorizationInfo, error)
	EnsureFreshAccessToken(ctx context.Context, userID string, record *domain.TokenRecord) (string, error)
	FetchRoleConnectionMetadata(ctx context.Context, userID string, record *domain.TokenRecord) (*domainoauth.RoleConnection, error)
	PushRoleConnectionMetadata(ctx context.Context, userID string, record *domain.TokenRecord, payload domainoauth.RoleConnection) error
	UpdateMetadata(ctx context.Context, userID string) (*domainoauth.RoleConnection, error)
}

// CallbackResult describes a completed authorization.
type CallbackResult struct {
	UserID         string
	Username       string
	MetadataPushed bool
}

type service struct {
	provider oauthadapter.ProviderClient
	store    repository.TokenStore
	metadata MetadataSource
	logger   *zap.Logger
	tracer   trace.Tracer
	refresh  singleflight.Group
	now      func() time.Time
}

// NewService wires the linked-role service.
func NewService(
	provider oauthadapter.ProviderClient,
	store repository.TokenStore,
	metadata MetadataSource,
	logger *zap.Logger,
) Service {
	return newService(provider, store, metadata, logger)
}

func newService(
	provider oauthadapter.ProviderClient,
	store repository.TokenStore,
	metadata MetadataSource,
	logger *zap.Logger,
) *service {
	return &service{
		provider: provider,
		store:    store,
		metadata: metadata,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// BuildAuthorizationURL issues a fresh state and the consent URL carrying it.
func (s *service) BuildAuthorizationURL() (string, string, error) {
	state, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	return s.provider.AuthorizationURL(state.String()), state.String(), nil
}

// HandleCallback completes the authorization: exchange, identify, persist, then push metadata.
// A failed push is logged and does not fail the callback.
func (s *service) HandleCallback(ctx context.Context, code string) (*CallbackResult, error) {
	ctx, span := s.startSpan(ctx, "linkedrole.HandleCallback")
	defer span.End()

	record, err := s.ExchangeCode(ctx, code)
	if err != nil {
		return nil, spanError(span, err)
	}

	info, err := s.FetchIdentity(ctx, *record)
	if err != nil {
		return nil, spanError(span, err)
	}
	userID := info.User.ID
	span.SetAttributes(attribute.String("user.id", userID))

	if err := s.store.PutTokens(ctx, userID, *record); err != nil {
		s.log().Error("persist tokens failed", zap.String("user_id", userID), zap.Error(err))
		return nil, spanError(span, fmt.Errorf("persist tokens: %w", err))
	}

	result := &CallbackResult{UserID: userID, Username: info.User.Username}

	payload, err := s.metadata.RoleConnection(ctx, *info)
	if err != nil {
		s.log().Warn("build role connection failed", zap.String("user_id", userID), zap.Error(err))
		return result, nil
	}
	if err := s.PushRoleConnectionMetadata(ctx, userID, record, payload); err != nil {
		return result, nil
	}
	result.MetadataPushed = true

	s.audit("linked_role.connected", "user_id", userID)
	return result, nil
}

// ExchangeCode trades an authorization code for a token record stamped at the current time.
func (s *service) ExchangeCode(ctx context.Context, code string) (*domain.TokenRecord, error) {
	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.log().Error("token exchange failed", zap.Error(err))
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	record := domain.NewTokenRecord(token.AccessToken, token.RefreshToken, token.ExpiresIn, s.now())
	return &record, nil
}

// FetchIdentity resolves the user a freshly exchanged grant belongs to.
func (s *service) FetchIdentity(ctx context.Context, record domain.TokenRecord) (*domainoauth.AuthorizationInfo, error) {
	info, err := s.provider.FetchAuthorizationInfo(ctx, record.AccessToken)
	if err != nil {
		s.log().Error("fetch identity failed", zap.Error(err))
		return nil, fmt.Errorf("fetch identity: %w", err)
	}
	if info.User == nil || info.User.ID == "" {
		return nil, domainoauth.ErrIdentityMissing
	}
	return info, nil
}

// EnsureFreshAccessToken returns a usable access token for userID, refreshing at most once.
// On refresh, record is replaced in place and the new grant is persisted. When the refresh or
// the write fails the error is logged and the stored, expired token is returned.
func (s *service) EnsureFreshAccessToken(ctx context.Context, userID string, record *domain.TokenRecord) (string, error) {
	if record == nil {
		return "", domainoauth.ErrTokenNotFound
	}
	if !record.Expired(s.now()) {
		return record.AccessToken, nil
	}

	ctx, span := s.startSpan(ctx, "linkedrole.RefreshToken")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	stale := *record
	v, err, shared := s.refresh.Do(userID, func() (any, error) {
		return s.refreshTokens(ctx, userID, stale)
	})
	if err != nil {
		span.RecordError(err)
		s.log().Warn("token refresh failed, using stored access token",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return record.AccessToken, nil
	}

	fresh := v.(domain.TokenRecord)
	*record = fresh
	if shared {
		s.log().Debug("token refresh coalesced", zap.String("user_id", userID))
	}
	return fresh.AccessToken, nil
}

func (s *service) refreshTokens(ctx context.Context, userID string, stale domain.TokenRecord) (domain.TokenRecord, error) {
	token, err := s.provider.RefreshToken(ctx, stale.RefreshToken)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("refresh token: %w", err)
	}
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = stale.RefreshToken
	}
	fresh := domain.NewTokenRecord(token.AccessToken, refreshToken, token.ExpiresIn, s.now())
	if err := s.store.PutTokens(ctx, userID, fresh); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("persist refreshed tokens: %w", err)
	}
	return fresh, nil
}

// FetchRoleConnectionMetadata reads the user's current role connection.
func (s *service) FetchRoleConnectionMetadata(ctx context.Context, userID string, record *domain.TokenRecord) (*domainoauth.RoleConnection, error) {
	ctx, span := s.startSpan(ctx, "linkedrole.FetchRoleConnection")
	defer span.End()

	accessToken, err := s.EnsureFreshAccessToken(ctx, userID, record)
	if err != nil {
		return nil, spanError(span, err)
	}
	rc, err := s.provider.GetRoleConnection(ctx, accessToken)
	if err != nil {
		s.log().Error("fetch role connection failed", zap.String("user_id", userID), zap.Error(err))
		return nil, spanError(span, fmt.Errorf("fetch role connection: %w", err))
	}
	return rc, nil
}

// PushRoleConnectionMetadata replaces the user's role connection with payload.
func (s *service) PushRoleConnectionMetadata(ctx context.Context, userID string, record *domain.TokenRecord, payload domainoauth.RoleConnection) error {
	ctx, span := s.startSpan(ctx, "linkedrole.PushRoleConnection")
	defer span.End()

	accessToken, err := s.EnsureFreshAccessToken(ctx, userID, record)
	if err != nil {
		return spanError(span, err)
	}
	if _, err := s.provider.PutRoleConnection(ctx, accessToken, payload); err != nil {
		s.log().Error("push role connection failed", zap.String("user_id", userID), zap.Error(err))
		return spanError(span, fmt.Errorf("push role connection: %w", err))
	}
	return nil
}

// UpdateMetadata rebuilds and pushes metadata for a stored user and returns the connection as
// the platform reports it afterwards.
func (s *service) UpdateMetadata(ctx context.Context, userID string) (*domainoauth.RoleConnection, error) {
	ctx, span := s.startSpan(ctx, "linkedrole.UpdateMetadata")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	record, err := s.store.GetTokens(ctx, userID)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("load tokens: %w", err))
	}

	accessToken, err := s.EnsureFreshAccessToken(ctx, userID, &record)
	if err != nil {
		return nil, spanError(span, err)
	}
	info, err := s.provider.FetchAuthorizationInfo(ctx, accessToken)
	if err != nil {
		s.log().Error("fetch identity failed", zap.String("user_id", userID), zap.Error(err))
		return nil, spanError(span, fmt.Errorf("fetch identity: %w", err))
	}

	payload, err := s.metadata.RoleConnection(ctx, *info)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("build role connection: %w", err))
	}
	if err := s.PushRoleConnectionMetadata(ctx, userID, &record, payload); err != nil {
		return nil, spanError(span, err)
	}

	s.audit("linked_role.metadata_updated", "user_id", userID)
	return s.FetchRoleConnectionMetadata(ctx, userID, &record)
}

func (s *service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *service) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", s.now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.log().Info("audit", fields...)
}

func (s *service) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// IsNotFound reports whether err means no grant is stored for the user.
func IsNotFound(err error) bool {
	return errors.Is(err, domainoauth.ErrTokenNotFound)
}
