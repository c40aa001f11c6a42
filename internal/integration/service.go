// Package integration manages workspace connections to external providers
// and resolves their decrypted credentials for connectors.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/opspilot/internal/auth"
	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

//nolint:gochecknoglobals // sentinel errors
var (
	ErrCredentialsRequired = errors.New("integration: credentials are required")
	ErrOAuthNotConfigured  = errors.New("integration: oauth not configured for provider")
	ErrInvalidState        = errors.New("integration: invalid or expired state")
)

// StateTTL bounds how long an OAuth state token stays redeemable.
const StateTTL = 5 * time.Minute

// ToolLister is the part of the gateway the catalog reads.
type ToolLister interface {
	ListTools() []domain.ToolDescription
}

// StateStore keeps single-use values with a TTL. Take returns
// domain.ErrNotFound for unknown or expired keys.
type StateStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// Sealer encrypts credential maps at rest.
type Sealer interface {
	SealCredentials(creds map[string]string) (string, error)
	OpenCredentials(sealed string) (map[string]string, error)
}

type Service struct {
	repo      domain.IntegrationRepository
	tools     ToolLister
	vault     Sealer
	states    StateStore
	pubsub    bus.Publisher
	providers map[string]*auth.OAuthProvider
	now       func() time.Time
}

func NewService(
	repo domain.IntegrationRepository,
	tools ToolLister,
	vault Sealer,
	states StateStore,
	pubsub bus.Publisher,
	providers ...*auth.OAuthProvider,
) *Service {
	byName := make(map[string]*auth.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}
	return &Service{
		repo:      repo,
		tools:     tools,
		vault:     vault,
		states:    states,
		pubsub:    pubsub,
		providers: byName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Connect stores manually supplied credentials (API keys, bot tokens).
func (s *Service) Connect(ctx context.Context, workspaceID, provider string, creds map[string]string) (*domain.IntegrationConnection, error) {
	if len(creds) == 0 {
		return nil, ErrCredentialsRequired
	}

	normalized := make(map[string]string, len(creds)+1)
	for k, v := range creds {
		normalized[k] = v
	}
	if normalized["access_token"] == "" && normalized["api_key"] != "" {
		normalized["access_token"] = normalized["api_key"]
	}

	conn, err := s.store(ctx, workspaceID, provider, normalized, nil)
	if err != nil {
		return nil, fmt.Errorf("integration.Service.Connect: %w", err)
	}
	return conn, nil
}

// Disconnect marks the connection disconnected and drops its credentials.
func (s *Service) Disconnect(ctx context.Context, workspaceID, provider string) error {
	conn, err := s.repo.Get(ctx, workspaceID, provider)
	if err != nil {
		return fmt.Errorf("integration.Service.Disconnect: %w", err)
	}

	conn.Status = domain.ConnectionDisconnected
	conn.Credentials = ""
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("integration.Service.Disconnect: %w", err)
	}

	bus.Emit(ctx, s.pubsub, domain.EventIntegrationChanged, workspaceID, map[string]any{
		"provider": provider,
		"status":   conn.Status,
	})
	return nil
}

// Status reports whether the workspace has an active connection.
func (s *Service) Status(ctx context.Context, workspaceID, provider string) (Status, error) {
	conn, err := s.repo.Get(ctx, workspaceID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return Status{Provider: provider}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("integration.Service.Status: %w", err)
	}
	return statusOf(conn), nil
}

// StartOAuth issues a single-use state and returns the provider's
// authorization URL.
func (s *Service) StartOAuth(ctx context.Context, workspaceID, provider string) (OAuthStart, error) {
	p, ok := s.providers[provider]
	if !ok {
		return OAuthStart{}, fmt.Errorf("integration.Service.StartOAuth: %s: %w", provider, ErrOAuthNotConfigured)
	}

	state := uuid.NewString()
	raw, err := json.Marshal(pendingState{Provider: provider, WorkspaceID: workspaceID})
	if err != nil {
		return OAuthStart{}, fmt.Errorf("integration.Service.StartOAuth: %w", err)
	}
	if err := s.states.Put(ctx, state, raw, StateTTL); err != nil {
		return OAuthStart{}, fmt.Errorf("integration.Service.StartOAuth: save state: %w", err)
	}

	return OAuthStart{URL: p.AuthorizationURL(state), State: state}, nil
}

// CompleteOAuth redeems state, exchanges code and stores the token.
func (s *Service) CompleteOAuth(ctx context.Context, provider, state, code string) (*domain.IntegrationConnection, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %s: %w", provider, ErrOAuthNotConfigured)
	}
	if state == "" || code == "" {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %w", ErrInvalidState)
	}

	raw, err := s.states.Take(ctx, state)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %w", ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: take state: %w", err)
	}

	var pending pendingState
	if err := json.Unmarshal(raw, &pending); err != nil || pending.Provider != provider {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %w", ErrInvalidState)
	}

	token, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %w", err)
	}

	creds := map[string]string{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
	}
	if token.RefreshToken != "" {
		creds["refresh_token"] = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		creds["expires_at"] = token.Expiry.UTC().Format(time.RFC3339)
	}
	// Slack v2 returns the bot token as access_token.
	if provider == "slack" {
		creds["bot_token"] = token.AccessToken
	}

	var scopes []string
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		scopes = []string{scope}
	}

	conn, err := s.store(ctx, pending.WorkspaceID, provider, creds, scopes)
	if err != nil {
		return nil, fmt.Errorf("integration.Service.CompleteOAuth: %w", err)
	}
	return conn, nil
}

// Credentials implements gateway.CredentialSource.
func (s *Service) Credentials(ctx context.Context, workspaceID, provider string) (map[string]string, error) {
	conn, err := s.repo.Get(ctx, workspaceID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, gateway.ErrIntegrationNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("integration.Service.Credentials: %w", err)
	}
	if conn.Status != domain.ConnectionConnected || conn.Credentials == "" {
		return nil, gateway.ErrIntegrationNotConnected
	}

	creds, err := s.vault.OpenCredentials(conn.Credentials)
	if err != nil {
		return nil, fmt.Errorf("integration.Service.Credentials: %w", err)
	}
	return creds, nil
}

// IsOAuth reports whether provider connects through OAuth.
func (s *Service) IsOAuth(provider string) bool {
	_, ok := s.providers[provider]
	return ok
}

func (s *Service) store(ctx context.Context, workspaceID, provider string, creds map[string]string, scopes []string) (*domain.IntegrationConnection, error) {
	sealed, err := s.vault.SealCredentials(creds)
	if err != nil {
		return nil, err
	}

	id := domain.NewID("int")
	if existing, getErr := s.repo.Get(ctx, workspaceID, provider); getErr == nil {
		id = existing.ID
	}

	conn := &domain.IntegrationConnection{
		ID:          id,
		WorkspaceID: workspaceID,
		Provider:    provider,
		Status:      domain.ConnectionConnected,
		Credentials: sealed,
		Scopes:      scopes,
		ConnectedAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	bus.Emit(ctx, s.pubsub, domain.EventIntegrationChanged, workspaceID, map[string]any{
		"provider": provider,
		"status":   conn.Status,
	})
	return conn, nil
}

type pendingState struct {
	Provider    string `json:"provider"`
	WorkspaceID string `json:"workspaceId"`
}
