package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
)

// AuthType is how a provider is connected.
type AuthType string

const (
	AuthOAuth  AuthType = "oauth"
	AuthAPIKey AuthType = "api_key"
)

type providerInfo struct {
	name        string
	description string
	category    string
}

//nolint:gochecknoglobals // static provider metadata
var knownProviders = map[string]providerInfo{
	"stripe":   {"Stripe", "Payment processing and subscription management", "payments"},
	"supabase": {"Supabase", "Database, authentication, and real-time subscriptions", "database"},
	"slack":    {"Slack", "Team communication and notifications", "communication"},
	"notion":   {"Notion", "Documentation and knowledge management", "documentation"},
	"github":   {"GitHub", "Code repository and issue management", "development"},
}

func describe(namespace string) providerInfo {
	if info, ok := knownProviders[namespace]; ok {
		return info
	}
	return providerInfo{name: namespace, description: "Integration for " + namespace, category: "other"}
}

// CatalogEntry is one provider with its tools and connection state.
type CatalogEntry struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	Category        string                   `json:"category"`
	AuthType        AuthType                 `json:"authType"`
	Connected       bool                     `json:"connected"`
	LastConnectedAt *time.Time               `json:"lastConnectedAt,omitempty"`
	Tools           []domain.ToolDescription `json:"tools"`
}

type Status struct {
	Provider        string     `json:"integration"`
	Connected       bool       `json:"connected"`
	LastConnectedAt *time.Time `json:"lastConnectedAt,omitempty"`
}

type OAuthStart struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

func statusOf(conn *domain.IntegrationConnection) Status {
	st := Status{Provider: conn.Provider, Connected: conn.Status == domain.ConnectionConnected}
	if st.Connected {
		at := conn.ConnectedAt
		st.LastConnectedAt = &at
	}
	return st
}

// Catalog groups the gateway's tools by namespace, in first-seen order.
func (s *Service) Catalog(ctx context.Context, workspaceID string) ([]CatalogEntry, error) {
	conns, err := s.repo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("integration.Service.Catalog: %w", err)
	}

	byProvider := make(map[string]Status, len(conns))
	for _, c := range conns {
		byProvider[c.Provider] = statusOf(c)
	}

	entries := make([]CatalogEntry, 0)
	index := make(map[string]int)
	for _, tool := range s.tools.ListTools() {
		i, ok := index[tool.Namespace]
		if !ok {
			info := describe(tool.Namespace)
			authType := AuthAPIKey
			if s.IsOAuth(tool.Namespace) {
				authType = AuthOAuth
			}
			st := byProvider[tool.Namespace]
			entries = append(entries, CatalogEntry{
				ID:              tool.Namespace,
				Name:            info.name,
				Description:     info.description,
				Category:        info.category,
				AuthType:        authType,
				Connected:       st.Connected,
				LastConnectedAt: st.LastConnectedAt,
			})
			i = len(entries) - 1
			index[tool.Namespace] = i
		}
		entries[i].Tools = append(entries[i].Tools, tool)
	}

	return entries, nil
}

// DisplayName returns the human name of a provider.
func DisplayName(provider string) string {
	return describe(provider).name
}
