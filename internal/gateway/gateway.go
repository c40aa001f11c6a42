// Package gateway routes namespaced tool invocations to the connector that
// owns them.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/metrics"
)

var (
	// ErrToolNotFound is returned when no registered connector owns a tool id.
	ErrToolNotFound = errors.New("gateway: tool not found") //nolint:gochecknoglobals // sentinel error
	// ErrToolExecutionFailed matches every *ExecutionError.
	ErrToolExecutionFailed = errors.New("gateway: tool execution failed") //nolint:gochecknoglobals // sentinel error
	// ErrIntegrationNotConnected is returned by connectors that need stored credentials.
	ErrIntegrationNotConnected = errors.New("gateway: integration not connected") //nolint:gochecknoglobals // sentinel error
)

// ExecutionError reports a connector failure for a specific tool.
type ExecutionError struct {
	ToolID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("gateway: tool %s failed: %v", e.ToolID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrToolExecutionFailed }

// Tool describes one operation a connector exposes.
type Tool struct {
	ID      string
	Name    string
	Summary string
	Args    map[string]string // argument name -> human hint
}

// Connector groups the tools of one third-party service.
type Connector interface {
	ID() string
	Name() string
	Namespace() string
	Tools() []Tool
	Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error)
}

// CredentialSource resolves the decrypted credentials of a workspace's
// connection to a provider. It returns ErrIntegrationNotConnected when the
// workspace has no active connection.
type CredentialSource interface {
	Credentials(ctx context.Context, workspaceID, provider string) (map[string]string, error)
}

// Gateway is a registry of connectors keyed by connector id.
type Gateway struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	order      []string
}

func New(connectors ...Connector) *Gateway {
	g := &Gateway{connectors: make(map[string]Connector)}
	for _, c := range connectors {
		g.Register(c)
	}
	return g
}

// Register adds a connector, replacing any previous one with the same id.
func (g *Gateway) Register(c Connector) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.connectors[c.ID()]; !ok {
		g.order = append(g.order, c.ID())
	}
	g.connectors[c.ID()] = c
}

// Available returns registered connector ids in sorted order.
func (g *Gateway) Available() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := slices.Clone(g.order)
	sort.Strings(ids)
	return ids
}

// ListTools describes every tool in registration order.
func (g *Gateway) ListTools() []domain.ToolDescription {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []domain.ToolDescription
	for _, id := range g.order {
		c := g.connectors[id]
		for _, t := range c.Tools() {
			example, _ := json.Marshal(t.Args) //nolint:errchkjson // map[string]string always encodes
			out = append(out, domain.ToolDescription{
				ID:           t.ID,
				Name:         c.Name() + " · " + t.Name,
				Namespace:    c.Namespace(),
				Summary:      t.Summary,
				Example:      string(example),
				Version:      "1.0",
				Capabilities: []string{"read", "write"},
			})
		}
	}
	return out
}

// Execute runs toolID on its owning connector. Connector failures come back
// as *ExecutionError.
func (g *Gateway) Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	c, ok := g.owner(toolID)
	if !ok {
		metrics.ToolCalls.WithLabelValues(toolID, "not_found").Inc()
		return nil, fmt.Errorf("gateway.Gateway.Execute(%q): %w", toolID, ErrToolNotFound)
	}

	if args == nil {
		args = map[string]any{}
	}

	res, err := c.Execute(ctx, cc, toolID, args)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(toolID, "error").Inc()
		return nil, &ExecutionError{ToolID: toolID, Err: err}
	}

	metrics.ToolCalls.WithLabelValues(toolID, "ok").Inc()
	if res == nil {
		res = &domain.ToolResult{}
	}
	return res, nil
}

func (g *Gateway) owner(toolID string) (Connector, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range g.order {
		c := g.connectors[id]
		for _, t := range c.Tools() {
			if t.ID == toolID {
				return c, true
			}
		}
	}
	return nil, false
}
