package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

type stubConnector struct {
	id      string
	tools   []gateway.Tool
	execute func(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error)
}

func (s *stubConnector) ID() string            { return s.id }
func (s *stubConnector) Name() string          { return "Stub " + s.id }
func (s *stubConnector) Namespace() string     { return s.id }
func (s *stubConnector) Tools() []gateway.Tool { return s.tools }
func (s *stubConnector) Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	return s.execute(ctx, cc, toolID, args)
}

func newStub(id string, toolIDs ...string) *stubConnector {
	s := &stubConnector{id: id}
	for _, tid := range toolIDs {
		s.tools = append(s.tools, gateway.Tool{ID: tid, Name: "Tool " + tid, Summary: "does " + tid, Args: map[string]string{"range": "7d"}})
	}
	s.execute = func(_ context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
		return &domain.ToolResult{Result: map[string]any{"tool": toolID, "ws": cc.WorkspaceID, "args": args}}, nil
	}
	return s
}

func TestGateway_ListTools(t *testing.T) {
	t.Parallel()

	g := gateway.New(newStub("beta", "beta.one"), newStub("alpha", "alpha.one", "alpha.two"))

	tools := g.ListTools()
	require.Len(t, tools, 3)

	assert.Equal(t, "beta.one", tools[0].ID)
	assert.Equal(t, "Stub beta · Tool beta.one", tools[0].Name)
	assert.Equal(t, "beta", tools[0].Namespace)
	assert.Equal(t, "1.0", tools[0].Version)
	assert.Equal(t, []string{"read", "write"}, tools[0].Capabilities)
	assert.JSONEq(t, `{"range":"7d"}`, tools[0].Example)

	assert.Equal(t, []string{"alpha", "beta"}, g.Available())
}

func TestGateway_Execute(t *testing.T) {
	t.Parallel()

	cc := domain.CapabilityContext{WorkspaceID: "ws-demo", ActorID: "user"}

	t.Run("routes to owning connector", func(t *testing.T) {
		t.Parallel()

		g := gateway.New(newStub("alpha", "alpha.one"))

		res, err := g.Execute(context.Background(), cc, "alpha.one", map[string]any{"range": "7d"})
		require.NoError(t, err)

		payload, ok := res.Result.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "alpha.one", payload["tool"])
		assert.Equal(t, "ws-demo", payload["ws"])
	})

	t.Run("unknown tool", func(t *testing.T) {
		t.Parallel()

		g := gateway.New(newStub("alpha", "alpha.one"))

		res, err := g.Execute(context.Background(), cc, "missing.tool", nil)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, gateway.ErrToolNotFound)
		assert.NotErrorIs(t, err, gateway.ErrToolExecutionFailed)
	})

	t.Run("connector failure becomes ExecutionError", func(t *testing.T) {
		t.Parallel()

		stub := newStub("alpha", "alpha.one")
		stub.execute = func(context.Context, domain.CapabilityContext, string, map[string]any) (*domain.ToolResult, error) {
			return nil, gateway.ErrIntegrationNotConnected
		}
		g := gateway.New(stub)

		_, err := g.Execute(context.Background(), cc, "alpha.one", nil)
		require.Error(t, err)

		var execErr *gateway.ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, "alpha.one", execErr.ToolID)
		assert.ErrorIs(t, err, gateway.ErrToolExecutionFailed)
		assert.ErrorIs(t, err, gateway.ErrIntegrationNotConnected)
	})

	t.Run("nil args become empty map", func(t *testing.T) {
		t.Parallel()

		stub := newStub("alpha", "alpha.one")
		var got map[string]any
		stub.execute = func(_ context.Context, _ domain.CapabilityContext, _ string, args map[string]any) (*domain.ToolResult, error) {
			got = args
			return nil, nil
		}
		g := gateway.New(stub)

		res, err := g.Execute(context.Background(), cc, "alpha.one", nil)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.NotNil(t, got)
	})
}

func TestGateway_RegisterReplaces(t *testing.T) {
	t.Parallel()

	g := gateway.New(newStub("alpha", "alpha.one"))
	g.Register(newStub("alpha", "alpha.two"))

	tools := g.ListTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "alpha.two", tools[0].ID)
	assert.Equal(t, []string{"alpha"}, g.Available())
}
