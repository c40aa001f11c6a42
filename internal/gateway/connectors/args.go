// Package connectors holds the in-process tool connectors behind the gateway.
package connectors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gosuda/opspilot/internal/gateway"
)

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// argInt accepts JSON numbers, Go ints and numeric strings.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func templateHint(name string) map[string]any {
	return map[string]any{"template": name}
}

func requireConnection(ctx context.Context, src gateway.CredentialSource, workspaceID, provider string) (map[string]string, error) {
	if src == nil {
		return nil, fmt.Errorf("%s: %w", provider, gateway.ErrIntegrationNotConnected)
	}
	creds, err := src.Credentials(ctx, workspaceID, provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	return creds, nil
}

func unknownTool(connector, toolID string) error {
	return fmt.Errorf("%s: unknown tool %q", connector, toolID)
}
