package reasoning_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/reasoning"
)

func completion(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return string(raw)
}

func newClient(url string) *reasoning.Client {
	return reasoning.New(reasoning.Config{
		URL:        url,
		APIKey:     "sk-test",
		Model:      "gpt-4o-mini",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})
}

var (
	session = &domain.Session{ID: "sess-1", Title: "Growth Sync"}          //nolint:gochecknoglobals // fixture
	ag      = &domain.Agent{ID: "agent-1", SystemPrompt: "You run ops."} //nolint:gochecknoglobals // fixture
)

func TestClient_ComposePlan(t *testing.T) {
	t.Parallel()

	t.Run("decodes plan from completion", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var req struct {
				Model          string            `json:"model"`
				ResponseFormat map[string]string `json:"response_format"`
				Messages       []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "json_object", req.ResponseFormat["type"])
			if assert.Len(t, req.Messages, 2) {
				assert.Contains(t, req.Messages[0].Content, "You run ops.")
				assert.Contains(t, req.Messages[1].Content, "Growth Sync")
			}

			_, _ = w.Write([]byte(completion(`{"goal":"Recover MRR","steps":[{"id":"a","title":"A"},{"id":"b","title":"B","dependsOn":["a"]}]}`)))
		}))
		t.Cleanup(srv.Close)

		plan, err := newClient(srv.URL+"/").ComposePlan(context.Background(), session, ag, "hi")
		require.NoError(t, err)
		assert.Equal(t, "Recover MRR", plan.Goal)
		require.Len(t, plan.Steps, 2)
		assert.Equal(t, []string{"a"}, plan.Steps[1].DependsOn)
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(completion(`{"goal":"g","steps":[]}`)))
		}))
		t.Cleanup(srv.Close)

		plan, err := newClient(srv.URL).ComposePlan(context.Background(), session, ag, "hi")
		require.NoError(t, err)
		assert.Equal(t, "g", plan.Goal)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "bad key", http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		_, err := newClient(srv.URL).ComposePlan(context.Background(), session, ag, "hi")
		require.Error(t, err)

		var se *reasoning.StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("malformed content", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(completion(`not json`)))
		}))
		t.Cleanup(srv.Close)

		_, err := newClient(srv.URL).ComposePlan(context.Background(), session, ag, "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode plan")
	})

	t.Run("empty completion", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		t.Cleanup(srv.Close)

		_, err := newClient(srv.URL).ComposePlan(context.Background(), session, ag, "hi")
		require.ErrorIs(t, err, reasoning.ErrEmptyCompletion)
	})
}
