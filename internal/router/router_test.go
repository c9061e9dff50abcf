package router

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianbridge/gbridge/internal/adapters"
	"github.com/guardianbridge/gbridge/internal/classifier"
	"github.com/guardianbridge/gbridge/internal/gbridgeerr"
	"github.com/guardianbridge/gbridge/internal/keywordfilter"
	"github.com/guardianbridge/gbridge/internal/moderation"
	"github.com/guardianbridge/gbridge/internal/profile"
	"github.com/guardianbridge/gbridge/internal/upstream"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	registry := adapters.NewRegistry()
	mod := moderation.NewEngine(profile.NewStore(t.TempDir()), keywordfilter.NewCache(), classifier.NewCache())
	client := upstream.NewClient(upstream.NewPool())
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return New(registry, mod, client, logger)
}

func TestServeHTTPMalformedPathGrammar(t *testing.T) {
	rt := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/no-dollar-sign-here", nil)
	rec := httptest.NewRecorder()

	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errBody, _ := body["error"].(map[string]any)
	assert.Equal(t, string(gbridgeerr.ConfigDecodeError), errBody["code"])
}

func TestServeHTTPKeywordBlocksBeforeUpstream(t *testing.T) {
	dir := t.TempDir()
	kwPath := dir + "/keywords.txt"
	require.NoError(t, os.WriteFile(kwPath, []byte("forbidden\n"), 0o644))

	cfg := map[string]any{
		"basic_moderation": map[string]any{"enabled": true, "keywords_file": kwPath},
		"format_transform": map[string]any{"enabled": true, "to": "openai_chat"},
	}
	cfgJSON, err := json.Marshal(cfg)
	require.NoError(t, err)
	token := url.QueryEscape(string(cfgJSON))

	body := map[string]any{
		"model":    "gpt-4",
		"messages": []any{map[string]any{"role": "user", "content": "this is Forbidden stuff"}},
	}
	bodyJSON, err := json.Marshal(body)
	require.NoError(t, err)

	rt := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/"+token+"$https://example.invalid/v1/chat/completions", bytes.NewReader(bodyJSON))
	rec := httptest.NewRecorder()

	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var respBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respBody))
	errBody, _ := respBody["error"].(map[string]any)
	assert.Equal(t, "BASIC_MODERATION_BLOCKED", errBody["code"])
}
