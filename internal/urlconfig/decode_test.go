package urlconfig

import (
	"encoding/json"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMissingSeparator(t *testing.T) {
	_, err := Decode("/no-separator-here")
	assert.Error(t, err)
}

func TestDecodeEmptyUpstream(t *testing.T) {
	_, err := Decode("/%7B%7D$")
	assert.Error(t, err)
}

func TestDecodeURLEncodedToken(t *testing.T) {
	cfg := map[string]any{
		"basic_moderation": map[string]any{"enabled": true, "keywords_file": "kw.txt"},
		"smart_moderation": map[string]any{"enabled": true, "profile": "default"},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	token := url.QueryEscape(string(raw))

	decoded, err := Decode("/" + token + "$https://api.example.com/v1/chat/completions")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", decoded.UpstreamURL)
	assert.True(t, decoded.Config.BasicModeration.Enabled)
	assert.Equal(t, "kw.txt", decoded.Config.BasicModeration.KeywordsFile)
	assert.Equal(t, "default", decoded.Config.SmartModeration.Profile)
}

func TestDecodeEnvVarToken(t *testing.T) {
	os.Setenv("GBRIDGE_TEST_CONFIG_TOKEN", `{"basic_moderation":{"enabled":false}}`)
	defer os.Unsetenv("GBRIDGE_TEST_CONFIG_TOKEN")

	decoded, err := Decode("/!GBRIDGE_TEST_CONFIG_TOKEN$https://api.example.com/v1")
	require.NoError(t, err)
	assert.False(t, decoded.Config.BasicModeration.Enabled)
}

func TestDecodeMissingEnvVar(t *testing.T) {
	_, err := Decode("/!GBRIDGE_DOES_NOT_EXIST$https://api.example.com/v1")
	assert.Error(t, err)
}

func TestFormatTransformResolveStream(t *testing.T) {
	ft := FormatTransform{}
	mode, err := ft.Resolve()
	require.NoError(t, err)
	assert.Equal(t, StreamAuto, mode)

	ft.RawStream = json.RawMessage(`true`)
	mode, err = ft.Resolve()
	require.NoError(t, err)
	assert.Equal(t, StreamForceOn, mode)

	ft.RawStream = json.RawMessage(`false`)
	mode, err = ft.Resolve()
	require.NoError(t, err)
	assert.Equal(t, StreamForceOff, mode)

	ft.RawStream = json.RawMessage(`"auto"`)
	mode, err = ft.Resolve()
	require.NoError(t, err)
	assert.Equal(t, StreamAuto, mode)
}

func TestFormatTransformFromDialects(t *testing.T) {
	ft := FormatTransform{}
	dialects, err := ft.FromDialects()
	require.NoError(t, err)
	assert.Nil(t, dialects)

	ft.From = json.RawMessage(`"openai_chat"`)
	dialects, err = ft.FromDialects()
	require.NoError(t, err)
	assert.Equal(t, []string{"openai_chat"}, dialects)

	ft.From = json.RawMessage(`["openai_chat","claude_chat"]`)
	dialects, err = ft.FromDialects()
	require.NoError(t, err)
	assert.Equal(t, []string{"openai_chat", "claude_chat"}, dialects)
}
