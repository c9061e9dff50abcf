package gbridgeerr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesStatus(t *testing.T) {
	err := New(BasicModerationBlocked, "matched keyword")
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "matched keyword", err.Error())
}

func TestWrapChainsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(UpstreamError, "forward request", cause)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestWriteToGatewayError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteTo(rec, New(ConfigDecodeError, "missing $ separator"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errBody, _ := body["error"].(map[string]any)
	assert.Equal(t, string(ConfigDecodeError), errBody["code"])
	assert.Equal(t, "missing $ separator", errBody["message"])
}

func TestWriteToPlainErrorBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteTo(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errBody, _ := body["error"].(map[string]any)
	assert.Equal(t, string(InternalError), errBody["code"])
}
