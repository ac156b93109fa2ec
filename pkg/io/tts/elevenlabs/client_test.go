package elevenlabs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
)

func TestSynthesizeStreamsPCM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text-to-speech/voice-1/stream", r.URL.Path)
		assert.Equal(t, "pcm_16000", r.URL.Query().Get("output_format"))
		assert.Equal(t, "sk-test", r.Header.Get("xi-api-key"))

		raw, _ := io.ReadAll(r.Body)
		var req request
		require.NoError(t, sonic.Unmarshal(raw, &req))
		assert.Equal(t, "Water is polar.", req.Text)
		assert.Equal(t, DefaultModel, req.ModelID)

		_, _ = w.Write([]byte{1, 0, 2, 0})
	}))
	defer srv.Close()

	c := New(Config{APIKey: "sk-test", VoiceID: "voice-1", BaseURL: srv.URL})
	require.True(t, c.Configured())

	body, ct, err := c.Synthesize(context.Background(), "Water is polar.", tts.Options{})
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "audio/pcm;rate=16000", ct)
	data, _ := io.ReadAll(body)
	assert.Equal(t, []byte{1, 0, 2, 0}, data)
}

func TestSynthesizeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "bad", BaseURL: srv.URL})
	_, _, err := c.Synthesize(context.Background(), "hi", tts.Options{Voice: "other"})
	var herr *tts.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, 401, herr.StatusCode)
	assert.Equal(t, "Invalid API key", herr.Body)
}

func TestUnconfiguredAndEmptyText(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Configured())
	_, _, err := New(Config{APIKey: "k"}).Synthesize(context.Background(), "  ", tts.Options{})
	assert.ErrorIs(t, err, tts.ErrEmptyText)
}
