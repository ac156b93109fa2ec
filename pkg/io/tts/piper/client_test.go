package piper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
)

func TestPiperSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/text-to-speech", r.URL.Path)
		assert.Equal(t, "NaCl is an ionic compound", r.URL.Query().Get("text"))
		assert.Equal(t, "en_US-amy-low", r.URL.Query().Get("voice"))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF...."))
	}))
	defer srv.Close()

	p := New(srv.URL+"/", "en_US-lessac-medium")
	body, ct, err := p.Synthesize(context.Background(), "NaCl is an ionic compound", tts.Options{Voice: "en_US-amy-low"})
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "audio/wav", ct)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "RIFF....", string(data))
}

func TestPiperErrorAndConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := New(srv.URL, "").Synthesize(context.Background(), "hi", tts.Options{})
	var herr *tts.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Equal(t, "voice not found", herr.Body)

	assert.False(t, New("", "").Configured())
	assert.Nil(t, tts.First(New("", ""), nil))
	assert.Equal(t, "piper", tts.First(New("", ""), New(srv.URL, "")).Name())
}
