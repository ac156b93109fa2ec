package elevenlabs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoice   = "21m00Tcm4TlvDq8ikWAM"
	DefaultModel   = "eleven_flash_v2_5"
	SampleRate     = 16000
)

type Config struct {
	APIKey     string
	VoiceID    string
	ModelID    string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	cfg Config
	hc  *http.Client
}

func New(cfg Config) *Client {
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoice
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// streaming body; no overall timeout
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, hc: hc}
}

func (c *Client) Name() string { return "elevenlabs" }

func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type request struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type apiError struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize streams raw 16kHz mono PCM.
func (c *Client) Synthesize(ctx context.Context, text string, opts tts.Options) (io.ReadCloser, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", tts.ErrEmptyText
	}
	voice := c.cfg.VoiceID
	if opts.Voice != "" {
		voice = opts.Voice
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voice) + "/stream")
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	q.Set("output_format", "pcm_"+strconv.Itoa(SampleRate))
	q.Set("optimize_streaming_latency", "2")
	u.RawQuery = q.Encode()

	body, err := sonic.Marshal(request{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.7,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		var ae apiError
		if sonic.Unmarshal(raw, &ae) == nil && ae.Detail.Message != "" {
			msg = ae.Detail.Message
		}
		return nil, "", &tts.HTTPError{Backend: c.Name(), StatusCode: resp.StatusCode, Body: msg}
	}
	return resp.Body, "audio/pcm;rate=" + strconv.Itoa(SampleRate), nil
}
