package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/stt"
)

var ErrEmptyAudio = errors.New("whisper: no audio")

type segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	AvgLogprob float64 `json:"avg_logprob"`
}

type response struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []segment `json:"segments,omitempty"`
}

// Client talks to a whisper-asr-webservice instance.
type Client struct {
	baseURL    string
	language   string
	prompt     string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewClient(baseURL, language string, logger *Logger.Logger) *Client {
	if language == "" {
		language = "en"
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		// nudges the decoder toward formulas and element names
		prompt:     "chemistry: H2O, NaCl, CO2, mole, molar mass, covalent bond",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     Logger.OrNop(logger).Named("whisper"),
	}
}

// Transcribe implements stt.Recognizer.
func (c *Client) Transcribe(ctx context.Context, pcm audio.PCM) (stt.Transcript, error) {
	if len(pcm.Data) == 0 {
		return stt.Transcript{}, ErrEmptyAudio
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return stt.Transcript{}, err
	}
	if _, err := part.Write(audio.EncodeWAV(pcm.Data, pcm.Format)); err != nil {
		return stt.Transcript{}, err
	}
	if err := w.Close(); err != nil {
		return stt.Transcript{}, err
	}

	q := url.Values{}
	q.Set("encode", "true")
	q.Set("task", "transcribe")
	q.Set("language", c.language)
	q.Set("output", "json")
	q.Set("initial_prompt", c.prompt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/asr?"+q.Encode(), &body)
	if err != nil {
		return stt.Transcript{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return stt.Transcript{}, fmt.Errorf("whisper returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out response
	if err := sonic.Unmarshal(raw, &out); err != nil {
		// some deployments answer text/plain
		c.logger.Debugf("non-json whisper response, using body as text")
		return stt.Transcript{
			Text:     strings.TrimSpace(string(raw)),
			Language: c.language,
		}, nil
	}

	t := stt.Transcript{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
	}
	if conf, ok := confidence(out.Segments); ok {
		t.Confidence = conf
		t.HasConfidence = true
	}
	c.logger.Debugf("transcript %q (lang=%s, conf=%.2f)", t.Text, t.Language, t.Confidence)
	return t, nil
}

// confidence averages per-segment token probability.
func confidence(segs []segment) (float64, bool) {
	var (
		sum float64
		n   int
	)
	for _, s := range segs {
		if s.AvgLogprob == 0 {
			continue
		}
		sum += math.Exp(s.AvgLogprob)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
