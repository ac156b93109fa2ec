package piper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xpanvictor/chemtalk/pkg/io/tts"
)

// Piper speaks through a local wyoming-piper HTTP server.
type Piper struct {
	BaseURL string       // e.g. "http://tts:5000"
	Client  *http.Client // inject; default if nil
	Voice   string       // default voice (override per-call)
}

// DefaultFirstByte bounds how long piper may think before audio starts.
const DefaultFirstByte = 30 * time.Second

func New(baseURL, voice string) *Piper {
	return &Piper{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Voice:   voice,
		Client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: DefaultFirstByte},
		},
	}
}

func (p *Piper) Name() string { return "piper" }

func (p *Piper) Configured() bool { return p.BaseURL != "" }

func (p *Piper) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

// Synthesize implements tts.Synthesizer. The body is a wav stream.
func (p *Piper) Synthesize(ctx context.Context, text string, opts tts.Options) (io.ReadCloser, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", tts.ErrEmptyText
	}
	voice := p.Voice
	if opts.Voice != "" {
		voice = opts.Voice
	}

	// GET /api/text-to-speech?text=...&voice=...
	u, err := url.Parse(p.BaseURL + "/api/text-to-speech")
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	q.Set("text", text)
	if voice != "" {
		q.Set("voice", voice)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, "", &tts.HTTPError{Backend: p.Name(), StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/wav"
	}
	return resp.Body, ct, nil
}
