package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider owns the genai client shared by every model handle.
type GeminiProvider struct {
	client *genai.Client
}

func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

func (gp *GeminiProvider) GetModel(modelName string) *genai.GenerativeModel {
	return gp.client.GenerativeModel(modelName)
}

// ListModels walks the model listing; names are returned without the "models/" prefix.
func (gp *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	if gp.client == nil {
		return nil, fmt.Errorf("gemini client is not initialized")
	}
	var names []string
	it := gp.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func (gp *GeminiProvider) Close() error {
	if gp.client == nil {
		return nil
	}
	return gp.client.Close()
}
