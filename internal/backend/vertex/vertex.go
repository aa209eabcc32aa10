// Package vertex adapts Gemini models served by Vertex AI to the backend contract.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/logging"
)

// Name is the registry key of this backend.
const Name = "vertex"

// Config holds the settings of the Vertex AI backend. Credentials come from
// Application Default Credentials.
type Config struct {
	Project       string
	Location      string
	Model         string
	FallbackLabel string
}

// Client implements backend.Backend with google.golang.org/genai.
type Client struct {
	client *genai.Client
	cfg    Config
	logger logging.Logger
	now    func() time.Time
}

var _ backend.Backend = (*Client)(nil)

// New creates a Vertex AI backend.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Client, error) {
	if cfg.Project == "" {
		return nil, errors.New("vertex: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("vertex: create client: %w", err)
	}

	return &Client{
		client: client,
		cfg:    cfg,
		logger: logger.WithField(logging.FieldBackend, Name),
		now:    time.Now,
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) generate(ctx context.Context, parts ...*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, generationConfig())
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: backend.SystemInstruction}}},
		Temperature:       genai.Ptr[float32](0.1),
	}
}

func (c *Client) request(hint string, categories []string) backend.ExtractionRequest {
	return backend.ExtractionRequest{
		Hint:          hint,
		Categories:    categories,
		FallbackLabel: c.cfg.FallbackLabel,
		Today:         c.now(),
	}
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error) {
	out, err := c.generate(ctx,
		&genai.Part{Text: backend.BuildExtractionPrompt(c.request(hint, categories))},
		&genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	)
	if err != nil {
		return "", fmt.Errorf("vertex: generate from image: %w", err)
	}
	return out, nil
}

func (c *Client) ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error) {
	out, err := c.generate(ctx, &genai.Part{Text: backend.TextPrompt(c.request(hint, categories), text)})
	if err != nil {
		return "", fmt.Errorf("vertex: generate from text: %w", err)
	}
	return out, nil
}

// TranscribeAudio sends the voice note inline, so nothing is left behind on
// the provider.
func (c *Client) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("vertex: read audio: %w", err)
	}
	out, err := c.generate(ctx,
		&genai.Part{Text: backend.TranscriptionPrompt},
		&genai.Part{InlineData: &genai.Blob{MIMEType: backend.AudioMIMEType(audioPath), Data: data}},
	)
	if err != nil {
		return "", fmt.Errorf("vertex: transcribe: %w", err)
	}
	return out, nil
}

// CheckHealth counts tokens of a fixed string, which needs auth but no quota.
func (c *Client) CheckHealth(ctx context.Context) backend.HealthStatus {
	return backend.Probe(ctx, func(ctx context.Context) error {
		_, err := c.client.Models.CountTokens(ctx, c.cfg.Model,
			[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: "ping"}}}}, nil)
		return err
	})
}
