// Package gemini adapts the Google AI Gemini API to the backend contract.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/logging"
)

// Name is the registry key of this backend.
const Name = "gemini"

const (
	filePollInterval = 500 * time.Millisecond
	defaultModel     = "gemini-2.0-flash"
)

// Config holds the settings of the Gemini backend.
type Config struct {
	APIKey        string
	Model         string
	FallbackLabel string
}

// Client implements backend.Backend on top of generative-ai-go.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    Config
	logger logging.Logger
	now    func() time.Time
}

var _ backend.Backend = (*Client)(nil)

// New creates a Gemini backend. The API key is required.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(backend.SystemInstruction)}}
	model.SetTemperature(0.1)

	return &Client{
		client: client,
		model:  model,
		cfg:    cfg,
		logger: logger.WithField(logging.FieldBackend, Name),
		now:    time.Now,
	}, nil
}

func (c *Client) Name() string { return Name }

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) request(hint string, categories []string) backend.ExtractionRequest {
	return backend.ExtractionRequest{
		Hint:          hint,
		Categories:    categories,
		FallbackLabel: c.cfg.FallbackLabel,
		Today:         c.now(),
	}
}

// ExtractFromImage sends the image inline; nothing is stored on Google's side.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error) {
	prompt := backend.BuildExtractionPrompt(c.request(hint, categories))
	resp, err := c.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate from image: %w", err)
	}
	return responseText(resp), nil
}

func (c *Client) ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error) {
	prompt := backend.TextPrompt(c.request(hint, categories), text)
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate from text: %w", err)
	}
	return responseText(resp), nil
}

// TranscribeAudio uploads the voice note through the File API and deletes the
// upload before returning, whatever the outcome.
func (c *Client) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("gemini: open audio: %w", err)
	}
	defer f.Close()

	file, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{MIMEType: backend.AudioMIMEType(audioPath)})
	if err != nil {
		return "", fmt.Errorf("gemini: upload audio: %w", err)
	}
	defer c.deleteFile(file.Name)

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(filePollInterval):
		}
		if file, err = c.client.GetFile(ctx, file.Name); err != nil {
			return "", fmt.Errorf("gemini: poll uploaded audio: %w", err)
		}
	}
	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("gemini: uploaded audio in state %v", file.State)
	}

	resp, err := c.model.GenerateContent(ctx,
		genai.Text(backend.TranscriptionPrompt),
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: transcribe: %w", err)
	}
	return responseText(resp), nil
}

// deleteFile runs detached from the request context so a cancelled call still
// removes its upload.
func (c *Client) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.client.DeleteFile(ctx, name); err != nil {
		c.logger.WithError(err).Warn("Failed to delete uploaded audio", logging.F("file", name))
	}
}

// CheckHealth lists one page of uploaded files, which exercises auth and quota.
func (c *Client) CheckHealth(ctx context.Context) backend.HealthStatus {
	return backend.Probe(ctx, func(ctx context.Context) error {
		it := c.client.ListFiles(ctx)
		if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	})
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
