// Package gigachat adapts Sber GigaChat to the backend contract. Text goes
// through gigago; images and voice notes are uploaded as attachments and
// removed after the call.
package gigachat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Role1776/gigago"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/pipelineerror"
)

// Name is the registry key of this backend.
const Name = "gigachat"

// Config holds the settings of the GigaChat backend.
type Config struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
	FallbackLabel      string

	// BaseURL and OAuthURL override the public endpoints.
	BaseURL  string
	OAuthURL string
}

// Client implements backend.Backend for GigaChat.
type Client struct {
	giga     *gigago.Client
	generate func(ctx context.Context, prompt string) (string, error)
	rest     *restClient
	cfg      Config
	logger   logging.Logger
	now      func() time.Time
}

var _ backend.Backend = (*Client)(nil)

// refusals are phrases GigaChat answers with instead of a transcript.
var refusals = []string{
	"не могу помочь",
	"не могу обработать",
	"не могу извлечь",
	"cannot help",
	"cannot process",
}

// New creates a GigaChat backend.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gigachat: GIGACHAT_API_KEY is not set")
	}
	if cfg.Scope == "" {
		cfg.Scope = "GIGACHAT_API_PERS"
	}
	if cfg.Model == "" {
		cfg.Model = "GigaChat"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithField(logging.FieldBackend, Name)

	opts := []gigago.Option{gigago.WithCustomScope(cfg.Scope)}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	giga, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("gigachat: create client: %w", err)
	}

	model := giga.GenerativeModel(cfg.Model)
	model.SystemInstruction = backend.SystemInstruction
	model.Temperature = 0.1

	c := &Client{
		giga:   giga,
		rest:   newRESTClient(cfg),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	c.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.Generate(ctx, []gigago.Message{{Role: gigago.RoleUser, Content: prompt}})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	}
	return c, nil
}

func (c *Client) Name() string { return Name }

// Close releases the gigago client.
func (c *Client) Close() error {
	if c.giga != nil {
		c.giga.Close()
	}
	return nil
}

func (c *Client) request(hint string, categories []string) backend.ExtractionRequest {
	return backend.ExtractionRequest{
		Hint:          hint,
		Categories:    categories,
		FallbackLabel: c.cfg.FallbackLabel,
		Today:         c.now(),
	}
}

func (c *Client) ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error) {
	out, err := c.generate(ctx, backend.TextPrompt(c.request(hint, categories), text))
	if err != nil {
		return "", fmt.Errorf("gigachat: generate from text: %w", err)
	}
	return out, nil
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error) {
	name := "receipt" + imageExtension(mimeType)
	out, err := c.withUpload(ctx, name, mimeType, image, backend.BuildExtractionPrompt(c.request(hint, categories)))
	if err != nil {
		return "", fmt.Errorf("gigachat: generate from image: %w", err)
	}
	return out, nil
}

func (c *Client) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("gigachat: read audio: %w", err)
	}
	out, err := c.withUpload(ctx, filepath.Base(audioPath), backend.AudioMIMEType(audioPath), data, backend.TranscriptionPrompt)
	if err != nil {
		return "", fmt.Errorf("gigachat: transcribe: %w", err)
	}
	if isRefusal(out) {
		return "", &pipelineerror.TranscriptionFailedError{Backend: Name, Reason: "model refused: " + strings.TrimSpace(out)}
	}
	return out, nil
}

// withUpload uploads data, runs one completion with it attached and deletes
// the upload whatever the outcome.
func (c *Client) withUpload(ctx context.Context, fileName, mimeType string, data []byte, prompt string) (string, error) {
	fileID, err := c.rest.uploadFile(ctx, fileName, mimeType, data)
	if err != nil {
		return "", err
	}
	defer func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.rest.deleteFile(delCtx, fileID); err != nil {
			c.logger.WithError(err).Warn("Failed to delete uploaded file", logging.F("file_id", fileID))
		}
	}()

	return c.rest.completeWithAttachment(ctx, c.cfg.Model, backend.SystemInstruction, prompt, fileID)
}

func (c *Client) CheckHealth(ctx context.Context) backend.HealthStatus {
	return backend.Probe(ctx, c.rest.listModels)
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	}
	return ".jpg"
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusals {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
