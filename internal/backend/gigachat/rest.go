package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	tokenSafety     = time.Minute
)

// restClient covers the parts of the GigaChat API gigago does not expose:
// file upload and deletion, attachments in completions, and model listing.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	oauthURL   string
	apiKey     string
	scope      string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newRESTClient(cfg Config) *restClient {
	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // GigaChat uses the Russian root CA
		}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	oauthURL := cfg.OAuthURL
	if oauthURL == "" {
		oauthURL = defaultOAuthURL
	}
	return &restClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		oauthURL:   oauthURL,
		apiKey:     cfg.APIKey,
		scope:      cfg.Scope,
	}
}

// accessToken returns a cached bearer token, refreshing it shortly before expiry.
// The API key is the Base64 "client_id:secret" pair issued by Sber.
func (r *restClient) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Add(tokenSafety).Before(r.expiresAt) {
		return r.token, nil
	}

	form := url.Values{}
	form.Set("scope", r.scope)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+r.apiKey)

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := r.do(req, &out); err != nil {
		return "", fmt.Errorf("oauth: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("oauth: empty access token")
	}

	r.token = out.AccessToken
	r.expiresAt = time.UnixMilli(out.ExpiresAt)
	if out.ExpiresAt == 0 {
		r.expiresAt = time.Now().Add(30 * time.Minute)
	}
	return r.token, nil
}

func (r *restClient) authorized(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// uploadFile stores data for use as a completion attachment and returns its id.
func (r *restClient) uploadFile(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := r.authorized(ctx, http.MethodPost, "/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		ID string `json:"id"`
	}
	if err := r.do(req, &out); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload file: empty file id")
	}
	return out.ID, nil
}

func (r *restClient) deleteFile(ctx context.Context, fileID string) error {
	req, err := r.authorized(ctx, http.MethodPost, "/files/"+url.PathEscape(fileID)+"/delete", nil)
	if err != nil {
		return err
	}
	return r.do(req, nil)
}

type chatMessage struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

// completeWithAttachment runs a chat completion with one uploaded file attached.
func (r *restClient) completeWithAttachment(ctx context.Context, model, system, prompt, fileID string) (string, error) {
	payload := map[string]interface{}{
		"model": model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt, Attachments: []string{fileID}},
		},
		"temperature": 0.1,
		"stream":      false,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := r.authorized(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := r.do(req, &out); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// listModels is the cheapest authenticated call, used as a health probe.
func (r *restClient) listModels(ctx context.Context) error {
	req, err := r.authorized(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return err
	}
	return r.do(req, nil)
}

// statusError is a non-2xx answer from the API.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

func (r *restClient) do(req *http.Request, out interface{}) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			r.invalidateToken()
		}
		return &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (r *restClient) invalidateToken() {
	if r.mu.TryLock() {
		r.token = ""
		r.mu.Unlock()
	}
}
