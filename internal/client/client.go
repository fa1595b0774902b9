package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"learncards/internal/models"
)

const DefaultPollInterval = 2 * time.Second

// ErrNoCards means the server answered with the model's raw text instead of
// a card array. NoCardsError carries that text.
var ErrNoCards = errors.New("no cards in model reply")

type NoCardsError struct {
	Text string
}

func (e *NoCardsError) Error() string { return ErrNoCards.Error() }
func (e *NoCardsError) Unwrap() error { return ErrNoCards }

// ValidationError is returned before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 5 * time.Minute},
		pollInterval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GenerateCards sends text to the synchronous endpoint. count <= 0 leaves the
// server default in place.
func (c *Client) GenerateCards(ctx context.Context, text string, count int) ([]models.Card, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "No text provided."}
	}
	body, err := json.Marshal(map[string]any{"text": text, "count": count})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeCards(raw)
}

// GenerateFromDocument uploads a PDF or text file for synchronous generation.
func (c *Client) GenerateFromDocument(ctx context.Context, path string, count int) ([]models.Card, error) {
	req, err := c.uploadRequest(ctx, "/api/generate-document", "document", path, count)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeCards(raw)
}

// UploadVideo starts a background task and returns its id.
func (c *Client) UploadVideo(ctx context.Context, path string, count int) (string, error) {
	req, err := c.uploadRequest(ctx, "/api/upload-video", "video", path, count)
	if err != nil {
		return "", err
	}
	raw, err := c.do(req)
	if err != nil {
		return "", err
	}
	var out struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode upload reply: %w", err)
	}
	if out.TaskID == "" {
		return "", errors.New("upload reply has no taskId")
	}
	return out.TaskID, nil
}

func (c *Client) Task(ctx context.Context, id string) (models.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/task/"+url.PathEscape(id), nil)
	if err != nil {
		return models.Task{}, err
	}
	raw, err := c.do(req)
	if err != nil {
		return models.Task{}, err
	}
	var t models.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}

// WaitForTask polls until the task is terminal, a request fails, or ctx ends.
// onUpdate, when set, sees every snapshot including the last one.
func (c *Client) WaitForTask(ctx context.Context, id string, onUpdate func(models.Task)) (models.Task, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		t, err := c.Task(ctx, id)
		if err != nil {
			return models.Task{}, err
		}
		if onUpdate != nil {
			onUpdate(t)
		}
		if t.Status.Terminal() {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) uploadRequest(ctx context.Context, path, field, file string, count int) (*http.Request, error) {
	if strings.TrimSpace(file) == "" {
		return nil, &ValidationError{Field: field, Reason: "no file selected"}
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if count > 0 {
		if err := mw.WriteField("count", strconv.Itoa(count)); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile(field, filepath.Base(file))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Code, apiErr.Message = body.Code, body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}

// decodeCards accepts either a card array or the {text} fallback.
func decodeCards(raw []byte) ([]models.Card, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var cards []models.Card
		if err := json.Unmarshal(trimmed, &cards); err != nil {
			return nil, fmt.Errorf("decode cards: %w", err)
		}
		return cards, nil
	}
	var fallback struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(trimmed, &fallback); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return nil, &NoCardsError{Text: fallback.Text}
}
