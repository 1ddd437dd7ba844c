// Package client talks to the upload-ai HTTP API and drives the
// extract, upload, transcribe and complete workflow from the command line.
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
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"upload-ai-service/internal/models"
)

// APIError is a non-2xx response from the server.
// It unwraps to the matching sentinel in models when the code is known.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if err := models.ErrorForCode(e.Code); err != nil {
		return err
	}
	switch {
	case e.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case e.StatusCode >= 500:
		return models.ErrUpstreamUnavailable
	case e.StatusCode >= 400:
		return models.ErrValidation
	}
	return nil
}

// Client is an HTTP client for the upload-ai API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the server at baseURL, e.g. http://localhost:3333.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %w", models.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: server url must be http or https, got %q", models.ErrValidation, baseURL)
	}
	c := &Client{
		baseURL: u,
		// Streams and transcriptions are bounded by ctx rather than a client timeout.
		httpClient: &http.Client{},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// ListPrompts returns the server's prompt templates in catalog order.
func (c *Client) ListPrompts(ctx context.Context) ([]models.PromptTemplate, error) {
	var out []models.PromptTemplate
	if err := c.doJSON(ctx, http.MethodGet, "/prompts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPrompt returns a single prompt template by id.
func (c *Client) GetPrompt(ctx context.Context, id string) (models.PromptTemplate, error) {
	var out models.PromptTemplate
	if err := c.doJSON(ctx, http.MethodGet, "/prompts/"+url.PathEscape(id), nil, &out); err != nil {
		return models.PromptTemplate{}, err
	}
	return out, nil
}

// UploadAudio sends the audio file at path and returns the created record.
// The file is streamed, not buffered.
func (c *Client) UploadAudio(ctx context.Context, path string) (models.VideoRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/videos"), pr)
	if err != nil {
		pr.Close()
		return models.VideoRecord{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Video models.VideoRecord `json:"video"`
	}
	if err := c.send(req, &out); err != nil {
		pr.Close()
		return models.VideoRecord{}, err
	}
	return out.Video, nil
}

// GetVideo returns the record for id.
func (c *Client) GetVideo(ctx context.Context, id string) (models.VideoRecord, error) {
	var out struct {
		Video models.VideoRecord `json:"video"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/videos/"+url.PathEscape(id), nil, &out); err != nil {
		return models.VideoRecord{}, err
	}
	return out.Video, nil
}

// Transcribe asks the server to transcribe the uploaded audio of id.
func (c *Client) Transcribe(ctx context.Context, id, hint string) (string, error) {
	in := struct {
		Prompt string `json:"prompt,omitempty"`
	}{Prompt: hint}
	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/videos/"+url.PathEscape(id)+"/transcription", in, &out); err != nil {
		return "", err
	}
	return out.Transcription, nil
}

// Complete streams a completion into w over a chunked HTTP response.
// A failure the server reports in the trailers after the body is returned as an *APIError.
// Invalid requests are rejected before any network call.
func (c *Client) Complete(ctx context.Context, creq models.CompletionRequest, w io.Writer) error {
	if err := creq.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(creq)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/ai/complete"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return transportError(err)
	}
	// Trailers are only populated once the body has been read to EOF.
	if code := resp.Trailer.Get(models.TrailerCompletionCode); code != "" {
		if models.ErrorForCode(code) == nil {
			code = models.CodeUpstreamUnavailable
		}
		return &APIError{
			StatusCode: http.StatusBadGateway,
			Code:       code,
			Message:    resp.Trailer.Get(models.TrailerCompletionError),
		}
	}
	return nil
}

// CompleteWS streams a completion into w over the WebSocket endpoint.
func (c *Client) CompleteWS(ctx context.Context, creq models.CompletionRequest, w io.Writer) error {
	if err := creq.Validate(); err != nil {
		return err
	}

	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/ai/complete/ws"

	conn, _, err := c.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return transportError(err)
	}
	defer conn.Close()

	// Closing the socket is how the server learns we gave up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(creq); err != nil {
		return transportError(err)
	}

	for {
		var msg models.StreamMessage
		err := conn.ReadJSON(&msg)
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return transportError(err)
		}
		if msg.Error != "" || msg.Code != "" {
			return &APIError{StatusCode: http.StatusOK, Code: msg.Code, Message: msg.Error}
		}
		if _, err := io.WriteString(w, msg.Chunk); err != nil {
			return err
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// transportError marks network failures as upstream failures unless the caller cancelled.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
}
