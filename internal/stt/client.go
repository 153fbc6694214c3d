package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrTranscription means the audio could not be turned into text; the
// operator is asked to retype the request.
var ErrTranscription = errors.New("transcription failed")

const defaultURL = "https://api.openai.com/v1/audio/transcriptions"

// Client is a one-shot speech-to-text client for whisper-style HTTP
// endpoints: it posts the audio blob as multipart form data and reads back
// a {"text": ...} body.
type Client struct {
	url        string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

func New(url, apiKey string) *Client {
	if url == "" {
		url = defaultURL
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		model:      "whisper-1",
		language:   "es",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	form.WriteField("model", c.model)
	form.WriteField("language", c.language)
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscription, resp.StatusCode, data)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("%w: empty transcription", ErrTranscription)
	}
	return result.Text, nil
}
