// Package inference describes the user's current activity with an
// OpenAI-compatible Chat Completions endpoint.
//
// The client tries a short, ordered list of models: the vision model with the
// screenshot attached (when one is available), then the text-only model with
// the metadata alone. Each model gets exactly one request. Any failure moves
// on to the next model, and when none succeeds the caller receives a
// deterministic fallback sentence instead of an error.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/nadzzz/freeflow/internal/config"
	"github.com/nadzzz/freeflow/internal/snapshot"
)

var (
	// ErrStatus means the endpoint answered with a non-200 status.
	ErrStatus = errors.New("unexpected status")

	// ErrInvalidResponse means the body was not a usable chat completion.
	ErrInvalidResponse = errors.New("invalid chat response")
)

const systemPrompt = `You are a context synthesis assistant for a speech-to-text pipeline.
Given app/window metadata and an optional screenshot, output exactly two sentences that describe what the user is doing right now and the likely writing intent in the current window.
Prioritize concrete details only from the context: for email, identify recipients, subject or thread cues, and whether the user is replying or composing; for terminal/code/text work, identify the active command, file, document title, or topic.
If details are missing, state uncertainty instead of inventing facts.
Return only two sentences, no labels, no markdown, no extra commentary.`

// Client calls the chat completions endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	visionModel string
	textModel   string
	temperature float64
	client      *http.Client
}

// New creates a Client from config. apiKey is passed separately because it
// may come from a credential store rather than the config file. A nil
// httpClient gets an HTTP/2-capable client bounded by cfg.Timeout.
func New(cfg config.InferenceConfig, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(apiKey),
		visionModel: cfg.VisionModel,
		textModel:   cfg.TextModel,
		temperature: cfg.Temperature,
		client:      httpClient,
	}
}

// NewHTTPClient returns a client whose transport negotiates HTTP/2.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(tr); err != nil {
		slog.Debug("http2 transport unavailable, using http/1.1", "error", err)
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// attempt is one entry of the model fallback list.
type attempt struct {
	model    string
	imageURI string
}

// attempts returns the ordered model list for this cycle.
func (c *Client) attempts(shot *snapshot.Encoded) []attempt {
	if shot != nil && shot.DataURI != "" {
		return []attempt{
			{model: c.visionModel, imageURI: shot.DataURI},
			{model: c.textModel},
		}
	}
	return []attempt{{model: c.textModel}}
}

// InferActivity returns a two-sentence description of the user's activity.
// It never fails: without a credential, after every model fails, or when ctx
// is cancelled, it returns Fallback.
func (c *Client) InferActivity(ctx context.Context, md snapshot.Metadata, shot *snapshot.Encoded, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	fallback := Fallback(md.AppName, shot != nil)

	if c.apiKey == "" {
		logger.Debug("inference skipped", "reason", "no credential")
		return fallback
	}

	for _, a := range c.attempts(shot) {
		if ctx.Err() != nil {
			logger.Debug("inference cancelled", "error", ctx.Err())
			return fallback
		}
		start := time.Now()
		text, err := c.complete(ctx, a, md)
		if err != nil {
			logger.Warn("activity inference attempt failed",
				"model", a.model, "vision", a.imageURI != "", "duration", time.Since(start), "error", err)
			continue
		}
		logger.Debug("activity inferred", "model", a.model, "vision", a.imageURI != "", "duration", time.Since(start))
		return Normalize(text)
	}
	return fallback
}

// complete issues a single chat completion request.
func (c *Client) complete(ctx context.Context, a attempt, md snapshot.Metadata) (string, error) {
	reqBody := chatRequest{
		Model:       a.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent(md, a.imageURI)},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding: %v", ErrInvalidResponse, err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: missing content", ErrInvalidResponse)
	}

	content := strings.TrimSpace(*chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	return content, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// --- Internal types and helpers ---

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

// chatMessage.Content is either a string or a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// metadataBlock formats the accessibility metadata for the prompt.
func metadataBlock(md snapshot.Metadata) string {
	or := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	var sb strings.Builder
	sb.WriteString("App: " + or(md.AppName, "Unknown") + "\n")
	sb.WriteString("Bundle ID: " + or(md.BundleID, "Unknown") + "\n")
	sb.WriteString("Window: " + or(md.WindowTitle, "Unknown") + "\n")
	sb.WriteString("Selected text: " + or(md.SelectedText, "None") + "\n")
	return sb.String()
}

func userContent(md snapshot.Metadata, imageURI string) any {
	meta := metadataBlock(md)
	if imageURI == "" {
		return "Analyze the context and infer the user's current activity in exactly two sentences.\n\n" + meta
	}
	return []contentPart{
		{Type: "text", Text: "Analyze the screenshot plus metadata to infer current activity."},
		{Type: "text", Text: meta},
		{Type: "image_url", ImageURL: &imageURL{URL: imageURI}},
	}
}

// Normalize trims a model answer to at most two sentences. Answers with two
// or fewer sentences are returned unchanged.
func Normalize(text string) string {
	fragments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '。'
	})
	var sentences []string
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			sentences = append(sentences, f)
		}
	}
	if len(sentences) <= 2 {
		return text
	}
	return sentences[0] + ". " + sentences[1] + "."
}

// Fallback is the summary used when inference is skipped or fails.
func Fallback(appName string, withScreenshot bool) string {
	if appName == "" {
		appName = "the active application"
	}
	if withScreenshot {
		return "Could not reliably infer a two-sentence summary for " + appName + " from the screenshot and metadata."
	}
	return "Could not reliably infer a two-sentence summary for " + appName + " from the visible metadata."
}
