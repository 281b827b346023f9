package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the versioned root of the Generative Language API.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	defaultListTimeout     = 10 * time.Second
	defaultGenerateTimeout = 30 * time.Second
)

// Gemini talks to Google's Generative Language REST API.
type Gemini struct {
	apiKey          string
	baseURL         string
	client          *http.Client
	listTimeout     time.Duration
	generateTimeout time.Duration
	logger          *slog.Logger
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) GeminiOption {
	return func(g *Gemini) {
		if baseURL != "" {
			g.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeouts sets the per-request timeouts for listing and generation.
// Zero values keep the defaults.
func WithTimeouts(list, generate time.Duration) GeminiOption {
	return func(g *Gemini) {
		if list > 0 {
			g.listTimeout = list
		}
		if generate > 0 {
			g.generateTimeout = generate
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGemini creates a new Gemini client for the given API key.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is not set")
	}
	g := &Gemini{
		apiKey:          apiKey,
		baseURL:         DefaultGeminiBaseURL,
		client:          &http.Client{},
		listTimeout:     defaultListTimeout,
		generateTimeout: defaultGenerateTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ListModels fetches the model catalogue visible to the API key.
func (g *Gemini) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, g.listTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models?key=%s", g.baseURL, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	respBody, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var result geminiModelList
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing model list: %w", err)
	}
	// Only the first page is considered.
	if result.NextPageToken != "" {
		g.logger.Debug("model list truncated, ignoring further pages", "listed", len(result.Models))
	}
	return result.Models, nil
}

// Generate sends prompt as a single text part and returns the text of the
// first part of the first candidate.
func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.generateTimeout)
	defer cancel()

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, ModelPath(model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := g.do(req)
	if err != nil {
		return "", err
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 ||
		result.Candidates[0].Content.Parts[0].Text == nil {
		return "", ErrNoContent
	}
	return *result.Candidates[0].Content.Parts[0].Text, nil
}

func (g *Gemini) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", redactKey(err, g.apiKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &authError{message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// ModelPath returns model in the "models/<id>" form used in request paths.
func ModelPath(model string) string {
	model = strings.Trim(model, "/")
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

// redactKey keeps the API key out of transport errors, which embed the URL.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED")
	}
	return err
}

type geminiModelList struct {
	Models        []ModelDescriptor `json:"models"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content *geminiResponseContent `json:"content"`
}

type geminiResponseContent struct {
	Parts []geminiResponsePart `json:"parts"`
}

type geminiResponsePart struct {
	Text *string `json:"text"`
}
