// Package gateway is the single boundary to the generative model service.
//
// A Generator turns a Request into reply text or one of three failures:
// ErrMissingCredential (nothing was sent), *UpstreamError (the service
// answered with a non-success status) or *NetworkError (transport failure).
// The gateway never retries; callers own the retry policy.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/mmynk/mamachef/internal/models"
)

var ErrMissingCredential = errors.New("GEMINI_API_KEY is missing")

// Request is one generate call.
type Request struct {
	Model             string
	Contents          []models.Content
	SystemInstruction string
	Temperature       float64

	// ResponseSchema constrains the reply to JSON of the given shape when set.
	ResponseSchema *genai.Schema
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// UpstreamError carries the remote status and error body unparsed.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway: upstream status %d: %s", e.Status, e.Body)
}

type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway: network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config configures the genai-backed client.
type Config struct {
	APIKey  string
	BaseURL string

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client

	// VideoPollInterval defaults to DefaultVideoPollInterval.
	VideoPollInterval time.Duration
}

// Client calls the Gemini API through google.golang.org/genai.
type Client struct {
	genAI        *genai.Client
	pollInterval time.Duration
}

var _ Generator = (*Client)(nil)

// New builds a client. An empty API key is not an error here: every Generate
// call then fails with ErrMissingCredential before touching the network.
func New(ctx context.Context, cfg Config) (*Client, error) {
	pollInterval := cfg.VideoPollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultVideoPollInterval
	}
	if cfg.APIKey == "" {
		return &Client{pollInterval: pollInterval}, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	genAI, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gateway: creating genai client: %w", err)
	}
	return &Client{genAI: genAI, pollInterval: pollInterval}, nil
}

// Configured reports whether a credential was supplied.
func (c *Client) Configured() bool {
	return c.genAI != nil
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.genAI == nil {
		return "", ErrMissingCredential
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.ResponseSchema
	}

	res, err := c.genAI.Models.GenerateContent(ctx, req.Model, toGenAIContents(req.Contents), config)
	if err != nil {
		return "", classify(ctx, err)
	}
	return res.Text(), nil
}

func toGenAIContents(contents []models.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		gc := &genai.Content{Role: c.Role}
		for _, p := range c.Parts {
			if p.InlineData != nil {
				gc.Parts = append(gc.Parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data},
				})
				continue
			}
			gc.Parts = append(gc.Parts, &genai.Part{Text: p.Text})
		}
		out = append(out, gc)
	}
	return out
}

func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("gateway: generate content: %w", ctxErr)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return upstreamFrom(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return upstreamFrom(*apiErrPtr)
	}
	return &NetworkError{Err: err}
}

// upstreamFrom rebuilds the service's error envelope so callers see the
// body the API returned.
func upstreamFrom(apiErr genai.APIError) *UpstreamError {
	envelope := map[string]any{
		"code":    apiErr.Code,
		"message": apiErr.Message,
		"status":  apiErr.Status,
	}
	if len(apiErr.Details) > 0 {
		envelope["details"] = apiErr.Details
	}
	body, err := json.Marshal(map[string]any{"error": envelope})
	if err != nil {
		body = []byte(apiErr.Message)
	}
	return &UpstreamError{Status: apiErr.Code, Body: string(body)}
}
