package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Analyzer identifies the microorganism in an image.
type Analyzer interface {
	Analyze(ctx context.Context, img Image) (*MicrobeAnalysis, error)
}

// Observer receives one outcome per Analyze call.
type Observer interface {
	ObserveAnalysis(outcome string, elapsed time.Duration)
}

// Client calls models.generateContent once per Analyze with no retry.
type Client struct {
	models   *genai.Models
	model    string
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// New builds a Gemini API client from cfg. A nil httpClient uses the SDK
// default; tests pass one backed by a mock transport.
func New(ctx context.Context, cfg *Config, httpClient *http.Client, observer Observer, logger *slog.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		models:   gc.Models,
		model:    strings.TrimPrefix(cfg.Model, "models/"),
		timeout:  timeout,
		observer: observer,
		logger:   logger.With("system", "analysis"),
	}, nil
}

func (c *Client) Analyze(ctx context.Context, img Image) (*MicrobeAnalysis, error) {
	start := time.Now()

	result, err := c.analyze(ctx, img)
	outcome := "success"
	if err != nil {
		var ae *Error
		switch {
		case errors.As(err, &ae):
			outcome = ae.Kind.String()
		case errors.Is(err, ErrInvalidImage):
			outcome = "invalid_image"
		}
		c.logger.Warn("analysis failed", "outcome", outcome, "error", err)
	} else {
		c.logger.Info(
			"analysis complete",
			"microbe", result.MicrobeName,
			"classification", result.Classification,
			"confidence", result.Confidence,
		)
	}

	if c.observer != nil {
		c.observer.ObserveAnalysis(outcome, time.Since(start))
	}
	return result, err
}

func (c *Client) analyze(ctx context.Context, img Image) (*MicrobeAnalysis, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: image data is not base64", ErrInvalidImage)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(data, img.MimeType),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(callCtx, c.model, contents, nil)
	if err != nil {
		return nil, classify(ctx, callCtx, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, &Error{Kind: KindMalformed, Detail: "response contained no text"}
	}

	result, err := decode(text)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}
	return result, nil
}

// classify maps a failed call onto a Kind. Only the deadline set by
// Analyze counts as a timeout; a caller's own cancellation or deadline is
// a transport failure.
func classify(parent, call context.Context, err error) error {
	if errors.Is(call.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Kind:       KindService,
			StatusCode: apiErr.Code,
			Detail:     strings.TrimSpace(apiErr.Message),
			Err:        err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Err: err}
	}

	return &Error{Kind: KindTransport, Detail: err.Error(), Err: err}
}
