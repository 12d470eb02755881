package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Renderer turns a resume into a PDF artifact. Rendering internals are
// external; a render failure fails the job with no fallback.
type Renderer interface {
	Render(ctx context.Context, resume *domain.Resume, template string) ([]byte, error)
}

// HTTPRenderer calls an external render service that accepts resume JSON and
// returns PDF bytes.
type HTTPRenderer struct {
	client  *resty.Client
	baseURL string
}

// RendererConfig holds configuration for the render service client.
type RendererConfig struct {
	BaseURL string
	APIKey  string
}

// NewHTTPRenderer creates a render service client.
func NewHTTPRenderer(cfg *RendererConfig) *HTTPRenderer {
	client := resty.New()
	client.SetTimeout(120 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &HTTPRenderer{client: client, baseURL: cfg.BaseURL}
}

type renderRequest struct {
	Template string                `json:"template,omitempty"`
	Title    string                `json:"title,omitempty"`
	Content  domain.ResumeContent  `json:"content"`
}

// Render posts the resume to the render service and returns the PDF bytes.
func (r *HTTPRenderer) Render(ctx context.Context, resume *domain.Resume, template string) ([]byte, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("renderer is not configured")
	}

	body, err := json.Marshal(renderRequest{
		Template: template,
		Title:    resume.Title,
		Content:  resume.Content,
	})
	if err != nil {
		return nil, err
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/pdf").
		SetBody(body).
		Post(r.baseURL + "/render")
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("render service returned status %d", resp.StatusCode())
	}

	pdf := resp.Body()
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render service returned an empty document")
	}
	return pdf, nil
}
