package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// Scorer is the AI collaborator boundary: prompt in, structured result or nil
// out. A nil result means the collaborator was unavailable or returned
// garbage; it is never an error the caller must handle beyond falling back.
type Scorer interface {
	ScoreResume(ctx context.Context, resumeText, jobDescription string, rewrite bool) *domain.ATSReport
	EvaluateInterview(ctx context.Context, role, transcript string) *domain.InterviewReport
}

// OpenAIScorer calls an OpenAI-compatible chat completions endpoint.
type OpenAIScorer struct {
	client   *resty.Client
	model    string
	endpoint string
	enabled  bool
}

// ScorerConfig holds configuration for the AI scorer client. Provider picks
// the default endpoint when BaseURL is empty; an explicit BaseURL always wins.
type ScorerConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewOpenAIScorer creates a new scorer client. With no API key the scorer is
// disabled and every call returns nil, which downstream turns into a
// generated fallback result.
func NewOpenAIScorer(cfg *ScorerConfig) *OpenAIScorer {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "openrouter":
			baseURL = "https://openrouter.ai/api/v1"
		case "deepseek":
			baseURL = "https://api.deepseek.com/v1"
		default:
			baseURL = "https://api.openai.com/v1"
		}
	}

	return &OpenAIScorer{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		enabled:  cfg.APIKey != "",
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// complete sends one prompt and returns the raw completion text, or "" when
// anything goes wrong. Failures are logged and swallowed here; the caller
// falls back to generated results.
func (s *OpenAIScorer) complete(ctx context.Context, system, user string) string {
	if !s.enabled {
		return ""
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: 2048,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(s.endpoint)
	if err != nil {
		logger.CtxWarn(ctx, "Scorer request failed: %v", err)
		return ""
	}
	if resp.StatusCode() != 200 {
		logger.CtxWarn(ctx, "Scorer returned status %d", resp.StatusCode())
		return ""
	}

	body := resp.String()
	if errMsg := gjson.Get(body, "error.message"); errMsg.Exists() {
		logger.CtxWarn(ctx, "Scorer API error: %s", errMsg.String())
		return ""
	}
	return gjson.Get(body, "choices.0.message.content").String()
}

// cleanJSON strips markdown code fences models wrap around JSON output.
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

const atsSystemPrompt = "You are an ATS (applicant tracking system) analyst. Respond with strict JSON only, no prose."

// ScoreResume asks the model for an ATS assessment of the resume against an
// optional job description. Returns nil if the model is unreachable or its
// output cannot be parsed.
func (s *OpenAIScorer) ScoreResume(ctx context.Context, resumeText, jobDescription string, rewrite bool) *domain.ATSReport {
	jd := jobDescription
	if jd == "" {
		jd = "(no job description provided; score against general best practice)"
	}

	prompt := fmt.Sprintf(`Assess the resume below for ATS compatibility and fit.

Return JSON with this schema:
{
  "score": <integer 0-100>,
  "strengths": ["..."],
  "weaknesses": ["..."],
  "summary": "<one paragraph>"%s
}

Job description:
%s

Resume:
%s`, rewriteField(rewrite), jd, resumeText)

	text := cleanJSON(s.complete(ctx, atsSystemPrompt, prompt))
	if text == "" || !gjson.Valid(text) {
		return nil
	}

	score := gjson.Get(text, "score")
	if !score.Exists() {
		return nil
	}

	report := &domain.ATSReport{
		Score:      int(score.Int()),
		Strengths:  stringSlice(gjson.Get(text, "strengths")),
		Weaknesses: stringSlice(gjson.Get(text, "weaknesses")),
		Summary:    gjson.Get(text, "summary").String(),
	}
	if rewrite {
		report.Rewritten = gjson.Get(text, "rewritten").String()
		if report.Rewritten == "" {
			report.Rewritten = resumeText
		}
	}
	return report
}

func rewriteField(rewrite bool) string {
	if !rewrite {
		return ""
	}
	return `,
  "rewritten": "<the full resume text rewritten for ATS compatibility>"`
}

const interviewSystemPrompt = "You are an experienced technical interviewer evaluating a candidate's answers. Respond with strict JSON only, no prose."

// EvaluateInterview asks the model to grade an interview transcript. Returns
// nil if the model is unreachable or its output cannot be parsed.
func (s *OpenAIScorer) EvaluateInterview(ctx context.Context, role, transcript string) *domain.InterviewReport {
	prompt := fmt.Sprintf(`Evaluate the interview transcript below for the role of %q.

Return JSON with this schema:
{
  "scores": {"communication": <0-100>, "technical": <0-100>, "problem_solving": <0-100>},
  "strengths": ["..."],
  "improvements": ["..."],
  "summary": "<one paragraph>",
  "recommendation": "strong-hire" | "hire" | "maybe" | "no-hire"
}

Transcript:
%s`, role, transcript)

	text := cleanJSON(s.complete(ctx, interviewSystemPrompt, prompt))
	if text == "" || !gjson.Valid(text) {
		return nil
	}
	if !gjson.Get(text, "scores").Exists() {
		return nil
	}

	scores := map[string]float64{}
	gjson.Get(text, "scores").ForEach(func(key, value gjson.Result) bool {
		scores[key.String()] = value.Float()
		return true
	})

	return &domain.InterviewReport{
		Scores:         scores,
		Strengths:      stringSlice(gjson.Get(text, "strengths")),
		Improvements:   stringSlice(gjson.Get(text, "improvements")),
		Summary:        gjson.Get(text, "summary").String(),
		Recommendation: domain.Recommendation(gjson.Get(text, "recommendation").String()),
	}
}

func stringSlice(r gjson.Result) []string {
	var out []string
	for _, item := range r.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
