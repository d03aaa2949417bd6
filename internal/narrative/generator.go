package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/pkg/httputil"
	"github.com/wonny/equitylens/pkg/logger"
)

// ErrUnparsable means the generator answered but not with the expected JSON
var ErrUnparsable = errors.New("narrative output is not valid JSON")

// Generator turns a condensed analysis into a narrative
type Generator interface {
	Generate(ctx context.Context, p contracts.NarrativePayload) (*contracts.Narrative, error)
}

// HTTPGenerator calls a text generation endpoint that accepts
// {model, prompt, stream} and answers {"response": "..."}.
type HTTPGenerator struct {
	client   *httputil.Client
	endpoint string
	model    string
	logger   *logger.Logger
}

// NewHTTPGenerator creates a generator for endpoint
func NewHTTPGenerator(endpoint, model string, timeout time.Duration, log *logger.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		client:   httputil.New(log, httputil.WithTimeout(timeout), httputil.WithRetry(1, 2*time.Second)),
		endpoint: endpoint,
		model:    model,
		logger:   log.Component("narrative"),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends the prompt and parses the model output
func (g *HTTPGenerator) Generate(ctx context.Context, p contracts.NarrativePayload) (*contracts.Narrative, error) {
	prompt, err := BuildPrompt(p)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	g.logger.WithFields(map[string]interface{}{
		"model":  g.model,
		"symbol": p.Symbol,
	}).Info("Calling narrative generator")

	resp, err := g.client.PostJSON(ctx, g.endpoint, generateRequest{Model: g.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("narrative request: %w", err)
	}

	var out generateResponse
	if err := httputil.DecodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("narrative response: %w", err)
	}

	g.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Narrative response received")

	n, err := ParseOutput(out.Response)
	if err != nil {
		return nil, err
	}
	n.Model = g.model
	return n, nil
}

// BuildPrompt renders the generator instructions followed by the data
func BuildPrompt(p contracts.NarrativePayload) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode narrative payload: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a professional financial analyst.\n\n")
	b.WriteString("Strict rules:\n")
	b.WriteString("- Only use the provided data.\n")
	b.WriteString("- Do NOT fabricate numbers.\n")
	b.WriteString("- Do NOT give investment advice.\n")
	b.WriteString("- Output must be valid JSON only.\n")
	b.WriteString("- Do NOT include markdown, code fences, or extra text.\n\n")
	b.WriteString("Return exactly this JSON structure:\n")
	b.WriteString("{\n")
	b.WriteString("  \"executive_summary\": \"...\",\n")
	b.WriteString("  \"bull_case\": \"...\",\n")
	b.WriteString("  \"bear_case\": \"...\",\n")
	b.WriteString("  \"risk_assessment\": \"...\",\n")
	b.WriteString("  \"confidence\": \"Low/Medium/High\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Data:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}

// ParseOutput decodes the model output. Text around the outermost JSON
// object (code fences, preambles) is ignored.
func ParseOutput(raw string) (*contracts.Narrative, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, ErrUnparsable
	}

	var n contracts.Narrative
	if err := json.Unmarshal([]byte(raw[start:end+1]), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if n.ExecutiveSummary == "" {
		return nil, fmt.Errorf("%w: missing executive_summary", ErrUnparsable)
	}
	return &n, nil
}
