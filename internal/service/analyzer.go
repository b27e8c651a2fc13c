package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/prompts"
)

// minAnalyzableLength is the raw-text length below which analysis is
// short-circuited to an empty result without any model call.
const minAnalyzableLength = 10

// BrandMention is one structured brand occurrence extracted from a response.
type BrandMention struct {
	Brand   string `json:"brand"`
	Count   int    `json:"count"`
	Context string `json:"context"`
}

// AnalysisResult is the analyzer's structured output.
type AnalysisResult struct {
	Mentions  []BrandMention `json:"mentions"`
	Citations []string       `json:"citations"`
}

// Analyzer turns one raw response text into structured mentions and
// citations. Implementations must never fail past their boundary: any
// provider, parse, or validation failure degrades to an empty result so a
// bad extraction is always isolated to "this prompt yielded nothing".
type Analyzer interface {
	Analyze(ctx context.Context, rawText string, brands []string) *AnalysisResult
}

// AnalyzerConfig holds configuration for the LLM analyzer.
type AnalyzerConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// LLMAnalyzer extracts mentions and citations with a schema-constrained
// completion against an OpenAI-compatible endpoint.
type LLMAnalyzer struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewLLMAnalyzer creates the analyzer client.
func NewLLMAnalyzer(cfg *AnalyzerConfig) *LLMAnalyzer {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &LLMAnalyzer{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

func emptyResult() *AnalysisResult {
	return &AnalysisResult{Mentions: []BrandMention{}, Citations: []string{}}
}

// Analyze runs one structured-extraction request. Trivially short text
// short-circuits to an empty result without a model call.
func (a *LLMAnalyzer) Analyze(ctx context.Context, rawText string, brands []string) *AnalysisResult {
	if len(rawText) < minAnalyzableLength {
		return emptyResult()
	}

	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.BuildAnalysisSystemPrompt(brands)},
			{Role: "user", Content: prompts.AnalysisUserPrompt + rawText},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(a.endpoint)

	if err != nil {
		logger.CtxError(ctx, "Analysis request failed: %v", err)
		return emptyResult()
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		logger.CtxError(ctx, "Analysis API returned HTTP %d", httpResp.StatusCode())
		return emptyResult()
	}

	if resp.Error != nil || len(resp.Choices) == 0 {
		logger.CtxError(ctx, "Analysis API returned no usable choices")
		return emptyResult()
	}

	content := resp.Choices[0].Message.Content
	parsed, err := parseAnalysisResult(content)
	if err != nil {
		logger.CtxError(ctx, "Failed to parse analysis output: %v", err)
		return emptyResult()
	}

	return parsed
}

// parseAnalysisResult decodes and validates model output against the
// expected schema. Entries with empty brand names or non-positive counts
// are dropped rather than failing the whole result.
func parseAnalysisResult(content string) (*AnalysisResult, error) {
	// Some models wrap JSON output in a markdown code fence despite
	// json_object mode
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, err
	}

	mentions := make([]BrandMention, 0, len(result.Mentions))
	for _, m := range result.Mentions {
		if m.Brand == "" || m.Count <= 0 {
			continue
		}
		mentions = append(mentions, m)
	}
	result.Mentions = mentions

	if result.Citations == nil {
		result.Citations = []string{}
	}

	return &result, nil
}
