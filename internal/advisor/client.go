// Package advisor calls an external generative-text API for writer
// feedback, reviewer summaries, and clarity scoring. Prompt templates
// and the API key live in the settings store and are read on every
// call, so admins can tune them without a restart.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pasinduf/blog-platform/internal/store"
)

// Setting names the advisor reads at call time.
const (
	SettingWritingCoach = "WRITING_COACH"
	SettingAdminReview  = "ADMIN_REVIEW"
	SettingClarityScore = "CLARITY_SCORE"
	SettingAPIKey       = "AI_API_KEY"
)

var ErrNotConfigured = errors.New("advisor api key not configured")

// SettingsSource provides the hot-configurable prompts and key.
type SettingsSource interface {
	GetSettingByName(ctx context.Context, name string) (store.Setting, error)
}

type Client struct {
	baseURL    string
	model      string
	settings   SettingsSource
	httpClient *http.Client
}

func NewClient(baseURL, model string, settings SettingsSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		settings:   settings,
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt and returns the first candidate's text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	apiKey, err := c.setting(ctx, SettingAPIKey)
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call advisor api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read advisor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advisor api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode advisor response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("advisor returned no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) setting(ctx context.Context, name string) (string, error) {
	setting, err := c.settings.GetSettingByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", name, err)
	}
	return strings.TrimSpace(setting.Value), nil
}

// PerformWriterAnalysis runs the writing-coach prompt against a draft
// and returns structured feedback for the author.
func (c *Client) PerformWriterAnalysis(ctx context.Context, title, blogContent string) (*store.WriterAnalysis, error) {
	template, err := c.setting(ctx, SettingWritingCoach)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(template, defaultWriterAnalysisPrompt, title, blogContent)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis store.WriterAnalysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &analysis); err != nil {
		return nil, fmt.Errorf("parse writer analysis: %w", err)
	}
	analysis.SchemaVersion = store.PayloadSchemaVersion
	return &analysis, nil
}

// GenerateAdminSummary runs the reviewer prompt and returns the digest
// shown in the review queue.
func (c *Client) GenerateAdminSummary(ctx context.Context, title, blogContent string) (*store.AdminSummary, error) {
	template, err := c.setting(ctx, SettingAdminReview)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(template, defaultAdminSummaryPrompt, title, blogContent)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var summary store.AdminSummary
	if err := json.Unmarshal([]byte(extractJSON(text)), &summary); err != nil {
		return nil, fmt.Errorf("parse admin summary: %w", err)
	}
	summary.SchemaVersion = store.PayloadSchemaVersion
	return &summary, nil
}

// GenerateClarityScore returns an integer score between 1 and 100.
func (c *Client) GenerateClarityScore(ctx context.Context, title, blogContent string) (int, error) {
	template, err := c.setting(ctx, SettingClarityScore)
	if err != nil {
		return 0, err
	}
	prompt := buildPrompt(template, defaultClarityScorePrompt, title, blogContent)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return 0, err
	}

	score, err := strconv.Atoi(strings.TrimSpace(extractJSON(text)))
	if err != nil {
		return 0, fmt.Errorf("parse clarity score %q: %w", text, err)
	}
	if score < 1 || score > 100 {
		return 0, fmt.Errorf("clarity score %d out of range", score)
	}
	return score, nil
}

func buildPrompt(template, fallback, title, blogContent string) string {
	if template == "" {
		template = fallback
	}
	return template + "\n\nTitle: " + title + "\n\nContent:\n" + blogContent
}

// extractJSON strips markdown code fences that generative models often
// wrap around structured output.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

const defaultWriterAnalysisPrompt = `You are a writing coach. Analyze the blog post below and respond with JSON only, in the shape
{"clarityScore": <1-100>, "strengths": [...], "issues": [...], "suggestions": [...]}.`

const defaultAdminSummaryPrompt = `You are assisting an editorial reviewer. Summarize the blog post below and respond with JSON only, in the shape
{"summary": "...", "keyPoints": [...], "risks": [...]}.`

const defaultClarityScorePrompt = `Rate the clarity of the blog post below as a single integer between 1 and 100. Respond with the number only.`
