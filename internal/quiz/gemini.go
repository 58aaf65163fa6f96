package quiz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"microearn/internal/model"
	"microearn/pkg/logger"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"

	prompt = "Generate a fun, random trivia question about general knowledge, science, or pop culture. Provide 4 options and the index of the correct answer."
)

// Fallback is served whenever the remote call fails in any way.
func Fallback() model.QuizQuestion {
	return model.QuizQuestion{
		Question:     "Which planet is known as the Red Planet?",
		Options:      []string{"Earth", "Mars", "Jupiter", "Venus"},
		CorrectIndex: 1,
	}
}

type Config struct {
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiClient struct {
	cfg    Config
	client *http.Client
}

func NewGeminiClient(cfg Config) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GeminiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateQuestion never fails: errors are logged and replaced by Fallback.
func (g *GeminiClient) GenerateQuestion(ctx context.Context) model.QuizQuestion {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return Fallback()
	}

	question, err := g.generate(ctx)
	if err != nil {
		logger.Named("quiz").Warn("quiz generation failed, serving fallback question", zap.Error(err))
		return Fallback()
	}
	return question
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		ResponseSchema   *schema `json:"responseSchema"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var questionSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"question": {Type: "STRING"},
		"options": {
			Type:  "ARRAY",
			Items: &schema{Type: "STRING"},
		},
		"correctIndex": {
			Type:        "INTEGER",
			Description: "0-based index of the correct option",
		},
	},
	Required: []string{"question", "options", "correctIndex"},
}

func (g *GeminiClient) generate(ctx context.Context) (model.QuizQuestion, error) {
	var request generateRequest
	request.Contents = []content{{Role: "user", Parts: []part{{Text: prompt}}}}
	request.GenerationConfig.ResponseMimeType = "application/json"
	request.GenerationConfig.ResponseSchema = questionSchema

	body, err := json.Marshal(request)
	if err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.QuizQuestion{}, fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result generateResponse
	if err = json.Unmarshal(raw, &result); err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error parsing response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return model.QuizQuestion{}, fmt.Errorf("no response text generated")
	}

	var question model.QuizQuestion
	if err = json.Unmarshal([]byte(result.Candidates[0].Content.Parts[0].Text), &question); err != nil {
		return model.QuizQuestion{}, fmt.Errorf("error parsing question: %w", err)
	}
	if !question.Valid() {
		return model.QuizQuestion{}, fmt.Errorf("malformed question: %d options, correct index %d", len(question.Options), question.CorrectIndex)
	}

	return question, nil
}
