package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/u4s-chat/server/internal/chat"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// Config holds the Gemini synthesizer parameters.
type Config struct {
	APIKey      string  `envconfig:"GEMINI_API_KEY"`
	BaseURL     string  `envconfig:"GEMINI_BASE_URL"`
	Model       string  `envconfig:"SYNTH_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"SYNTH_MAX_TOKENS" default:"350"`
	Temperature float32 `envconfig:"SYNTH_TEMPERATURE" default:"0.1"`
}

const systemPrompt = "Ты — ассистент загородного отеля. Отвечай кратко и только по фактам из контекста. " +
	"Если ответа в контексте нет, честно скажи, что данных нет."

// GeminiSynthesizer answers factual questions with a Gemini chat model,
// grounding the reply in retrieved knowledge-base snippets.
type GeminiSynthesizer struct {
	model *gemini.ChatModel
}

func NewGeminiSynthesizer(ctx context.Context, cfg Config) (*GeminiSynthesizer, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("error creating synthesizer model")
		return nil, fmt.Errorf("error creating synthesizer model: %w", err)
	}

	return &GeminiSynthesizer{model: chatModel}, nil
}

func (s *GeminiSynthesizer) Answer(ctx context.Context, query string, history []*schema.Message, snippets []chat.Snippet) (string, error) {
	prompt := systemPrompt
	if len(snippets) > 0 {
		var b strings.Builder
		b.WriteString(prompt)
		b.WriteString("\n\nКонтекст:\n")
		for _, sn := range snippets {
			b.WriteString("- ")
			b.WriteString(sn.Text)
			b.WriteString("\n")
		}
		prompt = b.String()
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(prompt))
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(query))

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		logx.Error().Err(err).Msg("answer synthesis failed")
		return "", fmt.Errorf("answer synthesis: %w", err)
	}
	return resp.Content, nil
}

var _ chat.Synthesizer = (*GeminiSynthesizer)(nil)
