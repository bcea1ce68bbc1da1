package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"

	"saintchat/platform"
)

// Generator turns a prompt into generated text. Any failure is ErrUpstream.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator calls an OpenAI-compatible chat-completions endpoint with a single
// fixed model.
type LLMGenerator struct {
	client *openai.Client
	model  string
	apiKey string
	log    logrus.FieldLogger
}

func NewLLMGenerator(client *openai.Client, model, apiKey string, log logrus.FieldLogger) *LLMGenerator {
	return &LLMGenerator{client: client, model: model, apiKey: apiKey, log: log}
}

func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqID := RequestID(ctx)
	if g.apiKey == "" {
		g.log.Errorf("[%s] LLM API key is not configured", reqID)
		return "", fmt.Errorf("%w: api key not configured", ErrUpstream)
	}

	start := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(g.model)),
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		platform.RecordGeneration(g.model, "error", elapsed)
		g.log.Warnf("[%s] chat completion failed: %s", reqID, err)
		return "", fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		platform.RecordGeneration(g.model, "empty", elapsed)
		g.log.Warnf("[%s] chat completion returned no content", reqID)
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}

	platform.RecordGeneration(g.model, "ok", elapsed)
	g.log.Infof("[%s] generated %d chars with %s in %.2fs", reqID, len(completion.Choices[0].Message.Content), g.model, elapsed)
	return completion.Choices[0].Message.Content, nil
}
