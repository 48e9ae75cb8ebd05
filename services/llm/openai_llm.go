package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zhyyuka/xingling-chat/services/orchestrator/datatypes"
)

var tracer = otel.Tracer("xingling.llm.openai")

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
// DeepSeek is the default backend; its reasoner models surface
// reasoning_content deltas, which become StreamEventThinking events.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client for the given endpoint options.
func NewOpenAIClient(opts Options) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}
}

// NewClient is the Factory for OpenAI-compatible backends.
func NewClient(opts Options) LLMClient {
	return NewOpenAIClient(opts)
}

func (o *OpenAIClient) buildRequest(messages []datatypes.Message, params GenerationParams, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stream:   stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	return req
}

// Chat implements LLMClient.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "OpenAIClient.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))
	slog.Debug("Submitting chat completion", "model", o.model, "messages", len(messages))

	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(messages, params, false))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Completion service returned no choices", "model", o.model)
		return "", fmt.Errorf("completion service returned no choices")
	}
	slog.Debug("Received chat completion", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// ChatStream implements LLMClient. Events are delivered to callback in
// arrival order; delivery is the suspension point, so a slow consumer
// delays the next upstream read rather than dropping frames.
func (o *OpenAIClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {

	ctx, span := tracer.Start(ctx, "OpenAIClient.ChatStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	stream, err := o.client.CreateChatCompletionStream(ctx, o.buildRequest(messages, params, true))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("receive stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent != "" {
			if err := callback(StreamEvent{Type: StreamEventThinking, Content: delta.ReasoningContent}); err != nil {
				return err
			}
		}
		if delta.Content != "" {
			if err := callback(StreamEvent{Type: StreamEventToken, Content: delta.Content}); err != nil {
				return err
			}
		}
	}
}
