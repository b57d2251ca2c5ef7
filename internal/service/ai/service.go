package ai

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/turing-station/backend/internal/config"
)

// Service runs composed prompts through the configured chat model.
type Service struct {
	cfg   config.AIConfig
	model model.BaseChatModel
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the chat model from cfg. Missing credentials fail here,
// at startup, rather than on the first interrogation.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel wires an already constructed model into the prompt chain.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{cfg: cfg, model: chatModel, chain: runnable}, nil
}

// Close releases the underlying model client when it holds one.
func (s *Service) Close() error {
	if c, ok := s.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Stream yields the reply as fragments. With streaming disabled the model is
// invoked once and its reply is relayed as a single fragment.
func (s *Service) Stream(ctx context.Context, p Prompt) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		msg, err := s.Generate(ctx, p)
		if err != nil {
			return nil, err
		}
		return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
	}

	stream, err := s.chain.Stream(ctx, chainInput(p))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

// Generate returns the full reply in one message.
func (s *Service) Generate(ctx context.Context, p Prompt) (*schema.Message, error) {
	response, err := s.chain.Invoke(ctx, chainInput(p))
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}
	return response, nil
}

// PingResult reports a connectivity check against the provider.
type PingResult struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Reply     string `json:"reply"`
	LatencyMs int64  `json:"latencyMs"`
}

// Ping performs one short non-streamed completion.
func (s *Service) Ping(ctx context.Context) (PingResult, error) {
	started := time.Now()
	msg, err := s.Generate(ctx, Prompt{
		System:  "You are a connectivity check. Reply with one short sentence.",
		History: []*schema.Message{schema.UserMessage("Hello")},
	})
	if err != nil {
		return PingResult{}, err
	}

	result := PingResult{
		Provider:  s.cfg.ProviderName(),
		Model:     s.cfg.ModelName(),
		Reply:     msg.Content,
		LatencyMs: time.Since(started).Milliseconds(),
	}
	log.Printf("[ai] ping ok provider=%s model=%s latency=%dms", result.Provider, result.Model, result.LatencyMs)
	return result, nil
}

func chainInput(p Prompt) map[string]any {
	return map[string]any{
		"system":  p.System,
		"history": p.History,
	}
}
