// Package gemini adapts the Google Gemini SDK to the eino chat model contract.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const streamBuffer = 8

var ErrNoUserTurn = errors.New("gemini: prompt must end with a user message")

type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// ChatModel implements model.BaseChatModel on top of a genai client.
type ChatModel struct {
	client *genai.Client
	cfg    Config
}

func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY and GEMINI_MODEL are required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &ChatModel{client: client, cfg: cfg}, nil
}

func (m *ChatModel) Close() error {
	return m.client.Close()
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	session, question, err := m.startChat(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := session.SendMessage(ctx, question...)
	if err != nil {
		return nil, fmt.Errorf("gemini: send message: %w", err)
	}
	return schema.AssistantMessage(responseText(resp), nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	session, question, err := m.startChat(input, opts...)
	if err != nil {
		return nil, err
	}

	it := session.SendMessageStream(ctx, question...)
	sr, sw := schema.Pipe[*schema.Message](streamBuffer)

	go func() {
		defer sw.Close()
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				sw.Send(nil, fmt.Errorf("gemini: stream: %w", err))
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if closed := sw.Send(schema.AssistantMessage(text, nil), nil); closed {
				return
			}
		}
	}()

	return sr, nil
}

// startChat splits the eino messages into a system instruction, prior history
// and the trailing user turn that is sent.
func (m *ChatModel) startChat(input []*schema.Message, opts ...model.Option) (*genai.ChatSession, []genai.Part, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		MaxTokens:   m.cfg.MaxTokens,
	}, opts...)

	gm := m.client.GenerativeModel(m.cfg.Model)
	if options.Temperature != nil {
		gm.SetTemperature(*options.Temperature)
	}
	if options.TopP != nil {
		gm.SetTopP(*options.TopP)
	}
	if options.MaxTokens != nil {
		gm.SetMaxOutputTokens(int32(*options.MaxTokens))
	}

	var system []string
	var contents []*genai.Content
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.User:
			contents = appendTurn(contents, "user", msg.Content)
		case schema.Assistant:
			contents = appendTurn(contents, "model", msg.Content)
		}
	}

	if len(system) > 0 {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	if len(contents) == 0 || contents[len(contents)-1].Role != "user" {
		return nil, nil, ErrNoUserTurn
	}
	last := contents[len(contents)-1]

	session := gm.StartChat()
	session.History = contents[:len(contents)-1]
	return session, last.Parts, nil
}

// appendTurn merges consecutive turns of the same role; Gemini rejects them.
func appendTurn(contents []*genai.Content, role, text string) []*genai.Content {
	if n := len(contents); n > 0 && contents[n-1].Role == role {
		contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(text))
		return contents
	}
	return append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}
