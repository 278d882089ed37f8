// Package eino adapts a cloudwego/eino chat model to the engine's Backend
// contract: one message/tool shape in, normalized tool calls and
// always-present usage counts out.
package eino

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/pkg/logger"
)

// ChatBackend drives one eino ToolCallingChatModel.
type ChatBackend struct {
	chatModel model.ToolCallingChatModel
	modelName string
}

// New wraps an eino chat model as a Backend.
func New(chatModel model.ToolCallingChatModel, modelName string) *ChatBackend {
	return &ChatBackend{chatModel: chatModel, modelName: modelName}
}

// Complete performs one blocking completion. Tool schemas are bound per
// call because the offered toolset changes with recursion depth.
func (b *ChatBackend) Complete(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
	cm, err := b.bind(tools)
	if err != nil {
		return nil, err
	}

	resp, err := cm.Generate(ctx, ToSchemaMessages(messages))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return b.fromResponse(resp), nil
}

// Stream performs one streaming completion, yielding text chunks.
func (b *ChatBackend) Stream(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (backend.StreamReader, error) {
	cm, err := b.bind(tools)
	if err != nil {
		return nil, err
	}

	sr, err := cm.Stream(ctx, ToSchemaMessages(messages))
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	return &chunkReader{inner: sr}, nil
}

func (b *ChatBackend) ModelName() string {
	return b.modelName
}

func (b *ChatBackend) bind(tools []*entity.ToolDefinition) (model.BaseChatModel, error) {
	if len(tools) == 0 {
		return b.chatModel, nil
	}
	cm, err := b.chatModel.WithTools(toolInfos(tools))
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	return cm, nil
}

// fromResponse normalizes one provider response. Usage defaults to 0 when
// the provider reports none; malformed tool arguments degrade per
// NormalizeArguments and log one warning each.
func (b *ChatBackend) fromResponse(resp *schema.Message) *backend.Completion {
	out := &backend.Completion{
		Content: resp.Content,
		Model:   b.modelName,
	}

	if meta := resp.ResponseMeta; meta != nil {
		out.FinishReason = meta.FinishReason
		if meta.Usage != nil {
			out.InputTokens = int64(meta.Usage.PromptTokens)
			out.OutputTokens = int64(meta.Usage.CompletionTokens)
		}
	}

	for _, tc := range resp.ToolCalls {
		args, warned := NormalizeArguments(tc.Function.Arguments)
		if warned {
			logger.WarnX("backend", "normalized malformed arguments for tool %q (call %s)",
				tc.Function.Name, tc.ID)
		}
		out.ToolCalls = append(out.ToolCalls, &entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out
}

// chunkReader adapts eino's typed stream to the text-chunk contract.
type chunkReader struct {
	inner *schema.StreamReader[*schema.Message]
}

func (r *chunkReader) Recv() (string, error) {
	msg, err := r.inner.Recv()
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (r *chunkReader) Close() {
	r.inner.Close()
}
