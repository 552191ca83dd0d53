// Package openai adapts agentloop.Provider to the OpenAI Chat Completions
// API, grounded on the teacher's model/openai/openai.go (message/tool
// construction, non-streaming response handling) generalized to the
// provider-neutral core.Part transcript this module adds. Streaming is
// dropped: agentloop.Loop consumes one complete RawResponse per cycle, never
// a partial-chunk stream.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/lwcsrf/netflux/agentloop"
	"github.com/lwcsrf/netflux/core"
	"github.com/lwcsrf/netflux/internal/id"
	"github.com/lwcsrf/netflux/internal/schema"
)

// Options configures the OpenAI provider adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Provider implements agentloop.Provider against the Chat Completions API.
// OpenAI has no prompt-cache watermark a caller controls (its cache is
// automatic, keyed on the shared prefix) so Render ignores the cache policy
// argument entirely — there is nothing to set.
type Provider struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI provider using the official client.
func New(optFns ...func(*Options)) *Provider {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient builds a Provider around an already-constructed client.
func NewFromClient(client *openai.Client, optFns ...func(*Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func (p *Provider) Kind() core.ProviderKind { return core.ProviderOpenAI }

// Render builds an openai.ChatCompletionNewParams from the neutral
// transcript. policy is accepted only to satisfy agentloop.Provider; OpenAI
// caches automatically and exposes no explicit watermark to set.
func (p *Provider) Render(systemPrompt string, transcript []core.Part, policy core.CachePolicy, tools []agentloop.ToolDef) (agentloop.RenderedRequest, error) {
	messages, err := buildMessages(systemPrompt, transcript)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:               p.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}

	if len(tools) > 0 {
		toolParams := make([]openai.ChatCompletionToolParam, len(tools))
		for i, t := range tools {
			toolParams[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  schema.Build(t.Args),
				},
			}
		}
		params.Tools = toolParams
	}

	return params, nil
}

// buildMessages walks the flat transcript, mapping each Part to the chat
// message it participates in: a UserTextPart opens a new user message, a
// ModelTextPart/ToolUsePart run builds one assistant message (tool calls
// batched together, matching the single model turn that issued them), and
// each ToolResultPart becomes its own tool message immediately following.
func buildMessages(systemPrompt string, transcript []core.Part) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}

	var assistantText string
	var pendingCalls []openai.ChatCompletionMessageToolCallParam
	flushAssistant := func() {
		if assistantText == "" && len(pendingCalls) == 0 {
			return
		}
		if len(pendingCalls) == 0 {
			messages = append(messages, openai.AssistantMessage(assistantText))
		} else {
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(assistantText)},
				ToolCalls: pendingCalls,
			}})
		}
		assistantText, pendingCalls = "", nil
	}

	for _, part := range transcript {
		switch pt := part.(type) {
		case core.UserTextPart:
			flushAssistant()
			messages = append(messages, openai.UserMessage(pt.Text))

		case core.ModelTextPart:
			assistantText += pt.Text

		case core.ThinkingPart:
			// Chat Completions has no reasoning-block wire format; the
			// provider's own reasoning stays server-side and is never
			// replayed (unlike Anthropic's signed thinking blocks).
			continue

		case core.ToolUsePart:
			argsJSON, err := json.Marshal(pt.Args)
			if err != nil {
				return nil, fmt.Errorf("openai: marshaling tool args for %q: %w", pt.Name, err)
			}
			pendingCalls = append(pendingCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   pt.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      pt.Name,
					Arguments: string(argsJSON),
				},
			})

		case core.ToolResultPart:
			flushAssistant()
			messages = append(messages, openai.ToolMessage(pt.Payload, pt.ID))

		default:
			return nil, fmt.Errorf("openai: unsupported transcript part %T", part)
		}
	}
	flushAssistant()

	return messages, nil
}

// Submit performs the non-streaming chat completion call.
func (p *Provider) Submit(ctx context.Context, req agentloop.RenderedRequest) (agentloop.RawResponse, error) {
	params, ok := req.(openai.ChatCompletionNewParams)
	if !ok {
		return nil, fmt.Errorf("openai: unexpected request type %T", req)
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	return resp, nil
}

// Ingest converts a *openai.ChatCompletion into neutral transcript parts,
// the tool-use batch, final text, and usage.
func (p *Provider) Ingest(raw agentloop.RawResponse) (parts []core.Part, toolUses []core.ToolUsePart, finalText *string, usage core.TokenUsage, err error) {
	resp, ok := raw.(*openai.ChatCompletion)
	if !ok {
		return nil, nil, nil, core.TokenUsage{}, fmt.Errorf("openai: unexpected response type %T", raw)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, nil, core.TokenUsage{}, errors.New("openai: response has no choices")
	}
	msg := resp.Choices[0].Message

	if msg.Content != "" {
		parts = append(parts, core.ModelTextPart{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if uerr := json.Unmarshal([]byte(tc.Function.Arguments), &args); uerr != nil {
				return nil, nil, nil, core.TokenUsage{}, fmt.Errorf("openai: tool arguments for %q are not a JSON object: %w", tc.Function.Name, uerr)
			}
		}
		toolCallID := tc.ID
		if toolCallID == "" {
			toolCallID = id.NewToolUseID()
		}
		toolUse := core.ToolUsePart{ID: toolCallID, Name: tc.Function.Name, Args: args}
		parts = append(parts, toolUse)
		toolUses = append(toolUses, toolUse)
	}

	if len(toolUses) == 0 {
		text := msg.Content
		finalText = &text
	}

	usage = core.TokenUsage{
		CacheRead:       resp.Usage.PromptTokensDetails.CachedTokens,
		InputRegular:    resp.Usage.PromptTokens - resp.Usage.PromptTokensDetails.CachedTokens,
		ReasoningOutput: resp.Usage.CompletionTokensDetails.ReasoningTokens,
		TextOutput:      resp.Usage.CompletionTokens - resp.Usage.CompletionTokensDetails.ReasoningTokens,
	}

	return parts, toolUses, finalText, usage, nil
}

// IsTransient classifies rate-limit and server-side errors as retryable.
func (p *Provider) IsTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 409, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	return false
}
