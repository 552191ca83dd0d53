// Package anthropic adapts agentloop.Provider to the Anthropic Messages
// API, grounded on the teacher's model/anthropic/anthropic.go (message/tool
// construction, content-block conversion) generalized to the provider-
// neutral core.Part transcript and cache-watermark policy this module adds.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lwcsrf/netflux/agentloop"
	"github.com/lwcsrf/netflux/core"
	"github.com/lwcsrf/netflux/internal/id"
	"github.com/lwcsrf/netflux/internal/schema"
)

// Options configures the Anthropic provider adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string

	// ThinkingBudgetTokens enables extended thinking when non-zero. Its
	// relationship to MaxTokens is left to the API to enforce — spec.md §9
	// notes the two may conflict depending on provider version, and no
	// numeric default here asserts a relationship beyond what the teacher's
	// own adapter already assumed (none: it predates extended thinking).
	ThinkingBudgetTokens int64
}

// interleavedThinkingBeta is the Anthropic beta header value enabling
// interleaved reasoning: thinking blocks may appear between tool-use turns
// within one continuous reasoning stream (spec.md §4.5, "Interleaved
// reasoning with tools").
const interleavedThinkingBeta = "interleaved-thinking-2025-05-14"

// Provider implements agentloop.Provider against the Anthropic Messages
// API.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic provider using the official client.
func New(optFns ...func(*Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient builds a Provider around an already-constructed client,
// e.g. one shared across providers or configured with custom middleware.
func NewFromClient(client *anthropic.Client, optFns ...func(*Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func (p *Provider) Kind() core.ProviderKind { return core.ProviderAnthropic }

// cacheControlFor returns the ephemeral cache_control block matching
// policy, or nil for CacheNone. Anthropic exposes only a 5-minute ("5m")
// and a 1-hour ("1h") TTL; core.Cache1hr maps onto the latter.
func cacheControlFor(policy core.CachePolicy) *anthropic.CacheControlEphemeralParam {
	switch policy {
	case core.Cache5m:
		return &anthropic.CacheControlEphemeralParam{TTL: anthropic.CacheControlEphemeralTTLTTL5m}
	case core.Cache1hr:
		return &anthropic.CacheControlEphemeralParam{TTL: anthropic.CacheControlEphemeralTTLTTL1h}
	default:
		return nil
	}
}

// Render builds an anthropic.MessageNewParams from the neutral transcript.
// The cache watermark (spec.md §4.5) is applied to the trailing block of the
// system prompt and of the tool list, the two stable prefixes Anthropic's
// prompt cache keys on.
func (p *Provider) Render(systemPrompt string, transcript []core.Part, policy core.CachePolicy, tools []agentloop.ToolDef) (agentloop.RenderedRequest, error) {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}

	if p.opts.ThinkingBudgetTokens > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(p.opts.ThinkingBudgetTokens)
	}

	if systemPrompt != "" {
		block := anthropic.TextBlockParam{Text: systemPrompt}
		if cc := cacheControlFor(policy); cc != nil {
			block.CacheControl = *cc
		}
		params.System = []anthropic.TextBlockParam{block}
	}

	if len(tools) > 0 {
		toolParams := make([]anthropic.ToolUnionParam, len(tools))
		for i, t := range tools {
			doc := schema.Build(t.Args)
			inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
			if properties, ok := doc["properties"]; ok {
				inputSchema.Properties = properties
			}
			if required, ok := doc["required"].([]string); ok {
				inputSchema.Required = required
			}
			tp := anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
			if tp.OfTool != nil {
				tp.OfTool.Description = anthropic.String(t.Description)
			}
			toolParams[i] = tp
		}
		if cc := cacheControlFor(policy); cc != nil && toolParams[len(toolParams)-1].OfTool != nil {
			toolParams[len(toolParams)-1].OfTool.CacheControl = *cc
		}
		params.Tools = toolParams

		// Interleaved reasoning requires the model choose for itself whether
		// to think or call a tool at each step (spec.md §4.5).
		auto := anthropic.ToolChoiceAutoParam{}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &auto}
	}

	messages, err := buildMessages(transcript)
	if err != nil {
		return nil, err
	}
	params.Messages = messages

	return params, nil
}

// buildMessages groups the flat, role-alternating transcript into Anthropic
// message turns: UserTextPart/ToolResultPart are "user"; ModelTextPart,
// ThinkingPart and ToolUsePart are "assistant". Contiguous same-role parts
// merge into one message, mirroring the teacher's buildMessages/
// buildAssistantContent split but driven by the neutral Part variants
// instead of core.Content roles.
func buildMessages(transcript []core.Part) ([]anthropic.MessageParam, error) {
	var messages []anthropic.MessageParam

	var curRole string
	var curBlocks []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(curBlocks) == 0 {
			return
		}
		if curRole == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(curBlocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(curBlocks...))
		}
		curBlocks = nil
	}

	for _, part := range transcript {
		switch pt := part.(type) {
		case core.UserTextPart:
			if curRole != "user" {
				flush()
				curRole = "user"
			}
			curBlocks = append(curBlocks, anthropic.NewTextBlock(pt.Text))

		case core.ToolResultPart:
			if curRole != "user" {
				flush()
				curRole = "user"
			}
			curBlocks = append(curBlocks, anthropic.NewToolResultBlock(pt.ID, pt.Payload, pt.IsError))

		case core.ModelTextPart:
			if curRole != "assistant" {
				flush()
				curRole = "assistant"
			}
			curBlocks = append(curBlocks, anthropic.NewTextBlock(pt.Text))

		case core.ThinkingPart:
			if curRole != "assistant" {
				flush()
				curRole = "assistant"
			}
			if pt.Redacted {
				curBlocks = append(curBlocks, anthropic.NewRedactedThinkingBlock(pt.Signature))
			} else {
				curBlocks = append(curBlocks, anthropic.NewThinkingBlock(pt.Signature, pt.Text))
			}

		case core.ToolUsePart:
			if curRole != "assistant" {
				flush()
				curRole = "assistant"
			}
			curBlocks = append(curBlocks, anthropic.NewToolUseBlock(pt.ID, pt.Args, pt.Name))

		default:
			return nil, fmt.Errorf("anthropic: unsupported transcript part %T", part)
		}
	}
	flush()

	return messages, nil
}

// Submit performs the non-streaming Messages.New call. Streaming is not
// implemented, matching the teacher's own adapter (it returns the same "not
// yet implemented" limitation for req.Stream).
func (p *Provider) Submit(ctx context.Context, req agentloop.RenderedRequest) (agentloop.RawResponse, error) {
	params, ok := req.(anthropic.MessageNewParams)
	if !ok {
		return nil, fmt.Errorf("anthropic: unexpected request type %T", req)
	}
	var reqOpts []option.RequestOption
	if p.opts.ThinkingBudgetTokens > 0 {
		reqOpts = append(reqOpts, option.WithHeader("anthropic-beta", interleavedThinkingBeta))
	}

	resp, err := p.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	return resp, nil
}

// Ingest converts a *anthropic.Message into the neutral transcript parts,
// tool-use batch, final text (if the turn needs no further tool dispatch)
// and token usage.
func (p *Provider) Ingest(raw agentloop.RawResponse) (parts []core.Part, toolUses []core.ToolUsePart, finalText *string, usage core.TokenUsage, err error) {
	resp, ok := raw.(*anthropic.Message)
	if !ok {
		return nil, nil, nil, core.TokenUsage{}, fmt.Errorf("anthropic: unexpected response type %T", raw)
	}

	var textAccum string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			tb := block.AsText()
			parts = append(parts, core.ModelTextPart{Text: tb.Text})
			textAccum += tb.Text

		case "thinking":
			thb := block.AsThinking()
			parts = append(parts, core.ThinkingPart{Text: thb.Thinking, Signature: thb.Signature})

		case "redacted_thinking":
			rtb := block.AsRedactedThinking()
			parts = append(parts, core.ThinkingPart{Signature: rtb.Data, Redacted: true})

		case "tool_use":
			tub := block.AsToolUse()
			args := map[string]any{}
			if tub.Input != nil {
				b, merr := json.Marshal(tub.Input)
				if merr != nil {
					return nil, nil, nil, core.TokenUsage{}, fmt.Errorf("anthropic: marshaling tool input: %w", merr)
				}
				if uerr := json.Unmarshal(b, &args); uerr != nil {
					return nil, nil, nil, core.TokenUsage{}, fmt.Errorf("anthropic: tool input %q is not an object: %w", tub.Name, uerr)
				}
			}
			toolUseID := tub.ID
			if toolUseID == "" {
				toolUseID = id.NewToolUseID()
			}
			toolUse := core.ToolUsePart{ID: toolUseID, Name: tub.Name, Args: args}
			parts = append(parts, toolUse)
			toolUses = append(toolUses, toolUse)
		}
	}

	if len(toolUses) == 0 {
		finalText = &textAccum
	}

	usage = core.TokenUsage{
		CacheRead:    resp.Usage.CacheReadInputTokens,
		CacheWrite:   resp.Usage.CacheCreationInputTokens,
		InputRegular: resp.Usage.InputTokens,
		// Anthropic's usage payload does not split output tokens between
		// visible text and extended-thinking content; all of it lands here.
		TextOutput: resp.Usage.OutputTokens,
	}

	return parts, toolUses, finalText, usage, nil
}

// IsTransient classifies rate-limit, overload and server-side errors as
// retryable, matching the status codes Anthropic documents as safe to retry.
func (p *Provider) IsTransient(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 409, 429, 500, 502, 503, 504, 529:
			return true
		default:
			return false
		}
	}
	return false
}
