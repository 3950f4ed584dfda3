package relay

import (
	"encoding/json"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
)

// wireUsage 兼容 OpenAI 与 Anthropic 两种 usage 字段命名
type wireUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`

	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`

	PromptTokensDetails *struct {
		CachedTokens int64 `json:"cached_tokens"`
		AudioTokens  int64 `json:"audio_tokens"`
		ImageTokens  int64 `json:"image_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails *struct {
		ReasoningTokens int64 `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`

	WebSearchCount int64 `json:"web_search_count"`
}

type usageEnvelope struct {
	Usage *wireUsage `json:"usage"`
	// Anthropic 的 message_start 把 usage 嵌在 message 里
	Message *struct {
		Usage *wireUsage `json:"usage"`
	} `json:"message"`
}

// parseUsage extracts usage counters from a response body or stream event.
// Usage payloads carry running totals, so callers replace rather than add.
func parseUsage(data []byte) (model.Usage, bool) {
	var env usageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Usage{}, false
	}
	wu := env.Usage
	if wu == nil && env.Message != nil {
		wu = env.Message.Usage
	}
	if wu == nil {
		return model.Usage{}, false
	}

	u := model.Usage{
		InputTokens:         wu.PromptTokens + wu.InputTokens,
		OutputTokens:        wu.CompletionTokens + wu.OutputTokens,
		TotalTokens:         wu.TotalTokens,
		CacheCreationTokens: wu.CacheCreationInputTokens,
		CachedTokens:        wu.CacheReadInputTokens,
		WebSearchCount:      wu.WebSearchCount,
	}
	if wu.PromptTokensDetails != nil {
		u.CachedTokens += wu.PromptTokensDetails.CachedTokens
		u.AudioInputTokens = wu.PromptTokensDetails.AudioTokens
		u.ImageInputTokens = wu.PromptTokensDetails.ImageTokens
	}
	if wu.CompletionTokensDetails != nil {
		u.ReasoningTokens = wu.CompletionTokensDetails.ReasoningTokens
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u, true
}

// toolCallEnvelope 兼容 OpenAI choices 与 Anthropic content block 两种形态
type toolCallEnvelope struct {
	Choices []struct {
		Message *struct {
			ToolCalls []struct {
				ID string `json:"id"`
			} `json:"tool_calls"`
		} `json:"message"`
		Delta *struct {
			ToolCalls []struct {
				ID string `json:"id"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`

	// Anthropic 流式 tool_use 以 content_block_start 事件开始
	Type         string `json:"type"`
	ContentBlock *struct {
		Type string `json:"type"`
	} `json:"content_block"`
	// Anthropic 非流式响应的 content 数组
	Content []struct {
		Type string `json:"type"`
	} `json:"content"`
}

// countToolCalls counts the tool invocations started in one response body
// or stream event. Stream deltas repeat a call across chunks; only the
// chunk carrying the call's id opens a new one, so continuations with an
// empty id are not counted.
func countToolCalls(data []byte) int64 {
	var env toolCallEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0
	}

	var n int64
	for _, c := range env.Choices {
		if c.Message != nil {
			n += int64(len(c.Message.ToolCalls))
		}
		if c.Delta != nil {
			for _, tc := range c.Delta.ToolCalls {
				if tc.ID != "" {
					n++
				}
			}
		}
	}
	if env.Type == "content_block_start" && env.ContentBlock != nil && env.ContentBlock.Type == "tool_use" {
		n++
	}
	for _, b := range env.Content {
		if b.Type == "tool_use" {
			n++
		}
	}
	return n
}
