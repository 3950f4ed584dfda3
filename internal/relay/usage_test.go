package relay

import (
	"testing"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
)

func TestParseUsage(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		want  model.Usage
		found bool
	}{
		{
			name: "openai field names",
			data: `{"usage":{"prompt_tokens":100,"completion_tokens":50,"total_tokens":150}}`,
			want: model.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
			found: true,
		},
		{
			name: "anthropic field names",
			data: `{"usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":20,"cache_read_input_tokens":10}}`,
			want: model.Usage{
				InputTokens: 100, OutputTokens: 50, TotalTokens: 150,
				CacheCreationTokens: 20, CachedTokens: 10,
			},
			found: true,
		},
		{
			name: "anthropic message_start envelope",
			data: `{"type":"message_start","message":{"usage":{"input_tokens":25,"output_tokens":1}}}`,
			want: model.Usage{InputTokens: 25, OutputTokens: 1, TotalTokens: 26},
			found: true,
		},
		{
			name: "openai detail blocks",
			data: `{"usage":{"prompt_tokens":100,"completion_tokens":50,"prompt_tokens_details":{"cached_tokens":30,"image_tokens":5},"completion_tokens_details":{"reasoning_tokens":40}}}`,
			want: model.Usage{
				InputTokens: 100, OutputTokens: 50, TotalTokens: 150,
				CachedTokens: 30, ImageInputTokens: 5, ReasoningTokens: 40,
			},
			found: true,
		},
		{
			name:  "no usage block",
			data:  `{"choices":[{"delta":{"content":"hi"}}]}`,
			found: false,
		},
		{
			name:  "not json",
			data:  `[DONE]`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := parseUsage([]byte(tt.data))
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("parseUsage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCountToolCalls(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int64
	}{
		{
			name: "openai unary message",
			data: `{"choices":[{"message":{"tool_calls":[{"id":"call_1","function":{"name":"a"}},{"id":"call_2","function":{"name":"b"}}]}}]}`,
			want: 2,
		},
		{
			name: "openai stream delta opens call",
			data: `{"choices":[{"delta":{"tool_calls":[{"id":"call_1","index":0,"function":{"name":"a"}}]}}]}`,
			want: 1,
		},
		{
			// 续传分片没有 id，不能重复计数
			name: "openai stream delta continuation",
			data: `{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"x\":1"}}]}}]}`,
			want: 0,
		},
		{
			name: "anthropic content_block_start tool_use",
			data: `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather"}}`,
			want: 1,
		},
		{
			name: "anthropic content_block_start text",
			data: `{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			want: 0,
		},
		{
			name: "anthropic unary content array",
			data: `{"content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"toolu_1","name":"a"},{"type":"tool_use","id":"toolu_2","name":"b"}]}`,
			want: 2,
		},
		{
			name: "no tool calls",
			data: `{"choices":[{"delta":{"content":"hi"}}]}`,
			want: 0,
		},
		{
			name: "not json",
			data: `[DONE]`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countToolCalls([]byte(tt.data)); got != tt.want {
				t.Errorf("countToolCalls() = %d, want %d", got, tt.want)
			}
		})
	}
}
