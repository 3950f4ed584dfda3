package model

// Usage 单次请求的用量计数，由中继执行器在消费响应时累加，请求结束后不再变更
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	TotalTokens         int64 `json:"total_tokens"`
	ImageInputTokens    int64 `json:"image_input_tokens"`
	AudioInputTokens    int64 `json:"audio_input_tokens"`
	VideoInputTokens    int64 `json:"video_input_tokens"`
	CachedTokens        int64 `json:"cached_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	WebSearchCount      int64 `json:"web_search_count"`
	ReasoningTokens     int64 `json:"reasoning_tokens"`
	ToolCallsCount      int64 `json:"tool_calls_count"`
}
