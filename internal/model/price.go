package model

// Price 每模型单价表。各 *PriceUnit 是单价对应的数量除数
// （如每 1000 token），为 0 或未设置时按 1 处理。
type Price struct {
	Model string `json:"model" gorm:"primaryKey"`

	PerRequestPrice float64 `json:"per_request_price"`

	InputPrice     float64 `json:"input_price"`
	InputPriceUnit int64   `json:"input_price_unit"`

	OutputPrice     float64 `json:"output_price"`
	OutputPriceUnit int64   `json:"output_price_unit"`

	ImageInputPrice     float64 `json:"image_input_price"`
	ImageInputPriceUnit int64   `json:"image_input_price_unit"`

	AudioInputPrice     float64 `json:"audio_input_price"`
	AudioInputPriceUnit int64   `json:"audio_input_price_unit"`

	VideoInputPrice     float64 `json:"video_input_price"`
	VideoInputPriceUnit int64   `json:"video_input_price_unit"`

	CachedPrice     float64 `json:"cached_price"`
	CachedPriceUnit int64   `json:"cached_price_unit"`

	CacheCreationPrice     float64 `json:"cache_creation_price"`
	CacheCreationPriceUnit int64   `json:"cache_creation_price_unit"`

	WebSearchPrice     float64 `json:"web_search_price"`
	WebSearchPriceUnit int64   `json:"web_search_price_unit"`

	ThinkingModeOutputPrice float64 `json:"thinking_mode_output_price"`
	// ThinkingModeOutputPriceUnit 为 0 时回退到 OutputPriceUnit
	ThinkingModeOutputPriceUnit int64 `json:"thinking_mode_output_price_unit"`
}

func unitOrOne(u int64) int64 {
	if u == 0 {
		return 1
	}
	return u
}

func (p *Price) GetInputPriceUnit() int64      { return unitOrOne(p.InputPriceUnit) }
func (p *Price) GetOutputPriceUnit() int64     { return unitOrOne(p.OutputPriceUnit) }
func (p *Price) GetImageInputPriceUnit() int64 { return unitOrOne(p.ImageInputPriceUnit) }
func (p *Price) GetAudioInputPriceUnit() int64 { return unitOrOne(p.AudioInputPriceUnit) }
func (p *Price) GetVideoInputPriceUnit() int64 { return unitOrOne(p.VideoInputPriceUnit) }
func (p *Price) GetCachedPriceUnit() int64     { return unitOrOne(p.CachedPriceUnit) }
func (p *Price) GetCacheCreationPriceUnit() int64 {
	return unitOrOne(p.CacheCreationPriceUnit)
}
func (p *Price) GetWebSearchPriceUnit() int64 { return unitOrOne(p.WebSearchPriceUnit) }

func (p *Price) GetThinkingModeOutputPriceUnit() int64 {
	if p.ThinkingModeOutputPriceUnit == 0 {
		return p.GetOutputPriceUnit()
	}
	return p.ThinkingModeOutputPriceUnit
}
