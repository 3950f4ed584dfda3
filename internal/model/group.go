package model

const (
	GroupStatusEnabled  = 1
	GroupStatusDisabled = 2
)

// Group 计费租户，有独立的额度与消费等级
type Group struct {
	ID string `json:"id" gorm:"primaryKey"`
	// Token 请求鉴权用的 API key
	Token  string `json:"token" gorm:"uniqueIndex"`
	Status int    `json:"status" gorm:"default:1"`
	ConsumeLevel int    `json:"consume_level" gorm:"default:1"`
	// MaxTokenNum 为 0 时使用全局默认 group_max_token_num
	MaxTokenNum  int64   `json:"max_token_num"`
	UsedTokenNum int64   `json:"used_token_num"`
	UsedAmount   float64 `json:"used_amount"`
	RequestCount int64   `json:"request_count"`
}

func (g *Group) Enabled() bool {
	return g.Status == GroupStatusEnabled
}
