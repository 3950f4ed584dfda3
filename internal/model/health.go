package model

// ChannelModelHealth 为 (channel, model) 健康状态的持久化快照。
// 运行时计数在 registry 内存窗口中，定时落库仅用于展示和重启恢复封禁位。
type ChannelModelHealth struct {
	ID           int    `json:"id" gorm:"primaryKey"`
	ChannelID    int    `json:"channel_id" gorm:"not null;index:idx_channel_model,unique"`
	Model        string `json:"model" gorm:"not null;index:idx_channel_model,unique"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
	Banned       bool   `json:"banned"`
	BannedUntil  int64  `json:"banned_until"`
}
