package model

// RequestDetail 原始请求/响应体，仅用于审计，持久化前按配置截断
type RequestDetail struct {
	RequestBody           string `json:"request_body"`
	ResponseBody          string `json:"response_body"`
	RequestBodyTruncated  bool   `json:"request_body_truncated"`
	ResponseBodyTruncated bool   `json:"response_body_truncated"`
}

// ConsumptionLog 一次完成请求的不可变消费记录
type ConsumptionLog struct {
	ID          int64             `json:"id" gorm:"primaryKey;autoIncrement:false"` // Snowflake ID
	RequestID   string            `json:"request_id" gorm:"index"`
	GroupID     string            `json:"group_id" gorm:"index"`
	ChannelID   int               `json:"channel_id"`
	Model       string            `json:"model"`
	Code        int               `json:"code"`
	IP          string            `json:"ip" gorm:"index"`
	RetryTimes  int               `json:"retry_times"`
	RequestAt   int64             `json:"request_at" gorm:"index"` // unix 毫秒
	FirstByteAt int64             `json:"first_byte_at"`
	RetryAt     int64             `json:"retry_at"`
	Usage       Usage             `json:"usage" gorm:"embedded;embeddedPrefix:usage_"`
	UsedAmount  float64           `json:"used_amount"`
	Content     string            `json:"content"` // 错误摘要，成功时为空
	Metadata    map[string]string `json:"metadata" gorm:"serializer:json"`
	Detail      RequestDetail     `json:"detail" gorm:"embedded;embeddedPrefix:detail_"`
}

// GroupIPStat is the (group, ip-cardinality) aggregation consumed by the
// anomaly detector.
type GroupIPStat struct {
	GroupID     string `json:"group_id"`
	Requests    int64  `json:"requests"`
	DistinctIPs int64  `json:"distinct_ips"`
}

// AnomalyAction 异常检测产出的动作，由外部协作方（通知/封禁）消费
type AnomalyAction struct {
	GroupID     string `json:"group_id"`
	Requests    int64  `json:"requests"`
	DistinctIPs int64  `json:"distinct_ips"`
	DetectedAt  int64  `json:"detected_at"`
}
