package model

import "strings"

const (
	ChannelStatusEnabled  = 1
	ChannelStatusDisabled = 2
)

// Channel 上游服务凭证，可服务一个或多个模型
type Channel struct {
	ID           int               `json:"id" gorm:"primaryKey"`
	Name         string            `json:"name" gorm:"unique;not null"`
	Status       int               `json:"status" gorm:"default:1"`
	BaseUrl      string            `json:"base_url"`
	ApiKey       string            `json:"api_key"`
	Models       []string          `json:"models" gorm:"serializer:json"`
	ModelMapping map[string]string `json:"model_mapping" gorm:"serializer:json"`
	// MatchRegex 为可选的模型匹配正则，与 Models 列表并用
	MatchRegex *string `json:"match_regex"`
	ModelType  string  `json:"model_type"`
	Priority   int     `json:"priority"`
	Weight     int     `json:"weight"`
	// ChannelProxy 非空时走自定义代理
	ChannelProxy *string `json:"channel_proxy"`
}

func (c *Channel) Enabled() bool {
	return c.Status == ChannelStatusEnabled
}

// ListsModel reports whether the model appears in the channel's explicit
// model list or mapping. Regex matching is handled by the registry.
func (c *Channel) ListsModel(name string) bool {
	for _, m := range c.Models {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	_, mapped := c.ModelMapping[name]
	return mapped
}

// UpstreamModel 返回上游实际使用的模型名
func (c *Channel) UpstreamModel(name string) string {
	if mapped, ok := c.ModelMapping[name]; ok && mapped != "" {
		return mapped
	}
	return name
}
