// Package billing converts usage and per-model prices into consumed amounts
// and enforces group quotas.
package billing

import (
	"errors"
	"net/http"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoPriceData 模型缺少价格条目时计费必须失败，绝不静默按零计费
	ErrNoPriceData = errors.New("no price data for model")
	// ErrQuotaExceeded 分组超出 token 额度
	ErrQuotaExceeded = errors.New("group token quota exceeded")
)

// PriceSource is the read-only price table the calculator consumes.
type PriceSource interface {
	PriceFor(modelName string) (model.Price, bool)
}

// Calculate 按维度累加金额：amount += usage/unit * price。
// 按请求计费的模型短路处理，且非 2xx 不计费。
func Calculate(statusCode int, usage model.Usage, price model.Price) float64 {
	if price.PerRequestPrice != 0 {
		if statusCode != http.StatusOK {
			return 0
		}
		return price.PerRequestPrice
	}

	// 带独立单价的维度从总输入 token 中扣除，避免重复计费
	inputTokens := usage.InputTokens
	if price.ImageInputPrice > 0 {
		inputTokens -= usage.ImageInputTokens
	}
	if price.CachedPrice > 0 {
		inputTokens -= usage.CachedTokens
	}
	if price.CacheCreationPrice > 0 {
		inputTokens -= usage.CacheCreationTokens
	}

	outputPrice := price.OutputPrice
	outputUnit := price.GetOutputPriceUnit()
	if usage.ReasoningTokens != 0 && price.ThinkingModeOutputPrice != 0 {
		outputPrice = price.ThinkingModeOutputPrice
		outputUnit = price.GetThinkingModeOutputPriceUnit()
	}

	total := dim(inputTokens, price.InputPrice, price.GetInputPriceUnit()).
		Add(dim(usage.ImageInputTokens, price.ImageInputPrice, price.GetImageInputPriceUnit())).
		Add(dim(usage.AudioInputTokens, price.AudioInputPrice, price.GetAudioInputPriceUnit())).
		Add(dim(usage.VideoInputTokens, price.VideoInputPrice, price.GetVideoInputPriceUnit())).
		Add(dim(usage.CachedTokens, price.CachedPrice, price.GetCachedPriceUnit())).
		Add(dim(usage.CacheCreationTokens, price.CacheCreationPrice, price.GetCacheCreationPriceUnit())).
		Add(dim(usage.WebSearchCount, price.WebSearchPrice, price.GetWebSearchPriceUnit())).
		Add(dim(usage.OutputTokens, outputPrice, outputUnit))

	return total.InexactFloat64()
}

// Amount applies the group discount ratio on top of the raw amount.
// Ratio outside (0, 1] is treated as 1.
func Amount(statusCode int, usage model.Usage, price model.Price, ratio float64) float64 {
	raw := Calculate(statusCode, usage, price)
	if ratio <= 0 || ratio > 1 {
		return raw
	}
	return decimal.NewFromFloat(raw).
		Mul(decimal.NewFromFloat(ratio)).
		InexactFloat64()
}

func dim(count int64, price float64, unit int64) decimal.Decimal {
	if count == 0 || price == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(count).
		Mul(decimal.NewFromFloat(price)).
		DivRound(decimal.NewFromInt(unit), 10)
}
