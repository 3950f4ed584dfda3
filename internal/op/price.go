package op

import (
	"fmt"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/cache"
)

var priceCache = cache.New[string, model.Price](16)

// InitPrices 启动时全量加载价格表到内存
func InitPrices() error {
	var prices []model.Price
	if err := db.GetDB().Find(&prices).Error; err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	priceCache.Clear()
	for _, p := range prices {
		priceCache.Set(p.Model, p)
	}
	return nil
}

// PriceFor 只读查价，未配置返回 false，调用方必须失败而不是按零计费
func PriceFor(modelName string) (model.Price, bool) {
	return priceCache.Get(modelName)
}

func PriceUpsert(price model.Price) error {
	if err := db.GetDB().Save(&price).Error; err != nil {
		return fmt.Errorf("save price: %w", err)
	}
	priceCache.Set(price.Model, price)
	return nil
}

func PriceDelete(modelName string) error {
	if err := db.GetDB().Where("model = ?", modelName).Delete(&model.Price{}).Error; err != nil {
		return fmt.Errorf("delete price: %w", err)
	}
	priceCache.Del(modelName)
	return nil
}

func PriceList() []model.Price {
	m := priceCache.GetAll()
	out := make([]model.Price, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

// PriceTable adapts the cache to the billing.PriceSource interface.
type PriceTable struct{}

func (PriceTable) PriceFor(modelName string) (model.Price, bool) {
	return PriceFor(modelName)
}
