package relay

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/samber/lo"
)

// Selector picks one eligible channel for a requested model, excluding
// channels already tried within the same request.
type Selector struct {
	reg *registry.Registry

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(reg *registry.Registry, seed int64) *Selector {
	return &Selector{
		reg: reg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Pick 过滤支持该模型且未封禁的渠道，排除已尝试的，按 priority 降序，
// 同优先级内按 weight 加权随机。候选为空时返回 NoSuitableChannel。
func (s *Selector) Pick(modelName string, tried map[int]struct{}) (model.Channel, error) {
	candidates := lo.Filter(s.reg.EligibleChannels(modelName), func(ch model.Channel, _ int) bool {
		_, alreadyTried := tried[ch.ID]
		return !alreadyTried
	})
	if len(candidates) == 0 {
		return model.Channel{}, newFailure(KindNoSuitableChannel, 503,
			fmt.Errorf("no suitable channel for model %s", modelName))
	}

	top := lo.MaxBy(candidates, func(a, b model.Channel) bool {
		return a.Priority > b.Priority
	})
	candidates = lo.Filter(candidates, func(ch model.Channel, _ int) bool {
		return ch.Priority == top.Priority
	})

	return s.weighted(candidates), nil
}

func (s *Selector) weighted(candidates []model.Channel) model.Channel {
	// 固定顺序，给定种子时结果可复现
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	totalWeight := lo.SumBy(candidates, func(ch model.Channel) int {
		return max(ch.Weight, 0)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if totalWeight == 0 {
		return candidates[s.rng.Intn(len(candidates))]
	}
	r := s.rng.Intn(totalWeight)
	for _, ch := range candidates {
		r -= max(ch.Weight, 0)
		if r < 0 {
			return ch
		}
	}
	return candidates[len(candidates)-1]
}
