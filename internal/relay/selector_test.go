package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
)

func selChannel(id, priority, weight int, models ...string) model.Channel {
	return model.Channel{
		ID:       id,
		Name:     "ch-" + string(rune('a'+id)),
		Status:   model.ChannelStatusEnabled,
		Models:   models,
		Priority: priority,
		Weight:   weight,
	}
}

func TestPick_NoSuitableChannel(t *testing.T) {
	reg := registry.New(10)
	sel := NewSelector(reg, 1)

	_, err := sel.Pick("gpt-4o", nil)
	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindNoSuitableChannel {
		t.Fatalf("expected NoSuitableChannel, got %v", err)
	}
}

func TestPick_NeverBanned(t *testing.T) {
	reg := registry.New(10)
	reg.SetChannels([]model.Channel{
		selChannel(1, 0, 1, "gpt-4o"),
		selChannel(2, 0, 1, "gpt-4o"),
	})
	reg.Ban(1, "gpt-4o", time.Now().Add(time.Hour))
	sel := NewSelector(reg, 1)

	for i := 0; i < 50; i++ {
		ch, err := sel.Pick("gpt-4o", nil)
		if err != nil {
			t.Fatal(err)
		}
		if ch.ID == 1 {
			t.Fatal("picked banned channel")
		}
	}
}

func TestPick_NeverRepeatsTried(t *testing.T) {
	reg := registry.New(10)
	reg.SetChannels([]model.Channel{
		selChannel(1, 0, 1, "gpt-4o"),
		selChannel(2, 0, 1, "gpt-4o"),
		selChannel(3, 0, 1, "gpt-4o"),
	})
	sel := NewSelector(reg, 7)

	tried := map[int]struct{}{}
	for i := 0; i < 3; i++ {
		ch, err := sel.Pick("gpt-4o", tried)
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := tried[ch.ID]; dup {
			t.Fatalf("channel %d picked twice", ch.ID)
		}
		tried[ch.ID] = struct{}{}
	}

	_, err := sel.Pick("gpt-4o", tried)
	if FailureKind(err) != KindNoSuitableChannel {
		t.Fatalf("expected NoSuitableChannel after exhausting, got %v", err)
	}
}

func TestPick_HighestPriorityWins(t *testing.T) {
	reg := registry.New(10)
	reg.SetChannels([]model.Channel{
		selChannel(1, 1, 100, "gpt-4o"),
		selChannel(2, 5, 1, "gpt-4o"),
		selChannel(3, 5, 1, "gpt-4o"),
	})
	sel := NewSelector(reg, 3)

	for i := 0; i < 50; i++ {
		ch, err := sel.Pick("gpt-4o", nil)
		if err != nil {
			t.Fatal(err)
		}
		if ch.Priority != 5 {
			t.Fatalf("picked lower priority channel %d", ch.ID)
		}
	}
}

func TestPick_WeightedDeterministicUnderSeed(t *testing.T) {
	build := func() *Selector {
		reg := registry.New(10)
		reg.SetChannels([]model.Channel{
			selChannel(1, 0, 3, "gpt-4o"),
			selChannel(2, 0, 1, "gpt-4o"),
			selChannel(3, 0, 6, "gpt-4o"),
		})
		return NewSelector(reg, 42)
	}

	a, b := build(), build()
	for i := 0; i < 100; i++ {
		ca, err := a.Pick("gpt-4o", nil)
		if err != nil {
			t.Fatal(err)
		}
		cb, err := b.Pick("gpt-4o", nil)
		if err != nil {
			t.Fatal(err)
		}
		if ca.ID != cb.ID {
			t.Fatalf("iteration %d: same seed diverged, %d vs %d", i, ca.ID, cb.ID)
		}
	}
}

func TestPick_WeightRespected(t *testing.T) {
	reg := registry.New(10)
	reg.SetChannels([]model.Channel{
		selChannel(1, 0, 9, "gpt-4o"),
		selChannel(2, 0, 1, "gpt-4o"),
	})
	sel := NewSelector(reg, 99)

	counts := map[int]int{}
	for i := 0; i < 1000; i++ {
		ch, err := sel.Pick("gpt-4o", nil)
		if err != nil {
			t.Fatal(err)
		}
		counts[ch.ID]++
	}
	// 权重 9:1，高权重渠道应拿到绝大多数流量
	if counts[1] < 800 {
		t.Fatalf("weight ignored: %v", counts)
	}
	if counts[2] == 0 {
		t.Fatalf("low weight channel starved entirely: %v", counts)
	}
}

func TestPick_ZeroWeightsUniform(t *testing.T) {
	reg := registry.New(10)
	reg.SetChannels([]model.Channel{
		selChannel(1, 0, 0, "gpt-4o"),
		selChannel(2, 0, 0, "gpt-4o"),
	})
	sel := NewSelector(reg, 5)

	counts := map[int]int{}
	for i := 0; i < 200; i++ {
		ch, _ := sel.Pick("gpt-4o", nil)
		counts[ch.ID]++
	}
	if counts[1] == 0 || counts[2] == 0 {
		t.Fatalf("zero-weight channels must still share traffic: %v", counts)
	}
}
