package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
)

func strPtr(s string) *string { return &s }

func testChannel(id int, models ...string) model.Channel {
	return model.Channel{
		ID:     id,
		Name:   fmt.Sprintf("ch-%d", id),
		Status: model.ChannelStatusEnabled,
		Models: models,
	}
}

func TestReportOutcome_OrderIndependent(t *testing.T) {
	now := time.Now()
	r1 := New(10)
	r1.SetNow(func() time.Time { return now })
	r2 := New(10)
	r2.SetNow(func() time.Time { return now })

	// 同一组结果以不同顺序上报，计数必须一致
	outcomes := []bool{true, false, true, true, false, true, false, true, true, true}
	for _, ok := range outcomes {
		r1.ReportOutcome(1, "gpt-4o", ok)
	}
	for i := len(outcomes) - 1; i >= 0; i-- {
		r2.ReportOutcome(1, "gpt-4o", outcomes[i])
	}

	s1, f1 := r1.Counts(1, "gpt-4o")
	s2, f2 := r2.Counts(1, "gpt-4o")
	if s1 != s2 || f1 != f2 {
		t.Fatalf("counts diverge: (%d,%d) vs (%d,%d)", s1, f1, s2, f2)
	}
	if s1 != 7 || f1 != 3 {
		t.Fatalf("expected 7 success 3 failure, got %d %d", s1, f1)
	}
}

func TestReportOutcome_Concurrent(t *testing.T) {
	r := New(10)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(fail bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.ReportOutcome(1, "gpt-4o", !fail)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	s, f := r.Counts(1, "gpt-4o")
	if s+f != 800 {
		t.Fatalf("lost outcomes: %d + %d != 800", s, f)
	}
	if s != 400 || f != 400 {
		t.Fatalf("expected 400/400, got %d/%d", s, f)
	}
}

func TestWindow_OldBucketsExpire(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r := New(10)
	r.SetNow(func() time.Time { return now })

	r.ReportOutcome(1, "gpt-4o", false)
	r.ReportOutcome(1, "gpt-4o", false)

	// 窗口内仍可见
	now = base.Add(9 * time.Minute)
	if _, f := r.Counts(1, "gpt-4o"); f != 2 {
		t.Fatalf("expected 2 failures inside window, got %d", f)
	}

	// 滚出窗口后归零
	now = base.Add(11 * time.Minute)
	if s, f := r.Counts(1, "gpt-4o"); s != 0 || f != 0 {
		t.Fatalf("expected empty window, got %d/%d", s, f)
	}
}

func TestBan_VisibilityAndExpiry(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r := New(10)
	r.SetNow(func() time.Time { return now })
	r.SetChannels([]model.Channel{testChannel(1, "gpt-4o")})

	if r.IsBanned(1, "gpt-4o") {
		t.Fatal("fresh pair must not be banned")
	}

	r.Ban(1, "gpt-4o", base.Add(30*time.Minute))
	if !r.IsBanned(1, "gpt-4o") {
		t.Fatal("ban not visible")
	}
	if got := r.EligibleChannels("gpt-4o"); len(got) != 0 {
		t.Fatalf("banned channel still eligible: %v", got)
	}

	// 到期后惰性解除
	now = base.Add(31 * time.Minute)
	if r.IsBanned(1, "gpt-4o") {
		t.Fatal("expired ban still in effect")
	}
	if got := r.EligibleChannels("gpt-4o"); len(got) != 1 {
		t.Fatalf("expected channel eligible again, got %v", got)
	}
}

func TestUnban_ResetsWindow(t *testing.T) {
	r := New(10)
	r.ReportOutcome(1, "gpt-4o", false)
	r.ReportOutcome(1, "gpt-4o", false)
	r.Ban(1, "gpt-4o", time.Now().Add(time.Hour))

	r.Unban(1, "gpt-4o")
	if r.IsBanned(1, "gpt-4o") {
		t.Fatal("still banned after unban")
	}
	if s, f := r.Counts(1, "gpt-4o"); s != 0 || f != 0 {
		t.Fatalf("window not reset after unban: %d/%d", s, f)
	}
}

func TestSupports(t *testing.T) {
	r := New(10)

	tests := []struct {
		name    string
		channel model.Channel
		model   string
		want    bool
	}{
		{
			name:    "listed model",
			channel: testChannel(1, "gpt-4o", "gpt-4o-mini"),
			model:   "gpt-4o",
			want:    true,
		},
		{
			name:    "unlisted model",
			channel: testChannel(2, "gpt-4o"),
			model:   "claude-3-opus",
			want:    false,
		},
		{
			name: "mapping counts as listed",
			channel: model.Channel{
				ID: 3, Status: model.ChannelStatusEnabled,
				ModelMapping: map[string]string{"gpt-4o": "gpt-4o-2024"},
			},
			model: "gpt-4o",
			want:  true,
		},
		{
			name: "regex match",
			channel: model.Channel{
				ID: 4, Status: model.ChannelStatusEnabled,
				MatchRegex: strPtr(`^claude-3-.*$`),
			},
			model: "claude-3-sonnet",
			want:  true,
		},
		{
			name: "invalid regex never matches",
			channel: model.Channel{
				ID: 5, Status: model.ChannelStatusEnabled,
				MatchRegex: strPtr(`(`),
			},
			model: "gpt-4o",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Supports(&tt.channel, tt.model); got != tt.want {
				t.Errorf("Supports(%s) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestRemoveChannel_ClearsHealth(t *testing.T) {
	r := New(10)
	r.SetChannels([]model.Channel{testChannel(1, "gpt-4o")})
	r.ReportOutcome(1, "gpt-4o", false)
	r.RemoveChannel(1)

	if s, f := r.Counts(1, "gpt-4o"); s != 0 || f != 0 {
		t.Fatalf("health survived channel removal: %d/%d", s, f)
	}
	if _, ok := r.Channel(1); ok {
		t.Fatal("channel still present")
	}
}

func TestRestoreBans(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := New(10)
	r.SetNow(func() time.Time { return base })

	r.RestoreBans([]model.ChannelModelHealth{
		{ChannelID: 1, Model: "gpt-4o", Banned: true, BannedUntil: base.Add(time.Hour).Unix()},
		{ChannelID: 2, Model: "gpt-4o", Banned: true, BannedUntil: base.Add(-time.Hour).Unix()},
		{ChannelID: 3, Model: "gpt-4o", Banned: false},
	})

	if !r.IsBanned(1, "gpt-4o") {
		t.Fatal("unexpired ban not restored")
	}
	if r.IsBanned(2, "gpt-4o") {
		t.Fatal("expired ban restored")
	}
	if r.IsBanned(3, "gpt-4o") {
		t.Fatal("unbanned pair restored as banned")
	}
}
