package billing

import (
	"errors"
	"testing"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
)

func TestCheckQuota(t *testing.T) {
	tests := []struct {
		name       string
		group      *model.Group
		defaultMax int64
		wantErr    bool
	}{
		{
			name:       "nil group unrestricted",
			group:      nil,
			defaultMax: 100,
			wantErr:    false,
		},
		{
			name:       "under quota",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusEnabled, MaxTokenNum: 100, UsedTokenNum: 99},
			defaultMax: 0,
			wantErr:    false,
		},
		{
			name:       "exactly at quota rejected",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusEnabled, MaxTokenNum: 100, UsedTokenNum: 100},
			defaultMax: 0,
			wantErr:    true,
		},
		{
			name:       "over quota rejected",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusEnabled, MaxTokenNum: 100, UsedTokenNum: 150},
			defaultMax: 0,
			wantErr:    true,
		},
		{
			name:       "zero max falls back to default",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusEnabled, UsedTokenNum: 1000000},
			defaultMax: 1000000,
			wantErr:    true,
		},
		{
			name:       "no max anywhere means unlimited",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusEnabled, UsedTokenNum: 1 << 40},
			defaultMax: 0,
			wantErr:    false,
		},
		{
			name:       "disabled group rejected",
			group:      &model.Group{ID: "g1", Status: model.GroupStatusDisabled},
			defaultMax: 100,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuota(tt.group, tt.defaultMax)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckQuota() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrQuotaExceeded) {
				t.Errorf("error not wrapping ErrQuotaExceeded: %v", err)
			}
		})
	}
}
