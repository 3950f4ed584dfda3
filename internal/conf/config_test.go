package conf

import "testing"

func TestConsumeLevelRatio(t *testing.T) {
	orig := AppConfig.Relay.GroupConsumeLevelRatio
	AppConfig.Relay.GroupConsumeLevelRatio = map[string]float64{
		"1": 1.0,
		"3": 0.8,
		"4": 0,
		"5": 1.5,
	}
	t.Cleanup(func() { AppConfig.Relay.GroupConsumeLevelRatio = orig })

	tests := []struct {
		level int
		want  float64
	}{
		{1, 1.0},
		{3, 0.8},
		{2, 1.0},  // 未配置
		{4, 1.0},  // 非法值回退
		{5, 1.0},  // 超过 1 回退
		{99, 1.0}, // 未知等级
	}
	for _, tt := range tests {
		if got := ConsumeLevelRatio(tt.level); got != tt.want {
			t.Errorf("ConsumeLevelRatio(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTimeoutSeconds(t *testing.T) {
	origByType := AppConfig.Relay.TimeoutByModelTypeSeconds
	origDefault := AppConfig.Relay.DefaultTimeoutSeconds
	AppConfig.Relay.TimeoutByModelTypeSeconds = map[string]int{
		"embedding": 30,
		"broken":    0,
	}
	AppConfig.Relay.DefaultTimeoutSeconds = 60
	t.Cleanup(func() {
		AppConfig.Relay.TimeoutByModelTypeSeconds = origByType
		AppConfig.Relay.DefaultTimeoutSeconds = origDefault
	})

	if got := TimeoutSeconds("embedding"); got != 30 {
		t.Errorf("TimeoutSeconds(embedding) = %d, want 30", got)
	}
	if got := TimeoutSeconds("chat"); got != 60 {
		t.Errorf("TimeoutSeconds(chat) = %d, want 60", got)
	}
	if got := TimeoutSeconds("broken"); got != 60 {
		t.Errorf("TimeoutSeconds(broken) = %d, want 60", got)
	}
}
