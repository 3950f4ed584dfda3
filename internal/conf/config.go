package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/spf13/viper"
)

type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AdminToken 为空时管理接口全部拒绝
	AdminToken string `mapstructure:"admin_token"`
	// CORSAllowOrigins 为空不允许跨域，"*" 放行所有，否则为逗号分隔域名
	CORSAllowOrigins string `mapstructure:"cors_allow_origins"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Database struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Relay 中继与计费核心的配置项
type Relay struct {
	RetryTimes                int                `mapstructure:"retry_times"`
	DefaultTimeoutSeconds     int                `mapstructure:"default_timeout_seconds"`
	TimeoutByModelTypeSeconds map[string]int     `mapstructure:"timeout_by_model_type_seconds"`
	EnableModelErrorAutoBan   bool               `mapstructure:"enable_model_error_auto_ban"`
	ModelErrorAutoBanRate     float64            `mapstructure:"model_error_auto_ban_rate"`
	AutoBanIntervalSeconds    int                `mapstructure:"auto_ban_interval_seconds"`
	AutoBanMinSample          int                `mapstructure:"auto_ban_min_sample"`
	BanDurationSeconds        int                `mapstructure:"ban_duration_seconds"`
	ProbeIntervalSeconds      int                `mapstructure:"probe_interval_seconds"`
	HealthWindowMinutes       int                `mapstructure:"health_window_minutes"`
	GroupMaxTokenNum          int64              `mapstructure:"group_max_token_num"`
	GroupConsumeLevelRatio    map[string]float64 `mapstructure:"group_consume_level_ratio"`
}

type Logs struct {
	StorageHours            int `mapstructure:"storage_hours"`
	CleanIntervalMinutes    int `mapstructure:"clean_interval_minutes"`
	CleanBatchSize          int `mapstructure:"clean_batch_size"`
	QueueSize               int `mapstructure:"queue_size"`
	FlushBatchSize          int `mapstructure:"flush_batch_size"`
	FlushIntervalSeconds    int `mapstructure:"flush_interval_seconds"`
	RequestBodyMaxSize      int `mapstructure:"request_body_max_size"`
	ResponseBodyMaxSize     int `mapstructure:"response_body_max_size"`
	DetectIntervalMinutes   int `mapstructure:"detect_interval_minutes"`
	IPGroupsThreshold       int `mapstructure:"ip_groups_threshold"`
	IPGroupsBanThreshold    int `mapstructure:"ip_groups_ban_threshold"`
	DetectLookbackMinutes   int `mapstructure:"detect_lookback_minutes"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Log      Log      `mapstructure:"log"`
	Database Database `mapstructure:"database"`
	Relay    Relay    `mapstructure:"relay"`
	Logs     Logs     `mapstructure:"logs"`
}

var AppConfig Config

func Load(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("json")
		viper.AddConfigPath("data")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(APP_NAME)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		log.Infof("using config file: %s", viper.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Infof("config file not found, creating default config")
			if err := os.MkdirAll("data", 0755); err != nil {
				log.Errorf("failed to create data directory: %v", err)
			}
			if err := viper.SafeWriteConfigAs("data/config.json"); err != nil {
				log.Errorf("failed to create default config: %v", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.admin_token", "")
	viper.SetDefault("server.cors_allow_origins", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "data/data.db")

	viper.SetDefault("relay.retry_times", 3)
	viper.SetDefault("relay.default_timeout_seconds", 60)
	viper.SetDefault("relay.timeout_by_model_type_seconds", map[string]int{})
	viper.SetDefault("relay.enable_model_error_auto_ban", true)
	viper.SetDefault("relay.model_error_auto_ban_rate", 0.2)
	viper.SetDefault("relay.auto_ban_interval_seconds", 60)
	viper.SetDefault("relay.auto_ban_min_sample", 10)
	viper.SetDefault("relay.ban_duration_seconds", 1800)
	viper.SetDefault("relay.probe_interval_seconds", 1800)
	viper.SetDefault("relay.health_window_minutes", 10)
	viper.SetDefault("relay.group_max_token_num", 1000000)
	viper.SetDefault("relay.group_consume_level_ratio", map[string]float64{
		"1": 1.0, "2": 0.9, "3": 0.8, "4": 0.7, "5": 0.6,
	})

	viper.SetDefault("logs.storage_hours", 720)
	viper.SetDefault("logs.clean_interval_minutes", 60)
	viper.SetDefault("logs.clean_batch_size", 100)
	viper.SetDefault("logs.queue_size", 1024)
	viper.SetDefault("logs.flush_batch_size", 50)
	viper.SetDefault("logs.flush_interval_seconds", 10)
	viper.SetDefault("logs.request_body_max_size", 10*1024)
	viper.SetDefault("logs.response_body_max_size", 10*1024)
	viper.SetDefault("logs.detect_interval_minutes", 10)
	viper.SetDefault("logs.ip_groups_threshold", 1000)
	viper.SetDefault("logs.ip_groups_ban_threshold", 100)
	viper.SetDefault("logs.detect_lookback_minutes", 60)
}

// ConsumeLevelRatio 返回消费等级对应的折扣系数，未配置时为 1.0
func ConsumeLevelRatio(level int) float64 {
	ratio, ok := AppConfig.Relay.GroupConsumeLevelRatio[fmt.Sprintf("%d", level)]
	if !ok || ratio <= 0 || ratio > 1 {
		return 1.0
	}
	return ratio
}

// TimeoutSeconds 按模型类型查超时，未配置时用全局默认
func TimeoutSeconds(modelType string) int {
	if t, ok := AppConfig.Relay.TimeoutByModelTypeSeconds[modelType]; ok && t > 0 {
		return t
	}
	return AppConfig.Relay.DefaultTimeoutSeconds
}
