package cmd

import (
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/task"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/shutdown"
	"github.com/spf13/cobra"
)

var cfgFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start " + conf.APP_NAME,
	PreRun: func(cmd *cobra.Command, args []string) {
		conf.PrintBanner()
		conf.Load(cfgFile)
		log.SetLevel(conf.AppConfig.Log.Level)
	},
	Run: func(cmd *cobra.Command, args []string) {
		shutdown.Init(log.Logger)
		defer shutdown.Listen()

		if err := db.InitDB(conf.AppConfig.Database.Type, conf.AppConfig.Database.DSN, conf.IsDebug()); err != nil {
			log.Errorf("database init error: %v", err)
			return
		}
		shutdown.Register(db.Close)

		reg := registry.New(conf.AppConfig.Relay.HealthWindowMinutes)
		if err := op.InitCache(reg); err != nil {
			log.Errorf("cache init error: %v", err)
			return
		}

		lc := conf.AppConfig.Logs
		logs := op.NewLogStore(lc.QueueSize, lc.FlushBatchSize,
			time.Duration(lc.FlushIntervalSeconds)*time.Second)
		logs.Start()

		rc := conf.AppConfig.Relay
		sel := relay.NewSelector(reg, time.Now().UnixNano())
		exec := relay.NewExecutor(relay.Config{
			RetryTimes:     rc.RetryTimes,
			DefaultTimeout: time.Duration(rc.DefaultTimeoutSeconds) * time.Second,
			TimeoutFor: func(modelType string) time.Duration {
				return time.Duration(conf.TimeoutSeconds(modelType)) * time.Second
			},
			GroupMaxTokenNum: rc.GroupMaxTokenNum,
			ConsumeRatio:     conf.ConsumeLevelRatio,
			RequestBodyMax:   lc.RequestBodyMaxSize,
			ResponseBodyMax:  lc.ResponseBodyMaxSize,
		}, reg, sel, op.PriceTable{}, logs, op.GroupUsageRecorder{})

		if err := server.Start(reg, exec); err != nil {
			log.Errorf("server start error: %v", err)
			return
		}
		shutdown.Register(server.Close)

		// 停服务后先排干日志队列再落盘计数
		shutdown.Register(func() error {
			logs.Close()
			op.GroupSaveDB()
			op.HealthSaveDB(reg)
			return nil
		})

		task.Init(reg, exec)
		go task.RUN()
	},
}

func init() {
	startCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./data/config.json)")
	rootCmd.AddCommand(startCmd)
}
