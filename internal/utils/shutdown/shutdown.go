package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

type logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

var ilog logger
var funcs []func() error

func Init(log logger) {
	ilog = log
	funcs = make([]func() error, 0)
}

// Register 注册关闭函数，按注册顺序的逆序执行
func Register(fn func() error) {
	funcs = append(funcs, fn)
}

func Listen() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-quit
	ilog.Warnf("received exit signal: %v", sig)
	runAll()
	os.Exit(0)
}

func Shutdown() {
	runAll()
}

func runAll() {
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			ilog.Errorf("close function failed: %v", err)
		}
	}
	ilog.Infof("shutdown completed")
}
