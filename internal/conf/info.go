package conf

const (
	APP_NAME = "aiproxy"
	APP_DESC = "AI model inference gateway with channel routing and billing"
)

// Set at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)
