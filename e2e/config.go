package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_DEBUG_FRAMES dumps every websocket frame the suite reads
	DebugFrames bool `envconfig:"E2E_DEBUG_FRAMES" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
