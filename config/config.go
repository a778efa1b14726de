package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of the receive engine. All fields have working
// defaults; a YAML file only needs to name what it changes.
type Config struct {
	PreferredMSS      uint16 `yaml:"preferredMSS"`      // MSS advertised and assumed before option parsing
	ReceiveWindow     uint32 `yaml:"receiveWindow"`     // initial and maximum receive window in bytes
	EnableWindowScale bool   `yaml:"enableWindowScale"` // negotiate RFC 7323 window scaling
	WindowShift       uint8  `yaml:"windowShift"`       // our receive shift count, capped at 14
	EnableTimestamps  bool   `yaml:"enableTimestamps"`  // negotiate RFC 7323 timestamps
	QuickAckThreshold uint32 `yaml:"quickAckThreshold"` // segments up to this length are acked immediately, 0 disables
	PayloadPoolSize   int    `yaml:"payloadPoolSize"`   // number of payload chunks in the ring pool
	PayloadChunkSize  int    `yaml:"payloadChunkSize"`  // bytes per pool chunk
	Debug             bool   `yaml:"debug"`             // engine debug logging
	PoolDebug         bool   `yaml:"poolDebug"`         // ring pool footprint tracing
}

func Default() *Config {
	return &Config{
		PreferredMSS:      1440,
		ReceiveWindow:     65535,
		EnableWindowScale: true,
		WindowShift:       7,
		EnableTimestamps:  true,
		QuickAckThreshold: 1440,
		PayloadPoolSize:   2000,
		PayloadChunkSize:  65535,
		Debug:             false,
		PoolDebug:         false,
	}
}

// ReadConfig loads configuration from a YAML file, starting from defaults.
func ReadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: cannot read %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: cannot parse %s", path)
	}
	if cfg.WindowShift > 14 {
		return nil, errors.Errorf("config: windowShift %d exceeds RFC 7323 limit 14", cfg.WindowShift)
	}
	if cfg.PayloadChunkSize < int(cfg.PreferredMSS) {
		return nil, errors.Errorf("config: payloadChunkSize %d smaller than preferredMSS %d",
			cfg.PayloadChunkSize, cfg.PreferredMSS)
	}
	return cfg, nil
}
