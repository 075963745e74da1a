// Package pductl holds the configuration glue between viper and the outlet
// controller.
package pductl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	pdulog "github.com/OpenCHAMI/pductl/internal/log"
	"github.com/OpenCHAMI/pductl/internal/util"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/spf13/viper"
)

// LoadConfig() will load a config file at the specified path. There are some general
// considerations about how this is done with spf13/viper:
//
// 1. There are intentionally no search paths set, so config path has to be set explicitly
// 2. No data will be written to the config file from the tool
// 3. Parameters passed as CLI flags and environment variables should always have
// precedence over values set in the config.
func LoadConfig(path string) error {
	dir, filename, ext := util.SplitPathForViper(path)
	viper.AddConfigPath(dir)
	viper.SetConfigName(filename)
	viper.SetConfigType(ext)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("config file not found: %w", err)
		}
		return fmt.Errorf("failed to load config file: %w", err)
	}
	return nil
}

// DefaultJournalPath is where outlet events are recorded unless configured
// otherwise.
func DefaultJournalPath() string {
	return filepath.Join(os.TempDir(), util.GetCurrentUsername(), "pductl", "journal.db")
}

// SetDefaults() resets all of the viper properties back to their
// default values.
func SetDefaults() {
	viper.SetDefault("log-level", string(pdulog.INFO))
	viper.SetDefault("log-file", "")
	viper.SetDefault("concurrency", -1)
	viper.SetDefault("port", int(pdu.DefaultPort))
	viper.SetDefault("community.read", pdu.DefaultReadCommunity)
	viper.SetDefault("community.write", pdu.DefaultWriteCommunity)
	viper.SetDefault("timeout.read", pdu.DefaultReadTimeout)
	viper.SetDefault("timeout.write", pdu.DefaultWriteTimeout)
	viper.SetDefault("retries", pdu.DefaultRetries)
	viper.SetDefault("secrets.file", "")
	viper.SetDefault("journal.path", DefaultJournalPath())
	viper.SetDefault("journal.disabled", false)
	viper.SetDefault("daemon.endpoint", "localhost:8161")
	viper.SetDefault("daemon.url", "")
	viper.SetDefault("cycle.delay", 2*time.Second)
	viper.SetDefault("format", "list")
	viper.SetDefault("xname", "")
	viper.SetDefault("xname-map", "")
}

// ControllerConfig() builds the outlet controller configuration from
// viper. Zero or negative timeouts fall back to the device defaults.
func ControllerConfig() pdu.Config {
	cfg := pdu.DefaultConfig()
	if v := viper.GetString("community.read"); v != "" {
		cfg.Communities.Read = v
	}
	if v := viper.GetString("community.write"); v != "" {
		cfg.Communities.Write = v
	}
	if d := viper.GetDuration("timeout.read"); d > 0 {
		cfg.ReadTimeout = d
	}
	if d := viper.GetDuration("timeout.write"); d > 0 {
		cfg.WriteTimeout = d
	}
	if viper.IsSet("retries") && viper.GetInt("retries") >= 0 {
		cfg.Retries = viper.GetInt("retries")
	}
	if pdulog.LogLevel(viper.GetString("log-level")) == pdulog.TRACE {
		cfg.WireLogger = pdulog.NewWireLogger(os.Stderr)
	}
	return cfg
}
