package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	PrinterHost string  `toml:"printer_host"`
	PrinterPort int     `toml:"printer_port"`
	LabelWidth  float64 `toml:"label_width"`
	LabelHeight float64 `toml:"label_height"`
	DPI         int     `toml:"dpi"`

	QueueCapacity   int    `toml:"queue_capacity"`
	AdmissionPolicy string `toml:"admission_policy"`
	SendInterval    string `toml:"send_interval"`
	MaxRetries      int    `toml:"max_retries"`
	ConnectTimeout  string `toml:"connect_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	DrainTimeout    string `toml:"drain_timeout"`
	BackoffInitial  string `toml:"backoff_initial"`
	BackoffMax      string `toml:"backoff_max"`

	Template         string  `toml:"template"`
	DetailedPrefix   string  `toml:"detailed_prefix"`
	CompactThreshold float64 `toml:"compact_threshold"`
	UnstableMarker   *bool   `toml:"unstable_marker"`
	LineNumber       string  `toml:"line_number"`

	ListenAddr  string `toml:"listen_addr"`
	MonitorAddr string `toml:"monitor_addr"`
	Verbose     *bool  `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.scalebridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".scalebridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("printer-host", fc.PrinterHost, &cfg.PrinterHost)
	s.setInt("printer-port", fc.PrinterPort, &cfg.PrinterPort)
	s.setFloat("label-width", fc.LabelWidth, &cfg.LabelWidth)
	s.setFloat("label-height", fc.LabelHeight, &cfg.LabelHeight)
	s.setInt("dpi", fc.DPI, &cfg.DPI)

	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setString("admission-policy", fc.AdmissionPolicy, &cfg.AdmissionPolicy)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)

	if err := s.setDuration("send-interval", fc.SendInterval, &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", fc.DrainTimeout, &cfg.DrainTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", fc.BackoffInitial, &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", fc.BackoffMax, &cfg.BackoffMax); err != nil {
		return err
	}

	s.setString("template", fc.Template, &cfg.Template)
	s.setString("detailed-prefix", fc.DetailedPrefix, &cfg.DetailedPrefix)
	s.setFloat("compact-threshold", fc.CompactThreshold, &cfg.CompactThreshold)
	s.setBool("unstable-marker", fc.UnstableMarker, &cfg.UnstableMarker)
	s.setString("line-number", fc.LineNumber, &cfg.LineNumber)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("monitor", fc.MonitorAddr, &cfg.MonitorAddr)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
