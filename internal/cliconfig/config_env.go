package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (SCALEBRIDGE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("printer-host", os.Getenv("SCALEBRIDGE_PRINTER_HOST"), &cfg.PrinterHost)
	s.setString("admission-policy", os.Getenv("SCALEBRIDGE_ADMISSION_POLICY"), &cfg.AdmissionPolicy)
	s.setString("template", os.Getenv("SCALEBRIDGE_TEMPLATE"), &cfg.Template)
	s.setString("detailed-prefix", os.Getenv("SCALEBRIDGE_DETAILED_PREFIX"), &cfg.DetailedPrefix)
	s.setString("line-number", os.Getenv("SCALEBRIDGE_LINE_NUMBER"), &cfg.LineNumber)
	s.setString("listen", os.Getenv("SCALEBRIDGE_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("monitor", os.Getenv("SCALEBRIDGE_MONITOR_ADDR"), &cfg.MonitorAddr)

	if err := s.setIntFromString("printer-port", os.Getenv("SCALEBRIDGE_PRINTER_PORT"), &cfg.PrinterPort); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", os.Getenv("SCALEBRIDGE_QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", os.Getenv("SCALEBRIDGE_MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("dpi", os.Getenv("SCALEBRIDGE_DPI"), &cfg.DPI); err != nil {
		return err
	}

	if err := s.setDuration("send-interval", os.Getenv("SCALEBRIDGE_SEND_INTERVAL"), &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", os.Getenv("SCALEBRIDGE_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("SCALEBRIDGE_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", os.Getenv("SCALEBRIDGE_DRAIN_TIMEOUT"), &cfg.DrainTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", os.Getenv("SCALEBRIDGE_BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", os.Getenv("SCALEBRIDGE_BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}

	if err := s.setFloatFromString("label-width", os.Getenv("SCALEBRIDGE_LABEL_WIDTH"), &cfg.LabelWidth); err != nil {
		return err
	}
	if err := s.setFloatFromString("label-height", os.Getenv("SCALEBRIDGE_LABEL_HEIGHT"), &cfg.LabelHeight); err != nil {
		return err
	}
	if err := s.setFloatFromString("compact-threshold", os.Getenv("SCALEBRIDGE_COMPACT_THRESHOLD"), &cfg.CompactThreshold); err != nil {
		return err
	}

	s.setBoolFromString("unstable-marker", os.Getenv("SCALEBRIDGE_UNSTABLE_MARKER"), &cfg.UnstableMarker)
	s.setBoolFromString("verbose", os.Getenv("SCALEBRIDGE_VERBOSE"), &cfg.Verbose)

	return nil
}
