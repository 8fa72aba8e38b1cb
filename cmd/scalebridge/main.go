package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/judwhite/go-svc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/packbridge/scalebridge/internal/cliconfig"
)

const helpDescription = `
Bridge a checkweigher's serial weight stream to a networked label printer.

Highlights:
  - Parses framed weight telegrams and renders ZPL labels on the fly.
  - Bounded print queue with reject or block admission, automatic
    reconnect with backoff, and per-label retry budgets.
  - Live status over HTTP and websocket; label settings hot-reload
    from the config file without a restart.

Configure via file ($HOME/.scalebridge/config.toml), environment
(SCALEBRIDGE_*), or flags. Flags win over environment, environment
wins over file.
`

var exampleUsage = strings.TrimSpace(`
  scalebridge --printer-host 192.168.1.50 --listen :4010
  scalebridge --config /etc/scalebridge/config.toml --verbose
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "scalebridge",
		Short:   "Bridge a checkweigher's weight stream to a label printer",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Flags explicitly set on the command line always win.
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else {
				cfgFile = ""
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.Verbose)
			logger.Info().
				Str("printer", cfg.PrinterAddr()).
				Str("listen", cfg.ListenAddr).
				Str("monitor", cfg.MonitorAddr).
				Str("admission", cfg.AdmissionPolicy).
				Int("queue_capacity", cfg.QueueCapacity).
				Msg("configuration")

			prg := newProgram(cfg, cfgFile, logger)
			if err := svc.Run(prg, syscall.SIGINT, syscall.SIGTERM); err != nil {
				return fmt.Errorf("run service: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.scalebridge/config.toml)")
	root.Flags().StringVar(&cfg.PrinterHost, "printer-host", cfg.PrinterHost, "printer host or IP")
	root.Flags().IntVar(&cfg.PrinterPort, "printer-port", cfg.PrinterPort, "printer TCP port")

	root.Flags().Float64Var(&cfg.LabelWidth, "label-width", cfg.LabelWidth, "label width in inches")
	root.Flags().Float64Var(&cfg.LabelHeight, "label-height", cfg.LabelHeight, "label height in inches")
	root.Flags().IntVar(&cfg.DPI, "dpi", cfg.DPI, "printer head density in dots per inch")

	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "maximum queued labels")
	root.Flags().StringVar(&cfg.AdmissionPolicy, "admission-policy", cfg.AdmissionPolicy, "queue admission when full: reject or block")
	root.Flags().DurationVar(&cfg.SendInterval, "send-interval", cfg.SendInterval, "minimum spacing between label transmissions")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retries per label before dropping it")
	root.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "printer connect timeout")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "printer write timeout")
	root.Flags().DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "time to flush queued labels on shutdown")
	root.Flags().DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "initial reconnect delay")
	root.Flags().DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum reconnect delay")

	root.Flags().StringVar(&cfg.Template, "template", cfg.Template, "force a label template: standard, compact or detailed")
	root.Flags().StringVar(&cfg.DetailedPrefix, "detailed-prefix", cfg.DetailedPrefix, "product prefix that selects the detailed template")
	root.Flags().Float64Var(&cfg.CompactThreshold, "compact-threshold", cfg.CompactThreshold, "weight below which the compact template is used")
	root.Flags().BoolVar(&cfg.UnstableMarker, "unstable-marker", cfg.UnstableMarker, "print a marker for unstable weighments")
	root.Flags().StringVar(&cfg.LineNumber, "line-number", cfg.LineNumber, "packaging line identifier printed on labels")

	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP listen address for scale connections")
	root.Flags().StringVar(&cfg.MonitorAddr, "monitor", cfg.MonitorAddr, "HTTP listen address for status and events")
	root.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scalebridge:", err)
		os.Exit(1)
	}
}
