/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/serial-loopback/internal/config"
	"github.com/allbin/serial-loopback/internal/logging"
)

var (
	cfgFile string
	verbose bool

	appConfig *config.Config
	logger    = zap.NewNop()
)

// flagKeys maps command line flags to the configuration keys they override
var flagKeys = map[string]string{
	"timeout":         "probe.timeout",
	"strict-write":    "probe.strict_write",
	"on-open-failure": "probe.on_open_failure",
	"backend":         "backend",
	"source":          "ports.source",
	"dev-dir":         "ports.dev_dir",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-output":      "logging.output",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serial-loopback",
	Short: "Loopback test every serial port on this host",
	Long: `Discover the serial ports attached to this host and loopback test each one.

Every port is opened at 19200 baud, 8 data bits, no parity, 2 stop bits and no
flow control, without taking an exclusive lock. The payload "01234567" is
written and the tool waits up to 500ms for a reply. Each port ends in one of:

  success      a read returned within the deadline (possibly fewer bytes)
  io-error     the write or read failed at the driver level
  timeout      nothing arrived before the deadline
  open-failed  the port could not be opened or configured

Running without a subcommand is the same as "serial-loopback probe".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runProbe,
}

// exitError carries a process exit status. A nil err means the failure has
// already been reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serial-loopback.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console, json")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Log output: stdout, stderr, or a file path")

	addProbeFlags(rootCmd)
}

// initConfig reads in config file, ENV variables and flags, then builds the
// logger every command uses.
func initConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	var searchPaths []string
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}

	cfg, err := config.Load(v, cfgFile, searchPaths...)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	l, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = l
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	}
	return nil
}
