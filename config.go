package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	defaultLanguage string
	port            int
	prefix          string
	profile         bool
	reconnectGrace  time.Duration
	sessionTimeout  time.Duration
	snapshotDB      string
	terminateGrace  time.Duration
	tickInterval    time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.tickInterval <= 0 {
		return fmt.Errorf("invalid tick interval (must be positive): %s", c.tickInterval)
	}
	if c.reconnectGrace < 0 {
		return fmt.Errorf("invalid reconnect grace (must not be negative): %s", c.reconnectGrace)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("POEMBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "poembox",
		Short:         "A collaborative poem party game, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: POEMBOX_BIND)")
	fs.StringVar(&cfg.defaultLanguage, "default-language", "en", "language for sessions created without one (env: POEMBOX_DEFAULT_LANGUAGE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: POEMBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: POEMBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: POEMBOX_PROFILE)")
	fs.DurationVar(&cfg.reconnectGrace, "reconnect-grace", 5*time.Second, "time a disconnected player can rejoin without forfeiting their turn (env: POEMBOX_RECONNECT_GRACE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: POEMBOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.snapshotDB, "snapshot-db", "poembox.db", "path to the sqlite database used to restore sessions across restarts, empty to disable (env: POEMBOX_SNAPSHOT_DB)")
	fs.DurationVar(&cfg.terminateGrace, "terminate-grace", 30*time.Second, "rejoin window announced to players when the server shuts down (env: POEMBOX_TERMINATE_GRACE)")
	fs.DurationVar(&cfg.tickInterval, "tick-interval", 500*time.Millisecond, "scheduler cadence for game sessions (env: POEMBOX_TICK_INTERVAL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: POEMBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: POEMBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: POEMBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: POEMBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("poembox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
