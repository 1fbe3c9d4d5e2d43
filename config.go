/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

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
	answers        string
	bind           string
	muted          bool
	openDelay      time.Duration
	particles      int
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	settleDelay    time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	pool []string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.openDelay < 0 || c.settleDelay < 0 {
		return errors.New("--open-delay and --settle-delay must not be negative")
	}
	if c.particles < 0 || c.particles > maxParticles {
		return fmt.Errorf("invalid particle count (must be between 0-%d inclusive): %d", maxParticles, c.particles)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// load validates the configuration and resolves the answer pool.
func (c *Config) load() error {
	if err := c.validate(); err != nil {
		return err
	}

	if c.answers == "" {
		c.pool = defaultAnswers
		return nil
	}

	pool, err := loadAnswers(c.answers)
	if err != nil {
		return err
	}
	c.pool = pool

	logf(c, "START: Loaded %d answers from %s", len(pool), c.answers)

	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MAGICBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "magicbook",
		Short:         "A magic book of answers, served as a tiny webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags())
			return cfg.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()

	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	pfs.StringVarP(&cfg.answers, "answers", "a", "", "path to a yaml, json or plain text file of answers (env: MAGICBOOK_ANSWERS)")
	pfs.BoolVar(&cfg.muted, "muted", false, "start with sound effects muted (env: MAGICBOOK_MUTED)")
	pfs.DurationVar(&cfg.openDelay, "open-delay", 1200*time.Millisecond, "time the opening effect plays before the instructions appear (env: MAGICBOOK_OPEN_DELAY)")
	pfs.IntVar(&cfg.particles, "particles", defaultParticles, "number of decorative particles (env: MAGICBOOK_PARTICLES)")
	pfs.DurationVar(&cfg.settleDelay, "settle-delay", 300*time.Millisecond, "time between hiding one page and showing the next (env: MAGICBOOK_SETTLE_DELAY)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MAGICBOOK_VERBOSE)")

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MAGICBOOK_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MAGICBOOK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MAGICBOOK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MAGICBOOK_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle books are closed (env: MAGICBOOK_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MAGICBOOK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MAGICBOOK_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MAGICBOOK_VERSION)")

	cmd.AddCommand(newPlayCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("magicbook v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
