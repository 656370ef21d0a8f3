package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crudload/internal/banner"
	"crudload/internal/cli"
	"crudload/internal/endpoint"
	"crudload/internal/runner"
	"crudload/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "crudload [target-url] [concurrency] [duration-seconds]",
	Short: "crudload - load generator for CRUD HTTP services",
	Long: `
crudload sends a weighted mix of health, list and create requests to a CRUD
service in closed batches of <concurrency> requests for <duration-seconds>,
then prints a report.

Defaults: target http://localhost:3000, concurrency 5, duration 30s.
Press Ctrl+C to stop early; the report covers everything completed so far.`,
	Args:          cobra.MaximumNArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLoad,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd, historyCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crudload.yaml)")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	pf.String("history-path", "", "Run history database (default is $HOME/.crudload/history.db)")

	f := rootCmd.Flags()
	f.Duration("timeout", runner.DefaultTimeout, "Per-request timeout, 0 disables it")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.Bool("tui", false, "Show the live dashboard instead of the progress line")
	f.StringP("out", "o", "", "Output filename prefix for summary/status exports")
	f.Bool("history", true, "Save the finished run to the history database")

	for _, name := range []string{"log-level", "history-path"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
	for _, name := range []string{"timeout", "insecure", "tui", "out", "history"} {
		viper.BindPFlag(name, f.Lookup(name))
	}

	viper.SetDefault("target", runner.DefaultTarget)
	viper.SetDefault("concurrency", runner.DefaultConcurrency)
	viper.SetDefault("duration", int(runner.DefaultDuration/time.Second))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".crudload")
		}
	}
	viper.SetEnvPrefix("CRUDLOAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log := newLogger()
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := newLogger()

	target, concurrency, duration, err := positional(args)
	if err != nil {
		return err
	}

	cfg, err := runner.ParseConfig(target, concurrency, duration)
	if err != nil {
		return err
	}
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.Insecure = viper.GetBool("insecure")
	cfg.Endpoints, err = loadEndpoints(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second interrupt falls through to the default handler and kills the
	// process while the current batch drains.
	releaseOnDone(ctx, stop)

	opts := cli.Options{
		Out:       cmd.OutOrStdout(),
		Logger:    log,
		TUI:       viper.GetBool("tui"),
		OutPrefix: viper.GetString("out"),
	}

	if viper.GetBool("history") {
		store, err := openHistory()
		if err != nil {
			log.Warn().Err(err).Msg("run history disabled")
		} else {
			defer store.Close()
			opts.History = store
		}
	}

	return cli.Start(ctx, cfg, opts)
}

// positional resolves target, concurrency and duration. Arguments win over
// config file and environment values.
func positional(args []string) (string, int, time.Duration, error) {
	target := viper.GetString("target")
	concurrency := viper.GetInt("concurrency")
	seconds := viper.GetInt("duration")

	if len(args) > 0 {
		target = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid concurrency %q: %w", args[1], err)
		}
		concurrency = n
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid duration %q: %w", args[2], err)
		}
		seconds = n
	}
	return target, concurrency, time.Duration(seconds) * time.Second, nil
}

func releaseOnDone(ctx context.Context, stop context.CancelFunc) {
	go func() {
		<-ctx.Done()
		stop()
	}()
}

// loadEndpoints reads an optional "endpoints" list from the config file,
// replacing the default request mix.
func loadEndpoints(v *viper.Viper) ([]endpoint.Descriptor, error) {
	if !v.IsSet("endpoints") {
		return nil, nil
	}

	var descs []endpoint.Descriptor
	if err := v.UnmarshalKey("endpoints", &descs); err != nil {
		return nil, fmt.Errorf("decode endpoints: %w", err)
	}
	seen := make(map[string]bool, len(descs))
	for i := range descs {
		d := &descs[i]
		if d.Path == "" {
			return nil, fmt.Errorf("endpoint %d (%s): path is required", i, d.Name)
		}
		d.Method = strings.ToUpper(d.Method)
		if d.Method == "" {
			d.Method = http.MethodGet
		}
		if d.Name == "" {
			d.Name = d.Method + " " + d.Path
		}
		// Bodies are looked up by name.
		if seen[d.Name] {
			return nil, fmt.Errorf("endpoint %q defined twice", d.Name)
		}
		seen[d.Name] = true
	}
	return descs, nil
}

func openHistory() (*storage.Store, error) {
	path := viper.GetString("history-path")
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return storage.Open(path)
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil || viper.GetString("log-level") == "" {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
