package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crudload/internal/dummy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory CRUD target for local trials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		jitter, _ := cmd.Flags().GetDuration("jitter")
		failRate, _ := cmd.Flags().GetFloat64("fail-rate")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := newLogger()
		if log.GetLevel() > zerolog.InfoLevel {
			log = log.Level(zerolog.InfoLevel)
		}
		return dummy.Start(ctx, dummy.ServerConfig{
			Port:     port,
			Jitter:   jitter,
			FailRate: failRate,
		}, log)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 3000, "Port to listen on")
	serveCmd.Flags().Duration("jitter", 0, "Random extra latency per response (e.g. 20ms)")
	serveCmd.Flags().Float64("fail-rate", 0, "Fraction of /api/items requests answered with 500")
}
