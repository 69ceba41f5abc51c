package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquaticgg/krepo/config"
	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/aquaticgg/krepo/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	cobra.OnInitialize(config.LoadConfig)

	root.Flags().IntP("port", "p", 0, "The port to listen on, overrides http.port")
	_ = viper.BindPFlag(configkey.HTTPPort, root.Flags().Lookup("port"))
}

var root = &cobra.Command{
	Use:   "krepo",
	Short: "KRepo binary artifact repository server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := &server.Server{}
		if err := s.Init(ctx); err != nil {
			return err
		}

		return s.Run(ctx)
	},
}

func main() {
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
