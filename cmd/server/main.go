package main

import (
	"context"
	"os"

	"github.com/anonto42/nano-midea/notifier/pkg/config"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/spf13/cobra"
)

const serviceName = "notifier"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "command failed", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg  *config.Config
	logg *logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "server",
		Short:         "Social notification service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logg = logger.New(logger.Options{
				ServiceName: serviceName,
				Level:       logger.ParseLevel(cfg.App.LogLevel),
				Format:      cfg.App.LogFormat,
			})
			return nil
		},
	}
	root.AddCommand(newServeCommand(a), newMigrateCommand(a))
	return root
}
