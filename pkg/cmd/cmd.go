// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/drivevault/pkg/app"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/storage"
	"github.com/yeisme/drivevault/pkg/log"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "drivevault",
		Short:         "File storage service with inherited sharing, trash cascade and public links",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server and scheduled jobs",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			mgr, err := storage.New(cmd.Context(), configs.GetConfig(), nil, storage.ComponentDB)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := mgr.DB.Migrate(cmd.Context()); err != nil {
				return err
			}

			log.Logger().Info().Msg("database migrated")

			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output")

	rootCmd.AddCommand(serveCmd, migrateCmd)

	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// loadConfig 供非 serve 子命令使用.
func loadConfig() error {
	if err := configs.InitConfig(configPath); err != nil {
		return err
	}

	if debug {
		configs.GetConfig().Server.Debug = true
	}

	log.Init()

	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}

	runErr := a.Run(ctx)
	closeErr := a.Close()

	if runErr != nil {
		return runErr
	}

	return closeErr
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
