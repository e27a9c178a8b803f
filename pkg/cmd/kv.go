package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/storage"
	"github.com/yeisme/drivevault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "link cache (key-value store) commands",
	}

	kvListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list the compiled-in kv backends",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [prefix]",
		Short: "print cached keys, defaults to the link cache namespace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := service.LinkCacheNamespace + "."
			if len(args) == 1 {
				prefix = args[0]
			}

			return withKV(cmd, func(client *kv.Client) error {
				keys, err := client.Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}

				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}

				return nil
			})
		},
	}

	kvFlushLinksCmd = &cobra.Command{
		Use:   "flush-links",
		Short: "drop every cached link lookup; links are re-read from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(cmd, func(client *kv.Client) error {
				if err := cache.NewCache(client, service.LinkCacheNamespace).Clear(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "link cache flushed")

				return nil
			})
		},
	}
)

func withKV(cmd *cobra.Command, fn func(*kv.Client) error) error {
	if err := loadConfig(); err != nil {
		return err
	}

	mgr, err := storage.New(cmd.Context(), configs.GetConfig(), nil, storage.ComponentKV)
	if err != nil {
		return err
	}
	defer mgr.Close()

	return fn(mgr.KV)
}

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvKeysCmd, kvFlushLinksCmd)
}
