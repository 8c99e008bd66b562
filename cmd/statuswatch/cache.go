package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statuswatch/statuswatch/pkg/config"
	"github.com/statuswatch/statuswatch/pkg/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached baselines",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [service-key]",
	Short: "Clear cached baselines",
	Long: `Remove the last-known-good baseline for one service, or for all
services when no key is given. The next cycle re-emits the full metric
state for the affected services.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		store, err := storage.NewBoltStore(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open baseline store: %w", err)
		}
		defer store.Close()

		if len(args) == 1 {
			if err := store.Delete(args[0]); err != nil {
				return fmt.Errorf("clear baseline %s: %w", args[0], err)
			}
			fmt.Printf("Cleared baseline for %s\n", args[0])
			return nil
		}

		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear baselines: %w", err)
		}
		fmt.Println("Cleared all baselines")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
