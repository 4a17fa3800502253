package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/cache"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the on-disk component catalog cache",
		Run: func(cmd *cobra.Command, args []string) {
			c := loadConfig()
			fmt.Printf("  Cache:   %s\n", cache.Dir())
			fmt.Printf("  Enabled: %v\n", c.Cache.Enabled)
			fmt.Printf("  TTL:     %s\n", c.CacheTTL())
		},
	}

	cmd.AddCommand(cacheClearCmd(), cacheWarmCmd())
	return cmd
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop cached component definitions",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := cache.New(cache.Dir(), loadConfig().CacheTTL()).Clear()
			if err != nil {
				ui.Bad.Printf("  Failed to clear cache: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Removed %d cached entries\n", ui.StatusIcon(true), n)
		},
	}
}

func cacheWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Fetch the component catalog into the cache",
		Run: func(cmd *cobra.Command, args []string) {
			if !loadConfig().Cache.Enabled {
				ui.Warn.Println("  The cache is disabled in config.toml ([cache] enabled = false)")
				return
			}
			ctx, cancel := commandContext()
			defer cancel()

			defs, err := loadCatalog().List(ctx)
			if err != nil {
				ui.Bad.Printf("  Failed to fetch components: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Cached %d components in %s\n", ui.StatusIcon(true), len(defs), cache.Dir())
		},
	}
}
