package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/config"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Run: func(cmd *cobra.Command, args []string) {
			c := loadConfig()
			ui.Banner("config")
			fmt.Printf("  File:        %s\n\n", ui.Subtle.Sprint(config.ConfigDir()+"/config.toml"))
			fmt.Printf("  api_url      %s\n", c.API.BaseURL)
			fmt.Printf("  timeout      %s\n", c.Timeout())
			fmt.Printf("  color        %v\n", c.UI.Color)
			fmt.Printf("  log_level    %s\n", c.Log.Level)
			fmt.Printf("  concurrency  %d\n", c.Parallel.Concurrency)
			fmt.Printf("  cache        %v (%s)\n", c.Cache.Enabled, c.CacheTTL())
		},
	}

	cmd.AddCommand(configSetCmd())
	return cmd
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"api_url", "timeout", "color", "log_level", "concurrency", "cache", "cache_ttl"},
		Run: func(cmd *cobra.Command, args []string) {
			c := config.LoadFile()
			key, value := args[0], args[1]

			var err error
			switch key {
			case "api_url":
				c.API.BaseURL = value
			case "timeout":
				c.API.TimeoutSeconds, err = strconv.Atoi(value)
			case "color":
				c.UI.Color, err = strconv.ParseBool(value)
			case "log_level":
				c.Log.Level = value
			case "concurrency":
				c.Parallel.Concurrency, err = strconv.Atoi(value)
			case "cache":
				c.Cache.Enabled, err = strconv.ParseBool(value)
			case "cache_ttl":
				c.Cache.TTLMinutes, err = strconv.Atoi(value)
			default:
				ui.Bad.Printf("  Unknown setting %q\n", key)
				os.Exit(1)
			}
			if err != nil {
				ui.Bad.Printf("  Invalid value for %s: %q\n", key, value)
				os.Exit(1)
			}

			if err := config.Save(c); err != nil {
				ui.Bad.Printf("  Failed to save config: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s %s = %s\n", ui.StatusIcon(true), key, value)
		},
	}
}
