package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/apiclient"
	"github.com/msalah0e/cloudcanvas/internal/cache"
	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/config"
	"github.com/msalah0e/cloudcanvas/internal/logging"
	"github.com/msalah0e/cloudcanvas/internal/registry"
	"github.com/msalah0e/cloudcanvas/internal/session"
	"github.com/msalah0e/cloudcanvas/internal/ui"
	"github.com/msalah0e/cloudcanvas/internal/vault"
)

var version = "0.4.0"

var (
	schemaFS embed.FS

	apiURL   string
	logLevel string

	cfg     *config.Config
	logger  *zerolog.Logger
	sess    *session.Provider
	client  *apiclient.Client
	comps   *catalog.Client
	schemas *registry.Registry
)

// SetSchemaFS sets the embedded filesystem containing the built-in field
// schemas.
func SetSchemaFS(fs embed.FS) {
	schemaFS = fs
}

func loadConfig() *config.Config {
	if cfg != nil {
		return cfg
	}
	cfg = config.Load()
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg
}

func loadLogger() zerolog.Logger {
	if logger != nil {
		return *logger
	}
	c := loadConfig()
	l := logging.New(os.Stderr, c.Log.Level, c.UI.Color)
	logger = &l
	return l
}

func loadSession() *session.Provider {
	if sess != nil {
		return sess
	}
	sess = session.NewProvider(vault.NewFileVault(config.ConfigDir()), session.WithLogger(loadLogger()))
	return sess
}

func loadClient() *apiclient.Client {
	if client != nil {
		return client
	}
	c := loadConfig()
	client = apiclient.New(c.API.BaseURL, loadSession(),
		apiclient.WithTimeout(c.Timeout()),
		apiclient.WithLogger(loadLogger()),
	)
	return client
}

func loadCatalog() *catalog.Client {
	if comps != nil {
		return comps
	}
	c := loadConfig()
	opts := []catalog.Option{catalog.WithLogger(loadLogger())}
	if c.Cache.Enabled {
		opts = append(opts, catalog.WithCache(cache.New(cache.Dir(), c.CacheTTL())))
	}
	comps = catalog.NewClient(loadClient(), opts...)
	return comps
}

func loadSchemas() *registry.Registry {
	if schemas != nil {
		return schemas
	}
	pluginDir := filepath.Join(config.ConfigDir(), "schemas")
	r, err := registry.LoadAll(schemaFS, "schemas", pluginDir, loadLogger())
	if err != nil {
		ui.Bad.Printf("cloudcanvas: failed to load field schemas: %v\n", err)
		return registry.New(nil)
	}
	schemas = r
	return schemas
}

var rootCmd = &cobra.Command{
	Use:   "cloudcanvas",
	Short: "cloudcanvas, a visual cloud architecture designer",
	Long: ui.Brand.Sprint(ui.Cloud+" cloudcanvas") + " lays out cloud components on a canvas and prices them\n" +
		ui.Subtle.Sprint("Place components, wire them together and watch the monthly estimate"),
	Version:       version + " " + ui.Cloud,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(loadConfig().UI.Color)
	},
}

func init() {
	rootCmd.SetVersionTemplate("cloudcanvas {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error, disabled")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		componentsCmd(),
		workspaceCmd(),
		nodeCmd(),
		connectCmd(),
		viewCmd(),
		costCmd(),
		infoCmd(),
		shellCmd(),
		schemasCmd(),
		budgetCmd(),
		actlogCmd(),
		cacheCmd(),
		configCmd(),
		completionCmd(),
		mockServerCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Sprint("cloudcanvas: ", err))
	}
	return err
}
