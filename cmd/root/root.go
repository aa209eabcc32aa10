// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"fjacquet/spendlog/internal/config"
	"fjacquet/spendlog/internal/container"
	"fjacquet/spendlog/internal/logging"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	ConfigFile string
	Tenant     string
	Actor      string
	LogLevel   string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "spendlog",
		Short: "Record expenses and income from text, receipt photos and voice notes.",
		Long: `spendlog turns free-form messages into categorized transactions.
A message is sent to the active AI backend (Gemini, Vertex AI or GigaChat),
the extracted transactions are matched against the tenant's categories and
saved to the configured store.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadEnv(); err != nil {
				return err
			}
			cfg, err := GetConfig()
			if err != nil {
				return err
			}
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
		// Release the store and backend clients when any command finishes
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			CloseContainer()
		},
	}

	// SharedFlags holds the persistent flags of every command
	SharedFlags = CommonFlags{}

	mu        sync.Mutex
	appConfig *config.Config
	appCtr    *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: $HOME/.spendlog/config.yaml)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Tenant, "tenant", "t", "default", "Tenant (household) identifier")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Actor, "actor", "a", "cli", "Actor recorded on writes")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override the configured log level")
}

// GetConfig loads the configuration once per process.
func GetConfig() (*config.Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.InitializeConfigFrom(SharedFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	appConfig = cfg
	return cfg, nil
}

// GetContainer builds the application container on first use.
func GetContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if appCtr != nil {
		return appCtr, nil
	}
	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	appCtr = c
	return c, nil
}

// UseContainer installs a prebuilt container and its configuration.
func UseContainer(c *container.Container) {
	mu.Lock()
	defer mu.Unlock()
	appConfig = c.GetConfig()
	appCtr = c
}

// CloseContainer releases the container, if one was built.
func CloseContainer() {
	mu.Lock()
	defer mu.Unlock()
	if appCtr == nil {
		return
	}
	if err := appCtr.Close(); err != nil {
		Log.WithError(err).Warn("Failed to close resources")
	}
	appCtr = nil
}

// Reset forgets the loaded configuration and container.
func Reset() {
	CloseContainer()
	mu.Lock()
	appConfig = nil
	mu.Unlock()
}
