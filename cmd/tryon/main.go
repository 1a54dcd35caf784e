// Command tryon runs the jewelry AR try-on server and manages its catalog.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/tryon/internal/config"
	"github.com/ayusman/tryon/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tryon",
	Short: "Real-time jewelry try-on over a live camera feed",
	Long: `Try-On anchors earrings, necklaces, rings and bracelets to face and hand
landmarks detected on a mirrored camera feed and serves the result to a
browser. The catalog of jewelry images lives in a local SQLite database.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration and makes sure the data directory exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Data.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

// openStore loads the configuration and opens the catalog database.
func openStore() (*config.Config, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(cfg.Data.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return cfg, st, nil
}
