// Init command: creates the config and data directories and initializes
// the storage backend.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astarworks/flextable/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize flextable storage",
	Long:  "Create configuration and data directories, then initialize the storage backend.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	backendName := cfg.GetString(cfgKeyBackend)
	if flagBackend != "" {
		backendName = flagBackend
	}

	// Attach then detach initializes the data directory and schema.
	backend, err := openBackend(backendName)
	if err != nil {
		return err
	}
	if err := backend.Attach(types.Config{Backend: backendName, DataDir: dataDir}); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Flextable initialized successfully")
	return nil
}
