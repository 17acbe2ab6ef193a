package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize backoffice storage",
		Long: "Create the configuration, data and documents directories, then create\n" +
			"the record tables. Running init again is safe.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(a.configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, a.settings.DataDir); err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	if err := os.MkdirAll(a.settings.DataDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create data directory: %w", err))
	}
	if _, err := a.openStore(cmd.Context()); err != nil {
		return err
	}
	if _, err := a.blobStore(); err != nil {
		return err
	}

	if a.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"config_dir": a.configDir,
			"data_dir":   a.settings.DataDir,
			"blob_dir":   a.settings.BlobDir,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Backoffice initialized successfully")
	fmt.Fprintf(cmd.OutOrStdout(), "config: %s\ndata: %s\ndocuments: %s\n", a.configDir, a.settings.DataDir, a.settings.BlobDir)
	return nil
}
