package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/configs"
	"github.com/flupkede/codesearch/internal/config"
	"github.com/flupkede/codesearch/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user/global configuration file.

User configuration contains machine-specific settings that apply to
every project on this machine: embedding provider, performance
tuning, and daemon log level.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/codesearch/config.yaml)
  3. Project config (.codesearch.yaml)
  4. Environment variables (SEMCODE_*)`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration, preserving known settings")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective merged configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()
	configDir := config.GetUserConfigDir()

	if config.UserConfigExists() {
		if !force {
			out.Warning("user configuration already exists")
			out.Statusf("", "location: %s", configPath)
			out.Status("", "use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("created user configuration")
	out.Statusf("", "location: %s", configPath)
	return nil
}

func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("failed to back up config: %w", err)
	}

	existing, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("config file disappeared during upgrade")
	}

	added := existing.MergeNewDefaults()
	if err := existing.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	out.Success("configuration upgraded")
	out.Statusf("", "location: %s", configPath)
	out.Statusf("", "backup: %s", backupPath)
	if len(added) > 0 {
		out.Status("", fmt.Sprintf("added new fields: %v", added))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg := loadConfig(projectRoot())

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	out := output.New(cmd.OutOrStdout())
	out.Status("", fmt.Sprintf("embeddings.provider: %s", cfg.Embeddings.Provider))
	out.Status("", fmt.Sprintf("embeddings.model: %s (%d dims)", cfg.Embeddings.Model, cfg.Embeddings.Dimensions))
	out.Status("", fmt.Sprintf("search.rrf_constant: %d, search.exact_match_rrf_constant: %d", cfg.Search.RRFConstant, cfg.Search.ExactMatchRRFConstant))
	out.Status("", fmt.Sprintf("search.max_results: %d", cfg.Search.MaxResults))
	out.Status("", fmt.Sprintf("performance.index_workers: %d", cfg.Performance.IndexWorkers))
	return nil
}
