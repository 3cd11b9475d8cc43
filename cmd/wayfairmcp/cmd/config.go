package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tomrikert/wayfair-mcp-server/configs"
	"github.com/tomrikert/wayfair-mcp-server/internal/config"
	"github.com/tomrikert/wayfair-mcp-server/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage wayfairmcp configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/wayfairmcp/config.yaml)
  3. Project config (.wayfairmcp.yaml in the working directory)
  4. Environment variables (WAYFAIRMCP_*)`,
		Example: `  # Create user config from template
  wayfairmcp config init

  # Show effective configuration
  wayfairmcp config show

  # Print user config file path
  wayfairmcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Create the user configuration file from a template, or a project
.wayfairmcp.yaml in the working directory with --project.

With --force an existing user config is backed up and rewritten with any new
defaults added; existing settings are preserved.`,
		Example: `  wayfairmcp config init
  wayfairmcp config init --force
  wayfairmcp config init --project`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if project {
				return runConfigInitProject(cmd, force)
			}
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing configuration")
	cmd.Flags().BoolVar(&project, "project", false, "Create .wayfairmcp.yaml in the current directory")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging all sources, or a single source with --source.`,
		Example: `  wayfairmcp config show
  wayfairmcp config show --json
  wayfairmcp config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Newline()
			out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'wayfairmcp config show' to verify")
	return nil
}

// runConfigUpgrade backs up the user config and rewrites it over the
// current defaults.
func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.Backup(configPath)
	if err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}

	existing, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := existing.WriteYAML(configPath); err != nil {
		return err
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	out.Newline()
	out.Status("💡", "Your existing settings have been preserved")
	return nil
}

func runConfigInitProject(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	if existing := config.FindProjectConfig(cwd); existing != "" && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", existing)
		return nil
	}

	path := filepath.Join(cwd, config.ProjectConfigName)
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		configPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", configPath)
			out.Status("💡", "Run 'wayfairmcp config init' to create one")
			return nil
		}
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("user (%s)", configPath)

	case "project":
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		configPath := config.FindProjectConfig(cwd)
		if configPath == "" {
			out.Warning("No project configuration file found")
			out.Statusf("📁", "Expected at: %s", filepath.Join(cwd, config.ProjectConfigName))
			out.Status("💡", "Run 'wayfairmcp config init --project' to create one")
			return nil
		}
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("project (%s)", configPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Newline()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
