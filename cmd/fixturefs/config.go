package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage fixturefs configuration settings.

Configuration is loaded from:
  1. --config, when given
  2. $XDG_CONFIG_HOME/fixturefs/config.yaml (if set)
  3. ~/.config/fixturefs/config.yaml

Environment variables override config file settings using the FIXTUREFS_ prefix:
  FIXTUREFS_TOTAL_ITEMS=1000000
  FIXTUREFS_STORE_PATH=/var/tmp/fixtures
  FIXTUREFS_UPLOAD_BUCKET=fixtures`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging all sources.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			fmt.Fprintf(w, "Config file: %s\n\n", configFile)
		} else {
			fmt.Fprintln(w, "Config file: (using defaults, no file found)")
			fmt.Fprintln(w)
		}
	} else {
		fmt.Fprintln(w, "Config file: (using defaults, no file found)")
		fmt.Fprintln(w)
	}

	writeConfig(w, cfg)

	fmt.Fprintln(w, "\nEnvironment Overrides:")
	fmt.Fprintln(w, "----------------------")
	anyOverrides := false
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, config.EnvPrefix+"_") {
			continue
		}
		name, val, _ := strings.Cut(kv, "=")
		if strings.Contains(name, "SECRET") {
			val = mask(val)
		}
		fmt.Fprintf(w, "%s=%s\n", name, val)
		anyOverrides = true
	}
	if !anyOverrides {
		fmt.Fprintln(w, "(none)")
	}
	return nil
}

// writeConfig prints cfg one key per line.
func writeConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "total_items:            %d\n", cfg.TotalItems)
	fmt.Fprintf(w, "min_per_folder:         %d\n", cfg.MinPerFolder)
	fmt.Fprintf(w, "output:                 %s\n", cfg.Output)
	fmt.Fprintf(w, "format:                 %s\n", cfg.Format)
	fmt.Fprintf(w, "compression:            %s\n", cfg.Compression)
	fmt.Fprintf(w, "summary:                %s\n", cfg.Summary)
	fmt.Fprintf(w, "seed:                   %d\n", cfg.Seed)
	fmt.Fprintf(w, "now:                    %s\n", cfg.Now)
	fmt.Fprintf(w, "promote_probability:    %g\n", cfg.PromoteProbability)
	fmt.Fprintf(w, "max_active_parents:     %d\n", cfg.MaxActiveParents)
	fmt.Fprintf(w, "min_file_size:          %s\n", cfg.MinFileSize)
	fmt.Fprintf(w, "max_file_size:          %s\n", cfg.MaxFileSize)
	fmt.Fprintf(w, "vocabulary:             %s\n", cfg.Vocabulary)
	fmt.Fprintf(w, "store.path:             %s\n", cfg.Store.Path)
	fmt.Fprintf(w, "upload.endpoint:        %s\n", cfg.Upload.Endpoint)
	fmt.Fprintf(w, "upload.bucket:          %s\n", cfg.Upload.Bucket)
	fmt.Fprintf(w, "upload.object:          %s\n", cfg.Upload.Object)
	fmt.Fprintf(w, "upload.access_key:      %s\n", cfg.Upload.AccessKey)
	fmt.Fprintf(w, "upload.secret_key:      %s\n", mask(cfg.Upload.SecretKey))
	fmt.Fprintf(w, "upload.use_ssl:         %t\n", cfg.Upload.UseSSL)
	fmt.Fprintf(w, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(w, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(w, "history.retention_days: %d\n", cfg.History.RetentionDays)
	fmt.Fprintf(w, "logging.level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "logging.path:           %s\n", cfg.LogPath())
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	path, written, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !written {
		printInfo("Config file already exists: %s", path)
		return nil
	}
	printInfo("Created default config file: %s", path)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := config.ConfigFile()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
