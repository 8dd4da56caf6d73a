package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "fixturefs",
		Short: "Generate synthetic filesystem metadata fixtures",
		Long: `fixturefs writes a synthetic folder/file hierarchy as a stream of
metadata records, one JSON object per line, for load-testing search indexes,
catalog importers and other consumers of filesystem listings.

Running fixturefs with no subcommand is the same as 'fixturefs generate'.

Examples:
  fixturefs                              # 110,000 items into big.ndjson
  fixturefs -n 1500 -m 500 -o small.ndjson
  fixturefs -n 1000000 -o big.ndjson.zst # compressed by suffix
  fixturefs -o - --seed 7 | head         # deterministic, to stdout
  fixturefs verify big.ndjson            # check structural invariants
  fixturefs history                      # list past runs`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
		RunE:              runGenerate,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/fixturefs/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	addGenerateFlags(rootCmd)
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return logging.Close()
	}
}

// bindFlags maps command-line flags onto configuration keys. Flags that
// were set take precedence over the environment and the config file.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("total_items", flags.Lookup("total"))
	_ = viper.BindPFlag("min_per_folder", flags.Lookup("min-per-folder"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("format", flags.Lookup("format"))
	_ = viper.BindPFlag("compression", flags.Lookup("compression"))
	_ = viper.BindPFlag("seed", flags.Lookup("seed"))
	_ = viper.BindPFlag("now", flags.Lookup("now"))
	_ = viper.BindPFlag("store.path", flags.Lookup("store"))
	_ = viper.BindPFlag("summary", flags.Lookup("summary"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if err := config.AddConfigPaths(v); err != nil {
		printVerbose("No config directory: %v", err)
	}

	bindFlags()

	if err := config.ReadConfig(v); err != nil {
		printError("%v", err)
	}
}

// loadConfig decodes the merged flags, environment and config file.
func loadConfig() (*config.Config, error) {
	return config.Decode(viper.GetViper())
}

// initializeLogging sets up console and file logging before any command
// runs. --verbose lowers both to debug; --quiet silences the console.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	consoleLevel := "info"
	switch {
	case getQuiet():
		consoleLevel = ""
	case getVerbose():
		level = "debug"
		consoleLevel = "debug"
	case runsGenerate(cmd) && showProgress(cfg):
		// The live view owns stderr.
		consoleLevel = "warn"
	}

	if err := logging.Init(logging.Config{
		Level:        level,
		Path:         cfg.LogPath(),
		ConsoleLevel: consoleLevel,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(rootCmd.OutOrStdout(), format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// runsGenerate reports whether cmd is the generate command or the root
// command, which runs generate when no subcommand is given.
func runsGenerate(cmd *cobra.Command) bool {
	return cmd.Name() == "generate" || !cmd.HasParent()
}
