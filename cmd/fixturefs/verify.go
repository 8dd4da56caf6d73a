package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/manifest"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/verify"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check a fixture file's structural invariants",
	Long: `Stream a fixture file and check that:
  - every parent is emitted before its children
  - there is exactly one root and ids increase
  - created <= modified <= accessed for every record
  - folders have size 0 and no extension, files have an extension and
    a size within the configured range
  - siblings in the same folder share one checksum

NDJSON files may be compressed (.gz, .zst, .xz). The command exits non-zero
when any rule is broken.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var (
	verifyMaxViolations int
	verifyJSON          bool
)

func init() {
	verifyCmd.Flags().IntVar(&verifyMaxViolations, "max-violations", verify.DefaultMaxViolations,
		"maximum number of violations to report")
	verifyCmd.Flags().BoolVarP(&verifyJSON, "json", "j", false, "print the report as JSON")
	rootCmd.AddCommand(verifyCmd)
}

// runVerify is the verify command handler.
func runVerify(cmd *cobra.Command, args []string) error {
	path, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := verifyOptions(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, verr := verify.VerifyFile(ctx, path, opts)
	elapsed := time.Since(start)

	result := manifest.Result{ElapsedMS: elapsed.Milliseconds()}
	if report != nil {
		result.Folders = report.Folders
		result.Files = report.Files
		result.Items = report.Items
		result.Violations = report.ViolationCount
	}
	if verr != nil {
		result.Error = verr.Error()
	}
	recordHistory(cfg, manifest.OpVerify, manifest.Params{Output: path}, result)

	if verr != nil {
		return fmt.Errorf("failed to verify %s: %w", path, verr)
	}

	w := cmd.OutOrStdout()
	if verifyJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if !getQuiet() {
		printReport(w, path, report, elapsed)
	}

	if !report.OK() {
		return fmt.Errorf("%s: %d violation(s)", path, report.ViolationCount)
	}
	return nil
}

// verifyOptions derives verification settings from the configuration.
func verifyOptions(cfg *config.Config) (verify.Options, error) {
	minSize, _, err := cfg.FileSizeRange()
	if err != nil {
		return verify.Options{}, err
	}

	opts := verify.Options{
		MaxViolations: verifyMaxViolations,
		MinFileSize:   minSize,
	}
	if cfg.Vocabulary != "" {
		v, err := vocab.Load(cfg.Vocabulary)
		if err != nil {
			return verify.Options{}, err
		}
		opts.Vocabulary = v
	} else {
		opts.Vocabulary = vocab.Default()
	}
	return opts, nil
}

// printReport writes a human-readable verification report.
func printReport(w io.Writer, path string, r *verify.Report, elapsed time.Duration) {
	status := output.SuccessStyle.Render("OK")
	if !r.OK() {
		status = output.WarningStyle.Render("FAILED")
	}

	fmt.Fprintf(w, "%s %s\n", status, path)
	fmt.Fprintf(w, "  items:     %s\n", humanize.Comma(int64(r.Items)))
	fmt.Fprintf(w, "  folders:   %s\n", humanize.Comma(int64(r.Folders)))
	fmt.Fprintf(w, "  files:     %s\n", humanize.Comma(int64(r.Files)))
	fmt.Fprintf(w, "  max depth: %d\n", r.MaxDepth)
	fmt.Fprintf(w, "  elapsed:   %s\n", elapsed.Round(time.Millisecond))

	if r.OK() {
		return
	}
	fmt.Fprintf(w, "\n%d violation(s)", r.ViolationCount)
	if len(r.Violations) < r.ViolationCount {
		fmt.Fprintf(w, ", first %d shown", len(r.Violations))
	}
	fmt.Fprintln(w, ":")
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
}
