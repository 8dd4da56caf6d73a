package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/config"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/manifest"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/store"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/synth"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/tree"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/upload"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a fixture file",
	Long: `Generate a synthetic hierarchy of folder and file records.

The tree always starts with a root folder and one folder per department.
Further folders nest under a bounded set of active parents until the folder
budget (total / (min-per-folder + 1)) is used. Every folder except the root
then receives min-per-folder files and the rest of the budget is spread at
random.

With a fixed --seed and --now the output is byte-for-byte reproducible.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

// uploadAfter is set by --upload.
var uploadAfter bool

func init() {
	rootCmd.AddCommand(generateCmd)
}

// addGenerateFlags registers the generation flags on cmd. They are
// persistent so that 'fixturefs' and 'fixturefs generate' accept the same set.
func addGenerateFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.IntP("total", "n", config.DefaultTotalItems, "target number of items, folders included")
	flags.IntP("min-per-folder", "m", config.DefaultMinPerFolder, "files placed in every non-root folder")
	flags.StringP("output", "o", config.DefaultOutput, `output file ("-" for stdout)`)
	flags.StringP("format", "f", config.DefaultFormat,
		"record format ("+strings.Join(output.Available(), ", ")+")")
	flags.String("compression", config.DefaultCompression,
		"output compression (auto, "+strings.Join(output.Codecs(), ", ")+")")
	flags.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	flags.String("now", "", "fixed generation time, RFC 3339 (default: wall clock)")
	flags.String("store", "", "also load records into a Badger store at this directory")
	flags.BoolVar(&uploadAfter, "upload", false, "upload the finished file using the upload.* settings")
	flags.BoolVar(&noProgress, "no-progress", false, "log progress instead of drawing the live view on stderr")
	flags.String("summary", config.DefaultSummary,
		"summary format ("+strings.Join(output.SummaryFormats(), ", ")+")")
}

// runGenerate is the generate command handler.
func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, genErr := generate(ctx, cfg)
	recordHistory(cfg, manifest.OpGenerate, generateParams(cfg, summary), generateResult(summary, genErr))
	if genErr != nil {
		return genErr
	}

	if getQuiet() {
		return nil
	}
	w := cmd.OutOrStdout()
	if summary.Output == output.Stdout {
		w = cmd.ErrOrStderr()
	}
	return printSummary(w, cfg.Summary, summary)
}

// generate runs the whole pipeline and returns what it produced. The
// summary is filled as far as the run got, even on error.
func generate(ctx context.Context, cfg *config.Config) (summary *output.Summary, err error) {
	summary = &output.Summary{
		Output:      cfg.Output,
		Format:      cfg.Format,
		TargetItems: cfg.TotalItems,
		Seed:        cfg.Seed,
	}
	if summary.Seed == 0 {
		summary.Seed = uint64(time.Now().UnixNano())
	}

	opts := tree.DefaultOptions()
	opts.TotalItems = cfg.TotalItems
	opts.MinPerFolder = cfg.MinPerFolder
	opts.PromoteProbability = cfg.PromoteProbability
	opts.MaxActiveParents = cfg.MaxActiveParents
	if err := opts.Validate(); err != nil {
		return summary, err
	}

	s, err := newSynthesizer(cfg, summary.Seed)
	if err != nil {
		return summary, err
	}

	dst, err := output.Open(cfg.Output, cfg.Compression)
	if err != nil {
		return summary, err
	}
	summary.Output = dst.Path
	summary.Compression = dst.Codec

	sink, err := output.NewSink(cfg.Format, dst.Writer())
	if err != nil {
		_ = dst.Close()
		return summary, err
	}

	var (
		db        *store.Store
		storeSink *store.Sink
	)
	if cfg.Store.Path != "" {
		db, err = openStore(cfg.Store.Path)
		if err != nil {
			_ = dst.Close()
			return summary, err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("closing fixture store: %w", cerr))
			}
		}()
		storeSink = db.Sink()
		sink = output.MultiSink{sink, storeSink}
		summary.Store = cfg.Store.Path
	}

	var ui *progressUI
	if showProgress(cfg) {
		ui = newProgressUI(opts.TotalItems, os.Stderr)
		opts.ProgressEvery = progressEvery
		opts.Progress = ui.Report
	}

	b, err := tree.New(opts, s, sink)
	if err != nil {
		if storeSink != nil {
			storeSink.Cancel()
		}
		_ = dst.Close()
		return summary, err
	}

	printVerbose("Generating %d items (min %d per folder, seed %d) into %s",
		opts.TotalItems, opts.MinPerFolder, summary.Seed, summary.Output)

	if ui != nil {
		ui.Start()
	}
	stats, buildErr := b.Build(ctx)
	if ui != nil {
		if uiErr := ui.Finish(stats.Items, buildErr); uiErr != nil {
			printVerbose("Progress view failed: %v", uiErr)
		}
	}
	summary.Folders = stats.Folders
	summary.Files = stats.Files
	summary.Items = stats.Items
	summary.TargetFolders = stats.TargetFolders
	summary.TotalFileSize = stats.TotalFileSize
	summary.Elapsed = stats.Elapsed

	closeErr := errors.Join(sink.Close(), dst.Close())
	summary.Bytes = dst.Bytes()
	if buildErr != nil {
		return summary, buildErr
	}
	if closeErr != nil {
		return summary, closeErr
	}

	if db != nil {
		if err := db.SetRun(&store.Run{
			Seed:      summary.Seed,
			Folders:   stats.Folders,
			Files:     stats.Files,
			Items:     stats.Items,
			CreatedAt: s.Now(),
		}); err != nil {
			return summary, err
		}
	}

	if uploadAfter {
		res, err := uploadOutput(ctx, cfg, dst)
		if err != nil {
			return summary, err
		}
		summary.Upload = res.URL()
	}

	return summary, nil
}

// newSynthesizer builds the record synthesizer from cfg with a PCG source
// seeded by seed.
func newSynthesizer(cfg *config.Config, seed uint64) (*synth.Synthesizer, error) {
	v := vocab.Default()
	if cfg.Vocabulary != "" {
		loaded, err := vocab.Load(cfg.Vocabulary)
		if err != nil {
			return nil, err
		}
		v = loaded
	}

	minSize, maxSize, err := cfg.FileSizeRange()
	if err != nil {
		return nil, err
	}

	now, err := cfg.NowTime()
	if err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = time.Now()
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	return synth.New(v, rng, now, synth.WithSizeRange(minSize, maxSize))
}

// openStore opens the fixture store at path and clears any previous run.
func openStore(path string) (*store.Store, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Reset(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// uploadOutput publishes the closed destination file.
func uploadOutput(ctx context.Context, cfg *config.Config, dst *output.Destination) (upload.Result, error) {
	if dst.IsStdout() {
		return upload.Result{}, fmt.Errorf("cannot upload when writing to stdout")
	}
	client, err := upload.New(ctx, cfg.Upload)
	if err != nil {
		return upload.Result{}, err
	}
	return client.Upload(ctx, dst.Path)
}

// printSummary renders s with the named summary formatter.
func printSummary(w io.Writer, format string, s *output.Summary) error {
	formatter, err := output.GetSummary(format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, s); err != nil {
		return fmt.Errorf("formatting summary: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func generateParams(cfg *config.Config, s *output.Summary) manifest.Params {
	return manifest.Params{
		Output:       s.Output,
		Format:       cfg.Format,
		Compression:  s.Compression,
		TotalItems:   cfg.TotalItems,
		MinPerFolder: cfg.MinPerFolder,
		Seed:         s.Seed,
		Now:          cfg.Now,
	}
}

func generateResult(s *output.Summary, err error) manifest.Result {
	res := manifest.Result{
		Folders:       s.Folders,
		Files:         s.Files,
		Items:         s.Items,
		Bytes:         s.Bytes,
		TotalFileSize: s.TotalFileSize,
		ElapsedMS:     s.Elapsed.Milliseconds(),
		Store:         s.Store,
		Upload:        s.Upload,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// recordHistory appends a run to the manifest. Failures are reported but
// never fail the command.
func recordHistory(cfg *config.Config, op manifest.OperationType, params manifest.Params, result manifest.Result) {
	if !cfg.History.Enabled {
		return
	}
	m, err := manifest.New(cfg.History.Path)
	if err != nil {
		printVerbose("History disabled: %v", err)
		return
	}
	entry, err := m.Record(op, params, result)
	if err != nil {
		printError("failed to record history: %v", err)
		return
	}
	printVerbose("Recorded history entry %s", entry.ID)
}
