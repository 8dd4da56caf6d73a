// Package tree grows the synthetic folder hierarchy and distributes files
// across it. Every item is synthesized and handed to a sink as soon as it is
// created, parents strictly before children.
package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/ident"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
)

var logger = logging.Get("tree")

// Name lengths for generated folders and files.
const (
	FolderNameLength = 8
	FileNameLength   = 12
)

// RootName is the name of the root folder.
const RootName = "root"

var (
	// ErrInvalidConfig is returned by New for unusable options.
	ErrInvalidConfig = errors.New("invalid tree configuration")

	// ErrSink wraps failures reported by the record sink.
	ErrSink = errors.New("record sink failed")
)

// Synthesizer produces records and owns the random source. It is satisfied
// by *synth.Synthesizer.
type Synthesizer interface {
	Folder(id, parentID, name, pathCtx string) *record.Record
	File(id, parentID, name, pathCtx, ext, category string) *record.Record
	PickExtension() (ext, category string)
	RandomName(n int) string
	IntN(n int) int
	Float64() float64
	Vocabulary() *vocab.Vocabulary
}

// Phase names the stage a progress report comes from.
type Phase string

const (
	PhaseFolders   Phase = "folders"
	PhaseFloor     Phase = "floor"
	PhaseSpillover Phase = "spillover"
)

// Progress is reported every Options.ProgressEvery items.
type Progress struct {
	Phase   Phase
	Items   int
	Folders int
	Files   int
}

// Stats summarizes a finished build.
type Stats struct {
	Folders       int
	Files         int
	Items         int
	TargetFolders int
	TotalFileSize int64
	Elapsed       time.Duration
}

// Builder runs one generation. It is not safe for concurrent use.
type Builder struct {
	opts  Options
	synth Synthesizer
	sink  output.Sink

	ids     *ident.Allocator
	active  *ring
	folders []Folder
	stats   Stats
	built   bool
}

// New validates opts and returns a builder that draws records from s and
// writes them to sink.
func New(opts Options, s Synthesizer, sink output.Sink) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: nil synthesizer", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	if err := s.Vocabulary().Validate(); err != nil {
		return nil, err
	}

	return &Builder{
		opts:   opts,
		synth:  s,
		sink:   sink,
		ids:    ident.NewAllocator(ident.DefaultPrefix, ident.DefaultWidth),
		active: newRing(opts.MaxActiveParents),
	}, nil
}

// Build emits the whole hierarchy. The sink is not closed.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	if b.built {
		return b.stats, fmt.Errorf("tree: builder already used")
	}
	b.built = true

	start := time.Now()
	b.stats.TargetFolders = b.opts.TargetFolders()

	logger.Info("generation started",
		"total", b.opts.TotalItems,
		"min_per_folder", b.opts.MinPerFolder,
		"target_folders", b.stats.TargetFolders)

	if err := b.growFolders(ctx); err != nil {
		return b.finish(start), err
	}
	logger.Info("folders created", "count", b.stats.Folders, "target", b.stats.TargetFolders)

	if err := b.distributeFiles(ctx); err != nil {
		return b.finish(start), err
	}

	stats := b.finish(start)
	logger.Info("generation finished",
		"items", stats.Items,
		"folders", stats.Folders,
		"files", stats.Files,
		"elapsed", stats.Elapsed)
	return stats, nil
}

func (b *Builder) finish(start time.Time) Stats {
	b.stats.Elapsed = time.Since(start)
	return b.stats
}

// Folders returns the realized non-root folders in creation order.
func (b *Builder) Folders() []Folder {
	return append([]Folder(nil), b.folders...)
}

func (b *Builder) growFolders(ctx context.Context) error {
	if err := b.emit(ctx, PhaseFolders, b.synth.Folder(ident.RootID, "", RootName, "")); err != nil {
		return err
	}

	root := Folder{ID: ident.RootID, Name: RootName}
	for _, dept := range b.synth.Vocabulary().Departments[:vocab.DepartmentFolders] {
		f := Folder{ID: b.ids.Next(), Name: strings.ToLower(dept), Path: root.ChildPath()}
		if err := b.emit(ctx, PhaseFolders, b.synth.Folder(f.ID, root.ID, f.Name, f.Path)); err != nil {
			return err
		}
		b.folders = append(b.folders, f)
		b.active.Push(f)
	}

	remaining := b.stats.TargetFolders - b.stats.Items
	for remaining > 0 && b.active.Len() > 0 {
		parent := b.active.At(b.synth.IntN(b.active.Len()))

		f := Folder{
			ID:   b.ids.Next(),
			Name: b.synth.RandomName(FolderNameLength),
			Path: parent.ChildPath(),
		}
		if err := b.emit(ctx, PhaseFolders, b.synth.Folder(f.ID, parent.ID, f.Name, f.Path)); err != nil {
			return err
		}
		b.folders = append(b.folders, f)
		remaining--

		if b.synth.Float64() < b.opts.PromoteProbability {
			b.active.Push(f)
		}
	}
	return nil
}

func (b *Builder) distributeFiles(ctx context.Context) error {
	remaining := b.opts.TotalItems - b.stats.Items
	if remaining <= 0 {
		logger.Warn("item budget exhausted by fixed folders",
			"total", b.opts.TotalItems, "emitted", b.stats.Items)
		return nil
	}
	logger.Debug("distributing files", "count", remaining, "folders", len(b.folders))

	for _, f := range b.folders {
		if remaining <= 0 {
			break
		}
		n := min(b.opts.MinPerFolder, remaining)
		for i := 0; i < n; i++ {
			if err := b.emitFile(ctx, PhaseFloor, f); err != nil {
				return err
			}
		}
		remaining -= n
	}

	for ; remaining > 0; remaining-- {
		f := b.folders[b.synth.IntN(len(b.folders))]
		if err := b.emitFile(ctx, PhaseSpillover, f); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) emitFile(ctx context.Context, phase Phase, parent Folder) error {
	ext, category := b.synth.PickExtension()
	name := b.synth.RandomName(FileNameLength) + ext
	r := b.synth.File(b.ids.Next(), parent.ID, name, parent.ChildPath(), ext, category)
	return b.emit(ctx, phase, r)
}

func (b *Builder) emit(ctx context.Context, phase Phase, r *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.sink.Write(r); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrSink, r.ID, err)
	}

	b.stats.Items++
	if r.Type == record.KindFolder {
		b.stats.Folders++
	} else {
		b.stats.Files++
		b.stats.TotalFileSize += r.Size
	}

	if every := b.opts.ProgressEvery; every > 0 && b.stats.Items%every == 0 {
		logger.Info("generated items", "count", b.stats.Items, "phase", string(phase))
		if b.opts.Progress != nil {
			b.opts.Progress(Progress{
				Phase:   phase,
				Items:   b.stats.Items,
				Folders: b.stats.Folders,
				Files:   b.stats.Files,
			})
		}
	}
	return nil
}
