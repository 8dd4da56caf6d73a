package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultSummaryFormat is used when no summary format is configured.
const DefaultSummaryFormat = "pretty"

// Summary describes a finished generation run.
type Summary struct {
	// Output is where records were written ("-" for stdout).
	Output string `json:"output"`

	// Format is the record format name.
	Format string `json:"format"`

	// Compression is the codec applied to the output.
	Compression string `json:"compression"`

	Folders       int `json:"folders"`
	Files         int `json:"files"`
	Items         int `json:"items"`
	TargetItems   int `json:"target_items"`
	TargetFolders int `json:"target_folders"`

	// Bytes is the number of bytes written to the destination.
	Bytes int64 `json:"bytes"`

	// TotalFileSize is the sum of the synthesized file sizes.
	TotalFileSize int64 `json:"total_file_size"`

	Elapsed time.Duration `json:"elapsed_ns"`
	Seed    uint64        `json:"seed"`

	// Store and Upload name the optional extra destinations.
	Store  string `json:"store,omitempty"`
	Upload string `json:"upload,omitempty"`
}

// Slack returns how many items were emitted beyond the target.
func (s *Summary) Slack() int {
	if s.Items > s.TargetItems {
		return s.Items - s.TargetItems
	}
	return 0
}

// Rate returns items generated per second.
func (s *Summary) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Items) / s.Elapsed.Seconds()
}

// SummaryFormatter renders a Summary.
type SummaryFormatter interface {
	Format(w *bytes.Buffer, s *Summary) error
}

var (
	summaryMu         sync.RWMutex
	summaryFormatters = make(map[string]SummaryFormatter)
)

// RegisterSummary adds a summary formatter.
func RegisterSummary(name string, f SummaryFormatter) {
	summaryMu.Lock()
	defer summaryMu.Unlock()
	summaryFormatters[name] = f
}

// GetSummary returns the named summary formatter.
func GetSummary(name string) (SummaryFormatter, error) {
	summaryMu.RLock()
	defer summaryMu.RUnlock()

	f, ok := summaryFormatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown summary format: %s", name)
	}
	return f, nil
}

// SummaryFormats returns the sorted names of registered summary formatters.
func SummaryFormats() []string {
	summaryMu.RLock()
	defer summaryMu.RUnlock()

	names := make([]string, 0, len(summaryFormatters))
	for name := range summaryFormatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrettySummaryFormatter renders a styled box using lipgloss.
type PrettySummaryFormatter struct{}

// Format writes the styled summary.
func (f *PrettySummaryFormatter) Format(w *bytes.Buffer, s *Summary) error {
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", LabelStyle.Render(padRight(label, 9)), value)
	}

	lines := []string{
		TitleStyle.Render("fixturefs"),
		row("Output:", ValueStyle.Render(destination(s))),
		row("Items:", ValueStyle.Render(humanize.Comma(int64(s.Items)))+
			MutedStyle.Render(fmt.Sprintf(" (target %s)", humanize.Comma(int64(s.TargetItems))))),
		row("Folders:", ValueStyle.Render(humanize.Comma(int64(s.Folders)))+
			MutedStyle.Render(fmt.Sprintf(" (target %s)", humanize.Comma(int64(s.TargetFolders))))),
		row("Files:", ValueStyle.Render(humanize.Comma(int64(s.Files)))),
		row("Written:", SizeStyle.Render(humanize.IBytes(uint64(s.Bytes)))),
		row("Synth:", SizeStyle.Render(humanize.IBytes(uint64(s.TotalFileSize)))+
			MutedStyle.Render(" of fake file content")),
		row("Seed:", ValueStyle.Render(fmt.Sprintf("%d", s.Seed))),
	}
	if s.Store != "" {
		lines = append(lines, row("Store:", ValueStyle.Render(s.Store)))
	}
	if s.Upload != "" {
		lines = append(lines, row("Upload:", ValueStyle.Render(s.Upload)))
	}
	if slack := s.Slack(); slack > 0 {
		lines = append(lines, WarningStyle.Render(
			fmt.Sprintf("Target too small for the fixed folders: %d extra items", slack)))
	}
	lines = append(lines, SuccessStyle.Render(fmt.Sprintf("Done in %s (%s items/s)",
		formatDuration(s.Elapsed), humanize.Comma(int64(s.Rate())))))

	w.WriteString(SummaryBox.Render(strings.Join(lines, "\n")))
	w.WriteString("\n")
	return nil
}

// PlainSummaryFormatter renders unstyled key: value lines.
type PlainSummaryFormatter struct{}

// Format writes the plain summary.
func (f *PlainSummaryFormatter) Format(w *bytes.Buffer, s *Summary) error {
	fmt.Fprintf(w, "output: %s\n", destination(s))
	fmt.Fprintf(w, "items: %d\n", s.Items)
	fmt.Fprintf(w, "folders: %d\n", s.Folders)
	fmt.Fprintf(w, "files: %d\n", s.Files)
	fmt.Fprintf(w, "target_folders: %d\n", s.TargetFolders)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "seed: %d\n", s.Seed)
	fmt.Fprintf(w, "elapsed: %s\n", formatDuration(s.Elapsed))
	return nil
}

// JSONSummaryFormatter renders the summary as indented JSON.
type JSONSummaryFormatter struct{}

// Format writes the JSON summary.
func (f *JSONSummaryFormatter) Format(w *bytes.Buffer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func init() {
	RegisterSummary("pretty", &PrettySummaryFormatter{})
	RegisterSummary("plain", &PlainSummaryFormatter{})
	RegisterSummary("json", &JSONSummaryFormatter{})
}

var (
	_ SummaryFormatter = (*PrettySummaryFormatter)(nil)
	_ SummaryFormatter = (*PlainSummaryFormatter)(nil)
	_ SummaryFormatter = (*JSONSummaryFormatter)(nil)
)

func destination(s *Summary) string {
	out := s.Output
	if out == "-" || out == "" {
		out = "stdout"
	}
	if s.Compression != "" && s.Compression != CodecNone {
		out += " (" + s.Compression + ")"
	}
	return out
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
