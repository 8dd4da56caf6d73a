// Package verify checks an emitted fixture stream for the structural
// guarantees consumers rely on: parents precede children, a single root,
// causally ordered timestamps, size and extension rules per kind, and
// checksums shared by items with the same parent.
package verify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/ident"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
)

var logger = logging.Get("verify")

// Rule names reported in violations.
const (
	RuleDecode         = "decode"
	RuleParentOrder    = "parent-order"
	RuleSingleRoot     = "single-root"
	RuleIDOrder        = "id-order"
	RuleDepth          = "depth"
	RuleTimestampOrder = "timestamp-order"
	RuleFolderShape    = "folder-shape"
	RuleFileShape      = "file-shape"
	RuleChecksum       = "checksum"
)

// DefaultMaxViolations caps how many violations a report keeps.
const DefaultMaxViolations = 100

// maxLineSize bounds a single NDJSON line.
const maxLineSize = 1 << 20

// Options configures a verification.
type Options struct {
	// MaxViolations caps stored violations. Counting continues past it.
	MaxViolations int

	// MinFileSize is the smallest acceptable file size. Defaults to 1 KiB.
	MinFileSize int64

	// Vocabulary, when set, also checks file extensions against it.
	Vocabulary *vocab.Vocabulary
}

// Violation is one broken rule.
type Violation struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.ID == "" {
		return fmt.Sprintf("line %d: %s: %s", v.Line, v.Rule, v.Message)
	}
	return fmt.Sprintf("line %d (%s): %s: %s", v.Line, v.ID, v.Rule, v.Message)
}

// Report summarizes a verification.
type Report struct {
	Items          int         `json:"items"`
	Folders        int         `json:"folders"`
	Files          int         `json:"files"`
	Roots          int         `json:"roots"`
	MaxDepth       int         `json:"max_depth"`
	ViolationCount int         `json:"violation_count"`
	Violations     []Violation `json:"violations,omitempty"`
}

// OK reports whether no rule was broken.
func (r *Report) OK() bool {
	return r.ViolationCount == 0
}

type folderInfo struct {
	depth int
	// childSum is the checksum shared by this folder's children, once seen.
	childSum string
}

type checker struct {
	opts    Options
	report  *Report
	folders map[string]*folderInfo
	lastID  string
	line    int
}

// Verify reads NDJSON records from r and checks every rule.
func Verify(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	if opts.MaxViolations <= 0 {
		opts.MaxViolations = DefaultMaxViolations
	}
	if opts.MinFileSize <= 0 {
		opts.MinFileSize = types.KiB
	}
	c := &checker{
		opts:    opts,
		report:  &Report{},
		folders: make(map[string]*folderInfo),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	for sc.Scan() {
		c.line++
		if c.line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return c.report, err
			}
		}

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			c.fail("", RuleDecode, "%v", err)
			continue
		}
		c.check(&rec)
	}
	if err := sc.Err(); err != nil {
		return c.report, fmt.Errorf("reading records: %w", err)
	}

	if c.report.Items > 0 && c.report.Roots == 0 {
		c.fail("", RuleSingleRoot, "no root folder")
	}

	logger.Debug("verification finished",
		"items", c.report.Items,
		"violations", c.report.ViolationCount)
	return c.report, nil
}

// VerifyFile verifies the file at path. Compressed files (.gz, .zst, .xz)
// are decoded on the fly.
func VerifyFile(ctx context.Context, path string, opts Options) (*Report, error) {
	in, err := output.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	return Verify(ctx, in, opts)
}

func (c *checker) fail(id, rule, format string, args ...any) {
	c.report.ViolationCount++
	if len(c.report.Violations) >= c.opts.MaxViolations {
		return
	}
	c.report.Violations = append(c.report.Violations, Violation{
		Line:    c.line,
		ID:      id,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *checker) check(r *record.Record) {
	c.report.Items++

	if c.lastID != "" && !ident.Less(c.lastID, r.ID) {
		c.fail(r.ID, RuleIDOrder, "id does not follow %s", c.lastID)
	}
	c.lastID = r.ID

	c.checkPlacement(r)
	c.checkTimes(r)

	switch r.Type {
	case record.KindFolder:
		c.report.Folders++
		c.checkFolder(r)
	case record.KindFile:
		c.report.Files++
		c.checkFile(r)
	default:
		c.fail(r.ID, RuleDecode, "unknown type %q", r.Type)
	}

	if r.Depth > c.report.MaxDepth {
		c.report.MaxDepth = r.Depth
	}
	if r.MD5 != r.Checksum {
		c.fail(r.ID, RuleChecksum, "checksum %s differs from md5 %s", r.Checksum, r.MD5)
	}
}

func (c *checker) checkPlacement(r *record.Record) {
	if r.IsRoot() {
		c.report.Roots++
		if c.report.Roots > 1 {
			c.fail(r.ID, RuleSingleRoot, "additional root folder")
		}
		if r.Depth != 0 {
			c.fail(r.ID, RuleDepth, "root depth %d", r.Depth)
		}
		c.folders[r.ID] = &folderInfo{depth: r.Depth}
		return
	}

	parent, ok := c.folders[r.ParentID]
	if !ok {
		c.fail(r.ID, RuleParentOrder, "parent %s not emitted earlier as a folder", r.ParentID)
	} else {
		if r.Depth != parent.depth+1 {
			c.fail(r.ID, RuleDepth, "depth %d under parent of depth %d", r.Depth, parent.depth)
		}
		switch {
		case parent.childSum == "":
			parent.childSum = r.MD5
		case parent.childSum != r.MD5:
			c.fail(r.ID, RuleChecksum, "md5 %s differs from sibling md5 %s", r.MD5, parent.childSum)
		}
	}

	if r.Type == record.KindFolder {
		if _, dup := c.folders[r.ID]; dup {
			c.fail(r.ID, RuleIDOrder, "duplicate folder id")
		}
		c.folders[r.ID] = &folderInfo{depth: r.Depth}
	}
}

func (c *checker) checkTimes(r *record.Record) {
	created, modified, accessed, indexed, err := r.Times()
	if err != nil {
		c.fail(r.ID, RuleTimestampOrder, "unparseable timestamp: %v", err)
		return
	}
	if modified.Before(created) || accessed.Before(modified) || indexed.Before(accessed) {
		c.fail(r.ID, RuleTimestampOrder, "created %s, modified %s, accessed %s, indexed %s",
			r.CreatedAt, r.ModifiedAt, r.AccessedAt, r.IndexedAt)
	}
}

func (c *checker) checkFolder(r *record.Record) {
	if r.Size != 0 {
		c.fail(r.ID, RuleFolderShape, "folder size %d", r.Size)
	}
	if r.Extension != "" {
		c.fail(r.ID, RuleFolderShape, "folder extension %q", r.Extension)
	}
	if !r.IsDirectory || r.IsFile {
		c.fail(r.ID, RuleFolderShape, "kind flags do not mark a folder")
	}
}

func (c *checker) checkFile(r *record.Record) {
	if r.Size < c.opts.MinFileSize {
		c.fail(r.ID, RuleFileShape, "file size %d below %d", r.Size, c.opts.MinFileSize)
	}
	if r.Extension == "" {
		c.fail(r.ID, RuleFileShape, "file without extension")
	} else if v := c.opts.Vocabulary; v != nil && !v.HasExtension(r.Extension) {
		c.fail(r.ID, RuleFileShape, "extension %q not in vocabulary", r.Extension)
	}
	if !r.IsFile || r.IsDirectory {
		c.fail(r.ID, RuleFileShape, "kind flags do not mark a file")
	}
	if r.FileFields == nil {
		c.fail(r.ID, RuleFileShape, "missing file fields")
	}
}
