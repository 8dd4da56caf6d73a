// Package synth produces fully populated folder and file records. Every
// field is drawn from the vocabularies in package vocab or from a uniform
// distribution over the injected random source, so a seeded source and a
// fixed clock reproduce the same records.
package synth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/record"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/vocab"
	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Epoch is the earliest creation time a record can carry.
var Epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Default file size bounds, inclusive.
const (
	DefaultMinFileSize = types.KiB
	DefaultMaxFileSize = 100 * types.MiB
)

// Fixed value domains that are not worth exposing as vocabulary.
var (
	folderPermissions = []string{"rwxr-xr-x", "rwxrwxr-x", "rwx------", "rwxr-x---"}
	folderPermCodes   = []int{755, 775, 700, 750}
	filePermissions   = []string{"rw-r--r--", "rw-rw-r--", "rw-------", "rwxr-xr-x"}
	filePermCodes     = []int{644, 664, 600, 755}
	classifications   = []string{"public", "internal", "confidential", "restricted"}
	storageTiers      = []string{"hot", "warm", "cold", "archive"}
	encodings         = []string{"UTF-8", "ASCII", "ISO-8859-1"}
	encryptionAlgos   = []string{"AES-256", "AES-128", ""}
	folderMetaTypes   = []string{"folder", "directory", "container"}
)

const (
	mountPoint     = "/data"
	filesystemType = "ext4"
	letters        = "abcdefghijklmnopqrstuvwxyz"
	maxFolderTags  = 4
)

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSizeRange sets the inclusive file size bounds in bytes. The lower
// bound must be at least 1 KiB.
func WithSizeRange(minSize, maxSize int64) Option {
	return func(s *Synthesizer) {
		s.minSize = minSize
		s.maxSize = maxSize
	}
}

// WithEpoch overrides the earliest creation time.
func WithEpoch(t time.Time) Option {
	return func(s *Synthesizer) {
		s.epoch = t.UTC().Truncate(time.Second)
	}
}

// Synthesizer builds records. It is not safe for concurrent use.
type Synthesizer struct {
	vocab   *vocab.Vocabulary
	rng     *rand.Rand
	now     time.Time
	epoch   time.Time
	minSize int64
	maxSize int64
	title   cases.Caser
	uuids   *rngReader
}

// New returns a synthesizer drawing from v and rng. now is the generation
// time: every record's indexed_at, and the upper bound for all other
// timestamps. The vocabulary is validated here so that a bad configuration
// fails before anything is generated.
func New(v *vocab.Vocabulary, rng *rand.Rand, now time.Time, opts ...Option) (*Synthesizer, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil vocabulary", vocab.ErrEmptyVocabulary)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("synth: nil random source")
	}

	s := &Synthesizer{
		vocab:   v,
		rng:     rng,
		now:     now.UTC().Truncate(time.Second),
		epoch:   Epoch,
		minSize: DefaultMinFileSize,
		maxSize: DefaultMaxFileSize,
		title:   cases.Title(language.English),
		uuids:   &rngReader{rng: rng},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.minSize < types.KiB || s.maxSize < s.minSize {
		return nil, fmt.Errorf("synth: invalid file size range [%d, %d]", s.minSize, s.maxSize)
	}
	if s.epoch.After(s.now) {
		s.epoch = s.now
	}
	return s, nil
}

// Now returns the generation time shared by all records.
func (s *Synthesizer) Now() time.Time {
	return s.now
}

// Vocabulary returns the vocabulary records are drawn from.
func (s *Synthesizer) Vocabulary() *vocab.Vocabulary {
	return s.vocab
}

// Folder builds a folder record. pathCtx is the logical path of the parent
// folder; it determines depth and the checksum fields.
func (s *Synthesizer) Folder(id, parentID, name, pathCtx string) *record.Record {
	r := s.common(id, parentID, name, pathCtx)

	r.Type = record.KindFolder
	r.IsDirectory = true
	r.MetadataTypes = append([]string(nil), folderMetaTypes...)
	r.Permissions = pick(s.rng, folderPermissions)
	r.PermissionCode = pick(s.rng, folderPermCodes)
	r.IsExecutable = true
	r.Tags = s.sampleTags(maxFolderTags)
	r.Category = "directory"
	r.Version = "1.0"
	r.VersionCount = 1
	r.IsLatest = true
	r.Description = fmt.Sprintf("Folder containing %s related items", name)
	r.FolderFields = &record.FolderFields{}

	return r
}

// File builds a file record with the given extension and category.
func (s *Synthesizer) File(id, parentID, name, pathCtx, ext, category string) *record.Record {
	r := s.common(id, parentID, name, pathCtx)
	size := s.int64Between(s.minSize, s.maxSize)

	r.Type = record.KindFile
	r.IsFile = true
	r.Extension = ext
	r.Size = size
	r.SizeBytes = size
	r.MetadataTypes = []string{category, "file", extTag(ext)}
	r.Permissions = pick(s.rng, filePermissions)
	r.PermissionCode = pick(s.rng, filePermCodes)
	r.IsExecutable = s.vocab.IsExecutable(ext)
	r.Tags = s.sampleTags(vocab.MaxFileTags)
	r.Category = category
	r.Version = fmt.Sprintf("%d.%d", s.intBetween(1, 10), s.intBetween(0, 99))
	r.VersionCount = s.intBetween(1, 20)
	r.IsLatest = s.rng.IntN(2) == 1
	r.Description = s.title.String(category) + " file"

	modified, err := time.Parse(record.TimeLayout, r.ModifiedAt)
	if err != nil {
		modified = s.now
	}

	f := &record.FileFields{
		SizeKB:           types.RoundTo(float64(size)/float64(types.KiB), 2),
		SizeMB:           types.RoundTo(float64(size)/float64(types.MiB), 2),
		MIMEType:         s.vocab.MIMEType(ext),
		CompressionRatio: types.RoundTo(0.3+s.rng.Float64()*0.6, 2),
		LastBackup:       record.FormatTime(s.between(modified, s.now)),
		BlockSize:        types.BlockSize,
		BlocksAllocated:  size/types.BlockSize + 1,
	}
	if s.vocab.HasEncoding(category) {
		enc := pick(s.rng, encodings)
		f.Encoding = &enc
	}
	if s.vocab.HasLineCount(category) {
		n := s.intBetween(10, 10000)
		f.LineCount = &n
	}
	if algo := pick(s.rng, encryptionAlgos); algo != "" {
		f.EncryptionAlgorithm = &algo
	}
	r.FileFields = f

	return r
}

// PickExtension draws a category uniformly, then an extension within it.
func (s *Synthesizer) PickExtension() (ext, category string) {
	c := s.vocab.Categories[s.rng.IntN(len(s.vocab.Categories))]
	return pick(s.rng, c.Extensions), c.Name
}

// IntN returns a uniform int in [0, n) from the shared random source.
func (s *Synthesizer) IntN(n int) int {
	return s.rng.IntN(n)
}

// Float64 returns a uniform float in [0, 1) from the shared random source.
func (s *Synthesizer) Float64() float64 {
	return s.rng.Float64()
}

// RandomName returns n random lowercase letters.
func (s *Synthesizer) RandomName(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(letters[s.rng.IntN(len(letters))])
	}
	return sb.String()
}

// common fills the fields shared by folders and files.
func (s *Synthesizer) common(id, parentID, name, pathCtx string) *record.Record {
	created := s.between(s.epoch, s.now)
	modified := s.between(created, s.now)
	accessed := s.between(modified, s.now)
	sum := md5Hex(pathCtx)

	return &record.Record{
		ID:                 id,
		ParentID:           parentID,
		Name:               name,
		Depth:              Depth(pathCtx),
		CreatedAt:          record.FormatTime(created),
		ModifiedAt:         record.FormatTime(modified),
		AccessedAt:         record.FormatTime(accessed),
		IndexedAt:          record.FormatTime(s.now),
		Owner:              pick(s.rng, s.vocab.Users),
		CreatedBy:          pick(s.rng, s.vocab.Users),
		ModifiedBy:         pick(s.rng, s.vocab.Users),
		Group:              pick(s.rng, s.vocab.Departments),
		IsReadable:         true,
		IsWritable:         s.rng.IntN(2) == 1,
		Department:         pick(s.rng, s.vocab.Departments),
		Project:            pick(s.rng, s.vocab.Projects),
		Classification:     pick(s.rng, classifications),
		StorageTier:        pick(s.rng, storageTiers),
		CompressionEnabled: s.rng.IntN(2) == 1,
		EncryptionEnabled:  s.rng.IntN(2) == 1,
		BackupEnabled:      true,
		ReplicationFactor:  s.intBetween(1, 3),
		MD5:                sum,
		SHA256:             sha256Hex(pathCtx),
		Checksum:           sum,
		UUID:               s.newUUID(),
		Inode:              s.intBetween(1000000, 9999999),
		MountPoint:         mountPoint,
		FilesystemType:     filesystemType,
	}
}

// between returns a whole-second instant uniformly drawn from [start, end].
// A collapsed or inverted interval yields start.
func (s *Synthesizer) between(start, end time.Time) time.Time {
	span := int64(end.Sub(start) / time.Second)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(s.rng.Int64N(span+1)) * time.Second)
}

// sampleTags draws between 1 and upTo distinct tags.
func (s *Synthesizer) sampleTags(upTo int) []string {
	if upTo > len(s.vocab.Tags) {
		upTo = len(s.vocab.Tags)
	}
	k := s.intBetween(1, upTo)
	idx := s.rng.Perm(len(s.vocab.Tags))[:k]

	tags := make([]string, k)
	for i, j := range idx {
		tags[i] = s.vocab.Tags[j]
	}
	return tags
}

func (s *Synthesizer) newUUID() string {
	id, err := uuid.NewRandomFromReader(s.uuids)
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

// intBetween returns a uniform int in [lo, hi].
func (s *Synthesizer) intBetween(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

// int64Between returns a uniform int64 in [lo, hi].
func (s *Synthesizer) int64Between(lo, hi int64) int64 {
	return lo + s.rng.Int64N(hi-lo+1)
}

// Depth is the number of path separators in a path context.
func Depth(pathCtx string) int {
	return strings.Count(pathCtx, "/")
}

func pick[T any](rng *rand.Rand, list []T) T {
	return list[rng.IntN(len(list))]
}

func extTag(ext string) string {
	if len(ext) > 1 {
		return ext[1:]
	}
	return "unknown"
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// rngReader exposes a math/rand source as an io.Reader for uuid generation.
type rngReader struct {
	rng *rand.Rand
}

func (r *rngReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}
