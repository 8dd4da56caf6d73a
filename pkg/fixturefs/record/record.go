// Package record defines the flat JSON object emitted for every generated
// folder or file.
package record

import "time"

// Kind distinguishes folders from files.
type Kind string

const (
	// KindFolder marks a folder record.
	KindFolder Kind = "folder"
	// KindFile marks a file record.
	KindFile Kind = "file"
)

// TimeLayout is the timestamp layout used in records (RFC 3339, seconds).
const TimeLayout = time.RFC3339

// Record is one generated item. Fields shared by both kinds live on Record
// itself; kind-specific fields live on the embedded pointers, so a folder
// carries no file fields in its JSON and vice versa.
type Record struct {
	ID       string `json:"id" yaml:"id"`
	ParentID string `json:"parent_id" yaml:"parent_id"`

	Name        string `json:"name" yaml:"name"`
	Type        Kind   `json:"type" yaml:"type"`
	Depth       int    `json:"depth" yaml:"depth"`
	IsDirectory bool   `json:"is_directory" yaml:"is_directory"`
	IsFile      bool   `json:"is_file" yaml:"is_file"`
	Extension   string `json:"extension" yaml:"extension"`

	Size          int64    `json:"size" yaml:"size"`
	MetadataTypes []string `json:"metadata_types" yaml:"metadata_types"`

	CreatedAt  string `json:"created_at" yaml:"created_at"`
	ModifiedAt string `json:"modified_at" yaml:"modified_at"`
	AccessedAt string `json:"accessed_at" yaml:"accessed_at"`
	IndexedAt  string `json:"indexed_at" yaml:"indexed_at"`

	SizeBytes int64 `json:"size_bytes" yaml:"size_bytes"`

	Owner          string `json:"owner" yaml:"owner"`
	CreatedBy      string `json:"created_by" yaml:"created_by"`
	ModifiedBy     string `json:"modified_by" yaml:"modified_by"`
	Group          string `json:"group" yaml:"group"`
	Permissions    string `json:"permissions" yaml:"permissions"`
	PermissionCode int    `json:"permission_code" yaml:"permission_code"`
	IsReadable     bool   `json:"is_readable" yaml:"is_readable"`
	IsWritable     bool   `json:"is_writable" yaml:"is_writable"`
	IsExecutable   bool   `json:"is_executable" yaml:"is_executable"`

	Department     string   `json:"department" yaml:"department"`
	Project        string   `json:"project" yaml:"project"`
	Tags           []string `json:"tags" yaml:"tags"`
	Category       string   `json:"category" yaml:"category"`
	Classification string   `json:"classification" yaml:"classification"`

	StorageTier        string `json:"storage_tier" yaml:"storage_tier"`
	CompressionEnabled bool   `json:"compression_enabled" yaml:"compression_enabled"`
	EncryptionEnabled  bool   `json:"encryption_enabled" yaml:"encryption_enabled"`
	BackupEnabled      bool   `json:"backup_enabled" yaml:"backup_enabled"`
	ReplicationFactor  int    `json:"replication_factor" yaml:"replication_factor"`

	Version      string `json:"version" yaml:"version"`
	VersionCount int    `json:"version_count" yaml:"version_count"`
	IsLatest     bool   `json:"is_latest" yaml:"is_latest"`

	Description    string `json:"description" yaml:"description"`
	MD5            string `json:"md5" yaml:"md5"`
	SHA256         string `json:"sha256" yaml:"sha256"`
	Checksum       string `json:"checksum" yaml:"checksum"`
	UUID           string `json:"uuid" yaml:"uuid"`
	Inode          int    `json:"inode" yaml:"inode"`
	MountPoint     string `json:"mount_point" yaml:"mount_point"`
	FilesystemType string `json:"filesystem_type" yaml:"filesystem_type"`

	*FolderFields `yaml:",inline,omitempty"`
	*FileFields   `yaml:",inline,omitempty"`
}

// FolderFields are present only on folder records.
type FolderFields struct {
	ItemCount int   `json:"item_count" yaml:"item_count"`
	TotalSize int64 `json:"total_size" yaml:"total_size"`
}

// FileFields are present only on file records. Nullable fields are pointers
// and are written as JSON null when not applicable.
type FileFields struct {
	SizeKB              float64 `json:"size_kb" yaml:"size_kb"`
	SizeMB              float64 `json:"size_mb" yaml:"size_mb"`
	MIMEType            string  `json:"mime_type" yaml:"mime_type"`
	Encoding            *string `json:"encoding" yaml:"encoding"`
	LineCount           *int    `json:"line_count" yaml:"line_count"`
	CompressionRatio    float64 `json:"compression_ratio" yaml:"compression_ratio"`
	EncryptionAlgorithm *string `json:"encryption_algorithm" yaml:"encryption_algorithm"`
	LastBackup          string  `json:"last_backup" yaml:"last_backup"`
	BlockSize           int64   `json:"block_size" yaml:"block_size"`
	BlocksAllocated     int64   `json:"blocks_allocated" yaml:"blocks_allocated"`
}

// IsRoot reports whether r is the root folder (a folder with no parent).
func (r *Record) IsRoot() bool {
	return r.Type == KindFolder && r.ParentID == ""
}

// Times parses the four causally ordered timestamps.
func (r *Record) Times() (created, modified, accessed, indexed time.Time, err error) {
	if created, err = time.Parse(TimeLayout, r.CreatedAt); err != nil {
		return
	}
	if modified, err = time.Parse(TimeLayout, r.ModifiedAt); err != nil {
		return
	}
	if accessed, err = time.Parse(TimeLayout, r.AccessedAt); err != nil {
		return
	}
	indexed, err = time.Parse(TimeLayout, r.IndexedAt)
	return
}

// FormatTime renders t in the record timestamp layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
