// Package manifest keeps a history of generation and verification runs, one
// JSON file per run.
package manifest

import "time"

// OperationType names what a run did.
type OperationType string

const (
	// OpGenerate records a fixture generation.
	OpGenerate OperationType = "generate"
	// OpVerify records a fixture verification.
	OpVerify OperationType = "verify"
)

// Entry is one recorded run.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Params    Params        `json:"params"`
	Result    Result        `json:"result"`
}

// Params are the settings a run used.
type Params struct {
	Output       string `json:"output"`
	Format       string `json:"format,omitempty"`
	Compression  string `json:"compression,omitempty"`
	TotalItems   int    `json:"total_items,omitempty"`
	MinPerFolder int    `json:"min_per_folder,omitempty"`
	Seed         uint64 `json:"seed,omitempty"`
	Now          string `json:"now,omitempty"`
}

// Result is what a run produced.
type Result struct {
	Folders       int    `json:"folders"`
	Files         int    `json:"files"`
	Items         int    `json:"items"`
	Bytes         int64  `json:"bytes,omitempty"`
	TotalFileSize int64  `json:"total_file_size,omitempty"`
	ElapsedMS     int64  `json:"elapsed_ms"`
	Violations    int    `json:"violations,omitempty"`
	Store         string `json:"store,omitempty"`
	Upload        string `json:"upload,omitempty"`
	Error         string `json:"error,omitempty"`
}
