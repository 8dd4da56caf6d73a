// Package vocab holds the fixed vocabularies that generated metadata is
// drawn from: users, departments, projects, tags, file extension categories,
// MIME types and the executable extension set.
package vocab

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DepartmentFolders is the number of top-level department folders created
// under the root of every generated tree.
const DepartmentFolders = 7

// MaxFileTags is the largest tag subset drawn for a file record.
const MaxFileTags = 5

// DefaultMIMEType is reported for extensions missing from the MIME table.
const DefaultMIMEType = "application/octet-stream"

// ErrEmptyVocabulary is returned by Validate when a required vocabulary is
// empty or too small to generate from.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// ErrDuplicateValue is returned by Validate when a list that must hold
// distinct values repeats one.
var ErrDuplicateValue = errors.New("duplicate vocabulary value")

// Category groups the extensions of one kind of content.
type Category struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}

// Vocabulary is the full set of value domains used by the synthesizer.
// Categories is a slice so that iteration order, and therefore seeded
// output, is stable.
type Vocabulary struct {
	Users          []string          `yaml:"users"`
	Departments    []string          `yaml:"departments"`
	Projects       []string          `yaml:"projects"`
	Tags           []string          `yaml:"tags"`
	Categories     []Category        `yaml:"categories"`
	MIMETypes      map[string]string `yaml:"mime_types"`
	Executables    []string          `yaml:"executables"`
	TextCategories []string          `yaml:"text_categories"`
	LineCategories []string          `yaml:"line_categories"`
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	users := make([]string, 0, 50)
	for i := 1; i <= 50; i++ {
		users = append(users, fmt.Sprintf("user%d", i))
	}

	projects := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		projects = append(projects, "Project_"+string(c))
	}

	return &Vocabulary{
		Users:       users,
		Departments: []string{"Engineering", "Marketing", "Sales", "HR", "Finance", "Operations", "Research"},
		Projects:    projects,
		Tags: []string{
			"important", "archived", "draft", "reviewed", "confidential", "public",
			"internal", "deprecated", "active", "pending", "approved", "rejected",
		},
		Categories: []Category{
			{Name: "documents", Extensions: []string{".txt", ".pdf", ".doc", ".docx", ".odt", ".rtf"}},
			{Name: "images", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp"}},
			{Name: "videos", Extensions: []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv"}},
			{Name: "audio", Extensions: []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a"}},
			{Name: "code", Extensions: []string{".py", ".js", ".java", ".cpp", ".c", ".go", ".rs", ".rb"}},
			{Name: "data", Extensions: []string{".json", ".xml", ".csv", ".yaml", ".sql", ".db"}},
			{Name: "archive", Extensions: []string{".zip", ".tar", ".gz", ".rar", ".7z"}},
		},
		MIMETypes: map[string]string{
			".txt":  "text/plain",
			".pdf":  "application/pdf",
			".doc":  "application/msword",
			".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			".jpg":  "image/jpeg",
			".png":  "image/png",
			".mp4":  "video/mp4",
			".mp3":  "audio/mpeg",
			".json": "application/json",
			".xml":  "application/xml",
			".zip":  "application/zip",
			".py":   "text/x-python",
			".js":   "text/javascript",
		},
		Executables:    []string{".py", ".sh", ".exe", ".bin"},
		TextCategories: []string{"documents", "code", "data"},
		LineCategories: []string{"code", "data"},
	}
}

// Validate reports configuration problems that would make generation
// degenerate. It is called before any item is produced.
func (v *Vocabulary) Validate() error {
	switch {
	case len(v.Users) == 0:
		return fmt.Errorf("%w: users", ErrEmptyVocabulary)
	case len(v.Departments) < DepartmentFolders:
		return fmt.Errorf("%w: need at least %d departments, have %d",
			ErrEmptyVocabulary, DepartmentFolders, len(v.Departments))
	case len(v.Projects) == 0:
		return fmt.Errorf("%w: projects", ErrEmptyVocabulary)
	case len(v.Tags) < MaxFileTags:
		return fmt.Errorf("%w: need at least %d tags, have %d",
			ErrEmptyVocabulary, MaxFileTags, len(v.Tags))
	case len(v.Categories) == 0:
		return fmt.Errorf("%w: categories", ErrEmptyVocabulary)
	}

	// Tags are sampled by distinct index and departments name sibling
	// folders, so both must be free of repeats.
	if d, ok := firstDuplicate(v.Tags); ok {
		return fmt.Errorf("%w: tag %q", ErrDuplicateValue, d)
	}
	if d, ok := firstDuplicate(v.Departments[:DepartmentFolders]); ok {
		return fmt.Errorf("%w: department %q", ErrDuplicateValue, d)
	}

	seen := make(map[string]struct{}, len(v.Categories))
	for _, c := range v.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category with no name", ErrEmptyVocabulary)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: category %q", ErrDuplicateValue, c.Name)
		}
		seen[c.Name] = struct{}{}

		if len(c.Extensions) == 0 {
			return fmt.Errorf("%w: category %q has no extensions", ErrEmptyVocabulary, c.Name)
		}
		for _, ext := range c.Extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return fmt.Errorf("category %q: invalid extension %q", c.Name, ext)
			}
		}
	}
	return nil
}

// MIMEType returns the MIME type for ext, or DefaultMIMEType when unmapped.
func (v *Vocabulary) MIMEType(ext string) string {
	if mt, ok := v.MIMETypes[ext]; ok {
		return mt
	}
	return DefaultMIMEType
}

// IsExecutable reports whether files with ext are marked executable.
func (v *Vocabulary) IsExecutable(ext string) bool {
	return contains(v.Executables, ext)
}

// HasEncoding reports whether files of category carry a text encoding.
func (v *Vocabulary) HasEncoding(category string) bool {
	return contains(v.TextCategories, category)
}

// HasLineCount reports whether files of category carry a line count.
func (v *Vocabulary) HasLineCount(category string) bool {
	return contains(v.LineCategories, category)
}

// HasExtension reports whether ext belongs to any category.
func (v *Vocabulary) HasExtension(ext string) bool {
	for _, c := range v.Categories {
		if contains(c.Extensions, ext) {
			return true
		}
	}
	return false
}

// Load reads a YAML vocabulary file and merges it over the defaults. Lists
// present in the file replace the default list; MIME entries are added to
// the default table.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	return Parse(data)
}

// Parse merges YAML vocabulary data over the defaults.
func Parse(data []byte) (*Vocabulary, error) {
	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}

	v := Default()
	if override.Users != nil {
		v.Users = override.Users
	}
	if override.Departments != nil {
		v.Departments = override.Departments
	}
	if override.Projects != nil {
		v.Projects = override.Projects
	}
	if override.Tags != nil {
		v.Tags = override.Tags
	}
	if override.Categories != nil {
		v.Categories = override.Categories
	}
	if override.Executables != nil {
		v.Executables = override.Executables
	}
	if override.TextCategories != nil {
		v.TextCategories = override.TextCategories
	}
	if override.LineCategories != nil {
		v.LineCategories = override.LineCategories
	}
	for ext, mt := range override.MIMETypes {
		v.MIMETypes[ext] = mt
	}

	return v, nil
}

// firstDuplicate returns the first value that appears twice in list.
func firstDuplicate(list []string) (string, bool) {
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		if _, dup := seen[item]; dup {
			return item, true
		}
		seen[item] = struct{}{}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
