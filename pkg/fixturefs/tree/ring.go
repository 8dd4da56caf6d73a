package tree

// Folder identifies a realized folder and where it sits.
type Folder struct {
	ID   string
	Name string
	// Path is the path context of the folder's parent.
	Path string
}

// ChildPath is the path context handed to the folder's children.
func (f Folder) ChildPath() string {
	return f.Path + "/" + f.Name
}

// ring is a fixed-capacity FIFO of folders. Pushing onto a full ring
// overwrites the oldest entry.
type ring struct {
	entries []Folder
	start   int // index of oldest entry
	count   int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{entries: make([]Folder, capacity)}
}

// Push appends f, evicting the oldest entry when full.
func (r *ring) Push(f Folder) {
	idx := (r.start + r.count) % len(r.entries)
	r.entries[idx] = f

	if r.count < len(r.entries) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.entries)
	}
}

// At returns the i-th entry, oldest first.
func (r *ring) At(i int) Folder {
	return r.entries[(r.start+i)%len(r.entries)]
}

// Len returns the number of entries held.
func (r *ring) Len() int {
	return r.count
}

// Entries returns a copy of all entries, oldest first.
func (r *ring) Entries() []Folder {
	out := make([]Folder, r.count)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}
