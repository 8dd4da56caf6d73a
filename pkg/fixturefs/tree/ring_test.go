package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func folder(i int) Folder {
	return Folder{ID: fmt.Sprintf("id_%08d", i), Name: fmt.Sprintf("f%d", i), Path: "/root"}
}

func TestRing_PushAndEvict(t *testing.T) {
	r := newRing(3)
	assert.Equal(t, 0, r.Len())

	for i := 1; i <= 3; i++ {
		r.Push(folder(i))
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []Folder{folder(1), folder(2), folder(3)}, r.Entries())

	r.Push(folder(4))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []Folder{folder(2), folder(3), folder(4)}, r.Entries(), "oldest is evicted first")
	assert.Equal(t, folder(2), r.At(0))
	assert.Equal(t, folder(4), r.At(2))

	for i := 5; i <= 10; i++ {
		r.Push(folder(i))
	}
	assert.Equal(t, []Folder{folder(8), folder(9), folder(10)}, r.Entries())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := newRing(0)
	r.Push(folder(1))
	r.Push(folder(2))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, folder(2), r.At(0))
}

func TestFolder_ChildPath(t *testing.T) {
	assert.Equal(t, "/root", Folder{Name: "root"}.ChildPath())
	assert.Equal(t, "/root/sales/abcdefgh", Folder{Name: "abcdefgh", Path: "/root/sales"}.ChildPath())
}
