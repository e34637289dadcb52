package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileSet_Push(t *testing.T) {
	set := NewFileSet("/a")
	assert.Equal(t, 1, set.Len())

	set.Push("/b")
	set.Push("/a")

	assert.Equal(t, []string{"/a", "/b", "/a"}, set.Paths)
	assert.Equal(t, 3, set.Len())
}
