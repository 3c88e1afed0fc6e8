package gxterminal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_ConsecutiveDuplicates(t *testing.T) {
	h := newHistory(10)
	h.add("a")
	h.add("a")
	h.add("b")
	h.add("a")
	assert.Equal(t, []string{"a", "b", "a"}, h.list())
}

func TestHistory_IgnoresEmpty(t *testing.T) {
	h := newHistory(10)
	h.add("")
	assert.Empty(t, h.list())
}

func TestHistory_Bound(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 5; i++ {
		h.add(fmt.Sprintf("cmd%d", i))
	}
	assert.Equal(t, []string{"cmd2", "cmd3", "cmd4"}, h.list())
}

func TestHistory_At(t *testing.T) {
	h := newHistory(10)
	h.add("first")
	h.add("second")

	entry, err := h.at(0)
	require.NoError(t, err)
	assert.Equal(t, "first", entry)

	_, err = h.at(2)
	assert.True(t, errors.Is(err, ErrHistoryIndex))
}

func TestHistory_ListIsCopy(t *testing.T) {
	h := newHistory(10)
	h.add("a")
	list := h.list()
	list[0] = "mutated"
	entry, err := h.at(0)
	require.NoError(t, err)
	assert.Equal(t, "a", entry)
}
