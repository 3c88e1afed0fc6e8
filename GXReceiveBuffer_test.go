package gxterminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiveBuffer_Next(t *testing.T) {
	b := newReceiveBuffer()
	assert.Nil(t, b.Next(10))

	b.Append([]byte("abcdef"))
	assert.Equal(t, []byte("abcd"), b.Next(4))
	assert.Equal(t, []byte("ef"), b.Next(4))
	assert.Nil(t, b.Next(4))
}

func TestReceiveBuffer_Get(t *testing.T) {
	b := newReceiveBuffer()
	b.Append([]byte("hello\r\nworld"))

	assert.Equal(t, []byte("hello\r\n"), b.Get(7))
	assert.Equal(t, []byte("world"), b.Get(-1))
	assert.Equal(t, 0, b.Len())
}

func TestReceiveBuffer_SearchImmediate(t *testing.T) {
	b := newReceiveBuffer()
	b.Append([]byte("OK\r\n"))

	index := b.Search([]byte("\r\n"), 0, 0)
	assert.Equal(t, 4, index)
}

func TestReceiveBuffer_SearchAcrossChunks(t *testing.T) {
	b := newReceiveBuffer()
	// The terminator is split across two appends.
	b.Append([]byte("OK\r"))

	done := make(chan int, 1)
	go func() {
		done <- b.Search([]byte("\r\n"), 0, time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Append([]byte("\n"))

	select {
	case index := <-done:
		assert.Equal(t, 4, index)
	case <-time.After(2 * time.Second):
		t.Fatal("search did not complete")
	}
}

func TestReceiveBuffer_SearchTimeout(t *testing.T) {
	b := newReceiveBuffer()
	b.Append([]byte("no terminator here"))

	index := b.Search([]byte("\r\n"), 0, 10*time.Millisecond)
	assert.Equal(t, -1, index)
}

func TestReceiveBuffer_SearchMinLen(t *testing.T) {
	b := newReceiveBuffer()
	b.Append([]byte("abc"))

	assert.Equal(t, 0, b.Search(nil, 3, 0))
	assert.Equal(t, -1, b.Search(nil, 4, 0))
}
