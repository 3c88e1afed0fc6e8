package gxterminal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportErrorChain(t *testing.T) {
	err := &TransportError{Op: "open", Err: fmt.Errorf("%w: permission denied", ErrUnavailable)}

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "open")

	te, ok := GetTransportError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, "open", te.Op)
}

func TestSessionErrorPreservesTransportCause(t *testing.T) {
	cause := &TransportError{Op: "write", Err: ErrNotOpen}
	err := &SessionError{Op: "send", Err: cause}

	assert.True(t, IsNotOpen(err))

	te, ok := GetTransportError(err)
	require.True(t, ok)
	assert.Equal(t, "write", te.Op)
}
