package gxterminal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadySession(t *testing.T) (*GXSession, *MockTransport) {
	t.Helper()
	mock := &MockTransport{}
	sess := NewGXSession(mock)
	require.NoError(t, sess.Open())
	return sess, mock
}

func TestSession_SendPlain(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		appendCR bool
		appendLF bool
		want     string
	}{
		{"no suffix", "hello", false, false, "hello"},
		{"cr only", "hello", true, false, "hello\r"},
		{"lf only", "hello", false, true, "hello\n"},
		{"cr and lf", "hello", true, true, "hello\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, mock := newReadySession(t)
			defer sess.Close()

			require.NoError(t, sess.Send(tt.text, false, tt.appendCR, tt.appendLF))
			assert.Equal(t, []byte(tt.want), mock.WriteData)
		})
	}
}

func TestSession_SendHex(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	// CR/LF flags are ignored in HEX mode.
	require.NoError(t, sess.Send("41 42", true, true, true))
	assert.Equal(t, []byte{0x41, 0x42}, mock.WriteData)
}

func TestSession_SendHexInvalid(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	err := sess.Send("41 4G", true, false, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidHex))
	assert.Empty(t, mock.WriteData)
	assert.Empty(t, sess.History())
}

func TestSession_SendEmpty(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	require.NoError(t, sess.Send("", true, true, true))
	assert.Empty(t, mock.Writes)
	assert.Empty(t, sess.History())
}

func TestSession_History(t *testing.T) {
	sess, _ := newReadySession(t)
	defer sess.Close()

	require.NoError(t, sess.Send("status", false, true, false))
	require.NoError(t, sess.Send("status", false, true, false))
	require.NoError(t, sess.Send("reset", false, true, false))

	assert.Equal(t, []string{"status", "reset"}, sess.History())

	entry, err := sess.HistoryAt(1)
	require.NoError(t, err)
	assert.Equal(t, "reset", entry)

	_, err = sess.HistoryAt(5)
	assert.True(t, errors.Is(err, ErrHistoryIndex))
	_, err = sess.HistoryAt(-1)
	assert.True(t, errors.Is(err, ErrHistoryIndex))
}

func TestSession_HistoryTrimsSuffix(t *testing.T) {
	sess, _ := newReadySession(t)
	defer sess.Close()

	require.NoError(t, sess.Send("  ping  ", false, true, true))
	assert.Equal(t, []string{"ping"}, sess.History())
}

func TestSession_PollEmpty(t *testing.T) {
	sess, _ := newReadySession(t)
	defer sess.Close()

	data, err := sess.Poll(10)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSession_PollRaw(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	mock.ReadData = []byte{0x41, 0x42, 0x0D, 0x0A}
	data, err := sess.Poll(10)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x42, 0x0D, 0x0A}, data)
}

func TestSession_PollRespectsMaxSize(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	mock.ReadData = []byte("abcdef")
	data, err := sess.Poll(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	data, err = sess.Poll(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), data)
}

func TestSession_SendTransportFailure(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	mock.WriteErr = &TransportError{Op: "write", Err: ErrNotOpen}
	err := sess.Send("hello", false, false, false)
	require.Error(t, err)

	var sessErr *SessionError
	require.True(t, errors.As(err, &sessErr))
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.Empty(t, sess.History())
}

func TestSession_NotReady(t *testing.T) {
	sess := NewGXSession(&MockTransport{})

	err := sess.Send("hello", false, false, false)
	assert.True(t, errors.Is(err, ErrNotReady))

	_, err = sess.Poll(10)
	assert.True(t, errors.Is(err, ErrNotReady))

	require.NoError(t, sess.Open())
	require.NoError(t, sess.Close())

	err = sess.Send("hello", false, false, false)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestSession_CloseTwice(t *testing.T) {
	sess, mock := newReadySession(t)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, mock.Closes)
	assert.False(t, mock.IsOpen())
}

func TestSession_CloseWithoutOpen(t *testing.T) {
	sess := NewGXSession(&MockTransport{})
	require.NoError(t, sess.Close())
}

func TestSession_ReopenAfterClose(t *testing.T) {
	sess, _ := newReadySession(t)
	require.NoError(t, sess.Close())

	err := sess.Open()
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestSession_OpenUnavailable(t *testing.T) {
	mock := &MockTransport{OpenErr: &TransportError{Op: "open", Err: ErrUnavailable}}
	sess := NewGXSession(mock)

	err := sess.Open()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	// The session never became ready.
	_, err = sess.Poll(10)
	assert.True(t, errors.Is(err, ErrNotReady))
}

// flakyTransport fails Open a fixed number of times before succeeding.
type flakyTransport struct {
	MockTransport
	failures int
}

func (f *flakyTransport) Open() error {
	if f.failures > 0 {
		f.failures--
		return &TransportError{Op: "open", Err: ErrUnavailable}
	}
	return f.MockTransport.Open()
}

func TestSession_OpenRetry(t *testing.T) {
	flaky := &flakyTransport{failures: 2}
	sess := NewGXSession(flaky)
	defer sess.Close()

	require.NoError(t, sess.OpenRetry(time.Millisecond, 5))
	assert.True(t, flaky.IsOpen())
}

func TestSession_OpenRetryGivesUp(t *testing.T) {
	flaky := &flakyTransport{failures: 10}
	sess := NewGXSession(flaky)
	defer sess.Close()

	err := sess.OpenRetry(time.Millisecond, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSession_Receiver(t *testing.T) {
	mock := &MockTransport{}
	served := false
	mock.ReadFunc = func(maxSize int) ([]byte, error) {
		if served {
			return nil, nil
		}
		served = true
		return []byte("OK\r\n"), nil
	}
	sess := NewGXSession(mock)
	sess.SetPollInterval(time.Millisecond)
	require.NoError(t, sess.Open())
	defer sess.Close()

	got := make(chan []byte, 1)
	sess.SetOnReceived(func(data []byte) {
		select {
		case got <- append([]byte(nil), data...):
		default:
		}
	})
	require.NoError(t, sess.StartReceiver())

	data, err := sess.WaitFor([]byte("\r\n"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("OK\r\n"), data)

	select {
	case chunk := <-got:
		assert.Equal(t, []byte("OK\r\n"), chunk)
	case <-time.After(time.Second):
		t.Fatal("receive handler was not invoked")
	}
}

func TestSession_ReceiverSurvivesTransientError(t *testing.T) {
	mock := &MockTransport{}
	calls := 0
	mock.ReadFunc = func(maxSize int) ([]byte, error) {
		calls++
		switch calls {
		case 1:
			return nil, &TransportError{Op: "read", Err: ErrIO}
		case 2:
			return []byte("data"), nil
		default:
			return nil, nil
		}
	}
	sess := NewGXSession(mock)
	sess.SetPollInterval(time.Millisecond)
	require.NoError(t, sess.Open())
	defer sess.Close()

	errs := make(chan error, 1)
	sess.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	require.NoError(t, sess.StartReceiver())

	// The failed read is reported and the receiver keeps polling, so the
	// data served right after the failure still arrives.
	data, err := sess.WaitFor([]byte("data"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, ErrIO))
	case <-time.After(time.Second):
		t.Fatal("error handler was not invoked")
	}
}

func TestSession_PollFallsBackAfterReceiverExits(t *testing.T) {
	mock := &MockTransport{}
	mock.ReadFunc = func(maxSize int) ([]byte, error) {
		return nil, &TransportError{Op: "read", Err: ErrNotOpen}
	}
	sess := NewGXSession(mock)
	sess.SetPollInterval(time.Millisecond)
	require.NoError(t, sess.Open())
	defer sess.Close()
	require.NoError(t, sess.StartReceiver())

	// The receiver stops on its own; Poll must reach the transport again
	// instead of serving the empty buffer forever.
	deadline := time.Now().Add(time.Second)
	for {
		_, err := sess.Poll(16)
		if err != nil {
			assert.True(t, IsNotOpen(err))
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poll never reached the transport after the receiver stopped")
		}
		time.Sleep(time.Millisecond)
	}
}

// blockingTransport parks Write until Close releases it, imitating a full
// driver TX queue that only a close can unblock.
type blockingTransport struct {
	MockTransport
	writeStarted chan struct{}
	release      chan struct{}
}

func (b *blockingTransport) Write(data []byte) error {
	close(b.writeStarted)
	<-b.release
	return &TransportError{Op: "write", Err: ErrNotOpen}
}

func (b *blockingTransport) Close() error {
	close(b.release)
	return b.MockTransport.Close()
}

func TestSession_CloseUnblocksInflightSend(t *testing.T) {
	tr := &blockingTransport{
		writeStarted: make(chan struct{}),
		release:      make(chan struct{}),
	}
	sess := NewGXSession(tr)
	require.NoError(t, sess.Open())

	sendDone := make(chan error, 1)
	go func() {
		sendDone <- sess.Send("hello", false, false, false)
	}()
	<-tr.writeStarted

	closeDone := make(chan error, 1)
	go func() {
		closeDone <- sess.Close()
	}()

	select {
	case err := <-closeDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close hung behind the in-flight Send")
	}
	assert.True(t, errors.Is(<-sendDone, ErrNotOpen))
}

func TestSession_WaitForTimeout(t *testing.T) {
	sess, _ := newReadySession(t)
	sess.SetPollInterval(time.Millisecond)
	defer sess.Close()

	require.NoError(t, sess.StartReceiver())
	data, err := sess.WaitFor([]byte("\n"), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSession_PollDrainsReceiverBuffer(t *testing.T) {
	mock := &MockTransport{}
	served := false
	mock.ReadFunc = func(maxSize int) ([]byte, error) {
		if served {
			return nil, nil
		}
		served = true
		return []byte("data"), nil
	}
	sess := NewGXSession(mock)
	sess.SetPollInterval(time.Millisecond)
	require.NoError(t, sess.Open())
	defer sess.Close()

	require.NoError(t, sess.StartReceiver())

	deadline := time.Now().Add(time.Second)
	var got []byte
	for time.Now().Before(deadline) {
		chunk, err := sess.Poll(16)
		require.NoError(t, err)
		got = append(got, chunk...)
		if len(got) >= 4 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, []byte("data"), got)
}

func TestSession_ControlLines(t *testing.T) {
	sess, mock := newReadySession(t)
	defer sess.Close()

	sess.SetDTR(true)
	sess.SetRTS(true)
	assert.True(t, mock.DTR)
	assert.True(t, mock.RTS)

	sess.SetDTR(false)
	assert.False(t, mock.DTR)
}
