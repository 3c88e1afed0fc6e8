package gxterminal

// --------------------------------------------------------------------------
//
//	Gurux Ltd
//
// Filename:        $HeadURL$
//
// Version:         $Revision$,
//
//	$Date$
//	$Author$
//
// # Copyright (c) Gurux Ltd
//
// ---------------------------------------------------------------------------
//
//	DESCRIPTION
//
// This file is a part of Gurux Device Framework.
//
// Gurux Device Framework is Open Source software; you can redistribute it
// and/or modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2 of the License.
// Gurux Device Framework is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// More information of Gurux products: https://www.gurux.org
//
// This code is licensed under the GNU General Public License v2.
// Full text may be retrieved at http://www.gnu.org/licenses/gpl-2.0.txt
// ---------------------------------------------------------------------------

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateReady
	stateClosed
)

const (
	defaultHistoryLimit = 100
	defaultPollInterval = 20 * time.Millisecond
	defaultReadChunk    = 1024
)

// ReceiveHandler is called by the background receiver for every inbound
// chunk.
type ReceiveHandler func(data []byte)

// GXSession owns a Transport exclusively and translates user-facing send
// requests into transport-level bytes: plain text with optional CR/LF
// suffixes, or HEX mode input decoded to raw bytes. Inbound data is polled
// with Poll or delivered through the background receiver.
//
// A session moves from uninitialized to ready with Open and to closed with
// Close. A transient I/O failure never closes the session; the caller
// decides whether to retry or close.
type GXSession struct {
	mu    sync.Mutex
	t     Transport
	state sessionState
	hist  *history
	rx    *receiveBuffer

	pollInterval time.Duration

	receiving bool
	stop      chan struct{}
	wg        sync.WaitGroup

	cbMu       sync.RWMutex
	onReceived ReceiveHandler
	onErr      ErrorHandler
}

// NewGXSession creates a session owning the given transport. The session is
// the sole entity permitted to call the transport from then on, and Close
// closes the transport if it is still open.
func NewGXSession(t Transport) *GXSession {
	return &GXSession{
		t:            t,
		hist:         newHistory(defaultHistoryLimit),
		rx:           newReceiveBuffer(),
		pollInterval: defaultPollInterval,
	}
}

// SetHistoryLimit sets the maximum number of retained history entries.
func (s *GXSession) SetHistoryLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 {
		s.hist.limit = limit
	}
}

// SetPollInterval sets how often the background receiver polls the
// transport. The value is picked up by the next StartReceiver.
func (s *GXSession) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.pollInterval = d
	}
}

// SetOnReceived registers a handler invoked by the background receiver for
// every inbound chunk.
func (s *GXSession) SetOnReceived(value ReceiveHandler) {
	s.cbMu.Lock()
	s.onReceived = value
	s.cbMu.Unlock()
}

// SetOnError registers a handler for background receiver failures.
func (s *GXSession) SetOnError(value ErrorHandler) {
	s.cbMu.Lock()
	s.onErr = value
	s.cbMu.Unlock()
}

// Open opens the owned transport and makes the session ready. Opening a
// ready session is a no-op; a closed session cannot be reopened.
func (s *GXSession) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateReady:
		return nil
	case stateClosed:
		return &SessionError{Op: "open", Err: ErrNotReady}
	}
	if err := s.t.Open(); err != nil {
		return &SessionError{Op: "open", Err: err}
	}
	s.state = stateReady
	return nil
}

// OpenRetry opens the session, retrying at a constant interval while the
// transport reports the resource unavailable. Useful for devices that are
// slow to enumerate or momentarily held by another process.
func (s *GXSession) OpenRetry(interval time.Duration, maxRetries uint64) error {
	op := func() error {
		err := s.Open()
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxRetries))
}

// Send encodes text and writes it to the transport. Empty text is a no-op.
// In HEX mode the text is decoded as whitespace-separated hexadecimal byte
// pairs and no CR/LF suffix is appended; in plain mode "\r" and "\n" are
// appended per the flags. On success the trimmed pre-suffix text is added to
// the history.
func (s *GXSession) Send(text string, hexMode, appendCR, appendLF bool) error {
	s.mu.Lock()
	if s.state != stateReady {
		s.mu.Unlock()
		return &SessionError{Op: "send", Err: ErrNotReady}
	}
	t := s.t
	s.mu.Unlock()
	if text == "" {
		return nil
	}
	data, err := encodePayload(text, hexMode, appendCR, appendLF)
	if err != nil {
		return err
	}
	// The write runs without the session lock so Close can always reach the
	// transport and unblock a stalled transmission.
	if len(data) != 0 {
		if err := t.Write(data); err != nil {
			return &SessionError{Op: "send", Err: err}
		}
	}
	s.mu.Lock()
	s.hist.add(strings.TrimSpace(text))
	s.mu.Unlock()
	return nil
}

// Poll returns up to maxSize inbound bytes. An empty result means no data is
// pending right now, which is not an error. While the background receiver is
// running Poll drains its buffer instead of reading the transport, so the
// transport keeps a single reader.
func (s *GXSession) Poll(maxSize int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReady {
		return nil, &SessionError{Op: "poll", Err: ErrNotReady}
	}
	if s.receiving {
		return s.rx.Next(maxSize), nil
	}
	data, err := s.t.Read(maxSize)
	if err != nil {
		return nil, &SessionError{Op: "poll", Err: err}
	}
	return data, nil
}

// InWaiting reports the number of inbound bytes available to Poll.
func (s *GXSession) InWaiting() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReady {
		return 0, &SessionError{Op: "inwaiting", Err: ErrNotReady}
	}
	if s.receiving {
		return s.rx.Len(), nil
	}
	n, err := s.t.InWaiting()
	if err != nil {
		return 0, &SessionError{Op: "inwaiting", Err: err}
	}
	return n, nil
}

// History returns a copy of the command history, most recently added last.
func (s *GXSession) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.list()
}

// HistoryAt returns the stored entry verbatim for re-population.
func (s *GXSession) HistoryAt(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.at(index)
}

// SetDTR sets the DTR control line on the owned transport.
func (s *GXSession) SetDTR(on bool) {
	s.t.SetDTR(on)
}

// SetRTS sets the RTS control line on the owned transport.
func (s *GXSession) SetRTS(on bool) {
	s.t.SetRTS(on)
}

// StartReceiver starts a goroutine that polls the transport and feeds the
// receive buffer and the OnReceived handler. Starting a running receiver is
// a no-op.
func (s *GXSession) StartReceiver() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReady {
		return &SessionError{Op: "receiver", Err: ErrNotReady}
	}
	if s.receiving {
		return nil
	}
	s.stop = make(chan struct{})
	s.receiving = true
	s.wg.Add(1)
	go s.receiver(s.stop, s.pollInterval)
	return nil
}

// StopReceiver stops the background receiver and waits for it to exit.
// Buffered data stays available to Poll and WaitFor.
func (s *GXSession) StopReceiver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopReceiverLocked()
}

func (s *GXSession) stopReceiverLocked() {
	if !s.receiving {
		return
	}
	s.receiving = false
	close(s.stop)
	s.stop = nil
	s.wg.Wait()
}

func (s *GXSession) receiver(stop chan struct{}, interval time.Duration) {
	defer func() {
		// Done before taking the lock: stopReceiverLocked waits on the
		// WaitGroup while holding the session mutex.
		s.wg.Done()
		s.mu.Lock()
		if s.stop == stop {
			s.receiving = false
			s.stop = nil
		}
		s.mu.Unlock()
	}()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		data, err := s.t.Read(defaultReadChunk)
		if err != nil {
			// The port went away for good. Poll falls back to the transport
			// once receiving is cleared.
			if IsNotOpen(err) {
				return
			}
			// A transient failure is reported and the polling continues.
			s.errorf(&SessionError{Op: "receive", Err: err})
			continue
		}
		if len(data) != 0 {
			s.rx.Append(data)
			s.receivef(data)
		}
	}
}

// WaitFor blocks until the receive buffer contains the pattern or maxWait
// passes, and returns everything up to and including the pattern. A timeout
// yields an empty result, not an error. The background receiver must be
// running.
func (s *GXSession) WaitFor(pattern []byte, maxWait time.Duration) ([]byte, error) {
	s.mu.Lock()
	if s.state != stateReady {
		s.mu.Unlock()
		return nil, &SessionError{Op: "waitfor", Err: ErrNotReady}
	}
	if !s.receiving {
		s.mu.Unlock()
		return nil, &SessionError{Op: "waitfor", Err: errors.New("receiver is not running")}
	}
	s.mu.Unlock()

	index := s.rx.Search(pattern, 0, maxWait)
	if index < 0 {
		return nil, nil
	}
	return s.rx.Get(index), nil
}

// Close stops the receiver, closes the owned transport and moves the
// session to the closed state. Closing twice is a no-op.
func (s *GXSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return nil
	}
	s.stopReceiverLocked()
	s.state = stateClosed
	if s.t.IsOpen() {
		if err := s.t.Close(); err != nil {
			return &SessionError{Op: "close", Err: err}
		}
	}
	return nil
}

func (s *GXSession) receivef(data []byte) {
	s.cbMu.RLock()
	cb := s.onReceived
	s.cbMu.RUnlock()
	if cb != nil {
		cb(data)
	}
}

func (s *GXSession) errorf(err error) {
	s.cbMu.RLock()
	cb := s.onErr
	s.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}
