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
	"bytes"
	"sync"
	"time"
)

// receiveBuffer collects inbound chunks from the session receiver and lets
// callers drain raw bytes or wait for a terminator pattern.
type receiveBuffer struct {
	mu   sync.Mutex
	buf  []byte
	wait chan struct{}
}

func newReceiveBuffer() *receiveBuffer {
	return &receiveBuffer{wait: make(chan struct{})}
}

func (b *receiveBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	old := b.wait
	b.wait = make(chan struct{})
	b.mu.Unlock()
	close(old)
}

func (b *receiveBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Next removes and returns up to max buffered bytes. It never waits.
func (b *receiveBuffer) Next(max int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) == 0 {
		return nil
	}
	n := len(b.buf)
	if max > 0 && n > max {
		n = max
	}
	ret := append([]byte(nil), b.buf[:n]...)
	b.buf = b.buf[n:]
	return ret
}

// Get removes and returns the first count bytes. Count -1 drains the buffer.
func (b *receiveBuffer) Get(count int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if count == -1 || count >= len(b.buf) {
		ret := b.buf
		b.buf = nil
		return ret
	}
	ret := append([]byte(nil), b.buf[:count]...)
	b.buf = b.buf[count:]
	return ret
}

// waitChange blocks until ch is closed or the deadline passes. It returns
// false when the deadline is already spent or maxWait was zero.
func waitChange(ch chan struct{}, deadline time.Time, maxWait time.Duration) bool {
	if maxWait <= 0 {
		return false
	}
	rem := time.Until(deadline)
	if rem <= 0 {
		return false
	}
	timer := time.NewTimer(rem)
	select {
	case <-ch:
		if !timer.Stop() {
			<-timer.C
		}
		return true
	case <-timer.C:
		return false
	}
}

// Search waits until the buffer holds at least minLen bytes and, when a
// pattern is given, until the pattern is present. It returns the index just
// past the pattern (or 0 when only minLen was requested), or -1 when maxWait
// passes first.
func (b *receiveBuffer) Search(pattern []byte, minLen int, maxWait time.Duration) int {
	if minLen < 0 {
		minLen = 0
	}
	deadline := time.Now().Add(maxWait)

	// Pattern not seen yet: keep the last len(pattern)-1 bytes as the scan
	// start. For example, if pattern is "abcd" and the buffer ends with
	// "ab", the next chunk may start with "cd".
	overlap := len(pattern) - 1
	if overlap < 0 {
		overlap = 0
	}

	lastStart := 0
	for {
		b.mu.Lock()
		if len(b.buf) >= minLen {
			if len(pattern) == 0 {
				b.mu.Unlock()
				return 0
			}
			start := lastStart
			if start > len(b.buf) {
				start = len(b.buf)
			}
			if i := bytes.Index(b.buf[start:], pattern); i >= 0 {
				pos := start + i
				b.mu.Unlock()
				return pos + len(pattern)
			}
			nextStart := len(b.buf) - overlap
			if nextStart < 0 {
				nextStart = 0
			}
			lastStart = nextStart
		}
		ch := b.wait
		b.mu.Unlock()

		if !waitChange(ch, deadline, maxWait) {
			return -1
		}
	}
}
