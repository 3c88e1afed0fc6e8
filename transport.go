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

// Transport is an abstraction over a byte-oriented communication channel
// such as a serial port. It decouples the session layer from concrete
// hardware backends and allows testing with mock implementations.
//
// A Transport is not required to be safe for concurrent invocation of the
// same method from multiple goroutines. Callers needing concurrent send and
// receive serialize access externally, typically with one goroutine owning
// writes and another owning reads.
type Transport interface {
	// Open establishes the connection using configuration fixed at
	// construction. The returned error wraps ErrUnavailable when the
	// underlying resource cannot be acquired.
	Open() error

	// Close releases the connection and unblocks any in-flight operation.
	// Closing an already closed transport is a no-op, not an error.
	Close() error

	// IsOpen reflects the current connection state. It never blocks.
	IsOpen() bool

	// Read returns up to maxSize bytes currently available. When no data is
	// pending the result is empty and the error is nil; callers must be able
	// to distinguish "nothing to read right now" from a broken link. The
	// returned error wraps ErrNotOpen on a closed transport and ErrIO on a
	// detected disconnect.
	Read(maxSize int) ([]byte, error)

	// Write transmits all bytes or fails. Partial writes are retried
	// internally and never exposed to the caller as partial success.
	Write(data []byte) error

	// InWaiting reports the number of bytes ready to be read without
	// consuming them.
	InWaiting() (int, error)

	// SetDTR sets the DTR control line. Backends without the signal treat
	// the call as a silent no-op.
	SetDTR(on bool)

	// SetRTS sets the RTS control line. Backends without the signal treat
	// the call as a silent no-op.
	SetRTS(on bool)
}
