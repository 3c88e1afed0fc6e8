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
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrUnavailable is returned when the underlying resource cannot be
	// acquired: device missing, permission denied or port already in use.
	ErrUnavailable = errors.New("transport unavailable")

	// ErrNotOpen is returned when an operation is attempted on a closed
	// transport.
	ErrNotOpen = errors.New("transport is not open")

	// ErrIO is returned when a read or write fails after the connection
	// was established, for example when the device is unplugged.
	ErrIO = errors.New("transport i/o failure")

	// ErrNotReady is returned when a session operation is attempted before
	// Open or after Close.
	ErrNotReady = errors.New("session is not ready")

	// ErrInvalidHex is returned when HEX mode input is not a sequence of
	// whitespace-separated hexadecimal byte pairs.
	ErrInvalidHex = errors.New("invalid hex input")

	// ErrHistoryIndex is returned when a history entry is requested with an
	// out of range index.
	ErrHistoryIndex = errors.New("history index out of range")
)

// TransportError describes a failed transport operation.
type TransportError struct {
	Op  string // Operation that failed (e.g., "open", "read", "write")
	Err error  // Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SessionError describes a failed session operation. The underlying
// transport error, if any, is preserved in the error chain so callers can
// test it with errors.Is.
type SessionError struct {
	Op  string // Operation that failed (e.g., "send", "poll")
	Err error  // Underlying error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsNotOpen returns true if the error indicates a closed transport.
func IsNotOpen(err error) bool {
	return errors.Is(err, ErrNotOpen)
}

// IsUnavailable returns true if the error indicates the resource could not
// be acquired.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// GetTransportError extracts a TransportError from an error chain, if present.
func GetTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
