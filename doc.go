// Package gxterminal provides the hardware-agnostic core of a serial
// terminal: a Transport abstraction over byte-oriented channels and a
// Session layer that encodes outgoing text (plain or HEX mode), relays raw
// inbound bytes and keeps a bounded command history.
//
// Features
//
//   - Transport contract: open/close/read/write/in-waiting plus optional
//     DTR/RTS control line signaling (no-op on backends without the signal).
//   - GXSerial backend: configurable serial settings (port, baud rate, data
//     bits, parity, stop bits) on Linux, Windows and macOS.
//   - Session: HEX mode decoding, CR/LF suffixes, command history with
//     consecutive duplicate collapsing, non-blocking Poll.
//   - Background receiver: optional polling goroutine feeding a receive
//     buffer with terminator search (WaitFor).
//   - Tracing: configurable trace level for sent/received/error/info.
//   - MockTransport for tests.
//
// # Construction
//
// Build a transport, hand it to a session and open:
//
//	media := gxterminal.NewGXSerial("/dev/ttyUSB0", 115200, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
//	sess := gxterminal.NewGXSession(media)
//	if err := sess.Open(); err != nil {
//	    // handle connect error
//	}
//	defer sess.Close()
//
//	// send a line and poll the reply
//	_ = sess.Send("AT", false, true, true)
//	reply, _ := sess.Poll(256)
//
// # HEX mode
//
// With HEX mode enabled the text is parsed as whitespace-separated runs of
// hexadecimal digits ("41 42" or "4142") and sent as the exact raw byte
// sequence; CR/LF suffixes are never appended to HEX input.
//
// # Errors
//
// Recoverable conditions (nothing to read right now) are empty successful
// results, never errors. Failures are typed: transport errors wrap
// ErrUnavailable, ErrNotOpen or ErrIO, and session errors wrap the
// transport cause so errors.Is works through the chain.
//
// # Notes
//
// The zero value of GXSerial is not ready for use; always construct via
// NewGXSerial. A session owns its transport exclusively; callers must not
// touch the transport after the handoff.
package gxterminal
