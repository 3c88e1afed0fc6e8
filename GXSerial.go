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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TraceHandler is called when the serial port is opened, closed or moves
// data, gated by the configured trace level.
type TraceHandler func(e gxcommon.TraceEventArgs)

// ErrorHandler is called when a background failure cannot be returned to a
// caller, such as a control line change rejected by the driver.
type ErrorHandler func(err error)

// GXSerial is a serial port backed Transport. Connection configuration is
// fixed at construction and may be tuned with setters; setters applied to an
// open port reconfigure the hardware immediately.
type GXSerial struct {
	Port     string
	baudRate gxcommon.BaudRate
	dataBits int
	stopBits gxcommon.StopBits
	parity   gxcommon.Parity
	// The trace level specifies which types of trace messages are emitted.
	traceLevel gxcommon.TraceLevel

	mu   sync.Mutex
	cbMu sync.RWMutex

	bytesSent     uint64
	bytesReceived uint64

	//Called when the port is sending or receiving data.
	onTrace TraceHandler

	//Called on failures that have no caller to return to.
	onErr ErrorHandler

	s port
	// Printer for localized messages.
	p *message.Printer
}

// GXSerial implements Transport.
var _ Transport = (*GXSerial)(nil)

// NewGXSerial creates a GXSerial configured with the given serial port.
func NewGXSerial(port string,
	baudRate gxcommon.BaudRate,
	dataBits int,
	parity gxcommon.Parity,
	stopBits gxcommon.StopBits) *GXSerial {
	g := &GXSerial{Port: port, baudRate: baudRate, dataBits: dataBits, stopBits: stopBits, parity: parity}
	g.Localize(language.AmericanEnglish)
	return g
}

// GetPortNames returns list of available serial ports.
func GetPortNames() ([]string, error) {
	return getPortNames()
}

// BaudRate returns the used baud rate.
func (g *GXSerial) BaudRate() gxcommon.BaudRate {
	return g.baudRate
}

// SetBaudRate sets the used baud rate.
func (g *GXSerial) SetBaudRate(value gxcommon.BaudRate) error {
	g.baudRate = value
	if g.s.isOpen() {
		return g.s.setBaudRate(value)
	}
	return nil
}

// DataBits returns the amount of the data bits.
func (g *GXSerial) DataBits() int {
	return g.dataBits
}

// SetDataBits sets the amount of the data bits.
func (g *GXSerial) SetDataBits(value int) error {
	g.dataBits = value
	if g.s.isOpen() {
		return g.s.setDataBits(value)
	}
	return nil
}

// StopBits returns used stop bits.
func (g *GXSerial) StopBits() gxcommon.StopBits {
	return g.stopBits
}

// SetStopBits sets the used stop bits.
func (g *GXSerial) SetStopBits(value gxcommon.StopBits) error {
	g.stopBits = value
	if g.s.isOpen() {
		return g.s.setStopBits(value)
	}
	return nil
}

// Parity returns used parity.
func (g *GXSerial) Parity() gxcommon.Parity {
	return g.parity
}

// SetParity sets the used parity.
func (g *GXSerial) SetParity(value gxcommon.Parity) error {
	g.parity = value
	if g.s.isOpen() {
		return g.s.setParity(value)
	}
	return nil
}

// OutWaiting returns the number of bytes still queued for transmission.
func (g *GXSerial) OutWaiting() (int, error) {
	n, err := g.s.getBytesToWrite()
	if err != nil {
		return 0, &TransportError{Op: "outwaiting", Err: err}
	}
	return n, nil
}

// String returns the port configuration in one line.
func (g *GXSerial) String() string {
	return fmt.Sprintf("%s %s %d %s %s", g.Port, g.baudRate, g.dataBits, g.stopBits, g.parity)
}

// IsOpen implements Transport.
func (g *GXSerial) IsOpen() bool {
	return g.s.isOpen()
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// GetSettings returns the port configuration as an XML fragment, suitable
// for an external settings collaborator to persist.
func (g *GXSerial) GetSettings() string {
	var b strings.Builder
	if g.Port != "" {
		fmt.Fprintf(&b, "<Port>%s</Port>\n", xmlEscape(g.Port))
	}
	if g.baudRate != 0 {
		fmt.Fprintf(&b, "<Bps>%d</Bps>\n", g.baudRate)
	}
	if g.dataBits != 0 {
		fmt.Fprintf(&b, "<ByteSize>%d</ByteSize>\n", g.dataBits)
	}
	if g.stopBits != 0 {
		fmt.Fprintf(&b, "<StopBits>%d</StopBits>\n", g.stopBits)
	}
	if g.parity != 0 {
		fmt.Fprintf(&b, "<Parity>%d</Parity>\n", g.parity)
	}
	return b.String()
}

// SetSettings restores a configuration produced by GetSettings.
func (g *GXSerial) SetSettings(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	dec := xml.NewDecoder(strings.NewReader("<root>" + value + "</root>"))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "Port":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return err
			}
			g.Port = v
		case "Bps":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return err
			}
			g.baudRate, err = gxcommon.BaudRateParse(v)
			if err != nil {
				return err
			}
		case "ByteSize":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return err
			}
			g.dataBits, err = strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid ByteSize value: %v", err)
			}
		case "StopBits":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return err
			}
			g.stopBits, err = gxcommon.StopBitsParse(v)
			if err != nil {
				return err
			}
		case "Parity":
			var v string
			if err := dec.DecodeElement(&v, &se); err != nil {
				return err
			}
			g.parity, err = gxcommon.ParityParse(v)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// BytesSent returns the amount of bytes written since the last counter reset.
func (g *GXSerial) BytesSent() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bytesSent
}

// BytesReceived returns the amount of bytes read since the last counter reset.
func (g *GXSerial) BytesReceived() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bytesReceived
}

// ResetByteCounters resets the sent and received byte counters.
func (g *GXSerial) ResetByteCounters() {
	g.mu.Lock()
	g.bytesSent = 0
	g.bytesReceived = 0
	g.mu.Unlock()
}

// Validate checks that the configuration is complete enough for Open.
func (g *GXSerial) Validate() error {
	if g.Port == "" {
		return errors.New(g.p.Sprintf("msg.no_serial_port_selected"))
	}
	return nil
}

// GetTrace returns the used trace level.
func (g *GXSerial) GetTrace() gxcommon.TraceLevel {
	return g.traceLevel
}

// SetTrace sets the used trace level.
func (g *GXSerial) SetTrace(traceLevel gxcommon.TraceLevel) error {
	g.traceLevel = traceLevel
	return nil
}

// SetOnError registers a handler for failures that cannot be returned to a
// caller.
func (g *GXSerial) SetOnError(value ErrorHandler) {
	g.cbMu.Lock()
	g.onErr = value
	g.cbMu.Unlock()
}

// SetOnTrace registers a trace handler.
func (g *GXSerial) SetOnTrace(value TraceHandler) {
	g.cbMu.Lock()
	g.onTrace = value
	g.cbMu.Unlock()
}

// Open implements Transport. Opening an already open port is a no-op.
func (g *GXSerial) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.s.isOpen() {
		return nil
	}
	if err := g.Validate(); err != nil {
		return &TransportError{Op: "open", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	g.trace(gxcommon.TraceTypesInfo, g.p.Sprintf("msg.connecting_to", g.Port))
	if err := openPort(g); err != nil {
		terr := &TransportError{Op: "open", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
		g.trace(gxcommon.TraceTypesError, g.p.Sprintf("msg.connect_failed", g.Port, err))
		g.errorf(terr)
		return terr
	}
	g.trace(gxcommon.TraceTypesInfo, g.p.Sprintf("msg.connected_to", g.Port))
	return nil
}

// Write implements Transport. Partial writes are retried until all bytes
// are accepted by the driver.
func (g *GXSerial) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if str, err := gxcommon.ToString(data); err == nil {
		g.tracef(gxcommon.TraceTypesSent, "TX: %s", str)
	}
	for written := 0; written < len(data); {
		n, err := g.s.write(data[written:])
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		if n <= 0 {
			return &TransportError{Op: "write", Err: fmt.Errorf("%w: driver accepted no data", ErrIO)}
		}
		written += n
	}
	g.mu.Lock()
	g.bytesSent += uint64(len(data))
	g.mu.Unlock()
	return nil
}

// Read implements Transport. It returns up to maxSize bytes currently
// available and an empty result when nothing is pending.
func (g *GXSerial) Read(maxSize int) ([]byte, error) {
	data, err := g.s.read(maxSize)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}
	if len(data) != 0 {
		g.mu.Lock()
		g.bytesReceived += uint64(len(data))
		g.mu.Unlock()
		if str, serr := gxcommon.ToString(data); serr == nil {
			g.tracef(gxcommon.TraceTypesReceived, "RX: %s", str)
		}
	}
	return data, nil
}

// InWaiting implements Transport.
func (g *GXSerial) InWaiting() (int, error) {
	n, err := g.s.getBytesToRead()
	if err != nil {
		return 0, &TransportError{Op: "inwaiting", Err: err}
	}
	return n, nil
}

// SetDTR implements Transport. A rejected change is reported through the
// error handler.
func (g *GXSerial) SetDTR(on bool) {
	if err := g.s.setDtrEnable(on); err != nil {
		g.errorf(&TransportError{Op: "dtr", Err: err})
	}
}

// SetRTS implements Transport. A rejected change is reported through the
// error handler.
func (g *GXSerial) SetRTS(on bool) {
	if err := g.s.setRtsEnable(on); err != nil {
		g.errorf(&TransportError{Op: "rts", Err: err})
	}
}

// Close implements Transport. Closing an already closed port is a no-op.
func (g *GXSerial) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.s.isOpen() {
		return nil
	}
	g.trace(gxcommon.TraceTypesInfo, g.p.Sprintf("msg.closing_connection", g.Port))
	err := g.s.close()
	g.trace(gxcommon.TraceTypesInfo, g.p.Sprintf("msg.connection_closed", g.Port))
	return err
}

func (g *GXSerial) errorf(err error) {
	g.cbMu.RLock()
	cb := g.onErr
	g.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

func (g *GXSerial) tracef(traceType gxcommon.TraceTypes, fmtStr string, a ...any) {
	g.cbMu.RLock()
	cb := g.onTrace
	g.cbMu.RUnlock()
	if cb != nil && int(g.traceLevel) >= int(traceType) {
		cb(*gxcommon.NewTraceEventArgs(traceType, fmt.Sprintf(fmtStr, a...), ""))
	}
}

func (g *GXSerial) trace(traceType gxcommon.TraceTypes, message string) {
	g.cbMu.RLock()
	cb := g.onTrace
	g.cbMu.RUnlock()
	if cb != nil && int(g.traceLevel) >= int(traceType) {
		cb(*gxcommon.NewTraceEventArgs(traceType, message, ""))
	}
}

//nolint:errcheck
func init() {
	// --- English (default) ---
	message.SetString(language.AmericanEnglish, "msg.closing_connection", "Closing connection to %s")
	message.SetString(language.AmericanEnglish, "msg.connection_closed", "Connection closed to %s")
	message.SetString(language.AmericanEnglish, "msg.connected_to", "Connected to %s")
	message.SetString(language.AmericanEnglish, "msg.connect_failed", "connect to %s: failed: %v")
	message.SetString(language.AmericanEnglish, "msg.connecting_to", "Connecting to %s")
	message.SetString(language.AmericanEnglish, "msg.no_serial_port_selected", "No serial port selected. Please select a serial port.")

	// --- German (de) ---
	message.SetString(language.German, "msg.closing_connection", "Verbindung zu %s: wird geschlossen")
	message.SetString(language.German, "msg.connection_closed", "Verbindung zu %s: wurde geschlossen")
	message.SetString(language.German, "msg.connected_to", "Verbunden mit %s")
	message.SetString(language.German, "msg.connect_failed", "Verbindung zu %s: fehlgeschlagen: %v")
	message.SetString(language.German, "msg.connecting_to", "Verbindung zu %s wird aufgebaut")
	message.SetString(language.German, "msg.no_serial_port_selected", "Kein serieller Port ausgewählt. Bitte wählen Sie einen seriellen Port aus.")

	// --- Finnish (fi) ---
	message.SetString(language.Finnish, "msg.closing_connection", "Suljetaan yhteys kohteeseen %s")
	message.SetString(language.Finnish, "msg.connection_closed", "Yhteys suljettu kohteeseen %s")
	message.SetString(language.Finnish, "msg.connected_to", "Yhdistetty kohteeseen %s")
	message.SetString(language.Finnish, "msg.connect_failed", "Yhteyden muodostus kohteeseen %s: epäonnistui: %v")
	message.SetString(language.Finnish, "msg.connecting_to", "Yhdistetään kohteeseen %s")
	message.SetString(language.Finnish, "msg.no_serial_port_selected", "Sarjaporttia ei ole valittu. Valitse sarjaportti.")
}

// Localize messages for the specified language.
// No errors is returned if language is not supported.
func (g *GXSerial) Localize(language language.Tag) {
	g.p = message.NewPrinter(language)
}
