//go:build windows

package gxterminal

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

type port struct {
	h       windows.Handle
	ovRead  windows.Overlapped
	ovWrite windows.Overlapped
	closing windows.Handle
}

func (p *port) isOpen() bool {
	return p != nil && p.h != 0 && p.h != windows.InvalidHandle
}

func (p *port) ensureOpen() error {
	if !p.isOpen() {
		return ErrNotOpen
	}
	return nil
}

// getPortNames retrieves the list of available serial port names on a Windows system by querying the registry.
func getPortNames() ([]string, error) {
	const path = `HARDWARE\DEVICEMAP\SERIALCOMM`

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return []string{}, nil
		}
		return nil, err
	}
	defer func() {
		_ = key.Close()
	}()

	valueNames, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, name := range valueNames {
		port, _, err := key.GetStringValue(name)
		if err == nil {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

const (
	dcbFBinary         = 1 << 0
	dcbFParity         = 1 << 1
	dcbFErrorChar      = 1 << 10
	dcbFNull           = 1 << 11
	dcbFAbortOnError   = 1 << 14
	dcbFDtrControlMask = 0x3 << 4  // bits 4-5
	dcbFRtsControlMask = 0x3 << 12 // bits 12-13
)

// XON/XOFF control characters
const (
	xon  byte = 0x11
	xoff byte = 0x13
)

// RTS/DTR control values (DCB 2-bit fields)
const (
	rtsControlDisable uint32 = 0
	dtrControlDisable uint32 = 0
)

// EscapeCommFunction codes.
const (
	commSetRTS uint32 = 3
	commClrRTS uint32 = 4
	commSetDTR uint32 = 5
	commClrDTR uint32 = 6
)

func setBinary(d *windows.DCB, on bool) {
	if on {
		d.Flags |= dcbFBinary
	} else {
		d.Flags &^= dcbFBinary
	}
}
func setParityCheck(d *windows.DCB, on bool) {
	if on {
		d.Flags |= dcbFParity
	} else {
		d.Flags &^= dcbFParity
	}
}
func setNull(d *windows.DCB, on bool) {
	if on {
		d.Flags |= dcbFNull
	} else {
		d.Flags &^= dcbFNull
	}
}
func setErrorChar(d *windows.DCB, on bool) {
	if on {
		d.Flags |= dcbFErrorChar
	} else {
		d.Flags &^= dcbFErrorChar
	}
}
func setAbortOnError(d *windows.DCB, on bool) {
	if on {
		d.Flags |= dcbFAbortOnError
	} else {
		d.Flags &^= dcbFAbortOnError
	}
}
func setRtsControl(d *windows.DCB, val uint32) {
	d.Flags &^= dcbFRtsControlMask
	d.Flags |= (val & 0x3) << 12
}
func setDtrControl(d *windows.DCB, val uint32) {
	d.Flags &^= dcbFDtrControlMask
	d.Flags |= (val & 0x3) << 4
}

func (p *port) getCommState() (*windows.DCB, error) {
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	var d windows.DCB
	d.DCBlength = uint32(unsafe.Sizeof(d))
	if err := windows.GetCommState(p.h, &d); err != nil {
		return nil, fmt.Errorf("GetCommState failed: %w", err)
	}
	return &d, nil
}

func (p *port) setCommState(d *windows.DCB) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	if err := windows.SetCommState(p.h, d); err != nil {
		return fmt.Errorf("SetCommState failed: %w", err)
	}
	return nil
}

func (p *port) updateSettings(cfg *GXSerial) error {
	d, err := p.getCommState()
	if err != nil {
		return err
	}

	d.BaudRate = uint32(cfg.baudRate)
	d.ByteSize = byte(cfg.dataBits)
	d.Parity = byte(cfg.parity)

	switch cfg.stopBits {
	case gxcommon.StopBitsOne:
		d.StopBits = 0 // ONESTOPBIT
	case gxcommon.StopBitsTwo:
		d.StopBits = 2 // TWOSTOPBITS
	default:
		return gxcommon.ErrInvalidArgument
	}
	setParityCheck(d, d.Parity != 0)
	setBinary(d, true)
	setNull(d, false)
	setErrorChar(d, false)
	setAbortOnError(d, false)
	d.XonChar = xon
	d.XoffChar = xoff
	setRtsControl(d, rtsControlDisable)
	setDtrControl(d, dtrControlDisable)
	return p.setCommState(d)
}

func (p *port) setBaudRate(value gxcommon.BaudRate) error {
	d, err := p.getCommState()
	if err != nil {
		return err
	}
	d.BaudRate = uint32(value)
	return p.setCommState(d)
}

func (p *port) setDataBits(value int) error {
	d, err := p.getCommState()
	if err != nil {
		return err
	}
	d.ByteSize = byte(value)
	return p.setCommState(d)
}

func (p *port) setStopBits(value gxcommon.StopBits) error {
	d, err := p.getCommState()
	if err != nil {
		return err
	}
	switch value {
	case gxcommon.StopBitsOne:
		d.StopBits = 0
	case gxcommon.StopBitsTwo:
		d.StopBits = 2
	default:
		return gxcommon.ErrInvalidArgument
	}
	return p.setCommState(d)
}

func (p *port) setParity(value gxcommon.Parity) error {
	d, err := p.getCommState()
	if err != nil {
		return err
	}
	d.Parity = byte(value)
	return p.setCommState(d)
}

func (p *port) setDtrEnable(on bool) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	f := commClrDTR
	if on {
		f = commSetDTR
	}
	if err := windows.EscapeCommFunction(p.h, f); err != nil {
		return fmt.Errorf("EscapeCommFunction(DTR) failed: %w", err)
	}
	return nil
}

func (p *port) setRtsEnable(on bool) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	f := commClrRTS
	if on {
		f = commSetRTS
	}
	if err := windows.EscapeCommFunction(p.h, f); err != nil {
		return fmt.Errorf("EscapeCommFunction(RTS) failed: %w", err)
	}
	return nil
}

func openPort(cfg *GXSerial) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("invalid serial port name")
	}

	cfg.s = port{}

	closing, err := windows.CreateEvent(nil, 1, 1, nil) // manual-reset=TRUE, initial=TRUE
	if err != nil {
		return fmt.Errorf("CreateEvent(closing) failed: %w", err)
	}
	cfg.s.closing = closing

	path := `\\.\` + cfg.Port
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("failed to open port %q: %w", cfg.Port, err)
	}
	cfg.s.h = h

	er, err := windows.CreateEvent(nil, 0, 0, nil) // auto-reset
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("CreateEvent(read) failed: %w", err)
	}
	cfg.s.ovRead.HEvent = er

	ew, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("CreateEvent(write) failed: %w", err)
	}
	cfg.s.ovWrite.HEvent = ew

	if err := windows.ResetEvent(cfg.s.closing); err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("ResetEvent(closing) failed: %w", err)
	}

	if err := cfg.s.updateSettings(cfg); err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("failed to update serial port settings: %w", err)
	}

	if err := windows.PurgeComm(cfg.s.h,
		windows.PURGE_TXCLEAR|windows.PURGE_TXABORT|windows.PURGE_RXCLEAR|windows.PURGE_RXABORT,
	); err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("PurgeComm failed: %w", err)
	}

	return nil
}

// ClearCommError + COMSTAT.cbOutQue / cbInQue
func (p *port) getBytesToWrite() (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	var flags uint32
	var st windows.ComStat
	if err := windows.ClearCommError(p.h, &flags, &st); err != nil {
		return 0, fmt.Errorf("%w: getBytesToWrite: %v", ErrIO, err)
	}
	return int(st.CBOutQue), nil
}

func (p *port) getBytesToRead() (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	var flags uint32
	var st windows.ComStat
	if err := windows.ClearCommError(p.h, &flags, &st); err != nil {
		if err == windows.ERROR_INVALID_HANDLE {
			return 0, ErrNotOpen
		}
		return 0, fmt.Errorf("%w: getBytesToRead: %v", ErrIO, err)
	}
	return int(st.CBInQue), nil
}

// read returns up to max bytes already buffered by the driver. It never
// waits for data to arrive.
func (p *port) read(max int) ([]byte, error) {
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}

	count, err := p.getBytesToRead()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if max > 0 && count > max {
		count = max
	}

	buf := make([]byte, count)
	var n uint32
	_ = windows.ResetEvent(p.ovRead.HEvent)
	err = windows.ReadFile(p.h, buf, &n, &p.ovRead)
	if err == nil {
		return buf[:n], nil
	}
	if !errors.Is(err, windows.ERROR_IO_PENDING) {
		return nil, fmt.Errorf("%w: read: %v", ErrIO, err)
	}
	// The requested bytes are already queued, so the overlapped operation
	// completes shortly; the closing event unblocks a concurrent Close.
	handles := []windows.Handle{p.closing, p.ovRead.HEvent}
	idx, werr := windows.WaitForMultipleObjects(handles, false, windows.INFINITE)
	if werr != nil {
		return nil, fmt.Errorf("%w: read wait: %v", ErrIO, werr)
	}
	if idx == windows.WAIT_OBJECT_0 {
		return nil, ErrNotOpen // closing
	}
	if gerr := windows.GetOverlappedResult(p.h, &p.ovRead, &n, true); gerr != nil {
		if errors.Is(gerr, windows.ERROR_OPERATION_ABORTED) {
			return nil, ErrNotOpen
		}
		return nil, fmt.Errorf("%w: read: %v", ErrIO, gerr)
	}
	return buf[:n], nil
}

func (p *port) write(data []byte) (int, error) {
	if err := p.ensureOpen(); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	var n uint32

	_ = windows.ResetEvent(p.ovWrite.HEvent)

	err := windows.WriteFile(p.h, data, &n, &p.ovWrite)
	if err == nil {
		return int(n), nil
	}

	if !errors.Is(err, windows.ERROR_IO_PENDING) {
		return 0, fmt.Errorf("%w: write: %v", ErrIO, err)
	}

	handles := []windows.Handle{p.closing, p.ovWrite.HEvent}
	idx, werr := windows.WaitForMultipleObjects(handles, false, windows.INFINITE)
	if werr != nil {
		return 0, fmt.Errorf("%w: write wait: %v", ErrIO, werr)
	}
	if idx == windows.WAIT_OBJECT_0 {
		return 0, ErrNotOpen // closing
	}
	if gerr := windows.GetOverlappedResult(p.h, &p.ovWrite, &n, true); gerr != nil {
		if errors.Is(gerr, windows.ERROR_OPERATION_ABORTED) {
			return 0, ErrNotOpen
		}
		return 0, fmt.Errorf("%w: write: %v", ErrIO, gerr)
	}
	return int(n), nil
}

func (p *port) close() error {
	if p == nil {
		return nil
	}
	if p.closing != 0 {
		_ = windows.SetEvent(p.closing)
	}
	if p.h != 0 && p.h != windows.InvalidHandle {
		_ = windows.CancelIoEx(p.h, nil)
	}

	if p.ovRead.HEvent != 0 {
		_ = windows.CloseHandle(p.ovRead.HEvent)
		p.ovRead.HEvent = 0
	}
	if p.ovWrite.HEvent != 0 {
		_ = windows.CloseHandle(p.ovWrite.HEvent)
		p.ovWrite.HEvent = 0
	}
	if p.h != 0 {
		_ = windows.CloseHandle(p.h)
		p.h = 0
	}
	if p.closing != 0 {
		_ = windows.CloseHandle(p.closing)
		p.closing = 0
	}
	return nil
}
