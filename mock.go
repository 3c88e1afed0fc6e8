package gxterminal

// MockTransport implements Transport for testing. It is not safe for
// concurrent use.
type MockTransport struct {
	Opened    bool
	OpenErr   error
	CloseErr  error
	ReadData  []byte
	ReadErr   error
	WriteErr  error
	WriteData []byte   // every written byte, in order
	Writes    [][]byte // one entry per Write call
	DTR       bool
	RTS       bool
	Closes    int

	// ReadFunc allows custom read behavior for complex tests.
	ReadFunc func(maxSize int) ([]byte, error)
}

var _ Transport = (*MockTransport)(nil)

func (m *MockTransport) Open() error {
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.Opened = true
	return nil
}

func (m *MockTransport) Close() error {
	if !m.Opened {
		return nil
	}
	m.Opened = false
	m.Closes++
	return m.CloseErr
}

func (m *MockTransport) IsOpen() bool {
	return m.Opened
}

func (m *MockTransport) Read(maxSize int) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(maxSize)
	}
	if !m.Opened {
		return nil, &TransportError{Op: "read", Err: ErrNotOpen}
	}
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	n := len(m.ReadData)
	if maxSize > 0 && n > maxSize {
		n = maxSize
	}
	data := m.ReadData[:n]
	m.ReadData = m.ReadData[n:]
	return data, nil
}

func (m *MockTransport) Write(data []byte) error {
	if !m.Opened {
		return &TransportError{Op: "write", Err: ErrNotOpen}
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WriteData = append(m.WriteData, data...)
	m.Writes = append(m.Writes, append([]byte(nil), data...))
	return nil
}

func (m *MockTransport) InWaiting() (int, error) {
	if !m.Opened {
		return 0, &TransportError{Op: "inwaiting", Err: ErrNotOpen}
	}
	return len(m.ReadData), nil
}

func (m *MockTransport) SetDTR(on bool) {
	m.DTR = on
}

func (m *MockTransport) SetRTS(on bool) {
	m.RTS = on
}
