package gxterminal

import (
	"strings"
	"testing"

	"github.com/Gurux/gxcommon-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGXSerial_SettingsRoundTrip(t *testing.T) {
	g := NewGXSerial("/dev/ttyUSB0", 115200, 8, gxcommon.ParityEven, gxcommon.StopBitsOne)

	settings := g.GetSettings()
	assert.Contains(t, settings, "<Port>/dev/ttyUSB0</Port>")
	assert.Contains(t, settings, "<Bps>115200</Bps>")

	restored := NewGXSerial("", 0, 0, gxcommon.ParityNone, gxcommon.StopBitsOne)
	require.NoError(t, restored.SetSettings(settings))

	assert.Equal(t, g.Port, restored.Port)
	assert.Equal(t, g.BaudRate(), restored.BaudRate())
	assert.Equal(t, g.DataBits(), restored.DataBits())
	assert.Equal(t, g.Parity(), restored.Parity())
}

func TestGXSerial_SetSettingsEmpty(t *testing.T) {
	g := NewGXSerial("COM1", 9600, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
	require.NoError(t, g.SetSettings("   "))
	assert.Equal(t, "COM1", g.Port)
}

func TestGXSerial_SettingsEscapesPort(t *testing.T) {
	g := NewGXSerial("COM<1>", 9600, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
	settings := g.GetSettings()
	assert.False(t, strings.Contains(settings, "<Port>COM<1></Port>"))
	assert.Contains(t, settings, "&lt;")
}

func TestGXSerial_Validate(t *testing.T) {
	g := NewGXSerial("", 9600, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
	assert.Error(t, g.Validate())

	g.Port = "COM1"
	assert.NoError(t, g.Validate())
}

func TestGXSerial_OpenWithoutPort(t *testing.T) {
	g := NewGXSerial("", 9600, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
	err := g.Open()
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestGXSerial_ClosedIsNoop(t *testing.T) {
	g := NewGXSerial("COM1", 9600, 8, gxcommon.ParityNone, gxcommon.StopBitsOne)
	assert.False(t, g.IsOpen())
	require.NoError(t, g.Close())

	_, err := g.Read(16)
	assert.True(t, IsNotOpen(err))

	_, err = g.InWaiting()
	assert.True(t, IsNotOpen(err))
}
