package gxterminal

import (
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a detected serial port, with USB metadata when the
// port is USB backed.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// GetPortDetails returns the detected serial ports with USB metadata, for
// port pickers that show more than the device path. GetPortNames stays the
// cheap path when only names are needed.
func GetPortDetails() ([]PortInfo, error) {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(list))
	for _, d := range list {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
