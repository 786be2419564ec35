package report

import (
	"fmt"
	"strings"

	serial "github.com/allbin/serial-loopback"
)

// HexString renders data as space separated upper case hex pairs
func HexString(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// ASCIIString renders printable ASCII as is and everything else as '.'
func ASCIIString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// FormatBytes renders received bytes for the text report
func FormatBytes(data []byte) string {
	if len(data) == 0 {
		return "(no data)"
	}
	return fmt.Sprintf("HEX: %s  ASCII: %s", HexString(data), ASCIIString(data))
}

// DescribePort returns the port name followed by whatever the host knows
// about the device, e.g. "/dev/ttyUSB0 (USB Serial Port, 0403:6001)".
func DescribePort(d serial.DeviceDescriptor) string {
	var details []string
	if d.Description != "" {
		details = append(details, d.Description)
	}
	if id := d.USBID(); id != "" {
		details = append(details, id)
	}
	if d.SerialNumber != "" {
		details = append(details, "s/n "+d.SerialNumber)
	}
	if len(details) == 0 {
		return d.Name
	}
	return fmt.Sprintf("%s (%s)", d.Name, strings.Join(details, ", "))
}
