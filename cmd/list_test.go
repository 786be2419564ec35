package cmd

import (
	"bytes"
	"testing"

	serial "github.com/allbin/serial-loopback"
)

var testPorts = []serial.DeviceDescriptor{
	{Name: "/dev/ttyS0", Description: "Standard Serial Port"},
	{Name: "/dev/ttyUSB0", Description: "FT232R USB UART", IsUSB: true, VendorID: "0403", ProductID: "6001"},
	{Name: "/dev/ttyACM0", Description: "USB CDC/ACM Device"},
	{Name: "/dev/ttyAMA0", Description: "ARM Serial Port"},
	{Name: "/dev/cu.usbserial-1420", IsUSB: true},
}

func TestFilterPorts(t *testing.T) {
	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyACM0", "/dev/ttyAMA0", "/dev/cu.usbserial-1420"}},
		{"all", []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyACM0", "/dev/ttyAMA0", "/dev/cu.usbserial-1420"}},
		{"usb", []string{"/dev/ttyUSB0", "/dev/ttyACM0", "/dev/cu.usbserial-1420"}},
		{"USB", []string{"/dev/ttyUSB0", "/dev/ttyACM0", "/dev/cu.usbserial-1420"}},
		{"standard", []string{"/dev/ttyS0"}},
		{"arm", []string{"/dev/ttyAMA0"}},
		{"pci", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := filterPorts(testPorts, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("filterPorts(%q) returned %d ports, want %d", tt.filter, len(got), len(tt.want))
			}
			for i, p := range got {
				if p.Name != tt.want[i] {
					t.Errorf("filterPorts(%q)[%d] = %s, want %s", tt.filter, i, p.Name, tt.want[i])
				}
			}
		})
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		port serial.DeviceDescriptor
		want string
	}{
		{serial.DeviceDescriptor{Name: "/dev/ttyUSB0"}, "USB Serial"},
		{serial.DeviceDescriptor{Name: "/dev/ttyACM0"}, "USB CDC/ACM"},
		{serial.DeviceDescriptor{Name: "/dev/ttyAMA0"}, "ARM Serial"},
		{serial.DeviceDescriptor{Name: "/dev/ttymxc1"}, "i.MX Serial"},
		{serial.DeviceDescriptor{Name: "/dev/rfcomm0"}, "Bluetooth Serial"},
		{serial.DeviceDescriptor{Name: "/dev/ttyS3"}, "Standard Serial"},
		{serial.DeviceDescriptor{Name: "COM3", IsUSB: true}, "USB Serial"},
		{serial.DeviceDescriptor{Name: "COM1"}, "Serial Port"},
	}

	for _, tt := range tests {
		t.Run(tt.port.Name, func(t *testing.T) {
			if got := getPortType(tt.port); got != tt.want {
				t.Errorf("getPortType(%s) = %q, want %q", tt.port.Name, got, tt.want)
			}
		})
	}
}

func TestRenderSimple(t *testing.T) {
	var buf bytes.Buffer
	renderSimple(&buf, testPorts[:2])

	want := "/dev/ttyS0 (Standard Serial Port)\n/dev/ttyUSB0 (FT232R USB UART, 0403:6001)\n"
	if got := buf.String(); got != want {
		t.Errorf("renderSimple() = %q, want %q", got, want)
	}
}
