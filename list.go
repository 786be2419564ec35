package serial

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortType is the host's classification of a serial device.
type PortType string

const (
	PortTypeUSB       PortType = "usb"
	PortTypePCI       PortType = "pci"
	PortTypeBluetooth PortType = "bluetooth"
	PortTypeUnknown   PortType = "unknown"
)

// DeviceDescriptor identifies one candidate serial interface.
// Name is the path used to open it; everything else is optional metadata
// supplied by the host and may be empty.
type DeviceDescriptor struct {
	Name         string
	Type         PortType
	Description  string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
}

// BaseName returns the device name without its directory, e.g. ttyUSB0.
func (d DeviceDescriptor) BaseName() string {
	return filepath.Base(d.Name)
}

// USBID returns "VID:PID" for USB devices and an empty string otherwise.
func (d DeviceDescriptor) USBID() string {
	if !d.IsUSB || (d.VendorID == "" && d.ProductID == "") {
		return ""
	}
	return d.VendorID + ":" + d.ProductID
}

// Enumerator lists the serial devices currently attached to the host.
type Enumerator interface {
	ListPorts() ([]DeviceDescriptor, error)
}

// EnumeratorFunc adapts a plain function to the Enumerator interface.
type EnumeratorFunc func() ([]DeviceDescriptor, error)

func (f EnumeratorFunc) ListPorts() ([]DeviceDescriptor, error) {
	return f()
}

// ListPorts returns the ports reported by the host's device registry.
func ListPorts() ([]DeviceDescriptor, error) {
	return SystemEnumerator{}.ListPorts()
}

// FindPort looks up path in the ports reported by e.
func FindPort(e Enumerator, path string) (DeviceDescriptor, error) {
	ports, err := e.ListPorts()
	if err != nil {
		return DeviceDescriptor{}, err
	}
	for _, p := range ports {
		if p.Name == path || p.BaseName() == path {
			return p, nil
		}
	}
	return DeviceDescriptor{}, ErrDeviceNotFound
}

// SystemEnumerator queries the operating system's serial port registry
// (sysfs on Linux, IOKit on macOS, SetupAPI on Windows).
type SystemEnumerator struct{}

func (SystemEnumerator) ListPorts() ([]DeviceDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}

	ports := make([]DeviceDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, descriptorFromDetails(d))
	}
	return ports, nil
}

func descriptorFromDetails(d *enumerator.PortDetails) DeviceDescriptor {
	desc := DeviceDescriptor{
		Name:         d.Name,
		IsUSB:        d.IsUSB,
		VendorID:     d.VID,
		ProductID:    d.PID,
		SerialNumber: d.SerialNumber,
		Description:  d.Product,
	}
	base := filepath.Base(d.Name)
	if desc.Description == "" {
		desc.Description = getPortDescription(base)
	}
	desc.Type = classifyPort(base, d.IsUSB)
	return desc
}

// DevEnumerator scans a device directory for serial-capable character
// devices. It needs no platform registry, only a readable Dir.
type DevEnumerator struct {
	// Dir defaults to /dev
	Dir string
}

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	regexp.MustCompile(`^rfcomm\d+$`), // Bluetooth RFCOMM
}

// Exclude patterns for virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),  // Virtual terminals (tty1, tty2, etc.)
	regexp.MustCompile(`^console$`), // Console
	regexp.MustCompile(`^ptmx$`),    // Pseudo-terminal multiplexer
	regexp.MustCompile(`^pty.*$`),   // Pseudo-terminals
	regexp.MustCompile(`^pts/.*$`),  // Pseudo-terminal slaves
}

// isSerialName reports whether a device name looks like a serial port
func isSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range serialPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func (e DevEnumerator) ListPorts() ([]DeviceDescriptor, error) {
	devDir := e.Dir
	if devDir == "" {
		devDir = "/dev"
	}

	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if !isSerialName(name) {
			continue
		}

		fullPath := filepath.Join(devDir, name)

		// Verify it's a character device (not a directory or regular file)
		if isCharacterDevice(fullPath) {
			paths = append(paths, fullPath)
		}
	}

	// Sort the ports for consistent ordering
	sort.Strings(paths)

	ports := make([]DeviceDescriptor, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		isUSB := strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM")
		ports = append(ports, DeviceDescriptor{
			Name:        p,
			Type:        classifyPort(name, isUSB),
			Description: getPortDescription(name),
			IsUSB:       isUSB,
		})
	}
	return ports, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	mode := info.Mode()
	return mode&os.ModeCharDevice != 0
}

func classifyPort(name string, isUSB bool) PortType {
	switch {
	case isUSB:
		return PortTypeUSB
	case strings.HasPrefix(name, "rfcomm"):
		return PortTypeBluetooth
	case strings.HasPrefix(name, "ttyS"), strings.HasPrefix(name, "COM"):
		return PortTypePCI
	default:
		return PortTypeUnknown
	}
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(name, "rfcomm"):
		return "Bluetooth Serial Port"
	default:
		return "Serial Port"
	}
}
