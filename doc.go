// Package serial provides serial port discovery and a small, backend-neutral
// port abstraction used by the serial-loopback tool.
//
// # Port Discovery
//
// List the ports the host knows about, with USB metadata where available:
//
//	ports, err := serial.ListPorts()
//	if err != nil {
//	    var enumErr *serial.EnumerationError
//	    if errors.As(err, &enumErr) { ... }
//	}
//	for _, p := range ports {
//	    fmt.Printf("%s: %s (%s)\n", p.Name, p.Description, p.USBID())
//	}
//
// DevEnumerator scans a device directory instead of asking the host
// registry, which is useful on minimal Linux images without sysfs metadata.
//
// # Opening Ports
//
// Every port is opened with a complete Config through an Opener:
//
//	port, err := serial.DefaultOpener().Open("/dev/ttyUSB0", serial.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	// Let other programs open the device while we hold it
//	if port.SupportsExclusivityControl() {
//	    err = port.SetExclusive(false)
//	}
//
// Two backends exist. NativeOpener (Linux) drives termios directly and can
// release the exclusive lock. BugstOpener uses go.bug.st/serial and works on
// every platform that library supports.
//
// # Error Handling
//
// Open failures are *PortError values that match the sentinel errors:
//
//	if errors.Is(err, serial.ErrDeviceNotFound) {
//	    // Handle missing device specifically
//	}
//
// # Default Configuration
//
//   - BaudRate: 19200
//   - DataBits: 8
//   - StopBits: 2
//   - Parity: None
//   - FlowControl: None
//   - Exclusive: false
package serial
