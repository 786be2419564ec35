/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/report"
	"github.com/allbin/serial-loopback/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports a probe run would test, without opening them.

With --source=system (the default) ports come from the host's device registry,
which also supplies USB vendor/product IDs and serial numbers. With --source=dev
the device directory is scanned for communication-capable serial devices:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- Bluetooth RFCOMM ports (rfcomm*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := enumeratorFor(appConfig.Ports).ListPorts()
		if err != nil {
			return err
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		out := cmd.OutOrStdout()
		filteredPorts := filterPorts(ports, filterType)

		if len(filteredPorts) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			renderTable(out, filteredPorts)
		} else {
			renderSimple(out, filteredPorts)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().String("source", "system", "Port discovery: system, dev")
	listCmd.Flags().String("dev-dir", "/dev", "Directory scanned when --source=dev")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serial.DeviceDescriptor, filterType string) []serial.DeviceDescriptor {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serial.DeviceDescriptor
	for _, port := range ports {
		name := strings.ToLower(port.BaseName())
		switch filterType {
		case "usb":
			if port.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") && !port.IsUSB {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(out io.Writer, ports []serial.DeviceDescriptor) {
	fmt.Fprintf(out, "Found %d serial port(s):\n\n", len(ports))

	portWidth := 15
	typeWidth := 16
	idWidth := 10
	descWidth := 30

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		portWidth, "Port",
		typeWidth, "Type",
		idWidth, "USB ID",
		descWidth, "Description")
	fmt.Fprintln(out, styles.HeaderStyle.Render(header))

	for _, port := range ports {
		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			portWidth, port.Name,
			typeWidth, getPortType(port),
			idWidth, port.USBID(),
			descWidth, port.Description)
		fmt.Fprintln(out, row)
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(out io.Writer, ports []serial.DeviceDescriptor) {
	for _, port := range ports {
		fmt.Fprintln(out, report.DescribePort(port))
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(port serial.DeviceDescriptor) string {
	name := strings.ToLower(port.BaseName())
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "rfcomm"):
		return "Bluetooth Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	case port.IsUSB:
		return "USB Serial"
	default:
		return "Serial Port"
	}
}
