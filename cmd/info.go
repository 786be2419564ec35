/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	serial "github.com/allbin/serial-loopback"
	"github.com/allbin/serial-loopback/internal/probe"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display what the host reports about a serial port",
	Long: `Display the descriptor of one serial port and how a probe run would test it.

Examples:
  serial-loopback info /dev/ttyUSB0
  serial-loopback info ttyACM0

For USB devices, this displays vendor/product IDs and the serial number reported
by the host's device registry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := serial.FindPort(enumeratorFor(appConfig.Ports), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		opener, err := serial.OpenerFor(appConfig.Backend)
		if err != nil {
			return err
		}

		printInfo(cmd.OutOrStdout(), port, newProber(appConfig.Probe, opener, logger), appConfig.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().String("source", "system", "Port discovery: system, dev")
	infoCmd.Flags().String("dev-dir", "/dev", "Directory scanned when --source=dev")
}

func printInfo(out io.Writer, port serial.DeviceDescriptor, prober *probe.Prober, backend string) {
	fmt.Fprintf(out, "Port Information: %s\n\n", port.Name)
	fmt.Fprintf(out, "  Name:        %s\n", port.BaseName())
	fmt.Fprintf(out, "  Type:        %s\n", port.Type)
	fmt.Fprintf(out, "  Description: %s\n", port.Description)

	if port.IsUSB {
		fmt.Fprintln(out, "\nUSB Device Information:")
		if port.VendorID != "" {
			fmt.Fprintf(out, "  Vendor ID:    %s\n", port.VendorID)
		}
		if port.ProductID != "" {
			fmt.Fprintf(out, "  Product ID:   %s\n", port.ProductID)
		}
		if port.SerialNumber != "" {
			fmt.Fprintf(out, "  Serial:       %s\n", port.SerialNumber)
		}
	}

	fmt.Fprintln(out, "\nLoopback Probe:")
	fmt.Fprintf(out, "  Framing:      %s\n", prober.Config())
	fmt.Fprintf(out, "  Payload:      %q\n", prober.Payload())
	fmt.Fprintf(out, "  Read size:    %d bytes\n", prober.ReadSize())
	fmt.Fprintf(out, "  Timeout:      %s\n", prober.Timeout())
	fmt.Fprintf(out, "  Strict write: %t\n", prober.StrictWrite())
	fmt.Fprintf(out, "  Backend:      %s\n", backend)
}
