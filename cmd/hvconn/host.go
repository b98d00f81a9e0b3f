package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hvconn/internal/inventory"
	"github.com/jbweber/hvconn/internal/libvirt"
)

var hvType string

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Show hypervisor host information",
	Long: `Show the hypervisor driver, version, host name, canonical URI, vCPU
limit and node hardware (CPU topology, frequency, memory).

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML document
  -o json   JSON document`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			summary, err := inventory.Host(ctx, c, hvType)
			if err != nil {
				return fmt.Errorf("failed to describe host: %w", err)
			}

			result, err := formatter.FormatHost(summary)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			fmt.Print(result)
			return nil
		})
	},
}

var rawCapabilities bool

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show hypervisor capabilities",
	Long: `Show the host capabilities reported by the hypervisor.

By default the host CPU and supported guest types are summarized. With --raw
the capabilities XML document is printed unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			if rawCapabilities {
				xml, err := c.Capabilities()
				if err != nil {
					return err
				}
				fmt.Println(xml)
				return nil
			}

			caps, err := c.HostCapabilities()
			if err != nil {
				return err
			}

			if cpu := caps.Host.CPU; cpu != nil {
				fmt.Printf("Host arch:  %s\n", cpu.Arch)
				fmt.Printf("Host model: %s\n", cpu.Model)
				if cpu.Vendor != "" {
					fmt.Printf("Vendor:     %s\n", cpu.Vendor)
				}
			}

			if len(caps.Guests) > 0 {
				fmt.Println("Guests:")
				for _, g := range caps.Guests {
					fmt.Printf("  %s/%s\n", g.OSType, g.Arch.Name)
				}
			}
			return nil
		})
	},
}

func init() {
	hostCmd.Flags().StringVar(&hvType, "type", libvirt.DefaultMaxVCPUsType, "guest type used for the vCPU limit query")
	capabilitiesCmd.Flags().BoolVar(&rawCapabilities, "raw", false, "print the capabilities XML unchanged")
}
