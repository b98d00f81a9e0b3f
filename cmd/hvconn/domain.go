package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/hvconn/internal/inventory"
	"github.com/jbweber/hvconn/internal/libvirt"
)

var (
	listDefined bool
	listAll     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List domains",
	Long: `List domains known to the hypervisor.

By default only running domains are shown. Use --defined for defined,
inactive domains or --all for both.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML stream (one document per domain)
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := inventory.ScopeRunning
		switch {
		case listAll:
			scope = inventory.ScopeAll
		case listDefined:
			scope = inventory.ScopeDefined
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			rows, err := inventory.List(ctx, c, scope)
			if err != nil {
				return fmt.Errorf("failed to list domains: %w", err)
			}

			result, err := formatter.FormatDomainList(rows)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			fmt.Print(result)
			return nil
		})
	},
}

var (
	getName string
	getID   int32
	getUUID string
)

var getCmd = &cobra.Command{
	Use:   "get (--name NAME | --id ID | --uuid UUID)",
	Short: "Look up a domain",
	Long: `Look up a single domain by name, runtime id or UUID and show its
identity.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			var (
				d   *libvirt.Domain
				err error
			)
			switch {
			case cmd.Flags().Changed("name"):
				d, err = c.DomainByName(getName)
			case cmd.Flags().Changed("id"):
				d, err = c.DomainByID(getID)
			default:
				d, err = c.DomainByUUID(getUUID)
			}
			if err != nil {
				return err
			}

			result, err := formatter.FormatDomain(inventory.Describe(d))
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			fmt.Print(result)
			return nil
		})
	},
}

var defineCmd = &cobra.Command{
	Use:   "define <domain.xml>",
	Short: "Define a domain from an XML descriptor",
	Long: `Register a persistent domain from a libvirt domain XML descriptor
without starting it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xml, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read descriptor: %w", err)
		}

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			d, err := c.DefineDomainXML(string(xml))
			if err != nil {
				return err
			}

			success("Domain %s defined (uuid %s)", d.Name(), d.UUID())
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create <domain.xml>",
	Short: "Define and start a domain from an XML descriptor",
	Long: `Define a domain from a libvirt domain XML descriptor and boot it.

If the domain cannot be started it is undefined again, so a failed create
leaves nothing behind.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xml, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read descriptor: %w", err)
		}

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			d, err := c.CreateDomainLinux(string(xml))
			if err != nil {
				return err
			}

			success("Domain %s started (uuid %s)", d.Name(), d.UUID())
			return nil
		})
	},
}

func init() {
	listCmd.Flags().BoolVar(&listDefined, "defined", false, "list defined, inactive domains")
	listCmd.Flags().BoolVar(&listAll, "all", false, "list running and defined domains")
	listCmd.MarkFlagsMutuallyExclusive("defined", "all")

	getCmd.Flags().StringVar(&getName, "name", "", "domain name")
	getCmd.Flags().Int32Var(&getID, "id", 0, "domain runtime id")
	getCmd.Flags().StringVar(&getUUID, "uuid", "", "domain UUID")
	getCmd.MarkFlagsMutuallyExclusive("name", "id", "uuid")
	getCmd.MarkFlagsOneRequired("name", "id", "uuid")
}
