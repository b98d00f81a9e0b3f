package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbweber/hvconn/internal/config"
	"github.com/jbweber/hvconn/internal/inventory"
	"github.com/jbweber/hvconn/internal/libvirt"
	"github.com/jbweber/hvconn/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Flag values; cfg is resolved from them in PersistentPreRunE.
var (
	configPath   string
	uriFlag      string
	socketFlag   string
	logLevelFlag string
	outputFormat string
	noHeaders    bool

	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hvconn",
	Short: "hvconn - libvirt hypervisor connection tool",
	Long: `hvconn opens a connection to a libvirt hypervisor and inspects it.

It reports host information and capabilities, enumerates running and
defined domains, looks domains up by name, id or UUID, and defines or
starts domains from XML descriptors.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $"+config.EnvConfigPath+")")
	flags.StringVarP(&uriFlag, "uri", "c", "", "hypervisor connection URI (default "+config.DefaultURI+")")
	flags.StringVar(&socketFlag, "socket", "", "local libvirtd socket to dial instead of deriving the transport from the URI")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVarP(&outputFormat, "output", "o", "", "output format: table, yaml, json")
	flags.BoolVar(&noHeaders, "no-headers", false, "omit headers in table output")

	rootCmd.AddCommand(testConnCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(defineCmd)
	rootCmd.AddCommand(createCmd)
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("uri") {
		c.URI = uriFlag
	}
	if flags.Changed("socket") {
		c.SocketPath = socketFlag
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevelFlag
	}
	if flags.Changed("output") {
		c.Output = outputFormat
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

// withConnection runs fn against a connection scoped to the command.
func withConnection(cmd *cobra.Command, fn func(ctx context.Context, c *libvirt.Connection) error) error {
	ctx := cmd.Context()
	return libvirt.WithConnection(ctx, cfg.URI, func(c *libvirt.Connection) error {
		return fn(ctx, c)
	},
		libvirt.WithOpener(libvirt.NewOpener(cfg.SocketPath, cfg.Timeout)),
		libvirt.WithLogger(logger),
	)
}

func newFormatter() (output.Formatter, error) {
	return output.NewFormatter(output.Options{
		Format:    output.Format(cfg.Output),
		NoHeaders: noHeaders,
	})
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the hypervisor connection",
	Long:  `Test connectivity to the hypervisor and display driver and version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Testing connection to %s...\n", cfg.URI)

		return withConnection(cmd, func(ctx context.Context, c *libvirt.Connection) error {
			success("Connected to hypervisor")

			driver, err := c.Type()
			if err != nil {
				return err
			}
			success("Driver: %s", driver)

			code, err := c.Version()
			if err != nil {
				return err
			}
			success("Hypervisor version: %s", inventory.FormatVersion(code))

			hostname, err := c.Hostname()
			if err != nil {
				return err
			}
			success("Hypervisor hostname: %s", hostname)

			uri, err := c.URI()
			if err != nil {
				return err
			}
			success("Connection URI: %s", uri)

			fmt.Println("\nConnection test successful!")
			return nil
		})
	},
}
