package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/client"
	"github.com/roach88/carlog/internal/config"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/signing"
)

// Version is the version reported by --version. Set at link time.
var Version = "dev"

// RootOptions holds global flags for all commands, and the configuration
// they resolve to.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	URL        string
	KeyFile    string

	// Config is loaded by the root command before any subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the carlog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:     "carlog",
		Short:   "carlog - vehicle maintenance ledger",
		Long:    "Record and query the maintenance history of vehicles, keyed by VIN, on a carLogger node.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	// Subcommands inherit this. A negative value such as "-5" parses as a
	// shorthand flag, so the hint points at "--".
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		msg := err.Error()
		if strings.Contains(msg, "shorthand flag") {
			msg += `; put "--" before negative values`
		}
		return opts.formatter(c).Fail(ExitCommandError, ErrCodeUsage, msg, nil)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.carlog/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "node REST API url (overrides config and "+config.EnvURL+")")
	cmd.PersistentFlags().StringVar(&opts.KeyFile, "keyfile", "", "private key used when the key argument is \"-\"")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// load reads the configuration, applies flag overrides and sets up the
// logger.
func (o *RootOptions) load(logOut io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.URL != "" {
		cfg.Client.URL = o.URL
	}
	o.Config = cfg
	o.Logger = newLogger(logOut, cfg.Log, o.Verbose, o.Format)
	return nil
}

// newLogger builds the slog logger for a command. --verbose forces debug;
// JSON output on stdout switches diagnostics to JSON as well.
func newLogger(w io.Writer, lc config.LogConfig, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if lc.Level != "" {
		_ = level.UnmarshalText([]byte(lc.Level))
	}
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" || format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// resolveSigner loads the key named by a command argument. "-" falls back
// to --keyfile, then to client.key_name from the config.
func (o *RootOptions) resolveSigner(arg string) (*signing.Signer, error) {
	if arg == "-" {
		arg = o.KeyFile
		if arg == "" {
			arg = o.Config.Client.KeyName
		}
	}
	s, err := signing.ResolveKey(arg, o.Config.Client.KeyDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load key", err)
	}
	return s, nil
}

// newClient builds a REST client from the resolved configuration.
func (o *RootOptions) newClient(signer *signing.Signer) (*client.Client, error) {
	copts := []client.Option{
		client.WithTimeout(o.Config.Client.Timeout.Std()),
		client.WithLogger(o.logger()),
	}
	if o.family() != ir.FamilyName {
		ns, err := ir.NewNamespace(o.family())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid family", err)
		}
		copts = append(copts, client.WithNamespace(ns))
	}
	if signer != nil {
		copts = append(copts, client.WithSigner(signer))
	}
	c, err := client.New(o.Config.Client.URL, copts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid node url", err)
	}
	return c, nil
}

// family is the transaction family the client commands address.
func (o *RootOptions) family() string {
	if o.Config.Node.Family != "" {
		return o.Config.Node.Family
	}
	return ir.FamilyName
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
