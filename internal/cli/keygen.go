package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/signing"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	KeyDir string
	Force  bool
}

// KeygenResult describes a generated key.
type KeygenResult struct {
	Name      string `json:"name"`
	KeyFile   string `json:"key_file"`
	PublicKey string `json:"public_key"`
}

func (r KeygenResult) String() string {
	return fmt.Sprintf("Wrote %s\nPublic key: %s", r.KeyFile, r.PublicKey)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen [name]",
		Short: "Generate a signing key",
		Long: `Generate a secp256k1 key pair as <key-dir>/<name>.priv and <name>.pub.

The name defaults to client.key_name and the directory to client.key_dir
(~/.carlog/keys). Existing keys are kept unless --force is given.

Examples:
  carlog keygen
  carlog keygen garage --key-dir ./keys`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd, optionalArg(args, 0))
		},
	}

	cmd.Flags().StringVar(&opts.KeyDir, "key-dir", "", "directory for key files (default client.key_dir)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing key")
	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command, name string) error {
	formatter := opts.formatter(cmd)
	if name == "" {
		name = opts.Config.Client.KeyName
	}
	dir := opts.KeyDir
	if dir == "" {
		dir = opts.Config.Client.KeyDir
	}
	if dir == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "no key directory: set --key-dir or client.key_dir", nil)
	}

	s, err := signing.GenerateKey()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeKey, err.Error(), nil)
	}
	path, err := signing.WriteKeyFile(dir, name, s, opts.Force)
	if errors.Is(err, signing.ErrKeyExists) {
		return formatter.Fail(ExitCommandError, ErrCodeKey, err.Error()+" (use --force to overwrite)", nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeKey, err.Error(), nil)
	}

	opts.logger().Info("key generated", "name", name, "path", path)
	return formatter.Success(KeygenResult{Name: name, KeyFile: path, PublicKey: s.PublicKey()})
}
