package signing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key file extensions under a key directory.
const (
	PrivateKeyExt = ".priv"
	PublicKeyExt  = ".pub"
)

// ErrKeyExists is returned by WriteKeyFile when a key of that name exists.
var ErrKeyExists = errors.New("key file already exists")

// LoadKeyFile reads a hex private key from path.
func LoadKeyFile(path string) (*Signer, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	s, err := ParsePrivateKeyHex(string(buf))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// WriteKeyFile stores s as <dir>/<name>.priv (mode 0600) and
// <dir>/<name>.pub (mode 0644). Existing keys are never overwritten unless
// force is set. Returns the private key path.
func WriteKeyFile(dir, name string, s *Signer, force bool) (string, error) {
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("invalid key name %q", name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create key dir: %w", err)
	}

	privPath := filepath.Join(dir, name+PrivateKeyExt)
	pubPath := filepath.Join(dir, name+PublicKeyExt)

	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return "", fmt.Errorf("%s: %w", p, ErrKeyExists)
			}
		}
	}

	if err := os.WriteFile(privPath, []byte(s.PrivateKeyHex()+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(s.PublicKey()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write public key: %w", err)
	}
	return privPath, nil
}

// ResolveKey turns a command-line key argument into a signer. arg may be a
// hex private key, a path to a key file, or the name of a key in keyDir.
func ResolveKey(arg, keyDir string) (*Signer, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("%w: no key given", ErrInvalidKey)
	}

	if len(arg) == PrivateKeyHexLength {
		if s, err := ParsePrivateKeyHex(arg); err == nil {
			return s, nil
		}
	}
	if _, err := os.Stat(arg); err == nil {
		return LoadKeyFile(arg)
	}
	if keyDir != "" {
		path := filepath.Join(keyDir, arg+PrivateKeyExt)
		if _, err := os.Stat(path); err == nil {
			return LoadKeyFile(path)
		}
	}
	return nil, fmt.Errorf("%w: %q is neither a hex key, a key file, nor a key name", ErrInvalidKey, arg)
}

// DefaultKeyDir returns ~/.carlog/keys, or "" if the home directory is unknown.
func DefaultKeyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".carlog", "keys")
}
