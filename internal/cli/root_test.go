package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/carlog/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "carlog", cmd.Use)
	assert.Contains(t, cmd.Long, "VIN")
	assert.Equal(t, Version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"create", "add", "delete", "history", "list", "status", "keygen", "serve", "test", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "url", "keyfile"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestWriteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"create", "add", "delete"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			wait := sub.Flags().Lookup("wait")
			require.NotNil(t, wait)
			assert.Equal(t, "0s", wait.DefValue)

			interval := sub.Flags().Lookup("interval")
			require.NotNil(t, interval)
			assert.Equal(t, "200ms", interval.DefValue)
		})
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"db", "listen", "queue-size", "lenient-create"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
	// Empty defaults keep the configured values.
	assert.Equal(t, "", serveCmd.Flags().Lookup("db").DefValue)
	assert.Equal(t, "0", serveCmd.Flags().Lookup("queue-size").DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "history", "X"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.LogConfig
		verbose bool
		format  string
		debug   bool
		json    bool
	}{
		{name: "defaults", lc: config.LogConfig{Level: "info", Format: "text"}, format: "text"},
		{name: "config debug", lc: config.LogConfig{Level: "debug"}, format: "text", debug: true},
		{name: "verbose wins", lc: config.LogConfig{Level: "error"}, verbose: true, format: "text", debug: true},
		{name: "json config", lc: config.LogConfig{Format: "json"}, format: "text", json: true},
		{name: "json output", lc: config.LogConfig{Format: "text"}, format: "json", json: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			l := newLogger(buf, tt.lc, tt.verbose, tt.format)
			l.Debug("probe", "k", "v")
			l.Error("probe", "k", "v")

			out := buf.String()
			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte("DEBUG")), out)
			if tt.json {
				assert.Contains(t, out, `"msg":"probe"`)
			} else {
				assert.Contains(t, out, "msg=probe")
			}
		})
	}
}

func TestRootOptionsLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvURL, "http://env:8008")

	opts := &RootOptions{Format: "text"}
	require.NoError(t, opts.load(&bytes.Buffer{}))
	assert.Equal(t, "http://env:8008", opts.Config.Client.URL)
	require.NotNil(t, opts.Logger)

	opts = &RootOptions{Format: "text", URL: "http://flag:1"}
	require.NoError(t, opts.load(&bytes.Buffer{}))
	assert.Equal(t, "http://flag:1", opts.Config.Client.URL, "--url overrides the environment")

	assert.Equal(t, slog.Default(), (&RootOptions{}).logger())
}

func TestResolveSigner(t *testing.T) {
	opts := &RootOptions{Config: config.Default()}
	opts.Config.Client.KeyDir = t.TempDir()

	_, err := opts.resolveSigner("-")
	require.Error(t, err, "no default key written yet")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	s, err := opts.resolveSigner("0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", s.PublicKey())
}
