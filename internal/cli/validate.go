package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/config"
	"github.com/roach88/carlog/internal/harness"
)

// ValidationError is one problem found in a file.
type ValidationError struct {
	File    string `json:"file"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Scenario bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [file]...",
		Short: "Validate config or scenario files",
		Long: `Validate config files against the carlog schema, or scenario files
with --scenario, without running anything.

With no file, the default config (~/.carlog/config.yaml) is checked.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		// The file under test may be the one the root command would load.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Scenario, "scenario", false, "files are harness scenarios")
	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if len(files) == 0 {
		if opts.Scenario {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, "--scenario requires at least one file", nil)
		}
		files = []string{config.DefaultPath()}
	}

	var errs []ValidationError
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		if opts.Scenario {
			errs = append(errs, validateScenarioFile(file)...)
		} else {
			errs = append(errs, validateConfigFile(file)...)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(files), errs)
	}
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: len(files)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d file(s) valid\n", len(files))
	return nil
}

func validateScenarioFile(file string) []ValidationError {
	if _, err := harness.LoadScenario(file); err != nil {
		return []ValidationError{{File: file, Field: "scenario", Message: err.Error()}}
	}
	return nil
}

// validateConfigFile checks the schema first, then the merged values.
func validateConfigFile(file string) []ValidationError {
	data, err := os.ReadFile(file)
	if err != nil {
		return []ValidationError{{File: file, Field: "file", Message: err.Error()}}
	}

	cfg := config.Default()
	if err := config.Parse(file, data, &cfg); err != nil {
		return configErrors(file, err)
	}
	return configErrors(file, cfg.Check())
}

// configErrors flattens config errors, keeping positions when known.
func configErrors(file string, err error) []ValidationError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []ValidationError
		for _, e := range joined.Unwrap() {
			out = append(out, configErrors(file, e)...)
		}
		return out
	}

	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		return []ValidationError{{File: file, Field: "config", Message: err.Error()}}
	}
	ve := ValidationError{File: file, Field: cfgErr.Field, Message: cfgErr.Message}
	if cfgErr.Pos.IsValid() {
		ve.Line = cfgErr.Pos.Line()
		ve.Column = cfgErr.Pos.Column()
	}
	return []ValidationError{ve}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, files int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", e.File, e.Line, e.Column)
		} else {
			fmt.Fprintln(formatter.Writer, e.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Field, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
