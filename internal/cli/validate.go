package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blitcore/internal/config"
	"github.com/roach88/blitcore/internal/harness"
)

// FileValidation is the validation result for one file.
type FileValidation struct {
	File    string `json:"file"`
	Kind    string `json:"kind"` // "scenario" | "profile"
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenario and profile files without running them",
		Long: `Check scenario files (.yaml, .yml) and device profiles (.cue, .toml).

Scenarios are parsed with unknown fields rejected and every assertion
checked against the command list. Profiles are checked against the
profile schema.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("file not found: %s", p), nil)
		}
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, p := range paths {
		formatter.VerboseLog("Validating %s", p)
		fv := validateFile(p)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateFile dispatches on extension.
func validateFile(path string) FileValidation {
	fv := FileValidation{File: path, Valid: true}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		fv.Kind = "scenario"
		_, err = harness.LoadScenario(path)
	case ".cue", ".toml":
		fv.Kind = "profile"
		_, err = config.Load(path)
	default:
		fv.Valid = false
		fv.Code = ErrCodeGeneric
		fv.Message = fmt.Sprintf("unsupported file type %q", filepath.Ext(path))
		return fv
	}

	if err != nil {
		fv.Valid = false
		fv.Code = ErrCodeInvalid
		fv.Message = err.Error()
	}
	return fv
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d file(s) valid\n", len(result.Files))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports every file that failed.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var failed []FileValidation
	for _, f := range result.Files {
		if !f.Valid {
			failed = append(failed, f)
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    failed[0].Code,
				Message: failed[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", len(failed)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", f.File, f.Kind)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", f.File)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", f.Code, f.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", len(failed)))
}
