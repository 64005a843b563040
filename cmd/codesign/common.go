package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ochairo/codesign/internal/domain/interfaces"
	logadapter "github.com/ochairo/codesign/internal/external-adapters/logrus"
)

// Output formats
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type logFlags struct {
	level  *string
	format *string
}

func addLogFlags(fs *flag.FlagSet) *logFlags {
	return &logFlags{
		level:  fs.String("log-level", envOr("CODESIGN_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)"),
		format: fs.String("log-format", logadapter.FormatText, "Log format (text, json)"),
	}
}

// logger builds the logrus-backed logger; logs go to stderr so stdout stays parseable
func (f *logFlags) logger() (interfaces.Logger, error) {
	l, err := logadapter.New(logadapter.Options{
		Level:  *f.level,
		Format: *f.format,
		Out:    os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid logging options: %w", err)
	}
	return l, nil
}

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
	}
}

// writeOutput renders v as JSON or YAML, or writes text for the text format
func writeOutput(w io.Writer, format string, v interface{}, text string) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		enc := yamlv3.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, text)
		return err
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
