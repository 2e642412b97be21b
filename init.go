package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/asn1ir/internal/discover"
)

const configHeader = `# asn1ir configuration. Command-line flags and ASN1IR_* environment
# variables override these values.
`

// fileConfig mirrors the root command flags that make sense to persist.
type fileConfig struct {
	Format      string   `yaml:"format"`
	Ext         []string `yaml:"ext"`
	MaxFileSize int      `yaml:"max-file-size"`
	Workers     int      `yaml:"workers"`
	LogLevel    string   `yaml:"log-level"`
	ModuleOrder []string `yaml:"module-order,omitempty"`
	Type        []string `yaml:"type,omitempty"`
	Module      string   `yaml:"module,omitempty"`
	Cache       string   `yaml:"cache,omitempty"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		Format:      "toon",
		Ext:         discover.DefaultExtensions,
		MaxFileSize: defaultMaxFileSize,
		LogLevel:    "warn",
	}
}

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter " + configName + ".yaml",
		Long: `Write an asn1ir config file holding the default settings. An existing file
keeps every value it already sets; missing settings are filled in.

path defaults to ./` + configName + `.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := configName + ".yaml"
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

func runInit(path string, dryRun bool, stdout, stderr io.Writer) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	content, err := applyDefaults(existing)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	return nil
}

// applyDefaults returns the config file content for existing, keeping the
// values it sets and filling the rest with defaults. It is a pure function
// for easy testing.
func applyDefaults(existing []byte) (string, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(existing, &cfg); err != nil {
		return "", fmt.Errorf("parsing config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return buf.String(), nil
}
