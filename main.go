// asn1ir compiles ASN.1 schemas into an ordered intermediate representation.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phobologic/asn1ir/internal/compile"
	"github.com/phobologic/asn1ir/internal/discover"
	"github.com/phobologic/asn1ir/internal/emit"
	"github.com/phobologic/asn1ir/internal/selection"
)

var version = "dev"

const (
	defaultMaxFileSize = 1_000_000 // 1 MB
	configName         = ".asn1ir"
	envPrefix          = "ASN1IR"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// settings are the effective options after flags, environment and config
// file have been merged.
type settings struct {
	format      string
	types       []string
	module      string
	moduleOrder []string
	exts        []string
	cache       string
	maxFileSize int
	workers     int
	logLevel    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "asn1ir [flags] [path ...]",
		Short: "Compile ASN.1 schemas into an ordered intermediate representation",
		Long: `asn1ir parses every ASN.1 schema found under the given paths (default: the
current directory), resolves references across modules, assigns tags,
partitions extension additions, folds constraints and prints the types in
dependency order.

Settings are read from flags, then ASN1IR_* environment variables (for
example ASN1IR_FORMAT=json), then ./.asn1ir.yaml or the file named by
--config. Run "asn1ir init" to write a starter config.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, cmd.Flags()); err != nil {
				return err
			}
			return generate(cmd.Context(), args, settingsFrom(v), stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("asn1ir {{.Version}}\n")

	f := cmd.Flags()
	f.StringP("format", "f", "toon", "output format: "+strings.Join(emit.Names(), ", "))
	f.StringSliceP("type", "t", nil, "only emit types whose name contains one of these, with the types they use")
	f.StringP("module", "m", "", "only emit types of modules whose name contains this")
	f.StringSlice("module-order", nil, "modules that come first when the order is otherwise free")
	f.StringSlice("ext", discover.DefaultExtensions, "schema file extensions")
	f.String("cache", "", "cache file path")
	f.Int("max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	f.Int("workers", 0, "parser goroutines, 0 for one per CPU")
	f.String("log-level", "warn", "log level: trace, debug, info, warn, error or off")
	f.String("config", "", "config file (default is ./.asn1ir.yaml)")
	f.BoolP("version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

func loadConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := v.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func settingsFrom(v *viper.Viper) settings {
	return settings{
		format:      v.GetString("format"),
		types:       v.GetStringSlice("type"),
		module:      v.GetString("module"),
		moduleOrder: v.GetStringSlice("module-order"),
		exts:        v.GetStringSlice("ext"),
		cache:       v.GetString("cache"),
		maxFileSize: v.GetInt("max-file-size"),
		workers:     v.GetInt("workers"),
		logLevel:    v.GetString("log-level"),
	}
}

// schemaFile is a discovered file. Name is the path shown in positions.
type schemaFile struct {
	name    string
	abs     string
	size    int64
	modTime time.Time
}

func generate(ctx context.Context, roots []string, s settings, stdout, stderr io.Writer) error {
	backend, err := emit.Lookup(s.format)
	if err != nil {
		return err
	}
	level := hclog.LevelFromString(s.logLevel)
	if level == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", s.logLevel)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "asn1ir",
		Level:  level,
		Output: stderr,
	})

	if len(roots) == 0 {
		roots = []string{"."}
	}
	var files []schemaFile
	for _, root := range roots {
		found, err := collect(ctx, root, s.exts)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no schema files found")
	}

	selecting := len(s.types) > 0 || s.module != ""
	if s.cache != "" && !selecting && cacheIsFresh(s.cache, files) {
		data, err := os.ReadFile(s.cache)
		if err == nil {
			logger.Debug("using cached output", "path", s.cache)
			_, err = stdout.Write(data)
			return err
		}
	}

	files = filterBySize(files, s.maxFileSize, logger)
	if len(files) == 0 {
		return fmt.Errorf("no schema files found (all exceeded size limit)")
	}

	sources := make([]compile.Source, 0, len(files))
	for _, f := range files {
		text, err := os.ReadFile(f.abs)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.name, err)
		}
		sources = append(sources, compile.Source{Name: f.name, Text: text})
	}

	p, err := compile.Compile(sources, compile.Options{
		Workers:     s.workers,
		ModuleOrder: s.moduleOrder,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if len(s.types) > 0 {
		if p, err = selection.ByType(p, s.types); err != nil {
			return err
		}
	}
	if s.module != "" {
		p = selection.ByModule(p, s.module)
	}

	var buf bytes.Buffer
	if err := backend.Emit(&buf, p); err != nil {
		return fmt.Errorf("writing %s output: %w", s.format, err)
	}

	if s.cache != "" && !selecting {
		if err := os.WriteFile(s.cache, buf.Bytes(), 0o644); err != nil {
			logger.Warn("cache not written", "path", s.cache, "error", err)
		}
	}

	_, err = stdout.Write(buf.Bytes())
	return err
}

// collect returns the schema files under root. A root naming a file is
// taken as is, whatever its extension.
func collect(ctx context.Context, root string, exts []string) ([]schemaFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return []schemaFile{{name: root, abs: abs, size: info.Size(), modTime: info.ModTime()}}, nil
	}

	entries, err := discover.Files(ctx, abs, discover.Options{Extensions: exts})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	files := make([]schemaFile, len(entries))
	for i, e := range entries {
		files[i] = schemaFile{
			name:    filepath.Join(root, e.Path),
			abs:     filepath.Join(abs, e.Path),
			size:    e.Size,
			modTime: e.ModTime,
		}
	}
	return files, nil
}

func cacheIsFresh(cachePath string, files []schemaFile) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		if !f.modTime.Before(cacheMtime) {
			return false
		}
	}
	return true
}

func filterBySize(files []schemaFile, maxSize int, logger hclog.Logger) []schemaFile {
	var kept []schemaFile
	for _, f := range files {
		if f.size > int64(maxSize) {
			logger.Warn("skipping large file", "path", f.name, "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
