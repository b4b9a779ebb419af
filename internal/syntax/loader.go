package syntax

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/novic/internal/log"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// SkippedFile records a definition file that could not be used.
type SkippedFile struct {
	Path string
	Err  error
}

// LoadReport summarizes one load pass.
type LoadReport struct {
	Loaded  []string
	Skipped []SkippedFile
}

// Loader reads declarative language definitions. Built-in definitions are
// loaded first; files in Dir override built-ins with the same name.
type Loader struct {
	// Dir holds user definition files (*.json, *.yaml, *.yml). Optional.
	Dir string

	// NoBuiltins skips the embedded definitions.
	NoBuiltins bool

	Options CompileOptions
}

// Load compiles every definition it can and reports the rest. A broken file
// never aborts the pass.
func (l Loader) Load() ([]*Language, LoadReport) {
	var (
		report LoadReport
		order  []string
		byName = make(map[string]*Language)
	)

	add := func(langs []*Language, r LoadReport) {
		for _, lang := range langs {
			key := strings.ToLower(lang.Name)
			if _, ok := byName[key]; !ok {
				order = append(order, key)
			}
			byName[key] = lang
		}
		report.Loaded = append(report.Loaded, r.Loaded...)
		report.Skipped = append(report.Skipped, r.Skipped...)
	}

	if !l.NoBuiltins {
		sub, err := fs.Sub(builtinFS, "builtin")
		if err == nil {
			add(LoadFS(sub, "builtin:", l.Options))
		}
	}

	if l.Dir != "" {
		info, err := os.Stat(l.Dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug(log.CatRegistry, "definitions dir does not exist", "dir", l.Dir)
		case err != nil:
			report.Skipped = append(report.Skipped, SkippedFile{Path: l.Dir, Err: err})
		case !info.IsDir():
			report.Skipped = append(report.Skipped, SkippedFile{Path: l.Dir, Err: fmt.Errorf("not a directory")})
		default:
			add(LoadFS(os.DirFS(l.Dir), l.Dir+string(os.PathSeparator), l.Options))
		}
	}

	langs := make([]*Language, 0, len(order))
	for _, key := range order {
		langs = append(langs, byName[key])
	}
	return langs, report
}

// LoadInto loads definitions and replaces the contents of reg with them.
func (l Loader) LoadInto(reg *Registry) LoadReport {
	langs, report := l.Load()
	reg.Replace(langs)
	log.Info(log.CatRegistry, "language definitions loaded",
		"languages", len(langs), "skipped", len(report.Skipped))
	return report
}

// LoadFS compiles the definition files at the top level of fsys. prefix is
// prepended to file names in Language.Source and in the report.
func LoadFS(fsys fs.FS, prefix string, opts CompileOptions) ([]*Language, LoadReport) {
	var report LoadReport

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		report.Skipped = append(report.Skipped, SkippedFile{Path: prefix, Err: err})
		return nil, report
	}

	var langs []*Language
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		source := prefix + e.Name()

		lang, err := loadFile(fsys, e.Name(), opts)
		if err != nil {
			log.Warn(log.CatRegistry, "skipping language definition", "file", source, "error", err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: source, Err: err})
			continue
		}
		lang.Source = source
		langs = append(langs, lang)
		report.Loaded = append(report.Loaded, lang.Name)
	}
	return langs, report
}

// IsDefinitionFile reports whether name has a definition file extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func loadFile(fsys fs.FS, name string, opts CompileOptions) (*Language, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	def, err := ParseDefinition(name, data)
	if err != nil {
		return nil, err
	}
	return Compile(def, opts)
}

// ParseDefinition decodes data as JSON or YAML depending on name's extension.
func ParseDefinition(name string, data []byte) (Definition, error) {
	var def Definition
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return def, fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &def); err != nil {
			return def, fmt.Errorf("parsing json: %w", err)
		}
	}
	return def, nil
}
