package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/novic/internal/cachemanager"
	"github.com/zjrosen/novic/internal/config"
	"github.com/zjrosen/novic/internal/flags"
	"github.com/zjrosen/novic/internal/highlight"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/syntax"
	"github.com/zjrosen/novic/internal/tracing"
)

// app bundles what the subcommands share: the language registry, feature
// flags and tracing.
type app struct {
	cfg      config.Config
	loader   syntax.Loader
	registry *syntax.Registry
	report   syntax.LoadReport
	flags    *flags.Registry
	tracing  *tracing.Provider
}

func newApp(c config.Config) (*app, error) {
	loader := syntax.Loader{
		Dir: c.Syntax.DefinitionsDir,
		Options: syntax.CompileOptions{
			MatchTimeout: c.Syntax.MatchTimeout,
			Theme:        c.Syntax.Theme,
		},
	}
	reg := syntax.NewRegistry()
	report := loader.LoadInto(reg)
	for _, s := range report.Skipped {
		log.Warn(log.CatRegistry, "skipped language definition", "path", s.Path, "error", s.Err)
	}

	tc := tracing.Config{
		Enabled:      c.Tracing.Enabled,
		Exporter:     c.Tracing.Exporter,
		FilePath:     c.Tracing.FilePath,
		OTLPEndpoint: c.Tracing.OTLPEndpoint,
		SampleRate:   c.Tracing.SampleRate,
	}
	if tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	tp, err := tracing.NewProvider(tc)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	return &app{
		cfg:      c,
		loader:   loader,
		registry: reg,
		report:   report,
		flags:    flags.New(c.Flags),
		tracing:  tp,
	}, nil
}

// reload re-reads definitions into the shared registry.
func (a *app) reload() syntax.LoadReport {
	a.report = a.loader.LoadInto(a.registry)
	return a.report
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "tracing shutdown failed", err)
	}
}

// highlightOptions maps configuration onto controller options.
func (a *app) highlightOptions() highlight.Options {
	h := a.cfg.Highlight
	opts := highlight.Options{
		Debounce:        h.Debounce,
		Retry:           h.Retry,
		MaxDocumentSize: h.MaxDocumentSize,
		SampleSize:      h.SampleSize,
		MaxTokens:       h.MaxTokens,
		Tracer:          a.tracing.Tracer(),
		CacheTTL:        h.CacheTTL,
	}
	if h.Cache {
		ttl := h.CacheTTL
		if ttl <= 0 {
			ttl = highlight.DefaultCacheTTL
		}
		opts.Cache = cachemanager.NewInMemoryCacheManager[string, []syntax.Token]("lex", ttl, 2*ttl)
	}
	return opts
}

// language resolves the language for path. An explicit name must exist.
func (a *app) language(path string, content []byte, name string) (*syntax.Language, error) {
	if name != "" {
		l := a.registry.Get(name)
		if l == nil {
			return nil, fmt.Errorf("unknown language %q (see `novic languages`)", name)
		}
		return l, nil
	}
	if a.flags.Enabled(flags.FlagContentDetection) {
		return a.registry.Detect(path, content), nil
	}
	return a.registry.ForExtension(filepath.Ext(path)), nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
