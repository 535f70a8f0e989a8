// Command preproc is the CLI front-end for the engine (SPEC_FULL.md
// §12.2): it reads a source file, wires an ExecutionVM to the default
// directive parser, expression evaluator, include resolver and file
// cache, executes it, and writes the result to stdout or -o.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/txtasm/preproc/internal/afs"
	"github.com/txtasm/preproc/internal/cache"
	"github.com/txtasm/preproc/internal/cachestats"
	"github.com/txtasm/preproc/internal/directive"
	"github.com/txtasm/preproc/internal/exclude"
	"github.com/txtasm/preproc/internal/expr"
	"github.com/txtasm/preproc/internal/resolver"
	"github.com/txtasm/preproc/internal/vm"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "preproc:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("preproc", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "path to a TOML configuration file")
		cacheDir    = fs.String("cache-dir", "", "override the cache directory")
		excludePath = fs.String("exclude", "", "override the exclusion-manifest path")
		noCache     = fs.Bool("no-cache", false, "disable read-through caching of includes")
		lineControl = fs.Bool("line-control", false, "emit #line control statements in the output")
		logLevel    = fs.String("log-level", "", "override the log level (debug, info, warn, error)")
		outPath     = fs.String("o", "", "write output to this file instead of stdout")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: preproc [flags] <source-file>")
	}
	sourcePath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *excludePath != "" {
		cfg.ExcludeManifest = *excludePath
	}
	if *noCache {
		cfg.UseCache = false
	}
	if *lineControl {
		cfg.GenerateLineControl = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}

	exclusion, err := loadExclusionMatcher(cfg.ExcludeManifest)
	if err != nil {
		return fmt.Errorf("loading exclusion manifest: %w", err)
	}

	var stats *cachestats.Store
	if cfg.UseCache && cfg.CacheDir != "" {
		statsPath := filepath.Join(cfg.CacheDir, "stats.db")
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err == nil {
			stats, err = cachestats.Open(statsPath)
			if err != nil {
				logger.Warn().Err(err).Msg("could not open cache stats store, continuing without it")
				stats = nil
			} else {
				defer stats.Close()
			}
		}
	}

	fls := afs.NewOS()
	fileCache := cache.New(fls, cfg.CacheDir, exclusion, cache.Options{
		Stats:  stats,
		Logger: logger.With().Str("component", "cache").Logger(),
	})

	httpClient := &http.Client{Timeout: cfg.httpTimeout()}
	fileReader := resolver.NewFileReader(fls, "")
	httpReader := resolver.NewHTTPReader(cfg.httpTimeout())
	httpReader.MaxRetries = cfg.HTTPMaxRetries
	githubReader := resolver.NewGithubReader(httpClient)

	res := resolver.New(fileCache, fileReader, httpReader, githubReader, resolver.Options{
		UseCache: cfg.UseCache,
		Logger:   logger.With().Str("component", "resolver").Logger(),
	})

	engine := vm.New(directive.New(), expr.New(), res, vm.Options{
		MaxDepth:            cfg.MaxExecutionDepth,
		GenerateLineControl: cfg.GenerateLineControl,
		Logger:              logger.With().Str("component", "vm").Logger(),
	})

	output, err := engine.Execute(sourcePath, string(source), nil)
	if err != nil {
		return fmt.Errorf("executing %s: %w", sourcePath, err)
	}

	if *outPath == "" {
		_, err = fmt.Fprint(os.Stdout, output)
		return err
	}
	return os.WriteFile(*outPath, []byte(output), 0o644)
}

func loadExclusionMatcher(path string) (*exclude.Matcher, error) {
	if path == "" {
		return exclude.NewFromString("")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return exclude.New(f)
}
