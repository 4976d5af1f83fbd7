// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read at startup; flags override them.
const (
	envWorkers       = "BRA_WORKERS"
	envLogLevel      = "BRA_LOG_LEVEL"
	envTrimExtension = "BRA_TRIM_EXTENSION"
	envOutputDir     = "BRA_OUTPUT_DIR"
)

// config is resolved command configuration.
type config struct {
	archivePath   string
	outputDir     string
	logLevel      string
	includes      []string
	excludes      []string
	workers       int
	trimExtension bool
	listOnly      bool
	humanSizes    bool
	quiet         bool
}

// stringList collects repeated string flags.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// loadEnv loads optional .env from working directory; a missing file is not an error.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

// parseConfig resolves configuration from environment and args.
// Flags may appear before or after the archive path.
func parseConfig(args []string, stderr io.Writer) (config, error) {
	cfg := config{
		workers:       envInt(envWorkers, 0),
		logLevel:      envString(envLogLevel, "INFO"),
		trimExtension: envBool(envTrimExtension, false),
		outputDir:     envString(envOutputDir, ""),
	}

	fs := flag.NewFlagSet("bra-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var includes, excludes stringList
	fs.BoolVar(&cfg.trimExtension, "t", cfg.trimExtension, "trim file names to their first 3-character extension")
	fs.IntVar(&cfg.workers, "workers", cfg.workers, "parallel extraction workers (0 = number of CPUs)")
	fs.StringVar(&cfg.outputDir, "o", cfg.outputDir, "output directory (default: archive path without extension)")
	fs.StringVar(&cfg.logLevel, "log-level", cfg.logLevel, "log level: DEBUG, INFO, WARN, ERROR")
	fs.BoolVar(&cfg.listOnly, "list", false, "list entries without extracting")
	fs.BoolVar(&cfg.humanSizes, "human", false, "print human readable sizes")
	fs.BoolVar(&cfg.quiet, "q", false, "do not print the per-file table")
	fs.Var(&includes, "include", "extract only entries matching glob (repeatable)")
	fs.Var(&excludes, "exclude", "skip entries matching glob (repeatable)")

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return cfg, err
		}
		if fs.NArg() == 0 {
			break
		}

		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(positional) > 0 {
		cfg.archivePath = positional[0]
	}

	cfg.includes = includes
	cfg.excludes = excludes
	return cfg, nil
}

// newLogger builds a text slog logger for the configured level.
func newLogger(w io.Writer, levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}

	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}

	return v
}
