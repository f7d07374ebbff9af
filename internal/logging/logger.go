// Package logging provides categorized zap loggers for querygen.
// Every category gets a named child of one root logger. Output goes to stderr
// or a log file and never to stdout, which carries the corpus stream.
// Until Initialize (or SetLogger) is called, all loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config resolution
	CategoryCatalog Category = "catalog" // Catalog loading and schema validation
	CategoryExpand  Category = "expand"  // Template expansion per category
	CategoryCorpus  Category = "corpus"  // Assembly, dedup, shuffle
	CategoryEmit    Category = "emit"    // Output stream and summary
	CategoryStore   Category = "store"   // Run archive (SQLite)
	CategoryWatch   Category = "watch"   // Catalog file watcher
)

// Options configures the root logger.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional log file; stderr when empty
	Verbose    bool            // forces debug level
	Categories map[string]bool // per-category switch; missing entries are enabled
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	loggers    = make(map[Category]*zap.SugaredLogger)
	categories map[string]bool
)

// Initialize builds the root logger from opts.
func Initialize(opts Options) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(opts.Format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	cfg.OutputPaths = []string{"stderr"}
	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	categories = opts.Categories
	mu.Unlock()
	SetLogger(l)

	Get(CategoryBoot).Debugf("logging initialized: level=%s format=%s file=%q", level, cfg.Encoding, opts.File)
	return nil
}

// SetLogger replaces the root logger. Passing nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = l
	loggers = make(map[Category]*zap.SugaredLogger)
}

// L returns the root logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Sync flushes buffered log entries.
func Sync() error {
	return L().Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) the logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop().Sugar()
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Infof(format, args...)
}

// CatalogDebug logs debug to the catalog category
func CatalogDebug(format string, args ...interface{}) {
	Get(CategoryCatalog).Debugf(format, args...)
}

// ExpandDebug logs debug to the expand category
func ExpandDebug(format string, args ...interface{}) {
	Get(CategoryExpand).Debugf(format, args...)
}

// Corpus logs to the corpus category
func Corpus(format string, args ...interface{}) {
	Get(CategoryCorpus).Infof(format, args...)
}

// CorpusDebug logs debug to the corpus category
func CorpusDebug(format string, args ...interface{}) {
	Get(CategoryCorpus).Debugf(format, args...)
}

// EmitDebug logs debug to the emit category
func EmitDebug(format string, args ...interface{}) {
	Get(CategoryEmit).Debugf(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}

// StoreWarn logs a warning to the store category
func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warnf(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Infof(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debugf(format, args...)
}

// WatchWarn logs a warning to the watch category
func WatchWarn(format string, args ...interface{}) {
	Get(CategoryWatch).Warnf(format, args...)
}

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnw(t.op+" exceeded threshold", "elapsed", elapsed, "threshold", threshold)
	} else {
		Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	}
	return elapsed
}
