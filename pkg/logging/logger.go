// Package logging provides the structured logger used throughout
// ledgerpool, built on zap: a small Config struct, an encoder/level/
// sink assembled once at startup, and a package-level default so call
// sites that don't carry their own *zap.Logger still get structured
// output instead of fmt.Printf.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger's level, encoding, and destination.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to
	// "info" on a parse failure.
	Level string
	// Format is "json" or "console".
	Format string
	// OutputFile is a path, or "stdout"/"stderr". Empty means stdout.
	OutputFile string
}

// New builds a *zap.Logger from Config. Call once at process startup.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	sink, err := writeSyncer(cfg.OutputFile)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()).
		WithOptions(zap.Fields(zap.String("component", "ledgerpool"))), nil
}

func writeSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", outputFile, err)
		}
		return zapcore.AddSync(f), nil
	}
}

var (
	defaultOnce   sync.Once
	defaultLogger *zap.Logger
)

// Default returns a process-wide logger initialized lazily with
// production-sane defaults (info level, console format, stdout). The
// buffer pool accepts an explicit *zap.Logger in its constructor and
// falls back to this one when given nil.
func Default() *zap.Logger {
	defaultOnce.Do(func() {
		l, err := New(Config{Level: "info", Format: "console", OutputFile: "stdout"})
		if err != nil {
			l = zap.NewNop()
		}
		defaultLogger = l
	})
	return defaultLogger
}
