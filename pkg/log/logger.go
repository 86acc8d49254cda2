// Copyright 2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log is the logging facade shared by the vbios packages.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger describes a logger to be used in vbios.
type Logger interface {
	// Infof logs an informational message.
	Infof(format string, args ...interface{})

	// Warnf logs an warning message.
	Warnf(format string, args ...interface{})

	// Errorf logs an error message.
	Errorf(format string, args ...interface{})

	// Fatalf logs a fatal message and immediately exits the application
	// with os.Exit.
	Fatalf(format string, args ...interface{})
}

// DefaultLogger is the logger used by default everywhere within vbios.
var DefaultLogger Logger

func init() {
	DefaultLogger = New(os.Stderr)
}

// Level is the lowest severity a Logger prints. Fatal messages are always
// printed.
type Level int

// Severities, lowest first.
const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// New returns a Logger which writes prefixed lines of every severity to w.
func New(w io.Writer) Logger {
	return NewLevel(w, LevelInfo)
}

// NewLevel returns a Logger which writes prefixed lines to w and drops the
// messages below level.
func NewLevel(w io.Writer, level Level) Logger {
	return logWrapper{Logger: log.New(w, "", log.LstdFlags), level: level}
}

type logWrapper struct {
	Logger *log.Logger
	level  Level
}

func (logger logWrapper) printf(level Level, format string, args ...interface{}) {
	if level < logger.level {
		return
	}
	logger.Logger.Printf("[vbios]["+level.String()+"] "+format, args...)
}

// Infof implements Logger.
func (logger logWrapper) Infof(format string, args ...interface{}) {
	logger.printf(LevelInfo, format, args...)
}

// Warnf implements Logger.
func (logger logWrapper) Warnf(format string, args ...interface{}) {
	logger.printf(LevelWarn, format, args...)
}

// Errorf implements Logger.
func (logger logWrapper) Errorf(format string, args ...interface{}) {
	logger.printf(LevelError, format, args...)
}

// Fatalf implements Logger.
func (logger logWrapper) Fatalf(format string, args ...interface{}) {
	logger.Logger.Fatalf("[vbios][FATAL] "+format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) {
	DefaultLogger.Infof(format, args...)
}

// Warnf logs an warning message.
func Warnf(format string, args ...interface{}) {
	DefaultLogger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	DefaultLogger.Errorf(format, args...)
}

// Fatalf logs a fatal message and immediately exits the application
// with os.Exit (which is expected to be called by the DefaultLogger.Fatalf).
func Fatalf(format string, args ...interface{}) {
	DefaultLogger.Fatalf(format, args...)
}
