// Package nlog is a small leveled logger used throughout dash in place
// of ad-hoc fmt.Printf calls.
/*
 * Copyright (c) 2024, dash authors.
 */
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// verbosity levels, coarser than a full per-module table - good enough
// for a runtime library with a handful of hot packages.
const (
	LevelError int32 = iota
	LevelWarning
	LevelInfo
	LevelVerbose
)

var (
	level  atomic.Int32
	stdlog = log.New(os.Stderr, "", log.Ldate|log.Lmicroseconds|log.Lshortfile)
)

func init() { level.Store(LevelInfo) }

// SetLevel adjusts global verbosity; safe for concurrent use.
func SetLevel(l int32) { level.Store(l) }

// FastV reports whether verbosity v is enabled for module (module is
// accepted for call-site symmetry with the teacher's cos.Smodule* gate
// and for future per-module filtering; the current implementation is
// global).
func FastV(v int32, _ string) bool { return level.Load() >= v }

func Infoln(v ...any) {
	if level.Load() >= LevelInfo {
		stdlog.Output(2, sprint("I ", v...))
	}
}

func Warningln(v ...any) {
	if level.Load() >= LevelWarning {
		stdlog.Output(2, sprint("W ", v...))
	}
}

func Errorln(v ...any) {
	if level.Load() >= LevelError {
		stdlog.Output(2, sprint("E ", v...))
	}
}

func Infof(format string, v ...any) {
	if level.Load() >= LevelInfo {
		stdlog.Output(2, "I "+sprintf(format, v...))
	}
}

func Errorf(format string, v ...any) {
	if level.Load() >= LevelError {
		stdlog.Output(2, "E "+sprintf(format, v...))
	}
}

func sprint(prefix string, v ...any) string { return prefix + fmt.Sprintln(v...) }
func sprintf(format string, v ...any) string { return fmt.Sprintf(format, v...) }
