// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package log provides a small leveled logger in the style of a Print-family
// writer. Unlike a package-level singleton it is a value callers construct
// and thread explicitly, so pipeline.Run can take one as a parameter
// without hidden global state.
package log

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Logger writes leveled messages to an underlying writer, and optionally
// tees them to a file (e.g. dump_dir/run.log).
type Logger struct {
	out     io.Writer
	file    *os.File
	buf     *bufio.Writer
}

// New returns a Logger writing to w. If w is nil, os.Stdout is used.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{out: w}
}

// TeeToFile additionally writes every subsequent message to fileName,
// truncating any prior contents.
func (l *Logger) TeeToFile(fileName string) error {
	if l.file != nil {
		if err := l.Sync(); err != nil {
			return err
		}
		if err := l.file.Close(); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	l.file = f
	l.buf = bufio.NewWriter(f)
	return nil
}

func (l *Logger) writeBoth(s string) {
	fmt.Fprint(l.out, s)
	if l.buf != nil {
		fmt.Fprint(l.buf, s)
	}
}

// Infof logs an informational message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.writeBoth(fmt.Sprintf(format, args...))
}

// Warnf logs a warning, prefixed so it stands out in the stream.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.writeBoth("warning: " + fmt.Sprintf(format, args...))
}

// Errorf logs an error, prefixed so it stands out in the stream.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.writeBoth("error: " + fmt.Sprintf(format, args...))
}

// Sync flushes any buffered file output to disk.
func (l *Logger) Sync() error {
	if l.buf == nil {
		return nil
	}
	if err := l.buf.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close flushes and closes the tee file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.Sync(); err != nil {
		return err
	}
	return l.file.Close()
}
