/*
 * CalPump - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

// Package deliverylog keeps the durable set of message identifiers that have
// been fully delivered. The file holds one "YYYY-MM-DD HH:MM:SS  <id>" line per
// delivered message and is only ever appended to.
package deliverylog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05"

var ErrInvalidIdentifier = errors.New("invalid identifier")

type Log struct {
	path string
	seen map[string]struct{}
	now  func() time.Time
}

// Open loads the log at path. A missing file is an empty log.
func Open(path string) (*Log, error) {
	l := &Log{
		path: path,
		seen: map[string]struct{}{},
		now:  time.Now,
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	} else if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := l.load(f); err != nil {
		return nil, fmt.Errorf("reading %v: %w", path, err)
	}

	return l, nil
}

func (l *Log) load(f *os.File) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if id, ok := parseLine(scanner.Text()); ok {
			l.seen[id] = struct{}{}
		}
	}

	return scanner.Err()
}

// parseLine returns the identifier of a "<date> <time> <id>" line. The id is
// the remainder of the line after the second field.
func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}

	rest := line
	for i := 0; i < 2; i++ {
		idx := strings.IndexFunc(rest, isSpace)
		if idx < 0 {
			return "", false
		}
		rest = strings.TrimLeftFunc(rest[idx:], isSpace)
	}

	if rest == "" {
		return "", false
	}

	return rest, true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\v' || r == '\f' || r == '\r' || r == '\n'
}

func (l *Log) Path() string {
	return l.path
}

func (l *Log) Seen(id string) bool {
	_, ok := l.seen[strings.TrimSpace(id)]
	return ok
}

func (l *Log) Len() int {
	return len(l.seen)
}

// Check reports whether id can be recorded by Append.
func Check(id string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "\r\n") {
		return ErrInvalidIdentifier
	}
	return nil
}

// Append durably records id. The id is only considered seen once the line has
// reached the disk.
func (l *Log) Append(id string) error {
	if err := Check(id); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%v  %v\n", l.now().UTC().Format(timestampFormat), id)
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	l.seen[id] = struct{}{}
	return nil
}
