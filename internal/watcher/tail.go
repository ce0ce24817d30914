// Package watcher reads newly appended text from an append-only log file.
package watcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when the newly appended bytes are not UTF-8.
var ErrInvalidUTF8 = errors.New("log content is not valid UTF-8")

// Cursor is the position of the reader in the log file.
type Cursor struct {
	// Offset is the number of bytes already processed.
	Offset int64
	// Primed is false until the first read, which skips existing history.
	Primed bool
}

// ReadNew returns the text appended to path since cur and the advanced
// cursor. The file is opened fresh on every call because it may have been
// rotated between polls.
//
// On the first call the cursor jumps to the end of the file, so startup
// never replays history. If the file is shorter than the cursor it was
// truncated or rotated and reading restarts from offset zero.
func ReadNew(path string, cur Cursor) (string, Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", cur, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", cur, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	next := cur
	if !next.Primed {
		next.Offset = size
		next.Primed = true
	}
	if size < next.Offset {
		next.Offset = 0
	}

	if _, err := f.Seek(next.Offset, io.SeekStart); err != nil {
		return "", cur, fmt.Errorf("seeking %s to %d: %w", path, next.Offset, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", cur, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", cur, fmt.Errorf("reading %s at offset %d: %w", path, next.Offset, ErrInvalidUTF8)
	}

	next.Offset += int64(len(data))
	return string(data), next, nil
}

// FileTail binds ReadNew to a fixed path.
type FileTail struct {
	Path string
}

// NewFileTail creates a FileTail for the given log path.
func NewFileTail(path string) *FileTail {
	return &FileTail{Path: path}
}

func (t *FileTail) ReadNew(cur Cursor) (string, Cursor, error) {
	return ReadNew(t.Path, cur)
}

// SplitLines splits read text into lines without their terminators.
// A trailing newline does not produce an empty final line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
