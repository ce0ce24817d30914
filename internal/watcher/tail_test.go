package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestReadNewFirstReadSkipsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	history := "line one\nline two\n"
	writeLog(t, path, history)

	text, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if text != "" {
		t.Errorf("first read text = %q, want empty", text)
	}
	if cur.Offset != int64(len(history)) {
		t.Errorf("offset = %d, want %d", cur.Offset, len(history))
	}
	if !cur.Primed {
		t.Error("cursor should be primed after first read")
	}
}

func TestReadNewReturnsAppendedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	writeLog(t, path, "old\n")

	_, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}

	appendLog(t, path, "new 1\nnew 2\n")

	text, next, err := ReadNew(path, cur)
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if text != "new 1\nnew 2\n" {
		t.Errorf("text = %q", text)
	}
	if next.Offset != cur.Offset+int64(len(text)) {
		t.Errorf("offset = %d, want %d", next.Offset, cur.Offset+int64(len(text)))
	}

	// Nothing appended: same offset, no text.
	text, again, err := ReadNew(path, next)
	if err != nil {
		t.Fatal(err)
	}
	if text != "" || again.Offset != next.Offset {
		t.Errorf("idle read = (%q, %d), want (\"\", %d)", text, again.Offset, next.Offset)
	}
}

func TestReadNewTruncationResetsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	writeLog(t, path, "a fairly long line of history\n")

	_, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}

	// Rotation: the file is replaced by a shorter one.
	writeLog(t, path, "fresh\n")

	text, next, err := ReadNew(path, cur)
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if text != "fresh\n" {
		t.Errorf("text = %q, want %q", text, "fresh\n")
	}
	if next.Offset != int64(len("fresh\n")) {
		t.Errorf("offset = %d, want %d", next.Offset, len("fresh\n"))
	}
}

func TestReadNewOffsetMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	writeLog(t, path, "")

	var cur Cursor
	var err error
	prev := int64(0)
	for _, chunk := range []string{"", "a\n", "", "bb\n", "ccc\n"} {
		appendLog(t, path, chunk)
		_, cur, err = ReadNew(path, cur)
		if err != nil {
			t.Fatal(err)
		}
		if cur.Offset < prev {
			t.Fatalf("offset went backwards: %d -> %d", prev, cur.Offset)
		}
		prev = cur.Offset
	}
	if prev != int64(len("a\nbb\nccc\n")) {
		t.Errorf("final offset = %d", prev)
	}
}

func TestReadNewMissingFile(t *testing.T) {
	cur := Cursor{Offset: 5, Primed: true}
	_, got, err := ReadNew(filepath.Join(t.TempDir(), "missing.log"), cur)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if got != cur {
		t.Errorf("cursor changed on error: %+v", got)
	}
}

func TestReadNewInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	writeLog(t, path, "")

	_, cur, err := ReadNew(path, Cursor{})
	if err != nil {
		t.Fatal(err)
	}

	appendLog(t, path, "bad \xff\xfe bytes\n")

	_, got, err := ReadNew(path, cur)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("error = %v, want ErrInvalidUTF8", err)
	}
	if got != cur {
		t.Errorf("cursor changed on error: %+v", got)
	}
}

func TestFileTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	writeLog(t, path, "x\n")

	tail := NewFileTail(path)
	_, cur, err := tail.ReadNew(Cursor{})
	if err != nil {
		t.Fatal(err)
	}
	if cur.Offset != 2 {
		t.Errorf("offset = %d, want 2", cur.Offset)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one\n", []string{"one"}},
		{"one\ntwo", []string{"one", "two"}},
		{"one\r\ntwo\r\n", []string{"one", "two"}},
		{"\n", []string{""}},
	}

	for _, tt := range tests {
		got := SplitLines(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitLines(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
