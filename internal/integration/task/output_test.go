package task

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutput_AppendLine(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("Snakemake Auto Detection", WithOutputWriter(&buf))

	out.AppendLine("first")
	out.AppendLine("second")

	lines := out.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Content != "first" || lines[0].LineNumber != 1 {
		t.Errorf("lines[0] = %+v, want first/1", lines[0])
	}
	if lines[1].Content != "second" || lines[1].LineNumber != 2 {
		t.Errorf("lines[1] = %+v, want second/2", lines[1])
	}
	if lines[0].Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if buf.String() != "first\nsecond\n" {
		t.Errorf("writer got %q, want %q", buf.String(), "first\nsecond\n")
	}
	if out.Name() != "Snakemake Auto Detection" {
		t.Errorf("Name() = %q", out.Name())
	}
}

func TestOutput_Show(t *testing.T) {
	var revealed []bool
	out := NewOutput("test", WithShowHandler(func(preserveFocus bool) {
		revealed = append(revealed, preserveFocus)
	}))

	if n, _ := out.ShowCount(); n != 0 {
		t.Errorf("ShowCount() = %d, want 0", n)
	}

	out.Show(true)
	out.Show(false)

	n, lastFocus := out.ShowCount()
	if n != 2 {
		t.Errorf("ShowCount() = %d, want 2", n)
	}
	if lastFocus {
		t.Error("last preserveFocus = true, want false")
	}
	if len(revealed) != 2 || !revealed[0] || revealed[1] {
		t.Errorf("show handler got %v, want [true false]", revealed)
	}
}

func TestOutput_MirrorsToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	out := NewOutput("test", WithOutputLogger(zap.New(core)))

	out.AppendLine("rule not found")

	entries := logs.FilterMessage("rule not found").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["channel"]; got != "test" {
		t.Errorf("channel field = %v, want %q", got, "test")
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("level = %v, want debug", entries[0].Level)
	}
}

func TestOutput_ContentsAndClear(t *testing.T) {
	out := NewOutput("test")
	out.AppendLine("a")
	out.AppendLine("b")

	contents := out.Contents()
	if len(contents) != 2 || contents[0] != "a" || contents[1] != "b" {
		t.Errorf("Contents() = %v, want [a b]", contents)
	}

	out.Clear()
	if len(out.Lines()) != 0 {
		t.Errorf("got %d lines after Clear, want 0", len(out.Lines()))
	}

	out.AppendLine("c")
	if lines := out.Lines(); len(lines) != 1 || lines[0].LineNumber != 1 {
		t.Errorf("Lines() after Clear = %+v, want one line numbered 1", lines)
	}
}

func TestOutput_MaxLines(t *testing.T) {
	out := NewOutput("test", WithOutputMaxLines(3))
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		out.AppendLine(s)
	}

	lines := out.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, want := range []string{"c", "d", "e"} {
		if lines[i].Content != want {
			t.Errorf("line %d = %q, want %q", i, lines[i].Content, want)
		}
		if lines[i].LineNumber != i+3 {
			t.Errorf("line %d number = %d, want %d", i, lines[i].LineNumber, i+3)
		}
	}
}

func TestOutput_DefaultMaxLines(t *testing.T) {
	out := NewOutput("test", WithOutputMaxLines(0))
	for i := 0; i < DefaultOutputMaxLines+10; i++ {
		out.AppendLine("line")
	}

	lines := out.Lines()
	if len(lines) != DefaultOutputMaxLines {
		t.Errorf("got %d lines, want %d", len(lines), DefaultOutputMaxLines)
	}
	if last := lines[len(lines)-1].LineNumber; last != DefaultOutputMaxLines+10 {
		t.Errorf("last line number = %d, want %d", last, DefaultOutputMaxLines+10)
	}
}
