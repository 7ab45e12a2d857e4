package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func TestBold_ContainsText(t *testing.T) {
	Init(false, false)
	result := Bold("hello")
	if !strings.Contains(result, "hello") {
		t.Errorf("Bold output should contain 'hello', got %q", result)
	}
}

func TestColorDisabled_PlainText(t *testing.T) {
	Init(true, false) // no color
	defer Init(false, false)

	if Bold("hello") != "hello" {
		t.Errorf("expected plain text when color disabled, got %q", Bold("hello"))
	}
	if Red("error") != "error" {
		t.Errorf("expected plain text, got %q", Red("error"))
	}
	if Green("ok") != "ok" {
		t.Errorf("expected plain text, got %q", Green("ok"))
	}
	if Yellow("warn") != "warn" {
		t.Errorf("expected plain text, got %q", Yellow("warn"))
	}
	if Dim("dim") != "dim" {
		t.Errorf("expected plain text, got %q", Dim("dim"))
	}
	if Tag("work") != "#work" {
		t.Errorf("expected plain tag, got %q", Tag("work"))
	}
}

func TestLoggerInitialized(t *testing.T) {
	Init(false, false)
	if Logger == nil {
		t.Fatal("Logger should be initialized after Init()")
	}
	if Logger.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want info", Logger.GetLevel())
	}

	Init(false, true)
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("verbose level = %v, want debug", Logger.GetLevel())
	}

	SetLevel("warn")
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("SetLevel(warn) = %v", Logger.GetLevel())
	}
	SetLevel("bogus")
	if Logger.GetLevel() != log.WarnLevel {
		t.Errorf("unknown level changed logger to %v", Logger.GetLevel())
	}
}

func TestLoggerContext(t *testing.T) {
	Init(false, false)
	if LoggerFrom(context.Background()) != Logger {
		t.Error("expected package logger without a context logger")
	}
	var buf bytes.Buffer
	l := NewLogger(&buf, log.DebugLevel)
	ctx := WithLogger(context.Background(), l)
	if LoggerFrom(ctx) != l {
		t.Error("expected context logger")
	}
	NewProgress(l).Done("scanned vault")
	if !strings.Contains(buf.String(), "scanned vault") {
		t.Errorf("progress not logged: %q", buf.String())
	}
}

func TestTable(t *testing.T) {
	Init(true, false)
	defer Init(false, false)
	var buf bytes.Buffer
	old := Stdout
	Stdout = &buf
	defer func() { Stdout = old }()

	Table([]string{"TAG", "DEPTH"}, [][]string{{"work", "0"}, {"meetings", "1"}})
	out := buf.String()
	for _, want := range []string{"TAG", "DEPTH", "work", "meetings"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	RenderMarkdown(&buf, "- `#work`\n")
	if !strings.Contains(buf.String(), "#work") {
		t.Errorf("markdown output lost content: %q", buf.String())
	}
}

func TestConfirmModel(t *testing.T) {
	Init(true, false)
	tests := []struct {
		keys []tea.KeyMsg
		want bool
	}{
		{[]tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("y")}}, true},
		{[]tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("n")}}, false},
		{[]tea.KeyMsg{{Type: tea.KeyEnter}}, true},
		{[]tea.KeyMsg{{Type: tea.KeyRight}, {Type: tea.KeyEnter}}, false},
		{[]tea.KeyMsg{{Type: tea.KeyEsc}}, false},
	}
	for i, tt := range tests {
		var m tea.Model = confirmModel{prompt: "Reset?"}
		for _, k := range tt.keys {
			m, _ = m.Update(k)
		}
		got := m.(confirmModel)
		if !got.decided || got.accepted != tt.want {
			t.Errorf("case %d: decided=%v accepted=%v, want %v", i, got.decided, got.accepted, tt.want)
		}
	}
}

func TestSpinnerStop(t *testing.T) {
	s := NewSpinner("indexing")
	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
