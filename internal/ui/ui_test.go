package ui

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/setlistify/internal/shared"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestParseYear(t *testing.T) {
	tc := []struct {
		in       string
		want     int
		hasError bool
	}{
		{in: "", want: 0},
		{in: " 2023 ", want: 2023},
		{in: strconv.Itoa(time.Now().Year() + 1), want: time.Now().Year() + 1},
		{in: "1899", hasError: true},
		{in: "20x3", hasError: true},
		{in: strconv.Itoa(time.Now().Year() + 2), hasError: true},
	}

	for _, tt := range tc {
		got, err := ParseYear(tt.in)
		if tt.hasError {
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("%q: expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %d, got %d (%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestPrompt(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := newPrompt(PromptValues{Artist: "Interpol", Year: 2023})
		got, err := p.Values()
		if err != nil || got != (PromptValues{Artist: "Interpol", Year: 2023}) {
			t.Errorf("unexpected values %+v (%v)", got, err)
		}
	})

	t.Run("Typing And Switching Fields", func(t *testing.T) {
		p := newPrompt(PromptValues{})
		p, _ = p.update(keyPress("Slowdive"))
		p, _ = p.update(keyPress("tab"))
		p, _ = p.update(keyPress("2024"))
		p, _ = p.update(keyPress("enter"))

		if !p.submitted {
			t.Fatal("expected prompt to be submitted")
		}
		got, _ := p.Values()
		if got.Artist != "Slowdive" || got.Year != 2024 {
			t.Errorf("unexpected values %+v", got)
		}
	})

	t.Run("Missing Artist", func(t *testing.T) {
		p := newPrompt(PromptValues{})
		p, _ = p.update(keyPress("enter"))

		if p.submitted {
			t.Error("expected prompt to stay open")
		}
		if !errors.Is(p.err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", p.err)
		}
		if !strings.Contains(p.view(), "artist") {
			t.Error("expected error in view")
		}
	})

	t.Run("Invalid Year", func(t *testing.T) {
		p := newPrompt(PromptValues{Artist: "Interpol"})
		p, _ = p.update(keyPress("tab"))
		p, _ = p.update(keyPress("1066"))
		p, _ = p.update(keyPress("enter"))

		if p.submitted {
			t.Error("expected prompt to stay open")
		}
		if !errors.Is(p.err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", p.err)
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		p := newPrompt(PromptValues{})
		p, _ = p.update(keyPress("esc"))
		if !p.cancelled {
			t.Error("expected prompt to be cancelled")
		}
	})

	t.Run("Program Quits On Submit", func(t *testing.T) {
		prog := promptProgram{prompt: newPrompt(PromptValues{Artist: "Interpol"})}

		view := prog.View()
		if !strings.Contains(view, "setlistify") || !strings.Contains(view, "switch field") {
			t.Errorf("expected banner and key help in view, got %q", view)
		}

		model, cmd := prog.Update(keyPress("enter"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if model.View() != "" {
			t.Error("expected empty view after submit")
		}
	})

	t.Run("Prompt Reads Input", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got, err := Prompt(ctx, PromptValues{Artist: "Interpol", Year: 2023},
			tea.WithInput(strings.NewReader("\r")), tea.WithOutput(io.Discard))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != (PromptValues{Artist: "Interpol", Year: 2023}) {
			t.Errorf("unexpected values %+v", got)
		}
	})
}

func TestPalette(t *testing.T) {
	out := Styles.Banner("setlistify", "subtitle")
	if !strings.Contains(out, "setlistify") || !strings.Contains(out, "subtitle") {
		t.Errorf("banner missing text: %q", out)
	}
	for _, s := range []string{Styles.OK("ok"), Styles.Err("err"), Styles.Warn("warn"), Styles.Help("help"), Styles.Title("title")} {
		if strings.TrimSpace(s) == "" {
			t.Error("expected styled text")
		}
	}
}
