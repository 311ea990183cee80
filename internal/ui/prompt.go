package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/setlistify/internal/shared"
)

// ErrCancelled is returned by [Prompt] when the user leaves without submitting.
var ErrCancelled = errors.New("prompt cancelled")

// PromptValues are the answers collected by the artist/year prompt. A Year of zero means any year.
type PromptValues struct {
	Artist string
	Year   int
}

// ParseYear validates a year typed by the user. Blank input is zero (any year).
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: year %q is not a number", shared.ErrInvalidInput, s)
	}
	if year < 1900 || year > time.Now().Year()+1 {
		return 0, fmt.Errorf("%w: year %d is out of range", shared.ErrInvalidInput, year)
	}
	return year, nil
}

const (
	artistField = iota
	yearField
)

// promptModel holds the two text inputs.
type promptModel struct {
	inputs    [2]textinput.Model
	focus     int
	keys      keyMap
	help      help.Model
	err       error
	submitted bool
	cancelled bool
}

func newPrompt(defaults PromptValues) promptModel {
	artist := textinput.New()
	artist.Placeholder = "Interpol"
	artist.Prompt = "Artist: "
	artist.CharLimit = 200
	artist.Width = 40
	artist.SetValue(defaults.Artist)
	artist.Focus()

	year := textinput.New()
	year.Placeholder = strconv.Itoa(time.Now().Year()) + " (blank for any year)"
	year.Prompt = "Year:   "
	year.CharLimit = 4
	year.Width = 40
	if defaults.Year > 0 {
		year.SetValue(strconv.Itoa(defaults.Year))
	}

	return promptModel{
		inputs: [2]textinput.Model{artist, year},
		keys:   newKeyMap(),
		help:   help.New(),
	}
}

// Values validates and returns the current answers.
func (p promptModel) Values() (PromptValues, error) {
	artist := strings.TrimSpace(p.inputs[artistField].Value())
	if artist == "" {
		return PromptValues{}, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}
	year, err := ParseYear(p.inputs[yearField].Value())
	if err != nil {
		return PromptValues{}, err
	}
	return PromptValues{Artist: artist, Year: year}, nil
}

func (p promptModel) update(msg tea.Msg) (promptModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, p.keys.cancel):
			p.cancelled = true
			return p, nil
		case key.Matches(msg, p.keys.next):
			p.inputs[p.focus].Blur()
			p.focus = (p.focus + 1) % len(p.inputs)
			return p, p.inputs[p.focus].Focus()
		case key.Matches(msg, p.keys.submit):
			if _, err := p.Values(); err != nil {
				p.err = err
				return p, nil
			}
			p.err = nil
			p.submitted = true
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	return p, cmd
}

func (p promptModel) view() string {
	var b strings.Builder
	b.WriteString(p.inputs[artistField].View())
	b.WriteString("\n")
	b.WriteString(p.inputs[yearField].View())
	b.WriteString("\n")
	if p.err != nil {
		b.WriteString("\n" + Styles.Err(p.err.Error()) + "\n")
	}
	return b.String()
}

// promptProgram runs a promptModel as a standalone program that exits on submit.
type promptProgram struct {
	prompt promptModel
}

func (p promptProgram) Init() tea.Cmd { return textinput.Blink }

func (p promptProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	p.prompt, cmd = p.prompt.update(msg)
	if p.prompt.submitted || p.prompt.cancelled {
		return p, tea.Quit
	}
	return p, cmd
}

func (p promptProgram) View() string {
	if p.prompt.submitted || p.prompt.cancelled {
		return ""
	}
	return Styles.Banner("setlistify", "Average setlist to playlist") + "\n\n" + p.prompt.view() + "\n" +
		p.prompt.help.View(p.prompt.keys) + "\n"
}

// Prompt asks for an artist and year, prefilled with defaults.
func Prompt(ctx context.Context, defaults PromptValues, opts ...tea.ProgramOption) (PromptValues, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(promptProgram{prompt: newPrompt(defaults)}, opts...).Run()
	if err != nil {
		return PromptValues{}, fmt.Errorf("prompt failed: %w", err)
	}

	p := final.(promptProgram).prompt
	if !p.submitted {
		return PromptValues{}, ErrCancelled
	}
	return p.Values()
}
