package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPromptAborted is returned when the operator cancels a prompt.
var ErrPromptAborted = errors.New("prompt aborted")

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Question describes one piece of operator input.
type Question struct {
	Message  string
	Name     string
	Default  string
	Secret   bool
	Validate func(string) error
}

// Prompter collects operator input.
type Prompter interface {
	Ask(q Question) (string, error)
	Confirm(q Question) (bool, error)
}

// NewPrompter returns an interactive prompter when in is a terminal and a
// line-oriented one otherwise.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return &TUIPrompter{in: in, out: out}
	}
	return NewLinePrompter(in, out)
}

// LinePrompter reads answers one line at a time.
type LinePrompter struct {
	r   *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Ask(q Question) (string, error) {
	for {
		fmt.Fprint(p.out, formatQuestion(q))

		line, err := p.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return "", ErrPromptAborted
			}
			return "", err
		}

		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = q.Default
		}
		if q.Validate != nil {
			if verr := q.Validate(answer); verr != nil {
				fmt.Fprintf(p.out, "  %v\n", verr)
				if err == io.EOF {
					return "", verr
				}
				continue
			}
		}
		return answer, nil
	}
}

func (p *LinePrompter) Confirm(q Question) (bool, error) {
	return confirmWith(p, q)
}

// TUIPrompter asks through a bubbletea text input.
type TUIPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *TUIPrompter) Ask(q Question) (string, error) {
	m := newInputModel(q)
	final, err := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return "", err
	}
	result := final.(inputModel)
	if result.aborted {
		return "", ErrPromptAborted
	}
	return result.value, nil
}

func (p *TUIPrompter) Confirm(q Question) (bool, error) {
	return confirmWith(p, q)
}

func confirmWith(p Prompter, q Question) (bool, error) {
	if q.Default == "" {
		q.Default = "n"
	}
	q.Message += " (y/n)"
	q.Validate = func(s string) error {
		if _, ok := parseYesNo(s); !ok {
			return errors.New("please answer y or n")
		}
		return nil
	}
	answer, err := p.Ask(q)
	if err != nil {
		return false, err
	}
	yes, _ := parseYesNo(answer)
	return yes, nil
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return true, true
	case "n", "no", "false":
		return false, true
	}
	return false, false
}

func formatQuestion(q Question) string {
	if q.Default != "" && !q.Secret {
		return fmt.Sprintf("? %s (%s): ", q.Message, q.Default)
	}
	return fmt.Sprintf("? %s: ", q.Message)
}

type inputModel struct {
	question Question
	input    textinput.Model
	value    string
	errMsg   string
	aborted  bool
}

func newInputModel(q Question) inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	if !q.Secret {
		ti.Placeholder = q.Default
	}
	if q.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return inputModel{question: q, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			answer := strings.TrimSpace(m.input.Value())
			if answer == "" {
				answer = m.question.Default
			}
			if m.question.Validate != nil {
				if err := m.question.Validate(answer); err != nil {
					m.errMsg = err.Error()
					return m, nil
				}
			}
			m.value = answer
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.value != "" || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(questionStyle.Render("? " + m.question.Message))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	} else {
		b.WriteString(hintStyle.Render("enter to submit, esc to cancel"))
		b.WriteString("\n")
	}
	return b.String()
}
