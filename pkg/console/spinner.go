package console

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type spinnerMessage string

type spinnerModel struct {
	spinner spinner.Model
	message string
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerMessage:
		m.message = string(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// SpinnerWrapper shows a spinner on stderr while a long step runs. It is a
// no-op when stderr is not a terminal.
type SpinnerWrapper struct {
	program *tea.Program
	enabled bool
	started bool
	done    chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner with an initial message. Call Start to show it.
func NewSpinner(message string) *SpinnerWrapper {
	s := &SpinnerWrapper{enabled: IsStderrTerminal()}
	if !s.enabled {
		return s
	}
	model := spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		message: message,
	}
	s.program = tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithInput(nil))
	s.done = make(chan struct{})
	return s
}

// Start begins rendering.
func (s *SpinnerWrapper) Start() {
	if !s.enabled || s.started {
		return
	}
	s.started = true
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
}

// UpdateMessage replaces the text next to the spinner.
func (s *SpinnerWrapper) UpdateMessage(message string) {
	if !s.enabled || !s.started {
		return
	}
	s.program.Send(spinnerMessage(message))
}

// Stop clears the spinner. It is safe to call more than once.
func (s *SpinnerWrapper) Stop() {
	if !s.enabled || !s.started {
		return
	}
	s.once.Do(func() {
		s.program.Quit()
		<-s.done
	})
}
