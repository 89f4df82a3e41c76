package console

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrNotTTY is returned by interactive prompts when there is no terminal to
// prompt on.
var ErrNotTTY = errors.New("cannot prompt: not a TTY")

func requireTTY() error {
	if !IsStdinTerminal() || !IsStderrTerminal() {
		return ErrNotTTY
	}
	return nil
}

// PromptInput asks for a single line of text.
func PromptInput(title, description, placeholder string) (string, error) {
	if err := requireTTY(); err != nil {
		return "", err
	}

	var value string
	err := huh.NewInput().
		Title(title).
		Description(description).
		Placeholder(placeholder).
		Value(&value).
		Run()
	return value, err
}

// PromptSecretInput asks for a masked value. Empty input is rejected.
func PromptSecretInput(title, description string) (string, error) {
	if err := requireTTY(); err != nil {
		return "", err
	}

	var value string
	err := huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("value cannot be empty")
			}
			return nil
		}).
		Value(&value).
		Run()
	return value, err
}

// ConfirmAction asks a yes/no question, defaulting to yes.
func ConfirmAction(title, affirmative, negative string) (bool, error) {
	if err := requireTTY(); err != nil {
		return false, err
	}

	confirmed := true
	err := huh.NewConfirm().
		Title(title).
		Affirmative(affirmative).
		Negative(negative).
		Value(&confirmed).
		Run()
	return confirmed, err
}
