// Package commands contains CLI command implementations for the application.
package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
)

// ErrPasswordMismatch is returned when the password confirmation differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// Prompter reads passwords. When the reader is a terminal input is not echoed;
// otherwise one password is read per line.
type Prompter struct {
	io    IOTuple
	lines *bufio.Reader
}

// NewPrompter creates a Prompter over io.
func NewPrompter(io IOTuple) *Prompter {
	return &Prompter{io: io}
}

// Password prompts for one password.
func (p *Prompter) Password(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.io.Writer, prompt)

	if f, ok := p.io.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.io.Writer)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	if p.lines == nil {
		p.lines = bufio.NewReader(p.io.Reader)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewPassword prompts for a password and its confirmation and validates it.
func (p *Prompter) NewPassword(prompt string) (string, error) {
	password, err := p.Password(prompt)
	if err != nil {
		return "", err
	}
	if err := cryptoService.ValidatePassword(password); err != nil {
		return "", err
	}

	confirm, err := p.Password("Confirm password: ")
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

// passwordFor prompts for the password of the container at path, or returns nil
// when the container is not protected.
func passwordFor(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	prompter *Prompter,
	path string,
) (*string, error) {
	protected, err := keyUseCase.NeedPassword(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if !protected {
		return nil, nil
	}

	password, err := prompter.Password(fmt.Sprintf("Password for %s: ", path))
	if err != nil {
		return nil, err
	}
	return &password, nil
}

// writeJSON writes v as indented JSON for machine consumption.
func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}

// validateFormat accepts the output formats every command supports.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}
