// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TTYRequiredError is returned when an operation needs an interactive
// terminal.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return fmt.Sprintf("%s requires an interactive terminal", e.Operation)
}

// =============================================================================
// PROMPTS
// =============================================================================

// Prompter reads answers from the user.
type Prompter interface {
	Line(prompt string) (string, error)
	Password(prompt string) (string, error)
}

// termPrompter prompts on stderr and reads stdin. Passwords are read without
// echo.
type termPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTermPrompter() *termPrompter {
	return &termPrompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

func (p *termPrompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *termPrompter) Password(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", &TTYRequiredError{Operation: "password entry"}
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
