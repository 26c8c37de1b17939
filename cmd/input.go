// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"bookline/cli/internal/terminal"
)

// readPasswordFn is a test seam for term.ReadPassword.
var readPasswordFn = term.ReadPassword

// promptLine prints a prompt and reads one line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword prints a prompt and reads a password without echo, then
// scrubs the prompt line from the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := readPasswordFn(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	terminal.ClearPreviousLines(len(prompt))
	return string(pw), nil
}
