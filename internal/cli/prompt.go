// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Credentials holds what the user typed at the login prompt.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

// PromptCredentials interactively collects credentials on the terminal.
// The password is read without echo. When register is true the display name
// is collected as well.
func PromptCredentials(register bool) (Credentials, error) {
	reader := bufio.NewReader(os.Stdin)
	var creds Credentials

	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return creds, fmt.Errorf("failed to read email: %w", err)
	}
	creds.Email = strings.TrimSpace(email)
	if creds.Email == "" {
		return creds, fmt.Errorf("email must not be empty")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return creds, fmt.Errorf("failed to read password: %w", err)
	}
	creds.Password = string(password)
	if creds.Password == "" {
		return creds, fmt.Errorf("password must not be empty")
	}

	if register {
		fmt.Print("Display name: ")
		name, err := reader.ReadString('\n')
		if err != nil {
			return creds, fmt.Errorf("failed to read name: %w", err)
		}
		creds.Name = strings.TrimSpace(name)
		if creds.Name == "" {
			return creds, fmt.Errorf("display name must not be empty")
		}
	}

	return creds, nil
}
