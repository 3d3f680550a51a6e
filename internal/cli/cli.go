// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for protalk.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server  string // Override server base URL
	Channel string // Override default channel
	Quiet   bool

	// Command-specific
	ConfigKey string
	ConfigVal string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `protalk - terminal client for the iProTalk chat backend

Usage:
  protalk              Start the chat TUI (logs in if needed)
  protalk login        Authenticate and store a session
  protalk register     Create an account and store a session
  protalk logout       Discard the stored session
  protalk config       Show the active configuration
  protalk version      Show version information

Flags:
  --server URL         Backend base URL (e.g. http://127.0.0.1:3000/api)
  --channel NAME       Group channel to join (default "general")
  --quiet              Suppress startup log output

Environment:
  PROTALK_SERVER_URL   Same as --server
  PROTALK_CHANNEL      Same as --channel
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	args := Args{}
	rest := []string{}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--server" && i+1 < len(argv):
			i++
			args.Server = argv[i]
		case strings.HasPrefix(arg, "--server="):
			args.Server = strings.TrimPrefix(arg, "--server=")
		case arg == "--channel" && i+1 < len(argv):
			i++
			args.Channel = argv[i]
		case strings.HasPrefix(arg, "--channel="):
			args.Channel = strings.TrimPrefix(arg, "--channel=")
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--help" || arg == "-h":
			return CmdHelp, args
		case arg == "--version":
			return CmdVersion, args
		default:
			rest = append(rest, arg)
		}
	}
	args.Raw = rest

	if len(rest) == 0 {
		return CmdTUI, args
	}

	switch rest[0] {
	case "login":
		return CmdLogin, args
	case "register":
		return CmdRegister, args
	case "logout":
		return CmdLogout, args
	case "config":
		if len(rest) > 1 {
			args.ConfigKey = rest[1]
		}
		if len(rest) > 2 {
			args.ConfigVal = rest[2]
		}
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", rest[0], usageText)
		os.Exit(2)
		return CmdHelp, args
	}
}

// HandleHelp prints usage information.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("protalk %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
