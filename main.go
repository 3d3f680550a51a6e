// protalk TUI - a terminal client for the iProTalk chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/protalk-tui/internal/api"
	"github.com/morganforge/protalk-tui/internal/cli"
	"github.com/morganforge/protalk-tui/internal/config"
	"github.com/morganforge/protalk-tui/internal/engine"
	"github.com/morganforge/protalk-tui/internal/model"
	"github.com/morganforge/protalk-tui/internal/session"
	"github.com/morganforge/protalk-tui/internal/ui/chat"
	"github.com/morganforge/protalk-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdLogin:
		runAuth(args, false)
	case cli.CmdRegister:
		runAuth(args, true)
	case cli.CmdLogout:
		runLogout(args)
	case cli.CmdConfig:
		handleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// fatal prints an error and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "protalk: %v\n", err)
	os.Exit(1)
}

// loadConfig loads the configuration and applies CLI overrides on top.
func loadConfig(args cli.Args) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
	}
	if args.Channel != "" {
		cfg.Chat.DefaultChannel = args.Channel
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	return cfg
}

// openSessionStore creates the configured session store backend.
func openSessionStore(cfg *config.Config) (session.Store, func(), error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}

	switch cfg.Chat.SessionStore {
	case "sqlite":
		path, err := config.DatabasePath()
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		path, err := config.SessionPath()
		if err != nil {
			return nil, nil, err
		}
		return session.NewFileStore(path), func() {}, nil
	}
}

// authenticate prompts for credentials, exchanges them with the backend, and
// persists the resulting session.
func authenticate(cfg *config.Config, store session.Store, register bool) (session.Session, error) {
	creds, err := cli.PromptCredentials(register)
	if err != nil {
		return session.Session{}, err
	}

	client := api.NewClient(cfg.Server.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var auth *api.AuthResponse
	if register {
		auth, err = client.Register(ctx, creds.Email, creds.Password, creds.Name)
	} else {
		auth, err = client.Login(ctx, creds.Email, creds.Password)
	}
	if err != nil {
		return session.Session{}, err
	}

	sess := session.New(auth.Token, auth.UserID, auth.Name)
	if err := store.Set(sess); err != nil {
		return session.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}

func runAuth(args cli.Args, register bool) {
	cfg := loadConfig(args)
	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeStore()

	sess, err := authenticate(cfg, store, register)
	if err != nil {
		fatal(err)
	}
	name := sess.Name
	if name == "" {
		name = sess.UserID
	}
	fmt.Printf("Logged in as %s\n", name)
}

func runLogout(args cli.Args) {
	cfg := loadConfig(args)
	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeStore()

	if err := store.Clear(); err != nil {
		fatal(err)
	}
	fmt.Println("Session cleared")
}

func handleConfig(args cli.Args) {
	cfg := loadConfig(args)
	path, _ := config.ConfigPath()
	fmt.Printf("# %s\n", path)
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fatal(err)
	}
}

// setupLogging sends the standard logger to a file so log lines do not tear
// the TUI.
func setupLogging(quiet bool) {
	if quiet {
		log.SetOutput(io.Discard)
		return
	}
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "protalk.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
}

func runTUI(args cli.Args) {
	cfg := loadConfig(args)
	if err := config.EnsureConfigDir(); err != nil {
		fatal(err)
	}
	setupLogging(args.Quiet)

	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeStore()

	sess, err := store.Get()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Println("No session found, please log in.")
		sess, err = authenticate(cfg, store, false)
	}
	if err != nil {
		fatal(err)
	}

	client := api.NewClient(cfg.Server.BaseURL).WithToken(sess.Token)

	msgStore := model.NewMessageStore()
	eng := engine.New(engine.ClientSource{Client: client}, msgStore)

	theme := styles.NewTheme()
	p := tea.NewProgram(chat.New(client, sess, cfg, theme), tea.WithAltScreen())

	// Every accepted message flows store -> observer -> UI, exactly once.
	msgStore.Observe(func(m model.ChatMessage) {
		p.Send(chat.ChatMessageMsg{Message: m})
	})
	eng.OnStreamError(func(err error) {
		p.Send(chat.StreamErrorMsg{Err: err})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx, sess); err != nil {
		if errors.Is(err, api.ErrAuthFailed) {
			store.Clear()
			fatal(fmt.Errorf("session expired, run `protalk login`: %w", err))
		}
		fatal(err)
	}
	defer eng.Stop()

	// Config edits take effect on restart; the watcher only surfaces them.
	if cfgPath, err := config.ConfigPath(); err == nil {
		if w, err := config.NewWatcher(cfgPath, func(*config.Config) {
			log.Printf("config changed on disk, restart to apply")
		}); err == nil {
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}
