/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/editor"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/persist"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/store"
	"goscreenwriter/internal/version"
)

func usage() {
	fmt.Println("GoScreenwriter")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  goscreenwriter version|-v|--version                   Show version")
	fmt.Println("  goscreenwriter init <project> <screenplay> [title]     Create an empty screenplay")
	fmt.Println("  goscreenwriter import <project> <screenplay> <file>    Replace the content with a plain-text script")
	fmt.Println("  goscreenwriter open <project> <screenplay>             Load and print a summary")
	fmt.Println("  goscreenwriter pages <project> <screenplay>            Print the page breaks")
	fmt.Println("  goscreenwriter characters <project> <screenplay>       Print the stored character index")
	fmt.Println("  goscreenwriter headings <project> <screenplay>         Print scene heading suggestions")
	fmt.Println("  goscreenwriter config                                 Write the effective config (and GSW_PG_PASSWORD to the keychain)")
}

// app carries what every command needs.
type app struct {
	cfg    config.AppConfig
	secret string
	log    *slog.Logger
	// session is dumped if a command panics.
	session *editor.Session
}

// CrashDump dumps the open session, if any.
func (a *app) CrashDump(dir string) (string, error) {
	if a.session == nil {
		return "", errors.New("no open screenplay")
	}
	return a.session.CrashDump(dir)
}

func main() {
	cfg, secret, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	a := &app{cfg: cfg, secret: secret, log: applog.WithComponent("cli")}
	if cfgErr != nil {
		a.log.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	defer crash.Recover(crashDir(), a)
	a.log.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage()
		return 0
	}
	ctx := context.Background()
	need := func(n int, what string) bool {
		if len(args) < n+1 {
			fmt.Printf("%s requires %s\n", args[0], what)
			usage()
			return false
		}
		return true
	}

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println("GoScreenwriter")
		fmt.Println(version.String())
		return 0
	case "config":
		err = config.Save(a.cfg, os.Getenv("GSW_PG_PASSWORD"))
		if err == nil {
			path, _ := config.ConfigPath()
			fmt.Println("Wrote", path)
		}
	case "init":
		if !need(2, "<project> <screenplay>") {
			return 2
		}
		title := args[2]
		if len(args) > 3 {
			title = strings.Join(args[3:], " ")
		}
		err = a.withCoordinator(ctx, args[1], args[2], func(c *persist.Coordinator) error {
			if err := c.CreateScreenplay(ctx, domain.Header{Title: title}); err != nil {
				return err
			}
			fmt.Println("Created screenplay", c.Ref())
			return nil
		})
	case "import":
		if !need(3, "<project> <screenplay> <file>") {
			return 2
		}
		err = a.withCoordinator(ctx, args[1], args[2], func(c *persist.Coordinator) error {
			return a.importScript(ctx, c, args[3])
		})
	case "open", "pages", "characters", "headings":
		if !need(2, "<project> <screenplay>") {
			return 2
		}
		cmd := args[0]
		err = a.withCoordinator(ctx, args[1], args[2], func(c *persist.Coordinator) error {
			return a.inspect(ctx, c, cmd)
		})
	default:
		usage()
		return 2
	}
	if err != nil {
		a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	return 0
}

func crashDir() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "crashes")
}

func (a *app) withCoordinator(ctx context.Context, project, screenplay string, fn func(*persist.Coordinator) error) error {
	st, err := store.Open(ctx, a.cfg.Store, a.secret)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			a.log.Error("close store failed", slog.Any("err", err))
		}
	}()
	ref := domain.ScreenplayRef{Project: project, Screenplay: screenplay}
	c := persist.New(st, ref, persist.Options{IndexDebounce: a.cfg.Editor.IndexDebounce(), IndexTimeout: a.cfg.Store.Timeout()})
	defer c.Close()
	return fn(c)
}

func (a *app) editorOptions() editor.Options {
	return editor.Options{
		HistoryDepth:   a.cfg.Editor.HistoryDepth,
		CoalesceWindow: a.cfg.Editor.CoalesceWindow(),
		Layout:         pagination.DefaultLayout().WithLinesPerPage(a.cfg.Pagination.LinesPerPage),
	}
}

func (a *app) importScript(ctx context.Context, c *persist.Coordinator, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	blocks, problems := script.Parse(string(data), c.NewID)
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "%s: %s\n", file, p)
	}
	if err := c.CreateScreenplay(ctx, domain.Header{}); err != nil {
		return err
	}
	s := editor.NewSeeded(c, blocks, a.editorOptions())
	a.session = s
	defer s.Close()
	if err := s.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("Imported %d blocks into %s (%d pages)\n", len(s.State().Blocks), c.Ref(), len(s.Pages()))
	return nil
}

func (a *app) inspect(ctx context.Context, c *persist.Coordinator, cmd string) error {
	s, err := editor.Open(ctx, c, a.editorOptions())
	if err != nil {
		return err
	}
	a.session = s
	defer s.Close()

	switch cmd {
	case "open":
		st := s.State()
		fmt.Printf("Screenplay: %s\n", c.Ref())
		fmt.Printf("Title: %s\n", st.Header.Title)
		fmt.Printf("Author: %s\n", st.Header.Author)
		fmt.Printf("Blocks: %d\n", len(st.Blocks))
		fmt.Printf("Pages: %d\n", len(s.Pages()))
		fmt.Printf("Characters: %d\n", len(s.Characters()))
	case "pages":
		for _, p := range s.Pages() {
			first := ""
			if len(p.Blocks) > 0 {
				first = p.Blocks[0].Content
			}
			fmt.Printf("%3d  blocks %d-%d  lines %2d  %s\n", p.Number, p.Start, p.End, p.Lines, first)
		}
	case "characters":
		chars, err := c.ReadCharacters(ctx)
		if err != nil {
			return err
		}
		for _, ch := range chars {
			fmt.Printf("%-30s %4d lines %3d scenes\n", ch.Name, ch.UsageCount, ch.SceneCount)
		}
	case "headings":
		hs, err := c.ReadSceneHeadingSuggestions(ctx)
		if err != nil {
			return err
		}
		for _, h := range hs {
			fmt.Printf("%4d  %s\n", h.Count, h.Heading)
		}
	}
	return nil
}
