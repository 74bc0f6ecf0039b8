// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/termdump/main.go
// Summary: Runs a command under the terminal emulation and dumps the
// rendered screen and scrollback to stdout.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/cubeshell/termcore/session"
	"github.com/cubeshell/termcore/vt"
)

func main() {
	var (
		columns = flag.Int("cols", 0, "terminal width (0 = detect)")
		lines   = flag.Int("lines", 0, "terminal height (0 = detect)")
		history = flag.Int("history", 1000, "scrollback lines (<0 = unlimited)")
		asHTML  = flag.Bool("html", false, "emit HTML instead of plain text")
		find    = flag.String("find", "", "search the scrollback instead of dumping it")
		timeout = flag.Duration("timeout", 30*time.Second, "give up after this long")
	)
	flag.Parse()

	if *columns == 0 || *lines == 0 {
		w, h, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			w, h = 80, 24
		}
		if *columns == 0 {
			*columns = w
		}
		if *lines == 0 {
			*lines = h
		}
	}

	cfg := session.DefaultConfig()
	cfg.Lines = *lines
	cfg.Columns = *columns
	cfg.HistoryLines = *history
	if args := flag.Args(); len(args) > 0 {
		cfg.Command = args[0]
		cfg.Args = args[1:]
	}

	if err := run(cfg, *asHTML, *find, *timeout); err != nil {
		log.Fatalf("termdump: %v", err)
	}
}

func run(cfg session.Config, asHTML bool, find string, timeout time.Duration) error {
	s := session.New(cfg)

	finished := make(chan error, 1)
	s.OnFinished = func(err error) { finished <- err }

	if err := s.Start(); err != nil {
		return err
	}
	defer s.Close()

	select {
	case <-finished:
	case <-time.After(timeout):
		return fmt.Errorf("command still running after %s", timeout)
	}

	if find != "" {
		return searchScrollback(s, find)
	}

	emu := s.Emulation()
	var dec vt.Decoder
	if asHTML {
		dec = vt.NewHTMLDecoder(nil)
	} else {
		plain := vt.NewPlainTextDecoder()
		plain.SetExtendedCharTable(emu.ExtendedChars())
		dec = plain
	}

	dec.Begin(os.Stdout)
	emu.WriteToStream(dec, 0, emu.LineCount()-1)
	dec.End()
	return nil
}

// searchScrollback indexes the finished session's scrollback and prints
// every line matching the query.
func searchScrollback(s *session.Session, query string) error {
	dir, err := os.MkdirTemp("", "termdump-index-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	idx, err := vt.NewScrollbackIndex(filepath.Join(dir, "scrollback.db"))
	if err != nil {
		return fmt.Errorf("open scrollback index: %w", err)
	}
	defer idx.Close()

	s.IndexScrollback(idx)
	hits, err := idx.Search(query, 1000)
	if err != nil {
		return fmt.Errorf("search scrollback: %w", err)
	}
	for _, hit := range hits {
		fmt.Printf("%d: %s\n", hit.Line, hit.Text)
	}
	return nil
}
