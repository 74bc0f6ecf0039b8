// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: session/session.go
// Summary: Runs a client program on a pseudo-terminal and pumps its
// output through a terminal emulation.

package session

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/creack/pty"

	"github.com/cubeshell/termcore/keytab"
	"github.com/cubeshell/termcore/vt"
)

// Config describes the program a session should run.
type Config struct {
	// Command is the program to execute. Empty means the user's shell
	// (falling back to /bin/sh).
	Command string
	// Args are passed to the command.
	Args []string
	// Env entries are appended to the inherited environment. TERM,
	// COLUMNS and LINES are always set.
	Env []string
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Lines and Columns size the terminal. Zero means 24x80.
	Lines   int
	Columns int
	// HistoryLines bounds the scrollback ring; 0 disables scrollback,
	// negative selects the unbounded disk-backed store.
	HistoryLines int
}

// DefaultConfig returns a shell session at the standard terminal size.
func DefaultConfig() Config {
	return Config{Lines: 24, Columns: 80, HistoryLines: 1000}
}

// Session couples a pseudo-terminal running a client program to a
// VT102 emulation. Reads from the PTY are pumped on an internal
// goroutine; all emulation access is serialized behind the session
// lock.
type Session struct {
	config Config

	mu        sync.Mutex
	cmd       *exec.Cmd
	ptyFile   *os.File
	emulation *vt.VT102Emulation

	stop chan struct{}
	done chan struct{}

	// OnFinished fires once the client program exits.
	OnFinished func(err error)
}

// New prepares a session; Start launches it.
func New(config Config) *Session {
	if config.Lines < 1 {
		config.Lines = 24
	}
	if config.Columns < 1 {
		config.Columns = 80
	}
	s := &Session{
		config: config,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.emulation = vt.NewVT102Emulation(config.Lines, config.Columns, keytab.NewManager())
	s.emulation.SetHistory(historyType(config.HistoryLines))
	s.emulation.OnSendData = s.writeToPty
	return s
}

func historyType(lines int) vt.HistoryType {
	switch {
	case lines == 0:
		return vt.HistoryTypeNone{}
	case lines < 0:
		return vt.HistoryTypeFile{}
	default:
		return vt.HistoryTypeBuffer{Lines: lines}
	}
}

// Emulation exposes the session's terminal emulation.
func (s *Session) Emulation() *vt.VT102Emulation { return s.emulation }

// Start launches the client program on a fresh pseudo-terminal and
// begins pumping its output.
func (s *Session) Start() error {
	command := s.config.Command
	if command == "" {
		command = os.Getenv("SHELL")
		if command == "" {
			command = "/bin/sh"
		}
	}

	cmd := exec.Command(command, s.config.Args...)
	cmd.Dir = s.config.Dir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLUMNS="+strconv.Itoa(s.config.Columns),
		"LINES="+strconv.Itoa(s.config.Lines),
	)
	cmd.Env = append(cmd.Env, s.config.Env...)

	ptyFile, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(s.config.Lines),
		Cols: uint16(s.config.Columns),
	})
	if err != nil {
		return fmt.Errorf("start %s: %w", command, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.ptyFile = ptyFile
	s.mu.Unlock()

	go s.readLoop()
	return nil
}

func (s *Session) readLoop() {
	defer close(s.done)

	buf := make([]byte, 4096)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := s.ptyFile.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.emulation.ReceiveData(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			waitErr := s.cmd.Wait()
			if s.OnFinished != nil {
				s.OnFinished(waitErr)
			}
			return
		}
	}
}

func (s *Session) writeToPty(data []byte) {
	s.mu.Lock()
	f := s.ptyFile
	s.mu.Unlock()
	if f == nil {
		return
	}
	if _, err := f.Write(data); err != nil {
		log.Printf("[session] pty write failed: %v", err)
	}
}

// IndexScrollback feeds every line the session has accumulated in
// scrollback into idx and waits for the index's batch writer to commit
// them. It returns the number of scrollback lines handed over.
func (s *Session) IndexScrollback(idx *vt.ScrollbackIndex) int {
	s.mu.Lock()
	scroll := s.emulation.CurrentScreen().History()
	lines := scroll.GetLines()
	idx.IndexHistory(scroll, 0)
	s.mu.Unlock()

	idx.Flush()
	return lines
}

// Resize propagates a new size to both the emulation and the client
// program's terminal.
func (s *Session) Resize(lines, columns int) error {
	if lines < 1 || columns < 1 {
		return fmt.Errorf("invalid size %dx%d", lines, columns)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.emulation.SetImageSize(lines, columns)
	if s.ptyFile == nil {
		return nil
	}
	if err := pty.Setsize(s.ptyFile, &pty.Winsize{
		Rows: uint16(lines),
		Cols: uint16(columns),
	}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return nil
}

// Close stops the pump, terminates the client program and releases the
// pseudo-terminal.
func (s *Session) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	if s.ptyFile != nil {
		err := s.ptyFile.Close()
		s.ptyFile = nil
		return err
	}
	return nil
}
