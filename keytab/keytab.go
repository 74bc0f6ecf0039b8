// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: keytab/keytab.go
// Summary: Keyboard translation tables mapping key events to the byte
// sequences (or view commands) a terminal sends, conditioned on
// modifiers and emulation state.

package keytab

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// State is the emulation-state bitmask an entry can be conditioned on.
type State int

const (
	NoState State = 0
	// NewLineState is set when LF implies CR.
	NewLineState State = 1 << (iota - 1)
	// AnsiState distinguishes ANSI from VT52 operation.
	AnsiState
	// CursorKeysState is set in application cursor-keys mode.
	CursorKeysState
	// AlternateScreenState is set while the alternate screen is active.
	AlternateScreenState
	// ApplicationKeypadState is set in application keypad mode.
	ApplicationKeypadState
	// AnyModifierState matches whenever any modifier is held.
	AnyModifierState
)

// Command is a view-level action an entry can trigger instead of text.
type Command int

const (
	NoCommand   Command = 0
	SendCommand Command = 1 << (iota - 1)
	ScrollPageUpCommand
	ScrollPageDownCommand
	ScrollLineUpCommand
	ScrollLineDownCommand
	ScrollLockCommand
	ScrollUpToTopCommand
	ScrollDownToBottomCommand
	EraseCommand
)

// Entry is one binding in a translation table. The zero Entry matches
// nothing and carries no output.
type Entry struct {
	key tcell.Key
	ch  rune      // payload when key == tcell.KeyRune

	modifiers    tcell.ModMask
	modifierMask tcell.ModMask

	state     State
	stateMask State

	command Command
	text    []byte
}

// Key returns the bound key.
func (e Entry) Key() tcell.Key { return e.key }

// Rune returns the bound character for KeyRune entries.
func (e Entry) Rune() rune { return e.ch }

// Modifiers returns the modifier flags the entry requires.
func (e Entry) Modifiers() tcell.ModMask { return e.modifiers }

// ModifierMask returns which modifier flags the entry cares about.
func (e Entry) ModifierMask() tcell.ModMask { return e.modifierMask }

// State returns the state flags the entry requires.
func (e Entry) State() State { return e.state }

// StateMask returns which state flags the entry cares about.
func (e Entry) StateMask() State { return e.stateMask }

// Command returns the view command, or NoCommand for text entries.
func (e Entry) Command() Command { return e.command }

// IsNull reports whether this is the zero (no-match) entry.
func (e Entry) IsNull() bool {
	return e.key == 0 && e.ch == 0 && len(e.text) == 0 && e.command == NoCommand
}

// Text returns the output byte sequence. With expandWildcards set, a
// '*' in the stored sequence becomes the xterm modifier parameter
// (1 + shift + 2*alt + 4*ctrl) for the given modifiers.
func (e Entry) Text(expandWildcards bool, mod tcell.ModMask) []byte {
	if len(e.text) == 0 {
		return nil
	}
	if !expandWildcards {
		out := make([]byte, len(e.text))
		copy(out, e.text)
		return out
	}

	modifierValue := byte(1)
	if mod&tcell.ModShift != 0 {
		modifierValue += 1
	}
	if mod&tcell.ModAlt != 0 {
		modifierValue += 2
	}
	if mod&tcell.ModCtrl != 0 {
		modifierValue += 4
	}

	out := make([]byte, 0, len(e.text))
	for _, b := range e.text {
		if b == '*' {
			out = append(out, '0'+modifierValue)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// matches reports whether the entry applies to the given event.
func (e Entry) matches(key tcell.Key, ch rune, mod tcell.ModMask, state State) bool {
	if e.key != key {
		return false
	}
	if key == tcell.KeyRune && e.ch != ch {
		return false
	}
	if mod&e.modifierMask != e.modifiers&e.modifierMask {
		return false
	}

	anyModifiersSet := mod != 0
	wantAnyModifier := e.state&AnyModifierState != 0
	if e.stateMask&AnyModifierState != 0 {
		if wantAnyModifier != anyModifiersSet {
			return false
		}
	}

	mask := e.stateMask &^ AnyModifierState
	return state&mask == e.state&mask
}

// Translator is a named set of bindings.
type Translator struct {
	name        string
	description string
	entries     []Entry
}

// Name returns the table's identifier.
func (t *Translator) Name() string { return t.name }

// Description returns the table's human-readable title.
func (t *Translator) Description() string { return t.description }

// Entries returns the bindings in definition order.
func (t *Translator) Entries() []Entry { return t.entries }

func (t *Translator) addEntry(e Entry) { t.entries = append(t.entries, e) }

// FindEntry returns the first binding matching the event, or the zero
// Entry when nothing matches.
func (t *Translator) FindEntry(key tcell.Key, ch rune, mod tcell.ModMask, state State) Entry {
	for _, e := range t.entries {
		if e.matches(key, ch, mod, state) {
			return e
		}
	}
	return Entry{}
}

// Manager loads and caches translation tables by name.
type Manager struct {
	mu          sync.Mutex
	translators map[string]*Translator
}

// NewManager returns a manager pre-loaded with the built-in table.
func NewManager() *Manager {
	m := &Manager{translators: make(map[string]*Translator)}
	t, err := ParseTranslator("default", defaultTranslatorText)
	if err != nil {
		// The built-in table is a compile-time constant; a parse error
		// here is a bug, not an environment problem.
		panic(fmt.Sprintf("keytab: built-in table invalid: %v", err))
	}
	m.translators[t.name] = t
	return m
}

// AddTranslator parses source as a translation table named name and
// registers it.
func (m *Manager) AddTranslator(name, source string) error {
	t, err := ParseTranslator(name, source)
	if err != nil {
		return fmt.Errorf("parse key table %q: %w", name, err)
	}
	m.mu.Lock()
	m.translators[name] = t
	m.mu.Unlock()
	return nil
}

// FindTranslator returns the named table.
func (m *Manager) FindTranslator(name string) (*Translator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.translators[name]
	if !ok {
		return nil, fmt.Errorf("no key table named %q", name)
	}
	return t, nil
}

// DefaultTranslator returns the built-in table.
func (m *Manager) DefaultTranslator() *Translator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.translators["default"]
}
