// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: keytab/reader.go
// Summary: Parser for the keyboard-table text format, plus the built-in
// default table.

package keytab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// The table format is line oriented:
//
//	keyboard "Readable description"
//	key Up    -Shift-Ansi          : "\EA"
//	key Up    -Shift+Ansi+AppCuKeys : "\EOA"
//	key Prior +Shift               : ScrollPageUp
//
// Conditions are +Flag (required set) and -Flag (required clear); flags
// not mentioned are ignored during matching. The outcome is either a
// quoted byte sequence (with \E, \xHH and C escapes; '*' expands to the
// xterm modifier parameter) or a command name.

var keyNames = map[string]tcell.Key{
	"Escape":    tcell.KeyEscape,
	"Tab":       tcell.KeyTab,
	"Backtab":   tcell.KeyBacktab,
	"Return":    tcell.KeyEnter,
	"Enter":     tcell.KeyEnter,
	// tcell.NewEventKey folds KeyBackspace2 (DEL) into KeyBackspace, so
	// incoming events always carry the latter.
	"Backspace": tcell.KeyBackspace,
	"Up":        tcell.KeyUp,
	"Down":      tcell.KeyDown,
	"Left":      tcell.KeyLeft,
	"Right":     tcell.KeyRight,
	"Home":      tcell.KeyHome,
	"End":       tcell.KeyEnd,
	"Prior":     tcell.KeyPgUp,
	"Next":      tcell.KeyPgDn,
	"Insert":    tcell.KeyInsert,
	"Delete":    tcell.KeyDelete,
	"F1":        tcell.KeyF1,
	"F2":        tcell.KeyF2,
	"F3":        tcell.KeyF3,
	"F4":        tcell.KeyF4,
	"F5":        tcell.KeyF5,
	"F6":        tcell.KeyF6,
	"F7":        tcell.KeyF7,
	"F8":        tcell.KeyF8,
	"F9":        tcell.KeyF9,
	"F10":       tcell.KeyF10,
	"F11":       tcell.KeyF11,
	"F12":       tcell.KeyF12,
}

var modifierNames = map[string]tcell.ModMask{
	"Shift":   tcell.ModShift,
	"Ctrl":    tcell.ModCtrl,
	"Control": tcell.ModCtrl,
	"Alt":     tcell.ModAlt,
	"Meta":    tcell.ModMeta,
}

var stateNames = map[string]State{
	"Ansi":      AnsiState,
	"NewLine":   NewLineState,
	"AppCuKeys": CursorKeysState,
	"AppScreen": AlternateScreenState,
	"AppKeyPad": ApplicationKeypadState,
	"AnyMod":    AnyModifierState,
}

var commandNames = map[string]Command{
	"ScrollPageUp":       ScrollPageUpCommand,
	"ScrollPageDown":     ScrollPageDownCommand,
	"ScrollLineUp":       ScrollLineUpCommand,
	"ScrollLineDown":     ScrollLineDownCommand,
	"ScrollLock":         ScrollLockCommand,
	"ScrollUpToTop":      ScrollUpToTopCommand,
	"ScrollDownToBottom": ScrollDownToBottomCommand,
	"Erase":              EraseCommand,
}

// ParseTranslator parses source into a named translation table.
func ParseTranslator(name, source string) (*Translator, error) {
	t := &Translator{name: name}

	for lineNo, raw := range strings.Split(source, "\n") {
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "keyboard"):
			desc := strings.TrimSpace(strings.TrimPrefix(line, "keyboard"))
			t.description = strings.Trim(desc, `"`)
		case strings.HasPrefix(line, "key"):
			entry, err := parseKeyLine(strings.TrimSpace(strings.TrimPrefix(line, "key")))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			t.addEntry(entry)
		default:
			return nil, fmt.Errorf("line %d: unrecognized directive %q", lineNo+1, line)
		}
	}
	return t, nil
}

func parseKeyLine(line string) (Entry, error) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return Entry{}, fmt.Errorf("missing ':' in key line %q", line)
	}
	condition := strings.TrimSpace(line[:colon])
	outcome := strings.TrimSpace(line[colon+1:])

	entry, err := parseCondition(condition)
	if err != nil {
		return Entry{}, err
	}

	if strings.HasPrefix(outcome, `"`) {
		text, err := unquoteSequence(outcome)
		if err != nil {
			return Entry{}, err
		}
		entry.text = text
	} else if cmd, ok := commandNames[outcome]; ok {
		entry.command = cmd
	} else {
		return Entry{}, fmt.Errorf("unknown command %q", outcome)
	}
	return entry, nil
}

func parseCondition(condition string) (Entry, error) {
	// The key name runs until the first +/- flag.
	nameEnd := len(condition)
	for i, c := range condition {
		if c == '+' || c == '-' || c == ' ' || c == '\t' {
			nameEnd = i
			break
		}
	}
	keyName := condition[:nameEnd]
	rest := strings.ReplaceAll(condition[nameEnd:], " ", "")
	rest = strings.ReplaceAll(rest, "\t", "")

	var entry Entry
	if key, ok := keyNames[keyName]; ok {
		entry.key = key
	} else if runes := []rune(keyName); len(runes) == 1 {
		entry.key = tcell.KeyRune
		entry.ch = runes[0]
	} else {
		return Entry{}, fmt.Errorf("unknown key name %q", keyName)
	}

	for len(rest) > 0 {
		set := rest[0] == '+'
		if rest[0] != '+' && rest[0] != '-' {
			return Entry{}, fmt.Errorf("expected '+' or '-' in condition %q", condition)
		}
		rest = rest[1:]

		flagEnd := len(rest)
		for i := 0; i < len(rest); i++ {
			if rest[i] == '+' || rest[i] == '-' {
				flagEnd = i
				break
			}
		}
		flag := rest[:flagEnd]
		rest = rest[flagEnd:]

		if mod, ok := modifierNames[flag]; ok {
			entry.modifierMask |= mod
			if set {
				entry.modifiers |= mod
			}
		} else if state, ok := stateNames[flag]; ok {
			entry.stateMask |= state
			if set {
				entry.state |= state
			}
		} else if flag == "KeyPad" {
			// No keypad distinction in this key vocabulary.
		} else {
			return Entry{}, fmt.Errorf("unknown flag %q", flag)
		}
	}
	return entry, nil
}

// unquoteSequence decodes a quoted output sequence with its escapes.
func unquoteSequence(s string) ([]byte, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, fmt.Errorf("malformed sequence %q", s)
	}
	body := s[1 : len(s)-1]

	var out []byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(body) {
			return nil, fmt.Errorf("dangling escape in %q", s)
		}
		switch body[i] {
		case 'E', 'e':
			out = append(out, 0x1B)
		case 'b':
			out = append(out, '\b')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'n':
			out = append(out, '\n')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case 'x':
			if i+2 >= len(body) {
				return nil, fmt.Errorf("truncated \\x escape in %q", s)
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("bad \\x escape in %q: %w", s, err)
			}
			out = append(out, byte(v))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c in %q", body[i], s)
		}
	}
	return out, nil
}

// defaultTranslatorText is the built-in binding table, covering the
// xterm sequences common interactive programs expect.
const defaultTranslatorText = `keyboard "Default (XFree 4)"

key Escape : "\E"

key Tab     -Shift : "\t"
key Tab     +Shift+Ansi : "\E[Z"
key Backtab +Ansi : "\E[Z"

key Return -Shift-NewLine : "\r"
key Return -Shift+NewLine : "\r\n"
key Return +Shift         : "\EOM"

key Backspace : "\x7f"
key Delete -Shift : "\E[3~"
key Insert -Shift : "\E[2~"

# Cursor keys: VT52, ANSI normal, ANSI application.
key Up    -Shift-Ansi : "\EA"
key Down  -Shift-Ansi : "\EB"
key Right -Shift-Ansi : "\EC"
key Left  -Shift-Ansi : "\ED"

key Up    -AnyMod+Ansi+AppCuKeys : "\EOA"
key Down  -AnyMod+Ansi+AppCuKeys : "\EOB"
key Right -AnyMod+Ansi+AppCuKeys : "\EOC"
key Left  -AnyMod+Ansi+AppCuKeys : "\EOD"

key Up    -AnyMod+Ansi-AppCuKeys : "\E[A"
key Down  -AnyMod+Ansi-AppCuKeys : "\E[B"
key Right -AnyMod+Ansi-AppCuKeys : "\E[C"
key Left  -AnyMod+Ansi-AppCuKeys : "\E[D"

key Up    +AnyMod+Ansi : "\E[1;*A"
key Down  +AnyMod+Ansi : "\E[1;*B"
key Right +AnyMod+Ansi : "\E[1;*C"
key Left  +AnyMod+Ansi : "\E[1;*D"

key Home -AnyMod+Ansi : "\E[H"
key End  -AnyMod+Ansi : "\E[F"
key Home +AnyMod+Ansi : "\E[1;*H"
key End  +AnyMod+Ansi : "\E[1;*F"

key Prior -Shift : "\E[5~"
key Next  -Shift : "\E[6~"
key Prior +Shift : ScrollPageUp
key Next  +Shift : ScrollPageDown
key Up    +Shift+AppScreen : ScrollLineUp
key Down  +Shift+AppScreen : ScrollLineDown

key F1 -AnyMod : "\EOP"
key F2 -AnyMod : "\EOQ"
key F3 -AnyMod : "\EOR"
key F4 -AnyMod : "\EOS"
key F5  -AnyMod : "\E[15~"
key F6  -AnyMod : "\E[17~"
key F7  -AnyMod : "\E[18~"
key F8  -AnyMod : "\E[19~"
key F9  -AnyMod : "\E[20~"
key F10 -AnyMod : "\E[21~"
key F11 -AnyMod : "\E[23~"
key F12 -AnyMod : "\E[24~"

key F1 +AnyMod : "\E[1;*P"
key F2 +AnyMod : "\E[1;*Q"
key F3 +AnyMod : "\E[1;*R"
key F4 +AnyMod : "\E[1;*S"
key F5  +AnyMod : "\E[15;*~"
key F6  +AnyMod : "\E[17;*~"
key F7  +AnyMod : "\E[18;*~"
key F8  +AnyMod : "\E[19;*~"
key F9  +AnyMod : "\E[20;*~"
key F10 +AnyMod : "\E[21;*~"
key F11 +AnyMod : "\E[23;*~"
key F12 +AnyMod : "\E[24;*~"
`
