// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/emulation.go
// Summary: Shared emulation state: the two screen buffers, attached
// windows, byte-stream decoding and change notification fan-out.

package vt

import (
	"sync"
	"time"
	"unicode/utf8"
)

// Activity states reported through OnStateSet.
const (
	NotifyNormal = iota
	NotifyBell
	NotifyActivity
	NotifySilence
)

// KeyboardCursorShape is the cursor style requested by the application.
type KeyboardCursorShape int

const (
	BlockCursor KeyboardCursorShape = iota
	UnderlineCursor
	IBeamCursor
)

const titleUpdateDebounce = 20 * time.Millisecond

// Emulation holds the state shared by terminal emulation back-ends: the
// primary and alternate screen buffers, the windows observing them, the
// extended-character table and the incremental byte decoder.
//
// All callbacks fire synchronously from the mutating call unless noted.
type Emulation struct {
	screen        [2]*Screen
	currentScreen *Screen
	windows       []*ScreenWindow
	charTable     *ExtendedCharTable

	usesMouse          bool
	bracketedPasteMode bool

	// Partial UTF-8 sequence carried between ReceiveData calls.
	decodeRemainder []byte

	titleMu       sync.Mutex
	pendingTitles map[int]string
	titleTimer    *time.Timer

	// OnSendData carries bytes destined for the client program.
	OnSendData func(data []byte)
	// OnStateSet reports activity transitions (NotifyBell etc).
	OnStateSet func(state int)
	// OnZModemDetected fires when the input stream carries a ZMODEM
	// start marker.
	OnZModemDetected func()
	// OnTitleChanged reports coalesced title updates. It fires from a
	// timer goroutine, debounced by titleUpdateDebounce.
	OnTitleChanged func(attribute int, title string)
	// OnImageSizeChanged fires after the screens were resized.
	OnImageSizeChanged func(lines, columns int)
	// OnImageResizeRequest asks the hosting view to resize (CSI 8 t).
	OnImageResizeRequest func(lines, columns int)
	// OnChangeTabTextColor carries the tab color request (CSI 28 t).
	OnChangeTabTextColor func(color int)
	// OnUsesMouseChanged fires when the program claims or releases
	// mouse input.
	OnUsesMouseChanged func(usesMouse bool)
	// OnBracketedPasteModeChanged fires when bracketed paste toggles.
	OnBracketedPasteModeChanged func(enabled bool)
	// OnCursorChanged reports cursor shape/blink requests.
	OnCursorChanged func(shape KeyboardCursorShape, blinking bool)
	// OnProfileChangeCommand carries OSC 50 profile-change text.
	OnProfileChangeCommand func(text string)
	// OnOutputChanged fires after a batch of input was processed.
	OnOutputChanged func()
	// OnFlowControlKeyPressed reports XON/XOFF keys seen on input.
	OnFlowControlKeyPressed func(suspend bool)
}

// NewEmulation constructs the shared emulation state with two screens of
// the given size.
func NewEmulation(lines, columns int) *Emulation {
	e := &Emulation{
		charTable:     NewExtendedCharTable(),
		pendingTitles: make(map[int]string),
	}
	e.screen[0] = NewScreen(lines, columns)
	e.screen[1] = NewScreen(lines, columns)
	e.currentScreen = e.screen[0]
	e.charTable.RegisterScreen(e.screen[0])
	e.charTable.RegisterScreen(e.screen[1])
	return e
}

// ExtendedChars exposes the combining-sequence interning table, for
// decoders attached to this emulation.
func (e *Emulation) ExtendedChars() *ExtendedCharTable { return e.charTable }

// CreateWindow returns a new window onto this emulation's output.
func (e *Emulation) CreateWindow() *ScreenWindow {
	w := NewScreenWindow(e.currentScreen)
	e.windows = append(e.windows, w)
	return w
}

// CurrentScreen returns the active screen buffer.
func (e *Emulation) CurrentScreen() *Screen { return e.currentScreen }

// setScreen activates screen n (0 primary, 1 alternate) and repoints
// every window at it.
func (e *Emulation) setScreen(n int) {
	old := e.currentScreen
	e.currentScreen = e.screen[n&1]
	if e.currentScreen != old {
		for _, w := range e.windows {
			w.SetScreen(e.currentScreen)
		}
	}
}

// ProgramUsesMouse reports whether the program claimed mouse input.
func (e *Emulation) ProgramUsesMouse() bool { return e.usesMouse }

// ProgramBracketedPasteMode reports whether bracketed paste is on.
func (e *Emulation) ProgramBracketedPasteMode() bool { return e.bracketedPasteMode }

// ClearHistory discards the scrollback, keeping the configured strategy.
func (e *Emulation) ClearHistory() {
	e.screen[0].SetScroll(e.screen[0].GetScroll(), false)
}

// SetHistory configures scrollback storage, carrying existing lines
// forward.
func (e *Emulation) SetHistory(t HistoryType) {
	e.screen[0].SetScroll(t, true)
	e.notifyOutputChanged()
}

// History returns the scrollback strategy in use.
func (e *Emulation) History() HistoryType {
	return e.screen[0].GetScroll()
}

// LineCount returns visible lines plus scrollback.
func (e *Emulation) LineCount() int {
	return e.currentScreen.GetLines() + e.currentScreen.GetHistLines()
}

// WriteToStream decodes lines [startLine, endLine] of the output
// history into dec.
func (e *Emulation) WriteToStream(dec Decoder, startLine, endLine int) {
	e.currentScreen.WriteLinesToStream(dec, startLine, endLine)
}

// EraseChar returns the byte the backspace key should send.
func (e *Emulation) EraseChar() byte { return '\b' }

// SetImageSize resizes both screen buffers. Sizes below one line or
// column are ignored.
func (e *Emulation) SetImageSize(lines, columns int) {
	if lines < 1 || columns < 1 {
		return
	}
	unchanged := true
	for _, s := range e.screen {
		if s.GetLines() != lines || s.GetColumns() != columns {
			unchanged = false
		}
	}
	if unchanged {
		return
	}

	e.screen[0].ResizeImage(lines, columns)
	e.screen[1].ResizeImage(lines, columns)

	if e.OnImageSizeChanged != nil {
		e.OnImageSizeChanged(lines, columns)
	}
	e.notifyOutputChanged()
}

// ImageSize returns the screen size as (lines, columns).
func (e *Emulation) ImageSize() (lines, columns int) {
	return e.currentScreen.GetLines(), e.currentScreen.GetColumns()
}

// decodeIncoming converts a byte buffer into code points, carrying
// incomplete UTF-8 sequences over to the next call. Invalid bytes decode
// to the replacement character rather than stalling the stream.
func (e *Emulation) decodeIncoming(data []byte) []rune {
	buf := data
	if len(e.decodeRemainder) > 0 {
		buf = append(e.decodeRemainder, data...)
		e.decodeRemainder = nil
	}

	out := make([]rune, 0, len(buf))
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(buf) && len(buf) < utf8.UTFMax {
				// Incomplete trailing sequence; wait for more bytes.
				e.decodeRemainder = append([]byte(nil), buf...)
				break
			}
		}
		out = append(out, r)
		buf = buf[size:]
	}
	return out
}

// scanZModem looks for the ZMODEM start marker in the raw byte buffer.
// It is a side channel: the bytes still flow through the tokenizer.
func (e *Emulation) scanZModem(data []byte) {
	for i := 0; i < len(data); i++ {
		if data[i] == 0x18 && len(data)-i-1 > 3 &&
			data[i+1] == 'B' && data[i+2] == '0' && data[i+3] == '0' {
			if e.OnZModemDetected != nil {
				e.OnZModemDetected()
			}
			return
		}
	}
}

// notifyOutputChanged pushes the changed image to every window and
// resets the screen's scroll accounting.
func (e *Emulation) notifyOutputChanged() {
	for _, w := range e.windows {
		w.NotifyOutputChanged()
	}
	if e.OnOutputChanged != nil {
		e.OnOutputChanged()
	}
	e.currentScreen.ResetScrolledLines()
	e.currentScreen.ResetDroppedLines()
}

func (e *Emulation) stateSet(state int) {
	if e.OnStateSet != nil {
		e.OnStateSet(state)
	}
}

// queueTitleUpdate batches an OSC title change. Rapid successive updates
// for the same attribute collapse into the last one; the batch flushes
// after a short debounce.
func (e *Emulation) queueTitleUpdate(attribute int, title string) {
	e.titleMu.Lock()
	defer e.titleMu.Unlock()

	e.pendingTitles[attribute] = title
	if e.titleTimer == nil {
		e.titleTimer = time.AfterFunc(titleUpdateDebounce, e.flushTitleUpdates)
	} else {
		e.titleTimer.Reset(titleUpdateDebounce)
	}
}

func (e *Emulation) flushTitleUpdates() {
	e.titleMu.Lock()
	pending := e.pendingTitles
	e.pendingTitles = make(map[int]string)
	e.titleMu.Unlock()

	if e.OnTitleChanged == nil {
		return
	}
	for attribute, title := range pending {
		e.OnTitleChanged(attribute, title)
	}
}

func (e *Emulation) setUsesMouse(usesMouse bool) {
	e.usesMouse = usesMouse
	if e.OnUsesMouseChanged != nil {
		e.OnUsesMouseChanged(usesMouse)
	}
}

func (e *Emulation) setBracketedPasteMode(enabled bool) {
	e.bracketedPasteMode = enabled
	if e.OnBracketedPasteModeChanged != nil {
		e.OnBracketedPasteModeChanged(enabled)
	}
}

func (e *Emulation) sendData(data []byte) {
	if e.OnSendData != nil {
		e.OnSendData(data)
	}
}
