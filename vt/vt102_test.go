// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/vt102_test.go
// Summary: Escape-sequence interpretation tests: SGR, cursor
// addressing, private modes, device reports, charsets and the keyboard
// and mouse encoders.

package vt

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/cubeshell/termcore/keytab"
)

type emulationHarness struct {
	emu  *VT102Emulation
	sent []byte
}

func newTestEmulation(lines, columns int) *emulationHarness {
	h := &emulationHarness{}
	h.emu = NewVT102Emulation(lines, columns, keytab.NewManager())
	h.emu.OnSendData = func(data []byte) { h.sent = append(h.sent, data...) }
	return h
}

func (h *emulationHarness) feed(s string) { h.emu.ReceiveData([]byte(s)) }

func (h *emulationHarness) row(n int) string { return visibleRow(h.emu.CurrentScreen(), n) }

func (h *emulationHarness) takeSent() string {
	out := string(h.sent)
	h.sent = nil
	return out
}

// cellAt inspects one on-screen cell through GetImage.
func cellAt(s *Screen, row, col int) Character {
	hist := s.GetHistLines()
	img := s.GetImage(hist, hist+s.GetLines()-1)
	return img[row*s.GetColumns()+col]
}

func TestPlainOutputAndControls(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("abc\r\ndef")

	if got := h.row(0); got != "abc" {
		t.Errorf("row 0 = %q, want \"abc\"", got)
	}
	if got := h.row(1); got != "def" {
		t.Errorf("row 1 = %q, want \"def\"", got)
	}
	if x, y := h.emu.CurrentScreen().GetCursorX(), h.emu.CurrentScreen().GetCursorY(); x != 3 || y != 1 {
		t.Errorf("cursor = (%d,%d), want (3,1)", x, y)
	}
}

func TestSGRRendition(t *testing.T) {
	tests := []struct {
		name   string
		seq    string
		verify func(t *testing.T, c Character)
	}{
		{
			name: "bold red foreground",
			seq:  "\033[1;31mX",
			verify: func(t *testing.T, c Character) {
				if c.Rendition&ReBold == 0 {
					t.Error("bold not set")
				}
				// Bold promotes a system color to its intense variant.
				if c.Foreground != NewColor(ColorSpaceSystem, 9) {
					t.Errorf("foreground = %+v, want intense system 1", c.Foreground)
				}
			},
		},
		{
			name: "truecolor foreground",
			seq:  "\033[38;2;10;20;30mX",
			verify: func(t *testing.T, c Character) {
				if c.Foreground != NewRGBColor(10, 20, 30) {
					t.Errorf("foreground = %+v, want rgb(10,20,30)", c.Foreground)
				}
			},
		},
		{
			name: "256-color background",
			seq:  "\033[48;5;196mX",
			verify: func(t *testing.T, c Character) {
				if c.Background != NewColor(ColorSpace256, 196) {
					t.Errorf("background = %+v, want index 196", c.Background)
				}
			},
		},
		{
			name: "extended color embedded in a longer list",
			seq:  "\033[31;38;5;200;4mX",
			verify: func(t *testing.T, c Character) {
				if c.Foreground != NewColor(ColorSpace256, 200) {
					t.Errorf("foreground = %+v, want index 200", c.Foreground)
				}
				if c.Rendition&ReUnderline == 0 {
					t.Error("underline not set")
				}
			},
		},
		{
			name: "22 clears bold and faint",
			seq:  "\033[1;2m\033[22mX",
			verify: func(t *testing.T, c Character) {
				if c.Rendition&(ReBold|ReFaint) != 0 {
					t.Errorf("rendition = %#x, bold/faint still set", c.Rendition)
				}
			},
		},
		{
			name: "39 restores default foreground",
			seq:  "\033[31m\033[39mX",
			verify: func(t *testing.T, c Character) {
				if c.Foreground != NewColor(ColorSpaceDefault, DefaultForeColor) {
					t.Errorf("foreground = %+v, want default", c.Foreground)
				}
			},
		},
		{
			name: "bright foreground range",
			seq:  "\033[92mX",
			verify: func(t *testing.T, c Character) {
				if c.Foreground != NewColor(ColorSpaceSystem, 10) {
					t.Errorf("foreground = %+v, want system 10", c.Foreground)
				}
			},
		},
		{
			name: "0 resets everything",
			seq:  "\033[1;4;31;45m\033[0mX",
			verify: func(t *testing.T, c Character) {
				def := DefaultChar
				if c.Rendition != def.Rendition || c.Foreground != def.Foreground || c.Background != def.Background {
					t.Errorf("cell = %+v, want default attributes", c)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(5, 20)
			h.feed(tt.seq)
			tt.verify(t, cellAt(h.emu.CurrentScreen(), 0, 0))
		})
	}
}

func TestCursorAddressing(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		x, y int
	}{
		{"CUP", "\033[3;6H", 5, 2},
		{"HVP", "\033[2;2f", 1, 1},
		{"CUP then CUU", "\033[4;4H\033[2A", 3, 1},
		{"CUD", "\033[2B", 0, 2},
		{"CUF", "\033[5C", 5, 0},
		{"CUB clamps at left edge", "\033[3;6H\033[99D", 0, 2},
		{"CHA", "\033[7G", 6, 0},
		{"VPA", "\033[4d", 0, 3},
		{"CNL", "\033[3;6H\033[E", 0, 3},
		{"CPL", "\033[3;6H\033[2F", 0, 0},
		{"default params home", "\033[4;4H\033[H", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(10, 40)
			h.feed(tt.seq)
			s := h.emu.CurrentScreen()
			if s.GetCursorX() != tt.x || s.GetCursorY() != tt.y {
				t.Errorf("cursor = (%d,%d), want (%d,%d)",
					s.GetCursorX(), s.GetCursorY(), tt.x, tt.y)
			}
		})
	}
}

func TestEditingSequences(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		rows []string
	}{
		{"ICH", "abcd\r\033[2@", []string{"  abcd"}},
		{"DCH", "abcd\r\033[2P", []string{"cd"}},
		{"ECH", "abcd\r\033[2X", []string{"  cd"}},
		{"EL to end", "abcd\r\033[2C\033[K", []string{"ab"}},
		{"EL to begin", "abcd\r\033[2C\033[1K", []string{"   d"}},
		{"EL entire", "abcd\r\033[2K", []string{""}},
		{"REP", "ab\033[3b", []string{"abbbb"}},
		{"IL", "one\r\ntwo\r\033[1;0H\033[L", []string{"", "one", "two"}},
		{"DL", "one\r\ntwo\r\nthree\r\033[1;0H\033[M", []string{"two", "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(6, 20)
			h.feed(tt.seq)
			for i, want := range tt.rows {
				if got := h.row(i); got != want {
					t.Errorf("row %d = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestEraseInDisplayClearsHistory(t *testing.T) {
	h := newTestEmulation(4, 20)
	h.emu.SetHistory(HistoryTypeBuffer{Lines: 100})
	for i := 0; i < 10; i++ {
		h.feed("scrolled line\r\n")
	}
	if h.emu.CurrentScreen().GetHistLines() == 0 {
		t.Fatal("no scrollback accumulated")
	}

	h.feed("\033[3J")
	if got := h.emu.CurrentScreen().GetHistLines(); got != 0 {
		t.Errorf("history lines after CSI 3 J = %d, want 0", got)
	}
}

func TestScrollingRegion(t *testing.T) {
	h := newTestEmulation(6, 20)
	h.feed("\033[2;4r")

	s := h.emu.CurrentScreen()
	if s.TopMargin() != 1 || s.BottomMargin() != 3 {
		t.Fatalf("margins = (%d,%d), want (1,3)", s.TopMargin(), s.BottomMargin())
	}

	// Fill all six rows, then scroll the region up once.
	h.feed("\033[r")
	h.feed("\033[H")
	for i := 0; i < 6; i++ {
		h.feed("row " + string(rune('0'+i)))
		if i < 5 {
			h.feed("\r\n")
		}
	}
	h.feed("\033[2;4r\033[S")

	for i, want := range []string{"row 0", "row 2", "row 3", "", "row 4", "row 5"} {
		if got := h.row(i); got != want {
			t.Errorf("row %d = %q, want %q", i, got, want)
		}
	}
}

func TestDeviceReports(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"primary DA", "\033[c", "\033[?1;2c"},
		{"primary DA via DECID", "\033Z", "\033[?1;2c"},
		{"secondary DA", "\033[>c", "\033[>0;115;0c"},
		{"status report", "\033[5n", "\033[0n"},
		{"cursor position report", "\033[3;6H\033[6n", "\033[3;6R"},
		{"terminal parameters", "\033[x", "\033[2;1;1;112;112;1;0x"},
		{"terminal parameters solicited", "\033[1x", "\033[3;1;1;112;112;1;0x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(10, 40)
			h.feed(tt.seq)
			if got := h.takeSent(); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlternateScreenComposite(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("primary\033[2;3H")

	h.feed("\033[?1049h")
	if got := h.row(0); got != "" {
		t.Fatalf("alternate screen row 0 = %q, want empty", got)
	}
	h.feed("\033[Halternate")
	if got := h.row(0); got != "alternate" {
		t.Errorf("alternate screen row 0 = %q", got)
	}

	h.feed("\033[?1049l")
	if got := h.row(0); got != "primary" {
		t.Errorf("primary row 0 after switch back = %q, want \"primary\"", got)
	}
	s := h.emu.CurrentScreen()
	if s.GetCursorX() != 2 || s.GetCursorY() != 1 {
		t.Errorf("restored cursor = (%d,%d), want (2,1)", s.GetCursorX(), s.GetCursorY())
	}
}

func TestSaveRestoreCursorPrivateMode(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033[2;5H\033[?1048h\033[H")
	h.feed("\033[?1048l")
	s := h.emu.CurrentScreen()
	if s.GetCursorX() != 4 || s.GetCursorY() != 1 {
		t.Errorf("cursor = (%d,%d), want (4,1)", s.GetCursorX(), s.GetCursorY())
	}
}

func TestModeCallbacks(t *testing.T) {
	h := newTestEmulation(5, 20)

	var mouse []bool
	var paste []bool
	h.emu.OnUsesMouseChanged = func(on bool) { mouse = append(mouse, on) }
	h.emu.OnBracketedPasteModeChanged = func(on bool) { paste = append(paste, on) }

	h.feed("\033[?1000h")
	if !h.emu.ProgramUsesMouse() {
		t.Error("mouse mode not active after DECSET 1000")
	}
	h.feed("\033[?1000l")
	if h.emu.ProgramUsesMouse() {
		t.Error("mouse mode still active after DECRST 1000")
	}
	if len(mouse) != 2 || !mouse[0] || mouse[1] {
		t.Errorf("mouse notifications = %v, want [true false]", mouse)
	}

	h.feed("\033[?2004h\033[?2004l")
	if len(paste) != 2 || !paste[0] || paste[1] {
		t.Errorf("bracketed paste notifications = %v, want [true false]", paste)
	}
}

func TestModeSaveRestore(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033[?1h\033[?1s\033[?1l")
	if h.emu.getMode(ModeAppCursorKeys) {
		t.Fatal("app cursor keys still set after DECRST")
	}
	h.feed("\033[?1r")
	if !h.emu.getMode(ModeAppCursorKeys) {
		t.Error("app cursor keys not restored from saved state")
	}
}

func TestCursorVisibilityMode(t *testing.T) {
	h := newTestEmulation(5, 20)
	if !h.emu.CurrentScreen().GetMode(ModeCursor) {
		t.Fatal("cursor not visible initially")
	}
	h.feed("\033[?25l")
	if h.emu.CurrentScreen().GetMode(ModeCursor) {
		t.Error("cursor still visible after DECRST 25")
	}
	h.feed("\033[?25h")
	if !h.emu.CurrentScreen().GetMode(ModeCursor) {
		t.Error("cursor hidden after DECSET 25")
	}
}

func TestCursorShapeRequests(t *testing.T) {
	tests := []struct {
		seq      string
		shape    KeyboardCursorShape
		blinking bool
	}{
		{"\033[1 q", BlockCursor, true},
		{"\033[2 q", BlockCursor, false},
		{"\033[3 q", UnderlineCursor, true},
		{"\033[4 q", UnderlineCursor, false},
		{"\033[5 q", IBeamCursor, true},
		{"\033[6 q", IBeamCursor, false},
	}
	for _, tt := range tests {
		h := newTestEmulation(5, 20)
		var gotShape KeyboardCursorShape
		var gotBlink bool
		h.emu.OnCursorChanged = func(shape KeyboardCursorShape, blinking bool) {
			gotShape, gotBlink = shape, blinking
		}
		h.feed(tt.seq)
		if gotShape != tt.shape || gotBlink != tt.blinking {
			t.Errorf("%q -> (%v,%v), want (%v,%v)",
				tt.seq, gotShape, gotBlink, tt.shape, tt.blinking)
		}
	}
}

func TestWindowManipulation(t *testing.T) {
	h := newTestEmulation(5, 20)

	var reqLines, reqColumns int
	h.emu.OnImageResizeRequest = func(lines, columns int) { reqLines, reqColumns = lines, columns }
	h.feed("\033[8;30;100t")
	if reqLines != 30 || reqColumns != 100 {
		t.Errorf("resize request = (%d,%d), want (30,100)", reqLines, reqColumns)
	}
	if l, c := h.emu.ImageSize(); l != 30 || c != 100 {
		t.Errorf("image size = (%d,%d), want (30,100)", l, c)
	}

	var tabColor int
	h.emu.OnChangeTabTextColor = func(color int) { tabColor = color }
	h.feed("\033[28;7t")
	if tabColor != 7 {
		t.Errorf("tab color = %d, want 7", tabColor)
	}
}

func TestGraphicsCharset(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033(0lqk\033(Bx")

	if got := h.row(0); got != "┌─┐x" {
		t.Errorf("row 0 = %q, want \"┌─┐x\"", got)
	}
}

func TestShiftInShiftOut(t *testing.T) {
	h := newTestEmulation(5, 20)
	// G1 is the graphics set; SO activates it, SI returns to G0.
	h.feed("\033)0a\016q\017a")

	if got := h.row(0); got != "a─a" {
		t.Errorf("row 0 = %q, want \"a─a\"", got)
	}
}

func TestDecAlignmentPattern(t *testing.T) {
	h := newTestEmulation(3, 4)
	h.feed("\033#8")
	for i := 0; i < 3; i++ {
		if got := h.row(i); got != "EEEE" {
			t.Errorf("row %d = %q, want \"EEEE\"", i, got)
		}
	}
}

func TestVT52Operation(t *testing.T) {
	h := newTestEmulation(10, 40)
	h.emu.resetMode(ModeAnsi)

	h.feed("hi\033Y%(")
	s := h.emu.CurrentScreen()
	if s.GetCursorY() != 5 || s.GetCursorX() != 8 {
		t.Errorf("cursor = (%d,%d), want (8,5)", s.GetCursorX(), s.GetCursorY())
	}
	h.feed("\033A")
	if s.GetCursorY() != 4 {
		t.Errorf("cursor y after ESC A = %d, want 4", s.GetCursorY())
	}

	h.feed("\033Z")
	if got := h.takeSent(); got != "\033/Z" {
		t.Errorf("VT52 identify reply = %q, want \"\\033/Z\"", got)
	}

	h.feed("\033<\033[c")
	if got := h.takeSent(); got != "\033[?1;2c" {
		t.Errorf("ANSI identify after ESC < = %q", got)
	}
}

func TestCancelAbortsSequence(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033[3\030A")

	// CAN drops the pending CSI and shows the error indicator; the
	// following character is plain output again.
	if got := h.row(0); got != "▒A" {
		t.Errorf("row 0 = %q, want \"▒A\"", got)
	}
}

func TestSplitUTF8Sequence(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("caf")
	h.emu.ReceiveData([]byte{0xC3})
	h.emu.ReceiveData([]byte{0xA9})

	if got := h.row(0); got != "café" {
		t.Errorf("row 0 = %q, want \"café\"", got)
	}
}

func TestWideCharacterOutput(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("a日b")

	if got := h.row(0); got != "a日b" {
		t.Errorf("row 0 = %q", got)
	}
	if got := h.emu.CurrentScreen().GetCursorX(); got != 4 {
		t.Errorf("cursor x = %d, want 4", got)
	}
}

func TestTitleChangeBatching(t *testing.T) {
	h := newTestEmulation(5, 20)

	type update struct {
		attribute int
		title     string
	}
	got := make(chan update, 8)
	h.emu.OnTitleChanged = func(attribute int, title string) {
		got <- update{attribute, title}
	}

	// Two rapid updates for the same attribute collapse into the last.
	h.feed("\033]0;first\a\033]0;second\a")

	select {
	case u := <-got:
		if u.attribute != 0 || u.title != "second" {
			t.Errorf("title update = %+v, want {0 second}", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no title update delivered")
	}
	select {
	case u := <-got:
		t.Errorf("unexpected extra update %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTitleStringTerminator(t *testing.T) {
	h := newTestEmulation(5, 20)
	got := make(chan string, 1)
	h.emu.OnTitleChanged = func(attribute int, title string) {
		if attribute == 2 {
			got <- title
		}
	}

	h.feed("\033]2;with st\033\\")
	select {
	case title := <-got:
		if title != "with st" {
			t.Errorf("title = %q, want \"with st\"", title)
		}
	case <-time.After(time.Second):
		t.Fatal("no title update delivered")
	}
}

func TestZModemDetection(t *testing.T) {
	h := newTestEmulation(5, 20)
	detected := false
	h.emu.OnZModemDetected = func() { detected = true }

	h.feed("rz waiting\030B00000000000000\r\n")
	if !detected {
		t.Error("ZMODEM start marker not detected")
	}
}

func TestSendKeyEvent(t *testing.T) {
	tests := []struct {
		name  string
		setup string
		ev    *tcell.EventKey
		want  string
	}{
		{
			name: "plain rune",
			ev:   tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone),
			want: "x",
		},
		{
			name: "cursor up normal",
			ev:   tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone),
			want: "\033[A",
		},
		{
			name:  "cursor up application",
			setup: "\033[?1h",
			ev:    tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone),
			want:  "\033OA",
		},
		{
			name: "cursor up with shift expands the wildcard",
			ev:   tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModShift),
			want: "\033[1;2A",
		},
		{
			name: "return sends CR",
			ev:   tcell.NewEventKey(tcell.KeyEnter, '\r', tcell.ModNone),
			want: "\r",
		},
		{
			name:  "return in newline mode sends CRLF",
			setup: "\033[20h",
			ev:    tcell.NewEventKey(tcell.KeyEnter, '\r', tcell.ModNone),
			want:  "\r\n",
		},
		{
			name: "backspace",
			ev:   tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone),
			want: "\x7f",
		},
		{
			name: "ctrl letter",
			ev:   tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModCtrl),
			want: "\x01",
		},
		{
			name: "alt prefixes escape",
			ev:   tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt),
			want: "\033x",
		},
		{
			name: "page up without binding state still pages",
			ev:   tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone),
			want: "\033[5~",
		},
		{
			name: "F5",
			ev:   tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone),
			want: "\033[15~",
		},
		{
			name: "F5 with ctrl",
			ev:   tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModCtrl),
			want: "\033[15;5~",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(5, 20)
			if tt.setup != "" {
				h.feed(tt.setup)
			}
			h.takeSent()
			h.emu.SendKeyEvent(tt.ev, false)
			if got := h.takeSent(); got != tt.want {
				t.Errorf("sent %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlowControlKeys(t *testing.T) {
	h := newTestEmulation(5, 20)
	var events []bool
	h.emu.OnFlowControlKeyPressed = func(suspend bool) { events = append(events, suspend) }

	h.emu.SendKeyEvent(tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModCtrl), false)
	h.emu.SendKeyEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModCtrl), false)
	h.emu.SendKeyEvent(tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModCtrl), false)

	want := []bool{true, false, false}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestFocusReporting(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.emu.FocusGained()
	if got := h.takeSent(); got != "" {
		t.Fatalf("focus event sent while reporting disabled: %q", got)
	}

	h.emu.SetReportFocusEvents(true)
	h.emu.FocusGained()
	h.emu.FocusLost()
	if got := h.takeSent(); got != "\033[I\033[O" {
		t.Errorf("focus events = %q, want \"\\033[I\\033[O\"", got)
	}
}

func TestSendMouseEvent(t *testing.T) {
	tests := []struct {
		name   string
		setup  string
		button int
		column int
		line   int
		event  MouseEventType
		want   string
	}{
		{
			name:   "legacy press",
			button: 0,
			column: 5,
			line:   3,
			event:  MouseButtonPress,
			want:   "\033[M %#",
		},
		{
			name:   "legacy release loses the button",
			button: 0,
			column: 5,
			line:   3,
			event:  MouseButtonRelease,
			want:   "\033[M#%#",
		},
		{
			name:   "legacy out of range is dropped",
			button: 0,
			column: 300,
			line:   3,
			event:  MouseButtonPress,
			want:   "",
		},
		{
			name:   "sgr press",
			setup:  "\033[?1006h",
			button: 0,
			column: 5,
			line:   3,
			event:  MouseButtonPress,
			want:   "\033[<0;5;3M",
		},
		{
			name:   "sgr release keeps the button",
			setup:  "\033[?1006h",
			button: 1,
			column: 5,
			line:   3,
			event:  MouseButtonRelease,
			want:   "\033[<1;5;3m",
		},
		{
			name:   "sgr wheel",
			setup:  "\033[?1006h",
			button: 4,
			column: 5,
			line:   3,
			event:  MouseButtonPress,
			want:   "\033[<64;5;3M",
		},
		{
			name:   "urxvt press",
			setup:  "\033[?1015h",
			button: 0,
			column: 5,
			line:   3,
			event:  MouseButtonPress,
			want:   "\033[32;5;3M",
		},
		{
			name:   "motion offset in cell-tracking mode",
			setup:  "\033[?1002h\033[?1006h",
			button: 0,
			column: 5,
			line:   3,
			event:  MouseMotion,
			want:   "\033[<32;5;3M",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestEmulation(5, 20)
			if tt.setup != "" {
				h.feed(tt.setup)
			}
			h.takeSent()
			h.emu.SendMouseEvent(tt.button, tt.column, tt.line, tt.event)
			if got := h.takeSent(); got != tt.want {
				t.Errorf("sent %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMouseEventRejectsOrigin(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033[?1006h")
	h.takeSent()
	h.emu.SendMouseEvent(0, 0, 3, MouseButtonPress)
	if got := h.takeSent(); got != "" {
		t.Errorf("sent %q for out-of-range column", got)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	h := newTestEmulation(5, 20)
	h.feed("\033[?1h\033[?1049h\033[1;31mstale\033(0")

	h.feed("\033c")
	if h.emu.getMode(ModeAppCursorKeys) {
		t.Error("app cursor keys survived RIS")
	}
	if h.emu.CurrentScreen() != h.emu.screen[0] {
		t.Error("alternate screen still active after RIS")
	}
	h.feed("l")
	if got := h.row(0); got != "l" {
		t.Errorf("row 0 = %q, want literal \"l\" after charset reset", got)
	}
}
