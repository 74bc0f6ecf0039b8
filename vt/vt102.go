// Copyright © 2025 Termcore contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: vt/vt102.go
// Summary: The VT102/xterm escape-sequence tokenizer and dispatcher
// driving the screen buffers, plus keyboard and mouse event encoding.

package vt

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/cubeshell/termcore/keytab"
)

// Emulation-level modes, continuing the Screen mode numbering.
const (
	ModeAppScreen       = ModesScreen + iota // alternate screen active
	ModeAppCursorKeys                        // DECCKM
	ModeAppKeyPad                            // application keypad
	ModeMouse1000                            // report press/release
	ModeMouse1001                            // highlight tracking
	ModeMouse1002                            // cell-motion tracking
	ModeMouse1003                            // all-motion tracking
	ModeMouse1005                            // xterm extended coords
	ModeMouse1006                            // SGR extended coords
	ModeMouse1015                            // urxvt extended coords
	ModeAnsi                                 // ANSI vs VT52 (DECANM)
	Mode132Columns                           // DECCOLM
	ModeAllow132Columns                      // permit DECCOLM
	ModeBracketedPaste
	modesTotal
)

const (
	maxTokenLength = 256
	maxArgs        = 15
	maxArgument    = 4096

	charEsc = 27
	charDel = 127
)

// Character classes driving the tokenizer.
const (
	classCtl = 1 << iota // control character
	classChr             // printable
	classCpn             // ends a numeric CSI sequence
	classDig             // digit
	classScs             // charset selection intermediate
	classGrp             // group / intermediate
	classCps             // ends a window-manipulation sequence
)

// MouseEventType distinguishes the encodings of SendMouseEvent.
type MouseEventType int

const (
	MouseButtonPress MouseEventType = iota
	MouseMotion
	MouseButtonRelease
)

// VT100 special-graphics charset, code points 0x5F..0x7E.
var vt100Graphics = [32]rune{
	0x0020, 0x25C6, 0x2592, 0x2409, 0x240C, 0x240D, 0x240A, 0x00B0,
	0x00B1, 0x2424, 0x240B, 0x2518, 0x2510, 0x250C, 0x2514, 0x253C,
	0x23BA, 0x23BB, 0x2500, 0x23BC, 0x23BD, 0x251C, 0x2524, 0x2534,
	0x252C, 0x2502, 0x2264, 0x2265, 0x03C0, 0x2260, 0x00A3, 0x00B7,
}

// charCodes is the designated-charset state for one screen buffer.
type charCodes struct {
	charset   [4]byte
	current   int
	graphic   bool // G-slot mapped to vt100 graphics
	pound     bool // G-slot mapped to UK (# is pound)
	saGraphic bool
	saPound   bool
}

// tokenKind tags a fully-recognized escape-sequence token.
type tokenKind int

const (
	tokChr        tokenKind = iota // plain character
	tokCtl                         // C0 control
	tokEsc                         // ESC x
	tokEscCharset                  // ESC ( ) * + x
	tokEscDec                      // ESC # x
	tokCSIPs                       // CSI Ps... x, one parameter
	tokCSIPn                       // CSI Pn ; Pn x, cursor addressing
	tokCSIPrivate                  // CSI ? Pn x
	tokCSIGreater                  // CSI > ... x
	tokCSIBang                     // CSI ! x
	tokCSISpace                    // CSI Ps SP x
	tokVT52                        // VT52 sequence
)

// token is one dispatched unit from the tokenizer. The meaning of arg, p
// and q depends on kind.
type token struct {
	kind tokenKind
	ch   rune
	arg  int
	p, q int
}

// VT102Emulation interprets a VT102/xterm byte stream against the shared
// emulation state.
type VT102Emulation struct {
	*Emulation

	keyTranslator *keytab.Translator

	charset      [2]charCodes
	currentModes [modesTotal]bool
	savedModes   [modesTotal]bool

	tokenBuffer    [maxTokenLength]rune
	tokenBufferPos int
	argv           [maxArgs]int
	argc           int
	prevCC         rune

	charClass [256]int

	reportFocusEvents bool
}

// NewVT102Emulation constructs an emulation with two screens of the
// given size, bound to the default key bindings.
func NewVT102Emulation(lines, columns int, translators *keytab.Manager) *VT102Emulation {
	v := &VT102Emulation{Emulation: NewEmulation(lines, columns)}
	if translators != nil {
		v.keyTranslator = translators.DefaultTranslator()
	}
	v.initTokenizer()
	v.Reset()
	return v
}

// SetKeyBindings selects the named key bindings, falling back to the
// defaults when the name is unknown.
func (v *VT102Emulation) SetKeyBindings(m *keytab.Manager, name string) {
	if m == nil {
		return
	}
	t, err := m.FindTranslator(name)
	if err != nil || t == nil {
		t = m.DefaultTranslator()
	}
	v.keyTranslator = t
}

// KeyBindings returns the active key binding name.
func (v *VT102Emulation) KeyBindings() string {
	if v.keyTranslator == nil {
		return ""
	}
	return v.keyTranslator.Name()
}

// Reset restores the emulation, both screens and the tokenizer to their
// initial state.
func (v *VT102Emulation) Reset() {
	v.resetTokenizer()
	v.resetModes()
	v.resetCharset(0)
	v.screen[0].Reset(true)
	v.resetCharset(1)
	v.screen[1].Reset(true)
	v.notifyOutputChanged()
}

// ClearEntireScreen pushes the visible image into scrollback and clears
// it.
func (v *VT102Emulation) ClearEntireScreen() {
	v.currentScreen.ClearEntireScreen()
	v.notifyOutputChanged()
}

// ReceiveData feeds raw bytes from the client program into the
// emulation. Bytes are decoded as UTF-8 (invalid sequences become the
// replacement character) and processed strictly in order; the same
// buffer is scanned for the ZMODEM start marker as a side channel.
func (v *VT102Emulation) ReceiveData(data []byte) {
	v.stateSet(NotifyActivity)

	for _, r := range v.decodeIncoming(data) {
		v.receiveChar(r)
	}
	v.scanZModem(data)

	v.notifyOutputChanged()
}

// SendText encodes text as if typed and sends it to the client program.
func (v *VT102Emulation) SendText(text string) {
	if text == "" {
		return
	}
	v.sendData([]byte(text))
}

// SendString sends s to the client program verbatim.
func (v *VT102Emulation) SendString(s string) {
	v.sendData([]byte(s))
}

// --- Tokenizer ---

func (v *VT102Emulation) initTokenizer() {
	for i := 0; i < 32; i++ {
		v.charClass[i] |= classCtl
	}
	for i := 32; i < 256; i++ {
		v.charClass[i] |= classChr
	}
	for _, c := range []byte("@ABCDEFGHILMPSTXZbcdfry") {
		v.charClass[c] |= classCpn
	}
	v.charClass['t'] |= classCps
	for _, c := range []byte("0123456789") {
		v.charClass[c] |= classDig
	}
	for _, c := range []byte("()+*%") {
		v.charClass[c] |= classScs
	}
	for _, c := range []byte("()+*#[]%") {
		v.charClass[c] |= classGrp
	}
	v.resetTokenizer()
}

func (v *VT102Emulation) resetTokenizer() {
	v.tokenBufferPos = 0
	v.argc = 0
	v.argv[0] = 0
	v.argv[1] = 0
	v.prevCC = 0
}

func (v *VT102Emulation) addToCurrentToken(cc rune) {
	v.tokenBuffer[v.tokenBufferPos] = cc
	v.tokenBufferPos = min(v.tokenBufferPos+1, maxTokenLength-1)
}

func (v *VT102Emulation) addDigit(digit int) {
	if v.argv[v.argc] < maxArgument {
		v.argv[v.argc] = 10*v.argv[v.argc] + digit
	}
}

func (v *VT102Emulation) addArgument() {
	v.argc = min(v.argc+1, maxArgs-1)
	v.argv[v.argc] = 0
}

// Tokenizer predicates. The single-letter naming follows the classic
// recognizer: l* test at a specific length, e* test at the end of an
// arbitrary-length sequence, X* deal with the OSC pass-through state.

func (v *VT102Emulation) lec(p, l int, c rune) bool {
	return v.tokenBufferPos == p && l < v.tokenBufferPos && v.tokenBuffer[l] == c
}

func (v *VT102Emulation) lun() bool {
	return v.tokenBufferPos == 1 && v.tokenBuffer[0] >= 32
}

func (v *VT102Emulation) les(p, l, class int) bool {
	return v.tokenBufferPos == p && l < v.tokenBufferPos &&
		v.tokenBuffer[l] < 256 && v.charClass[v.tokenBuffer[l]]&class == class
}

func (v *VT102Emulation) eec(c rune) bool {
	return v.tokenBufferPos >= 3 && v.tokenBuffer[v.tokenBufferPos-1] == c
}

func (v *VT102Emulation) ees(class int) bool {
	if v.tokenBufferPos < 3 {
		return false
	}
	cc := v.tokenBuffer[v.tokenBufferPos-1]
	return cc < 256 && v.charClass[cc]&class == class
}

func (v *VT102Emulation) eps(class int) bool {
	if v.tokenBufferPos < 3 {
		return false
	}
	switch v.tokenBuffer[2] {
	case '?', '!', '>':
		return false
	}
	cc := v.tokenBuffer[v.tokenBufferPos-1]
	return cc < 256 && v.charClass[cc]&class == class
}

func (v *VT102Emulation) epp() bool {
	return v.tokenBufferPos >= 3 && v.tokenBuffer[2] == '?'
}

func (v *VT102Emulation) epe() bool {
	return v.tokenBufferPos >= 3 && v.tokenBuffer[2] == '!'
}

func (v *VT102Emulation) egt() bool {
	return v.tokenBufferPos >= 3 && v.tokenBuffer[2] == '>'
}

func (v *VT102Emulation) esp() bool {
	return v.tokenBufferPos == 4 && v.tokenBuffer[3] == ' '
}

func (v *VT102Emulation) xpe() bool {
	return v.tokenBufferPos >= 2 && v.tokenBuffer[1] == ']'
}

func (v *VT102Emulation) xte(cc rune) bool {
	return v.xpe() && (cc == 7 || (v.prevCC == charEsc && cc == '\\'))
}

func (v *VT102Emulation) ces(class int, cc rune) bool {
	return cc < 256 && v.charClass[cc]&class == class && !v.xte(cc)
}

// receiveChar advances the tokenizer by one code point, dispatching a
// token whenever a terminating class is recognized. A bare ESC always
// restarts the accumulator; sequences never nest.
func (v *VT102Emulation) receiveChar(cc rune) {
	if cc == charDel {
		return
	}

	if v.ces(classCtl, cc) {
		// Control characters inside an OSC string are payload, not
		// terminators.
		if v.xpe() {
			v.prevCC = cc
			return
		}
		// CAN, SUB and ESC abort any sequence in progress.
		if cc == 0x18 || cc == 0x1A || cc == charEsc {
			v.resetTokenizer()
		}
		if cc != charEsc {
			v.dispatch(token{kind: tokCtl, ch: cc + '@'})
			return
		}
	}

	v.addToCurrentToken(cc)
	s := &v.tokenBuffer

	if !v.getMode(ModeAnsi) {
		v.receiveCharVT52(cc)
		return
	}

	switch {
	case v.lec(1, 0, charEsc):
		return
	case v.lec(1, 0, charEsc+128):
		s[0] = charEsc
		v.receiveChar('[')
		return
	case v.les(2, 1, classGrp):
		return
	case v.xte(cc):
		v.processWindowAttributeChange()
		v.resetTokenizer()
		return
	case v.xpe():
		v.prevCC = cc
		return
	case v.lec(3, 2, '?'), v.lec(3, 2, '>'), v.lec(3, 2, '!'):
		return
	case v.lun():
		v.dispatch(token{kind: tokChr, p: int(v.applyCharset(cc))})
		v.resetTokenizer()
		return
	case v.lec(2, 0, charEsc):
		v.dispatch(token{kind: tokEsc, ch: s[1]})
		v.resetTokenizer()
		return
	case v.les(3, 1, classScs):
		v.dispatch(token{kind: tokEscCharset, ch: s[1], arg: int(s[2])})
		v.resetTokenizer()
		return
	case v.lec(3, 1, '#'):
		v.dispatch(token{kind: tokEscDec, ch: s[2]})
		v.resetTokenizer()
		return
	case v.eps(classCpn):
		v.dispatch(token{kind: tokCSIPn, ch: cc, p: v.argv[0], q: v.argv[1]})
		v.resetTokenizer()
		return
	case v.esp():
		return
	case v.lec(5, 4, 'q') && s[3] == ' ':
		v.dispatch(token{kind: tokCSISpace, ch: cc, arg: v.argv[0]})
		v.resetTokenizer()
		return
	case v.eps(classCps):
		// Window manipulation: CSI 8 ; lines ; columns t
		v.dispatch(token{kind: tokCSIPs, ch: cc, arg: v.argv[0], p: v.argv[1], q: v.argv[2]})
		v.resetTokenizer()
		return
	case v.epe():
		v.dispatch(token{kind: tokCSIBang, ch: cc})
		v.resetTokenizer()
		return
	case v.ees(classDig):
		v.addDigit(int(cc - '0'))
		return
	case v.eec(';'), v.eec(':'):
		v.addArgument()
		return
	}

	// Terminating character of a parameterized CSI: dispatch one token
	// per argument, consuming the extended-color forms atomically.
	for i := 0; i <= v.argc; i++ {
		switch {
		case v.epp():
			v.dispatch(token{kind: tokCSIPrivate, ch: cc, arg: v.argv[i]})
		case v.egt():
			v.dispatch(token{kind: tokCSIGreater, ch: cc})
		case cc == 'm' && v.argc-i >= 4 && (v.argv[i] == 38 || v.argv[i] == 48) && v.argv[i+1] == 2:
			// 38;2;r;g;b or 48;2;r;g;b
			i += 2
			v.dispatch(token{
				kind: tokCSIPs, ch: cc, arg: v.argv[i-2],
				p: int(ColorSpaceRGB),
				q: v.argv[i]<<16 | v.argv[i+1]<<8 | v.argv[i+2],
			})
			i += 2
		case cc == 'm' && v.argc-i >= 2 && (v.argv[i] == 38 || v.argv[i] == 48) && v.argv[i+1] == 5:
			// 38;5;index or 48;5;index
			i += 2
			v.dispatch(token{
				kind: tokCSIPs, ch: cc, arg: v.argv[i-2],
				p: int(ColorSpace256), q: v.argv[i],
			})
		default:
			v.dispatch(token{kind: tokCSIPs, ch: cc, arg: v.argv[i]})
		}
	}
	v.resetTokenizer()
}

func (v *VT102Emulation) receiveCharVT52(cc rune) {
	s := &v.tokenBuffer
	switch {
	case v.lec(1, 0, charEsc):
		return
	case v.les(1, 0, classChr):
		v.dispatch(token{kind: tokChr, p: int(s[0])})
		v.resetTokenizer()
		return
	case v.lec(2, 1, 'Y'), v.lec(3, 1, 'Y'):
		return
	case v.tokenBufferPos < 4:
		v.dispatch(token{kind: tokVT52, ch: s[1]})
		v.resetTokenizer()
		return
	}
	v.dispatch(token{kind: tokVT52, ch: s[1], p: int(s[2]), q: int(s[3])})
	v.resetTokenizer()
}

// processWindowAttributeChange parses an accumulated OSC string
// (attribute ; value) and queues the title update batch.
func (v *VT102Emulation) processWindowAttributeChange() {
	attribute := 0
	i := 2
	for i < v.tokenBufferPos && v.tokenBuffer[i] >= '0' && v.tokenBuffer[i] <= '9' {
		attribute = 10*attribute + int(v.tokenBuffer[i]-'0')
		i++
	}
	if i >= v.tokenBufferPos || v.tokenBuffer[i] != ';' {
		v.reportDecodingError()
		return
	}

	var b strings.Builder
	for j := i + 1; j < v.tokenBufferPos-1; j++ {
		b.WriteRune(v.tokenBuffer[j])
	}
	v.queueTitleUpdate(attribute, b.String())
}

func (v *VT102Emulation) reportDecodingError() {
	if v.tokenBufferPos == 0 || (v.tokenBufferPos == 1 && v.tokenBuffer[0] >= 32) {
		return
	}
	log.Printf("[vt] undecodable sequence: %q", string(v.tokenBuffer[:v.tokenBufferPos]))
}

// --- Charsets ---

func (v *VT102Emulation) curCharset() *charCodes {
	if v.currentScreen == v.screen[1] {
		return &v.charset[1]
	}
	return &v.charset[0]
}

func (v *VT102Emulation) applyCharset(c rune) rune {
	cs := v.curCharset()
	if cs.graphic && c >= 0x5F && c <= 0x7E {
		return vt100Graphics[c-0x5F]
	}
	if cs.pound && c == '#' {
		return 0xA3
	}
	return c
}

func (v *VT102Emulation) setCharset(n int, cs byte) {
	v.charset[0].charset[n&3] = cs
	v.useCharsetFor(&v.charset[0], v.charset[0].current)
	v.charset[1].charset[n&3] = cs
	v.useCharsetFor(&v.charset[1], v.charset[1].current)
}

func (v *VT102Emulation) useCharset(n int) {
	v.useCharsetFor(v.curCharset(), n)
}

func (v *VT102Emulation) useCharsetFor(cs *charCodes, n int) {
	cs.current = n & 3
	cs.graphic = cs.charset[n&3] == '0'
	cs.pound = cs.charset[n&3] == 'A'
}

func (v *VT102Emulation) setAndUseCharset(n int, c byte) {
	cs := v.curCharset()
	cs.charset[n&3] = c
	v.useCharsetFor(cs, n&3)
}

func (v *VT102Emulation) resetCharset(scrno int) {
	v.charset[scrno] = charCodes{charset: [4]byte{'B', 'B', 'B', 'B'}}
}

func (v *VT102Emulation) saveCursor() {
	cs := v.curCharset()
	cs.saGraphic = cs.graphic
	cs.saPound = cs.pound
	v.currentScreen.SaveCursor()
}

func (v *VT102Emulation) restoreCursor() {
	cs := v.curCharset()
	cs.graphic = cs.saGraphic
	cs.pound = cs.saPound
	v.currentScreen.RestoreCursor()
}

// --- Modes ---

func (v *VT102Emulation) getMode(mode int) bool { return v.currentModes[mode] }

func (v *VT102Emulation) saveMode(mode int) { v.savedModes[mode] = v.currentModes[mode] }

func (v *VT102Emulation) restoreMode(mode int) {
	if v.savedModes[mode] {
		v.setMode(mode)
	} else {
		v.resetMode(mode)
	}
}

func (v *VT102Emulation) setMode(mode int) {
	v.currentModes[mode] = true

	switch mode {
	case Mode132Columns:
		if v.getMode(ModeAllow132Columns) {
			v.clearScreenAndSetColumns(132)
		} else {
			v.currentModes[mode] = false
		}
	case ModeMouse1000, ModeMouse1001, ModeMouse1002, ModeMouse1003:
		v.setUsesMouse(true)
	case ModeBracketedPaste:
		v.setBracketedPasteMode(true)
	case ModeAppScreen:
		v.screen[1].ClearSelection()
		v.setScreen(1)
	}

	if mode < ModesScreen {
		v.screen[0].SetMode(mode)
		v.screen[1].SetMode(mode)
	}
}

func (v *VT102Emulation) resetMode(mode int) {
	v.currentModes[mode] = false

	switch mode {
	case Mode132Columns:
		if v.getMode(ModeAllow132Columns) {
			v.clearScreenAndSetColumns(80)
		}
	case ModeMouse1000, ModeMouse1001, ModeMouse1002, ModeMouse1003:
		v.setUsesMouse(false)
	case ModeBracketedPaste:
		v.setBracketedPasteMode(false)
	case ModeAppScreen:
		v.screen[0].ClearSelection()
		v.setScreen(0)
	}

	if mode < ModesScreen {
		v.screen[0].ResetMode(mode)
		v.screen[1].ResetMode(mode)
	}
}

func (v *VT102Emulation) resetModes() {
	for _, mode := range []int{
		Mode132Columns, ModeMouse1000, ModeMouse1001, ModeMouse1002,
		ModeMouse1003, ModeMouse1005, ModeMouse1006, ModeMouse1015,
		ModeBracketedPaste, ModeAppScreen, ModeAppCursorKeys, ModeAppKeyPad,
	} {
		v.resetMode(mode)
		v.saveMode(mode)
	}
	v.resetMode(ModeNewLine)
	v.setMode(ModeAnsi)
}

func (v *VT102Emulation) clearScreenAndSetColumns(columns int) {
	lines := v.currentScreen.GetLines()
	v.SetImageSize(lines, columns)
	v.ClearEntireScreen()
	v.setDefaultMargins()
	v.currentScreen.SetCursorYX(0, 0)
}

func (v *VT102Emulation) setMargins(top, bottom int) {
	v.screen[0].SetMargins(top, bottom)
	v.screen[1].SetMargins(top, bottom)
}

func (v *VT102Emulation) setDefaultMargins() {
	v.screen[0].SetDefaultMargins()
	v.screen[1].SetDefaultMargins()
}

// --- Reports ---

func (v *VT102Emulation) reportCursorPosition() {
	v.SendString(fmt.Sprintf("\033[%d;%dR",
		v.currentScreen.GetCursorY()+1, v.currentScreen.GetCursorX()+1))
}

func (v *VT102Emulation) reportTerminalType() {
	if v.getMode(ModeAnsi) {
		v.SendString("\033[?1;2c")
	} else {
		v.SendString("\033/Z")
	}
}

func (v *VT102Emulation) reportSecondaryAttributes() {
	if v.getMode(ModeAnsi) {
		v.SendString("\033[>0;115;0c")
	} else {
		v.SendString("\033/Z")
	}
}

func (v *VT102Emulation) reportTerminalParms(p int) {
	v.SendString(fmt.Sprintf("\033[%d;1;1;112;112;1;0x", p))
}

func (v *VT102Emulation) reportStatus() {
	v.SendString("\033[0n")
}

func (v *VT102Emulation) reportAnswerBack() {
	v.SendString("")
}

// --- Dispatcher ---

func (v *VT102Emulation) dispatch(t token) {
	switch t.kind {
	case tokChr:
		v.currentScreen.DisplayCharacter(rune(t.p))
	case tokCtl:
		v.dispatchControl(t.ch)
	case tokEsc:
		v.dispatchEscape(t.ch)
	case tokEscCharset:
		v.dispatchCharsetSelection(t.ch, byte(t.arg))
	case tokEscDec:
		v.dispatchDecSequence(t.ch)
	case tokCSIPs:
		v.dispatchCSIPs(t.ch, t.arg, t.p, t.q)
	case tokCSIPn:
		v.dispatchCSIPn(t.ch, t.p, t.q)
	case tokCSIPrivate:
		v.dispatchPrivateMode(t.ch, t.arg)
	case tokCSIGreater:
		if t.ch == 'c' {
			v.reportSecondaryAttributes()
		}
	case tokCSIBang:
		// DECSTR and friends: not implemented.
	case tokCSISpace:
		v.dispatchCSISpace(t.ch, t.arg)
	case tokVT52:
		v.dispatchVT52(t.ch, t.p, t.q)
	default:
		v.reportDecodingError()
	}
}

func (v *VT102Emulation) dispatchControl(ch rune) {
	switch ch {
	case 'E': // ENQ
		v.reportAnswerBack()
	case 'G': // BEL
		v.stateSet(NotifyBell)
	case 'H': // BS
		v.currentScreen.Backspace()
	case 'I': // HT
		v.currentScreen.Tab(1)
	case 'J', 'K', 'L': // LF, VT, FF
		v.currentScreen.NewLine()
	case 'M': // CR
		v.currentScreen.ToStartOfLine()
	case 'N': // SO
		v.useCharset(1)
	case 'O': // SI
		v.useCharset(0)
	case 'X', 'Z': // CAN, SUB
		v.currentScreen.DisplayCharacter(0x2592)
	}
}

func (v *VT102Emulation) dispatchEscape(ch rune) {
	switch ch {
	case 'D': // IND
		v.currentScreen.Index()
	case 'E': // NEL
		v.currentScreen.NextLine()
	case 'H': // HTS
		v.currentScreen.ChangeTabStop(true)
	case 'M': // RI
		v.currentScreen.ReverseIndex()
	case 'Z': // DECID
		v.reportTerminalType()
	case 'c': // RIS
		v.Reset()
	case 'n': // LS2
		v.useCharset(2)
	case 'o': // LS3
		v.useCharset(3)
	case '7': // DECSC
		v.saveCursor()
	case '8': // DECRC
		v.restoreCursor()
	case '=': // DECKPAM
		v.setMode(ModeAppKeyPad)
	case '>': // DECKPNM
		v.resetMode(ModeAppKeyPad)
	case '<': // VT52 -> ANSI
		v.setMode(ModeAnsi)
	}
}

func (v *VT102Emulation) dispatchCharsetSelection(ch rune, cs byte) {
	switch ch {
	case '(':
		v.setCharset(0, cs)
	case ')':
		v.setCharset(1, cs)
	case '*':
		v.setCharset(2, cs)
	case '+':
		v.setCharset(3, cs)
	}
}

func (v *VT102Emulation) dispatchDecSequence(ch rune) {
	switch ch {
	case '8': // DECALN
		v.currentScreen.HelpAlign()
	case '3', '4', '5', '6': // double height/width
		doubleWidth := ch != '5'
		doubleHeight := ch == '3' || ch == '4'
		v.currentScreen.SetLineProperty(LineDoubleWidth, doubleWidth)
		v.currentScreen.SetLineProperty(LineDoubleHeight, doubleHeight)
	}
}

func (v *VT102Emulation) dispatchCSIPs(ch rune, param, p, q int) {
	switch ch {
	case 'm':
		v.dispatchSGR(param, p, q)
	case 't':
		switch param {
		case 8:
			v.SetImageSize(p, q)
			if v.OnImageResizeRequest != nil {
				v.OnImageResizeRequest(p, q)
			}
		case 28:
			if v.OnChangeTabTextColor != nil {
				v.OnChangeTabTextColor(p)
			}
		}
	case 'K': // EL
		switch param {
		case 0:
			v.currentScreen.ClearToEndOfLine()
		case 1:
			v.currentScreen.ClearToBeginOfLine()
		case 2:
			v.currentScreen.ClearEntireLine()
		}
	case 'J': // ED
		switch param {
		case 0:
			v.currentScreen.ClearToEndOfScreen()
		case 1:
			v.currentScreen.ClearToBeginOfScreen()
		case 2:
			v.currentScreen.ClearEntireScreen()
		case 3:
			v.ClearHistory()
		}
	case 'g': // TBC
		switch param {
		case 0:
			v.currentScreen.ChangeTabStop(false)
		case 3:
			v.currentScreen.ClearTabStops()
		}
	case 'h': // SM
		switch param {
		case 4:
			v.currentScreen.SetMode(ModeInsert)
		case 20:
			v.setMode(ModeNewLine)
		}
	case 'l': // RM
		switch param {
		case 4:
			v.currentScreen.ResetMode(ModeInsert)
		case 20:
			v.resetMode(ModeNewLine)
		}
	case 's': // SCP
		v.saveCursor()
	case 'u': // RCP
		v.restoreCursor()
	case 'n': // DSR
		switch param {
		case 5:
			v.reportStatus()
		case 6:
			v.reportCursorPosition()
		}
	case 'x': // DECREQTPARM
		if param == 0 || param == 1 {
			v.reportTerminalParms(param + 2)
		}
	}
}

func (v *VT102Emulation) dispatchSGR(param, p, q int) {
	scr := v.currentScreen
	switch {
	case param == 0:
		scr.SetDefaultRendition()
	case param == 1:
		scr.SetRendition(ReBold)
	case param == 2:
		scr.SetRendition(ReFaint)
	case param == 3:
		scr.SetRendition(ReItalic)
	case param == 4:
		scr.SetRendition(ReUnderline)
	case param == 5:
		scr.SetRendition(ReBlink)
	case param == 7:
		scr.SetRendition(ReReverse)
	case param == 8:
		scr.SetRendition(ReConceal)
	case param == 9:
		scr.SetRendition(ReStrikeout)
	case param == 53:
		scr.SetRendition(ReOverline)
	case param == 21:
		scr.ResetRendition(ReBold)
	case param == 22:
		scr.ResetRendition(ReBold)
		scr.ResetRendition(ReFaint)
	case param == 23:
		scr.ResetRendition(ReItalic)
	case param == 24:
		scr.ResetRendition(ReUnderline)
	case param == 25:
		scr.ResetRendition(ReBlink)
	case param == 27:
		scr.ResetRendition(ReReverse)
	case param == 28:
		scr.ResetRendition(ReConceal)
	case param == 29:
		scr.ResetRendition(ReStrikeout)
	case param == 55:
		scr.ResetRendition(ReOverline)
	case param >= 30 && param <= 37:
		scr.SetForeColor(ColorSpaceSystem, param-30)
	case param == 38:
		scr.SetForeColor(ColorSpace(p), q)
	case param == 39:
		scr.SetForeColor(ColorSpaceDefault, 0)
	case param >= 40 && param <= 47:
		scr.SetBackColor(ColorSpaceSystem, param-40)
	case param == 48:
		scr.SetBackColor(ColorSpace(p), q)
	case param == 49:
		scr.SetBackColor(ColorSpaceDefault, 1)
	case param >= 90 && param <= 97:
		scr.SetForeColor(ColorSpaceSystem, param-90+8)
	case param >= 100 && param <= 107:
		scr.SetBackColor(ColorSpaceSystem, param-100+8)
	}
}

func (v *VT102Emulation) dispatchCSIPn(ch rune, p, q int) {
	scr := v.currentScreen
	switch ch {
	case '@':
		scr.InsertChars(p)
	case 'A':
		scr.CursorUp(p)
	case 'B':
		scr.CursorDown(p)
	case 'C':
		scr.CursorRight(p)
	case 'D':
		scr.CursorLeft(p)
	case 'E':
		scr.CursorNextLine(p)
	case 'F':
		scr.CursorPreviousLine(p)
	case 'G':
		scr.SetCursorX(p)
	case 'H', 'f':
		scr.SetCursorYX(p, q)
	case 'I':
		scr.Tab(p)
	case 'L':
		scr.InsertLines(p)
	case 'M':
		scr.DeleteLines(p)
	case 'P':
		scr.DeleteChars(p)
	case 'S':
		scr.ScrollUpRegion(p)
	case 'T':
		scr.ScrollDownRegion(p)
	case 'X':
		scr.EraseChars(p)
	case 'Z':
		scr.BackTab(p)
	case 'b':
		scr.RepeatChars(p)
	case 'c':
		v.reportTerminalType()
	case 'd':
		scr.SetCursorY(p)
	case 'r':
		v.setMargins(p, q)
	}
}

func (v *VT102Emulation) dispatchPrivateMode(ch rune, mode int) {
	switch ch {
	case 'h': // DECSET
		v.setPrivateMode(mode, true)
	case 'l': // DECRST
		v.setPrivateMode(mode, false)
	case 's':
		if m, ok := privateModeTarget(mode); ok {
			v.saveMode(m)
		}
	case 'r':
		if m, ok := privateModeTarget(mode); ok {
			v.restoreMode(m)
		}
	}
}

func privateModeTarget(mode int) (int, bool) {
	switch mode {
	case 1:
		return ModeAppCursorKeys, true
	case 25:
		return ModeCursor, true
	case 47, 1047:
		return ModeAppScreen, true
	case 1000:
		return ModeMouse1000, true
	case 1001:
		return ModeMouse1001, true
	case 1002:
		return ModeMouse1002, true
	case 1003:
		return ModeMouse1003, true
	case 1005:
		return ModeMouse1005, true
	case 1006:
		return ModeMouse1006, true
	case 1015:
		return ModeMouse1015, true
	case 2004:
		return ModeBracketedPaste, true
	}
	return 0, false
}

func (v *VT102Emulation) setPrivateMode(mode int, enable bool) {
	// 1048/1049 compose cursor save/restore with the screen switch; the
	// exact composition is mode-number-specific.
	switch mode {
	case 1048:
		if enable {
			v.saveCursor()
		} else {
			v.restoreCursor()
		}
		return
	case 1049:
		if enable {
			v.saveCursor()
			v.setMode(ModeAppScreen)
			v.ClearEntireScreen()
		} else {
			v.resetMode(ModeAppScreen)
			v.restoreCursor()
		}
		return
	}

	target, ok := privateModeTarget(mode)
	if !ok {
		return
	}
	if enable {
		v.setMode(target)
	} else {
		v.resetMode(target)
	}
}

func (v *VT102Emulation) dispatchCSISpace(ch rune, param int) {
	if ch != 'q' {
		return
	}
	// DECSCUSR
	shape := BlockCursor
	blinking := true
	switch param {
	case 0, 1:
	case 2:
		blinking = false
	case 3:
		shape = UnderlineCursor
	case 4:
		shape = UnderlineCursor
		blinking = false
	case 5:
		shape = IBeamCursor
	case 6:
		shape = IBeamCursor
		blinking = false
	}
	if v.OnCursorChanged != nil {
		v.OnCursorChanged(shape, blinking)
	}
}

func (v *VT102Emulation) dispatchVT52(ch rune, p, q int) {
	scr := v.currentScreen
	switch ch {
	case 'A':
		scr.CursorUp(1)
	case 'B':
		scr.CursorDown(1)
	case 'C':
		scr.CursorRight(1)
	case 'D':
		scr.CursorLeft(1)
	case 'F':
		v.setAndUseCharset(0, '0')
	case 'G':
		v.setAndUseCharset(0, 'B')
	case 'H':
		scr.SetCursorYX(1, 1)
	case 'I':
		scr.ReverseIndex()
	case 'J':
		scr.ClearToEndOfScreen()
	case 'K':
		scr.ClearToEndOfLine()
	case 'Y':
		scr.SetCursorYX(p-31, q-31)
	case 'Z':
		v.reportTerminalType()
	case '<':
		v.setMode(ModeAnsi)
	case '=':
		v.setMode(ModeAppKeyPad)
	case '>':
		v.resetMode(ModeAppKeyPad)
	}
}

// --- Keyboard and mouse input ---

// SetReportFocusEvents toggles focus-in/out reporting to the client.
func (v *VT102Emulation) SetReportFocusEvents(enable bool) {
	v.reportFocusEvents = enable
}

// FocusLost reports a focus-out event when focus reporting is on.
func (v *VT102Emulation) FocusLost() {
	if v.reportFocusEvents {
		v.SendString("\033[O")
	}
}

// FocusGained reports a focus-in event when focus reporting is on.
func (v *VT102Emulation) FocusGained() {
	if v.reportFocusEvents {
		v.SendString("\033[I")
	}
}

// translatorState computes the state bitmask passed into key binding
// lookup from the current emulation modes.
func (v *VT102Emulation) translatorState(mod tcell.ModMask) keytab.State {
	state := keytab.NoState
	if v.getMode(ModeNewLine) {
		state |= keytab.NewLineState
	}
	if v.getMode(ModeAnsi) {
		state |= keytab.AnsiState
	}
	if v.getMode(ModeAppCursorKeys) {
		state |= keytab.CursorKeysState
	}
	if v.getMode(ModeAppScreen) {
		state |= keytab.AlternateScreenState
	}
	if v.getMode(ModeAppKeyPad) {
		state |= keytab.ApplicationKeypadState
	}
	return state
}

// SendKeyEvent translates a key event into the outbound byte stream
// using the active key bindings, with Alt/Meta escape prefixes and
// literal fallbacks when no binding matches.
func (v *VT102Emulation) SendKeyEvent(ev *tcell.EventKey, fromPaste bool) {
	v.stateSet(NotifyNormal)

	mod := ev.Modifiers()
	if mod&tcell.ModCtrl != 0 {
		switch ev.Rune() {
		case 's', 'S':
			if v.OnFlowControlKeyPressed != nil {
				v.OnFlowControlKeyPressed(true)
			}
		case 'q', 'Q', 'c', 'C':
			if v.OnFlowControlKeyPressed != nil {
				v.OnFlowControlKeyPressed(false)
			}
		}
	}

	if v.keyTranslator == nil {
		// Without bindings the terminal is not usable for input.
		msg := "No keyboard translator available. " +
			"The information needed to convert key presses into " +
			"characters to send to the terminal is missing."
		v.Reset()
		v.ReceiveData([]byte(msg))
		return
	}

	states := v.translatorState(mod)
	entry := v.keyTranslator.FindEntry(ev.Key(), ev.Rune(), mod, states)

	var textToSend []byte

	wantsAlt := entry.Modifiers()&entry.ModifierMask()&tcell.ModAlt != 0
	wantsMeta := entry.Modifiers()&entry.ModifierMask()&tcell.ModMeta != 0
	wantsAny := entry.State()&entry.StateMask()&keytab.AnyModifierState != 0

	if mod&tcell.ModAlt != 0 && !(wantsAlt || wantsAny) && ev.Rune() != 0 {
		textToSend = append(textToSend, '\033')
	}
	if mod&tcell.ModMeta != 0 && !(wantsMeta || wantsAny) && ev.Rune() != 0 {
		textToSend = append(textToSend, '\030', '@', 's')
	}

	switch {
	case entry.Command() != keytab.NoCommand:
		if entry.Command()&keytab.EraseCommand != 0 {
			textToSend = append(textToSend, v.EraseChar())
		}
		// Scroll commands are handled by the hosting view.
	case len(entry.Text(false, 0)) > 0:
		textToSend = append(textToSend, entry.Text(true, mod)...)
	case mod&tcell.ModCtrl != 0 && ev.Rune() != 0 && unicode.IsLetter(ev.Rune()):
		textToSend = append(textToSend, byte(unicode.ToUpper(ev.Rune()))&0x1F)
	case ev.Key() == tcell.KeyTab:
		textToSend = append(textToSend, '\t')
	case ev.Key() == tcell.KeyPgUp:
		textToSend = append(textToSend, []byte("\033[5~")...)
	case ev.Key() == tcell.KeyPgDn:
		textToSend = append(textToSend, []byte("\033[6~")...)
	case ev.Rune() != 0:
		textToSend = append(textToSend, []byte(string(ev.Rune()))...)
	}

	if len(textToSend) == 0 {
		return
	}
	if !fromPaste {
		// Typing scrolls every tracking window back to the live edge.
		for _, w := range v.windows {
			if w.TrackOutput() {
				w.ScrollToEnd()
			}
		}
	}
	v.sendData(textToSend)
}

// SendMouseEvent encodes a mouse event for the client program using the
// most capable tracking mode the program enabled.
func (v *VT102Emulation) SendMouseEvent(button, column, line int, eventType MouseEventType) {
	if column < 1 || line < 1 {
		return
	}
	cb := button

	// Release events lose the button number except in SGR mode.
	if eventType == MouseButtonRelease && !v.getMode(ModeMouse1006) {
		cb = 3
	}
	if cb >= 4 {
		cb += 0x3C
	}
	if (v.getMode(ModeMouse1002) || v.getMode(ModeMouse1003)) && eventType == MouseMotion {
		cb += 0x20
	}

	var command string
	switch {
	case v.getMode(ModeMouse1006):
		final := "M"
		if eventType == MouseButtonRelease {
			final = "m"
		}
		command = fmt.Sprintf("\033[<%d;%d;%d%s", cb, column, line, final)
	case v.getMode(ModeMouse1015):
		command = fmt.Sprintf("\033[%d;%d;%dM", cb+0x20, column, line)
	case v.getMode(ModeMouse1005):
		if column <= 2015 && line <= 2015 {
			command = fmt.Sprintf("\033[M%c%c%c",
				rune(cb+0x20), rune(column+0x20), rune(line+0x20))
		}
	case column <= 223 && line <= 223:
		command = fmt.Sprintf("\033[M%c%c%c",
			rune(cb+0x20), rune(column+0x20), rune(line+0x20))
	}

	if command != "" {
		v.SendString(command)
	}
}
