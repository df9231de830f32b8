package linux

import (
	"fmt"
	"strings"
)

var nameAliases = map[string]string{
	"ALT_R":       "KEY_RIGHTALT",
	"ALT_L":       "KEY_LEFTALT",
	"CTRL_L":      "KEY_LEFTCTRL",
	"CTRL_R":      "KEY_RIGHTCTRL",
	"SHIFT_L":     "KEY_LEFTSHIFT",
	"SHIFT_R":     "KEY_RIGHTSHIFT",
	"ESCAPE":      "KEY_ESC",
	"RETURN":      "KEY_ENTER",
	"ARROW_LEFT":  "KEY_LEFT",
	"ARROW_RIGHT": "KEY_RIGHT",
	"ARROW_UP":    "KEY_UP",
	"ARROW_DOWN":  "KEY_DOWN",
}

var (
	codesByName = buildCodeTable()
	namesByCode = invert(codesByName)
)

// KeycodeByName resolves names like "j", "KEY_J", "left" or "ctrl_l".
func KeycodeByName(name string) (uint16, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if alias, ok := nameAliases[normalized]; ok {
		normalized = alias
	}
	if !strings.HasPrefix(normalized, "KEY_") {
		normalized = "KEY_" + normalized
	}
	code, ok := codesByName[normalized]
	if !ok {
		return 0, fmt.Errorf("unknown key code '%s'", name)
	}
	return code, nil
}

// KeyName returns the short lower-case name of code, or "key<N>" when the
// code has no entry in the table.
func KeyName(code uint16) string {
	if name, ok := namesByCode[code]; ok {
		return strings.ToLower(strings.TrimPrefix(name, "KEY_"))
	}
	return fmt.Sprintf("key%d", code)
}

// KeycodeForRune maps a typed character onto the key that produces it on a
// US layout. Only letters, digits and space are known.
func KeycodeForRune(r rune) (uint16, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		r -= 'a' - 'A'
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
	case r == ' ':
		return KeySpace, true
	default:
		return 0, false
	}
	code, ok := codesByName[fmt.Sprintf("KEY_%c", r)]
	return code, ok
}

func buildCodeTable() map[string]uint16 {
	letters := map[rune]int{
		'A': KeyA, 'B': KeyB, 'C': KeyC, 'D': KeyD, 'E': KeyE, 'F': KeyF,
		'G': KeyG, 'H': KeyH, 'I': KeyI, 'J': KeyJ, 'K': KeyK, 'L': KeyL,
		'M': KeyM, 'N': KeyN, 'O': KeyO, 'P': KeyP, 'Q': KeyQ, 'R': KeyR,
		'S': KeyS, 'T': KeyT, 'U': KeyU, 'V': KeyV, 'W': KeyW, 'X': KeyX,
		'Y': KeyY, 'Z': KeyZ,
	}
	table := map[string]uint16{}
	for ch, code := range letters {
		table[fmt.Sprintf("KEY_%c", ch)] = uint16(code)
	}
	table["KEY_0"] = Key0
	for ch := '1'; ch <= '9'; ch++ {
		table[fmt.Sprintf("KEY_%c", ch)] = uint16(Key1 + int(ch-'1'))
	}

	additional := map[string]int{
		"KEY_MINUS":      KeyMinus,
		"KEY_EQUAL":      KeyEqual,
		"KEY_LEFTBRACE":  KeyLeftBrace,
		"KEY_RIGHTBRACE": KeyRightBrace,
		"KEY_BACKSLASH":  KeyBackslash,
		"KEY_SEMICOLON":  KeySemicolon,
		"KEY_APOSTROPHE": KeyApostrophe,
		"KEY_GRAVE":      KeyGrave,
		"KEY_COMMA":      KeyComma,
		"KEY_DOT":        KeyDot,
		"KEY_SLASH":      KeySlash,
		"KEY_SPACE":      KeySpace,
		"KEY_TAB":        KeyTab,
		"KEY_ENTER":      KeyEnter,
		"KEY_ESC":        KeyEsc,
		"KEY_BACKSPACE":  KeyBackspace,
		"KEY_LEFTSHIFT":  KeyLeftShift,
		"KEY_RIGHTSHIFT": KeyRightShift,
		"KEY_LEFTCTRL":   KeyLeftCtrl,
		"KEY_RIGHTCTRL":  KeyRightCtrl,
		"KEY_LEFTALT":    KeyLeftAlt,
		"KEY_RIGHTALT":   KeyRightAlt,
		"KEY_LEFTMETA":   KeyLeftMeta,
		"KEY_RIGHTMETA":  KeyRightMeta,
		"KEY_CAPSLOCK":   KeyCapsLock,
		"KEY_HOME":       KeyHome,
		"KEY_END":        KeyEnd,
		"KEY_PAGEUP":     KeyPageUp,
		"KEY_PAGEDOWN":   KeyPageDown,
		"KEY_INSERT":     KeyInsert,
		"KEY_DELETE":     KeyDelete,
		"KEY_LEFT":       KeyLeft,
		"KEY_RIGHT":      KeyRight,
		"KEY_UP":         KeyUp,
		"KEY_DOWN":       KeyDown,
		"KEY_F1":         KeyF1,
		"KEY_F2":         KeyF2,
		"KEY_F3":         KeyF3,
		"KEY_F4":         KeyF4,
		"KEY_F5":         KeyF5,
		"KEY_F6":         KeyF6,
		"KEY_F7":         KeyF7,
		"KEY_F8":         KeyF8,
		"KEY_F9":         KeyF9,
		"KEY_F10":        KeyF10,
		"KEY_F11":        KeyF11,
		"KEY_F12":        KeyF12,
	}
	for name, code := range additional {
		table[name] = uint16(code)
	}
	return table
}

func invert(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for name, code := range table {
		out[code] = name
	}
	return out
}
