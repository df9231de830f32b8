package linux

import "testing"

func TestKeycodeByName(t *testing.T) {
	cases := map[string]uint16{
		"j":          KeyJ,
		"KEY_S":      KeyS,
		" e ":        KeyE,
		"left":       KeyLeft,
		"arrow_down": KeyDown,
		"ctrl_l":     KeyLeftCtrl,
		"0":          Key0,
		"9":          Key9,
	}
	for name, want := range cases {
		got, err := KeycodeByName(name)
		if err != nil {
			t.Fatalf("KeycodeByName(%q) returned error: %v", name, err)
		}
		if got != want {
			t.Fatalf("KeycodeByName(%q) = %d, want %d", name, got, want)
		}
	}

	if _, err := KeycodeByName("hyper"); err == nil {
		t.Fatalf("expected error for unknown key name")
	}
	if _, err := KeycodeByName("  "); err == nil {
		t.Fatalf("expected error for empty key name")
	}
}

func TestKeyNameRoundTrip(t *testing.T) {
	for _, code := range []uint16{KeyJ, KeyS, KeyLeft, KeyUp, KeySpace} {
		back, err := KeycodeByName(KeyName(code))
		if err != nil {
			t.Fatalf("KeyName(%d) = %q not resolvable: %v", code, KeyName(code), err)
		}
		if back != code {
			t.Fatalf("round trip of %d gave %d", code, back)
		}
	}
	if got := KeyName(0x2fe); got != "key766" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}

func TestKeycodeForRune(t *testing.T) {
	if code, ok := KeycodeForRune('j'); !ok || code != KeyJ {
		t.Fatalf("expected j to map to KeyJ, got %d %v", code, ok)
	}
	if code, ok := KeycodeForRune('F'); !ok || code != KeyF {
		t.Fatalf("expected F to map to KeyF, got %d %v", code, ok)
	}
	if code, ok := KeycodeForRune(' '); !ok || code != KeySpace {
		t.Fatalf("expected space to map to KeySpace, got %d %v", code, ok)
	}
	if _, ok := KeycodeForRune('!'); ok {
		t.Fatalf("expected punctuation to be unmapped")
	}
}
