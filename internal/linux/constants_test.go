package linux

import "testing"

func TestIoctlRequestNumbers(t *testing.T) {
	cases := map[string]struct {
		got, want uint
	}{
		"EVIOCGRAB":       {EVIOCGRAB, 0x40044590},
		"EVIOCSCLOCKID":   {EVIOCSCLOCKID, 0x400445a0},
		"EVIOCGNAME(256)": {EVIOCGNAME(256), 0x81004506},
		"EVIOCGBIT(1,96)": {EVIOCGBIT(EvKey, 96), 0x80604521},
		"UI_SET_EVBIT":    {UISetEvbit, 0x40045564},
		"UI_DEV_CREATE":   {UIDevCreate, 0x5501},
	}
	for name, c := range cases {
		if c.got != c.want {
			t.Fatalf("%s = %#x, want %#x", name, c.got, c.want)
		}
	}
}
