package domain

import "testing"

func TestBackendString(t *testing.T) {
	b := Backend{Address: "10.0.0.1", Port: 9001}
	if got, want := b.String(), "10.0.0.1:9001"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"static", ModeStatic, true},
		{"dynamic", ModeDynamic, true},
		{"Static", "", false},
		{"", "", false},
		{"latency", "", false},
	}
	for _, c := range cases {
		got, ok := ParseMode(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseMode(%q) = (%q, %t), want (%q, %t)", c.in, got, ok, c.want, c.ok)
		}
	}
}
