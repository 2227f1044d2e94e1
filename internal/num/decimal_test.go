package num_test

import (
	"testing"

	"crossmargin/internal/num"
)

func TestParse_Canonical(t *testing.T) {
	cases := []string{"0", "1", "-1", "10.5", "-0.001", "50000", "0.05", "123456789.123456789"}
	for _, s := range cases {
		d, err := num.Parse(s)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", s, err)
			continue
		}
		if d.String() != s {
			t.Errorf("Parse(%q).String() = %q, want round-trip", s, d.String())
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{"", "-", ".", "1.", ".5", "1e5", "1E5", "+1", "1.2.3", "abc", "1 ", " 1", "0x10"}
	for _, s := range cases {
		if _, err := num.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestDiv_Rounds(t *testing.T) {
	a := num.MustParse("1")
	b := num.MustParse("3")
	got := num.Div(a, b)
	want := num.MustParse("0.3333333333333333333333333333")
	if !got.Equal(want) {
		t.Errorf("Div(1,3) = %s, want %s", got, want)
	}
}

func TestDiv_Exact(t *testing.T) {
	got := num.Div(num.MustParse("-4"), num.MustParse("10"))
	if !got.Equal(num.MustParse("-0.4")) {
		t.Errorf("Div(-4,10) = %s, want -0.4", got)
	}
}

func TestString_Deterministic(t *testing.T) {
	// Identical operation paths must render identical strings.
	a := num.MustParse("10.50").Mul(num.MustParse("2"))
	b := num.MustParse("10.50").Mul(num.MustParse("2"))
	if a.String() != b.String() {
		t.Errorf("identical computations rendered %q and %q", a.String(), b.String())
	}
}
