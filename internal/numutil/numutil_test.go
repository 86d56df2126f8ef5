package numutil

import "testing"

func TestParseHexUint64(t *testing.T) {
	cases := []struct {
		in     string
		want   uint64
		wantOK bool
	}{
		{"0x64", 100, true},
		{"0X64", 100, true},
		{"64", 100, true}, // parsed as base-16 even without the prefix
		{"", 0, false},
		{"0x", 0, false},
		{"not-hex", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseHexUint64(c.in)
		if ok != c.wantOK || (ok && got != c.want) {
			t.Fatalf("ParseHexUint64(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestAbsoluteDifference(t *testing.T) {
	if AbsoluteDifference(10, 3) != 7 {
		t.Fatal("expected 7")
	}
	if AbsoluteDifference(3, 10) != 7 {
		t.Fatal("expected symmetric result")
	}
}
