package timecode

import (
	"testing"
	"time"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0:01:00", true},
		{"1:02:3", true},
		{"0:10:00.500", true},
		{"12:59:59", true},
		{"99:99:99", false},
		{"123:00:00", false},
		{"0:60:00", false},
		{"0:01:00.5", false},
		{"0:01", false},
		{" 0:01:00", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := Valid(tc.in); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("1:02:3")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second
	if got != want {
		t.Fatalf("Parse = %v, want %v", got, want)
	}

	got, err = Parse("0:10:00.500")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got != 10*time.Minute+500*time.Millisecond {
		t.Fatalf("Parse = %v", got)
	}

	if _, err := Parse("99:99:99"); err == nil {
		t.Fatal("expected error for out-of-range timestamp")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"0:01:00", "1:02:03", "0:10:00.500", "10:00:00.001"} {
		d, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := Format(d); got != in {
			t.Fatalf("Format(Parse(%q)) = %q", in, got)
		}
	}
}
