package response

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStrip(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"single line", "root@adcu:~# ", ""},
		{"echo and prompt only", "pwd\r\nroot@adcu:~# ", ""},
		{"one output line", "pwd\r\n/\r\nroot@adcu:~# ", "/\r"},
		{"order kept", "cmd\na\nb\nc\nprompt", "a\nb\nc"},
		{"trailing newline", "cmd\nout\n", "out"},
		{"blank middle", "cmd\n\nout\nprompt", "\nout"},
	}

	for _, tc := range testCases {
		if got := Strip(tc.raw); got != tc.want {
			t.Errorf("%s: Strip(%q) = %q, want %q", tc.name, tc.raw, got, tc.want)
		}
	}
}

func TestLines(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		{"a\rb", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
		{"100+0 records in\r\n100+0 records out\r\n104857600 bytes copied\r", []string{
			"100+0 records in", "100+0 records out", "104857600 bytes copied",
		}},
	}

	for _, tc := range testCases {
		if diff := cmp.Diff(tc.want, Lines(tc.in)); diff != "" {
			t.Errorf("Lines(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestClean(t *testing.T) {
	if got := Clean("/dev/mtdblock0\r"); got != "/dev/mtdblock0" {
		t.Fatalf("Clean = %q", got)
	}
	if got := Clean("  keep leading"); got != "  keep leading" {
		t.Fatalf("Clean should keep leading space, got %q", got)
	}
}
