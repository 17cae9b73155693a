package wire

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		args    []string
		want    string
	}{
		{"PONG", []string{"abc"}, "PONG abc\r\n"},
		{"JOIN", []string{"#chan"}, "JOIN #chan\r\n"},
		{"PRIVMSG", []string{"#chan", "hello world"}, "PRIVMSG #chan :hello world\r\n"},
		{"PRIVMSG", []string{"#chan", "noSpaces"}, "PRIVMSG #chan noSpaces\r\n"},
		{"PRIVMSG", []string{"#chan", ""}, "PRIVMSG #chan :\r\n"},
		{"NICK", nil, "NICK\r\n"},
	}

	for _, tt := range tests {
		got := string(Encode(tt.command, tt.args...))
		if got != tt.want {
			t.Errorf("Encode(%q, %v) = %q, want %q", tt.command, tt.args, got, tt.want)
		}
	}
}

func TestEncodeTruncatesOutbound(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 1000)
	frame := Encode("PRIVMSG", "#chan", long)
	if len(frame) > 512 {
		t.Fatalf("Encode produced a %d byte frame, want <= 512", len(frame))
	}
	if !strings.HasSuffix(string(frame), "\r\n") {
		t.Fatalf("Encode result does not end in \\r\\n: %q", frame)
	}

	// still parses back to a well-formed message.
	msg, err := Parse(frame[:len(frame)-2])
	if err != nil {
		t.Fatalf("Parse truncated frame: %v", err)
	}
	if msg.Command != "PRIVMSG" || msg.Arg(0) != "#chan" {
		t.Errorf("truncated frame lost structure: %+v", msg)
	}
}

func TestEncodeTruncationPreservesUTF8(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 400) // 2 bytes each
	frame := Encode("PRIVMSG", "#chan", long)
	body := frame[:len(frame)-2]

	if !utf8.Valid(body) {
		t.Fatalf("truncated frame split a multi-byte rune: %q", body)
	}
}
