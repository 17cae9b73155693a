package wire

import (
	"strings"
	"unicode/utf8"

	"github.com/corvid-irc/corvid/irc"
)

// Encode serializes a command and its arguments into a single \r\n
// terminated wire frame. The final argument is prefixed with ':' if and
// only if it is empty, contains a space, or itself starts with ':' — the
// same trailing-parameter rule Parse uses to recognise it on the way back
// in. The result is truncated (on a rune boundary) to fit the 512-byte
// outbound limit; the command and leading arguments are never cut, only
// the final (trailing) argument.
func Encode(command string, args ...string) []byte {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)

	for i, arg := range args {
		if i == len(args)-1 && needsColon(arg) {
			arg = ":" + arg
		}
		parts = append(parts, arg)
	}

	line := []byte(strings.Join(parts, " "))

	const maxBody = irc.IRCMaxLength - 2 // reserve room for \r\n
	if len(line) > maxBody {
		line = truncateValidUTF8(line, maxBody)
	}

	return append(line, '\r', '\n')
}

func needsColon(arg string) bool {
	return arg == "" || strings.HasPrefix(arg, ":") || strings.ContainsRune(arg, ' ')
}

// truncateValidUTF8 cuts b down to at most n bytes without splitting a
// multi-byte rune in half.
func truncateValidUTF8(b []byte, n int) []byte {
	b = b[:n]
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size > 1 {
			break
		}
		b = b[:len(b)-size]
	}
	return b
}
