package wire

import (
	"errors"
	"regexp"
	"strings"

	"github.com/corvid-irc/corvid/irc"
)

// ErrMalformed is returned by Parse when a line cannot be tokenized into a
// command and, optionally, a prefix. Per spec, a malformed line is dropped
// by the caller rather than treated as fatal.
var ErrMalformed = errors.New("wire: malformed line")

// commandRegexp matches a valid command token: an uppercase alphabetic verb
// or a three-digit numeric reply.
var commandRegexp = regexp.MustCompile(`^(?:[A-Z]+|[0-9]{3})$`)

// Parse tokenizes a single IRC line (without the trailing \r\n) into a
// Message.
//
//  1. A leading ':' introduces a prefix, terminated by the first space.
//     A prefix containing '!' is a user prefix; the part before '!' is the
//     sender nick. Otherwise the whole prefix is a server hostname. A line
//     with no prefix at all has no sender, but is still treated as
//     server-originated (SenderIsServer is true either way).
//  2. The next token is the command.
//  3. Remaining tokens are arguments; the first one beginning with ':'
//     absorbs the rest of the line (minus the leading ':') as a single,
//     possibly space-containing, trailing argument.
func Parse(line []byte) (*Message, error) {
	s := string(line)

	// A line with no prefix at all carries no sender nick, but it is still a
	// server-originated line (e.g. a bare "ERROR :..."); every dispatch rule
	// that branches on SenderIsServer must treat it the same as a true
	// server sender.
	msg := &Message{SenderIsServer: true}

	if strings.HasPrefix(s, ":") {
		sp := strings.IndexByte(s, ' ')
		if sp < 0 {
			return nil, ErrMalformed
		}
		prefix := s[1:sp]
		s = strings.TrimLeft(s[sp+1:], " ")

		if strings.IndexByte(prefix, '!') >= 0 {
			msg.Sender = irc.Nick(prefix)
			msg.SenderIsServer = false
		} else {
			msg.Sender = prefix
			msg.SenderIsServer = true
		}
	}

	var command string
	if sp := strings.IndexByte(s, ' '); sp < 0 {
		command = s
		s = ""
	} else {
		command = s[:sp]
		s = strings.TrimLeft(s[sp+1:], " ")
	}

	if !commandRegexp.MatchString(command) {
		return nil, ErrMalformed
	}
	msg.Command = command

	for len(s) > 0 {
		if s[0] == ':' {
			msg.Args = append(msg.Args, s[1:])
			break
		}

		sp := strings.IndexByte(s, ' ')
		if sp < 0 {
			msg.Args = append(msg.Args, s)
			break
		}

		msg.Args = append(msg.Args, s[:sp])
		s = strings.TrimLeft(s[sp+1:], " ")
	}

	return msg, nil
}
