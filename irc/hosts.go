package irc

import (
	"regexp"
	"strings"
)

// rgxHost validates and splits a nick!user@host prefix.
var rgxHost = regexp.MustCompile(
	`(?i)^` +
		`([\w\x5B-\x60][\w\d\x5B-\x60]*)` + // nickname
		`!([^\0@\s]+)` + // username
		`@([^\0\s]+)` + // host
		`$`,
)

// Nick returns the nick portion of a nick!user@host or bare host string.
func Nick(host string) string {
	index := strings.IndexAny(host, "!@")
	if index >= 0 {
		return host[:index]
	}
	return host
}

// Split splits a prefix into its nick, user and hostname fragments. If the
// prefix does not match the nick!user@host form, nick holds the full string
// and user/hostname are empty.
func Split(host string) (nick, user, hostname string) {
	fragments := rgxHost.FindStringSubmatch(host)
	if len(fragments) == 0 {
		return host, "", ""
	}
	return fragments[1], fragments[2], fragments[3]
}
