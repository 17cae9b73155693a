package session

import "github.com/corvid-irc/corvid/irc"

// ConnectionPhase tracks where a session is in its connect/register/quit
// lifecycle (spec §3).
type ConnectionPhase int

const (
	Disconnected ConnectionPhase = iota
	Connecting
	Registering
	Registered
	Quitting
	Closed
)

func (p ConnectionPhase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	case Quitting:
		return "quitting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChannelState is the tracked state of one joined channel. Canonical is the
// case-folded lookup key; Name preserves the casing first observed on the
// JOIN/353 exchange.
type ChannelState struct {
	Canonical string
	Name      string
	Topic     string

	// members maps a case-folded nick to its display-cased form.
	members map[string]string
	// prefixes records the last-observed @/+ flag for a member, keyed the
	// same way. It is an optional capability flag (spec §3); absence from
	// the map means no flag.
	prefixes map[string]byte
}

func newChannelState(name, topic string) *ChannelState {
	return &ChannelState{
		Canonical: irc.Fold(name),
		Name:      name,
		Topic:     topic,
		members:   make(map[string]string),
		prefixes:  make(map[string]byte),
	}
}

// Members returns the display-cased nicks currently in the channel, in no
// particular order.
func (c *ChannelState) Members() []string {
	out := make([]string, 0, len(c.members))
	for _, nick := range c.members {
		out = append(out, nick)
	}
	return out
}

// Prefix returns the last-observed @/+ flag for nick, or 0 if none/absent.
func (c *ChannelState) Prefix(nick string) byte {
	return c.prefixes[irc.Fold(nick)]
}

func (c *ChannelState) addMember(nick string, prefix byte) {
	folded := irc.Fold(nick)
	c.members[folded] = nick
	if prefix != 0 {
		c.prefixes[folded] = prefix
	}
}

func (c *ChannelState) removeMember(nick string) {
	folded := irc.Fold(nick)
	delete(c.members, folded)
	delete(c.prefixes, folded)
}

// setPrefix records nick's @/+ flag as observed on a channel MODE line. It
// is a no-op for a nick that isn't a tracked member.
func (c *ChannelState) setPrefix(nick string, prefix byte) {
	folded := irc.Fold(nick)
	if _, ok := c.members[folded]; !ok {
		return
	}
	c.prefixes[folded] = prefix
}

// clearPrefix removes nick's flag if it currently equals prefix, e.g. a -o
// clearing a tracked '@' without disturbing an unrelated '+'.
func (c *ChannelState) clearPrefix(nick string, prefix byte) {
	folded := irc.Fold(nick)
	if c.prefixes[folded] == prefix {
		delete(c.prefixes, folded)
	}
}

func (c *ChannelState) hasMember(nick string) bool {
	_, ok := c.members[irc.Fold(nick)]
	return ok
}

func (c *ChannelState) renameMember(old, new string) {
	folded := irc.Fold(old)
	if _, ok := c.members[folded]; !ok {
		return
	}
	prefix := c.prefixes[folded]
	delete(c.members, folded)
	delete(c.prefixes, folded)
	c.addMember(new, prefix)
}

// joinAccumulator collects RPL_NAMREPLY/RPL_TOPIC fragments between a
// self-JOIN and the matching RPL_ENDOFNAMES (spec §3, §4.4).
type joinAccumulator struct {
	name  string // display-cased, as first seen on the JOIN line
	topic *string
	nicks []string
	// prefixes mirrors the @/+ flag for each entry in nicks, same index.
	prefixes []byte
}

// SessionState is the mutable, per-server state owned by the receive
// goroutine (spec §3, §5): engine.go's dispatch and session.go's run, which
// both execute there, mutate it.
type SessionState struct {
	CurrentNick string
	Autojoin    []string
	Phase       ConnectionPhase

	channels        map[string]*ChannelState
	joinsInProgress map[string]*joinAccumulator
}

func newSessionState(cfg ServerConfig) *SessionState {
	autojoin := make([]string, len(cfg.Autojoin))
	copy(autojoin, cfg.Autojoin)

	return &SessionState{
		CurrentNick:     cfg.Nick,
		Autojoin:        autojoin,
		Phase:           Disconnected,
		channels:        make(map[string]*ChannelState),
		joinsInProgress: make(map[string]*joinAccumulator),
	}
}

// Channel returns the tracked state for a channel, or nil if we're not
// (fully) joined to it.
func (s *SessionState) Channel(name string) *ChannelState {
	return s.channels[irc.Fold(name)]
}

// Channels returns every currently-joined channel's state, in no
// particular order.
func (s *SessionState) Channels() []*ChannelState {
	out := make([]*ChannelState, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, c)
	}
	return out
}

// resetForReconnect clears the per-connection state that no longer applies
// once a socket is gone (joined channels, pending joins, registration
// phase, current nick) while preserving Autojoin, which persists across
// reconnects and is replayed once registration completes again.
func (s *SessionState) resetForReconnect(cfg ServerConfig) {
	s.CurrentNick = cfg.Nick
	s.Phase = Connecting
	s.channels = make(map[string]*ChannelState)
	s.joinsInProgress = make(map[string]*joinAccumulator)
}

func (s *SessionState) addToAutojoin(channel string) {
	folded := irc.Fold(channel)
	for _, c := range s.Autojoin {
		if irc.Fold(c) == folded {
			return
		}
	}
	s.Autojoin = append(s.Autojoin, channel)
}

func (s *SessionState) removeFromAutojoin(channel string) {
	folded := irc.Fold(channel)
	out := s.Autojoin[:0]
	for _, c := range s.Autojoin {
		if irc.Fold(c) != folded {
			out = append(out, c)
		}
	}
	s.Autojoin = out
}
