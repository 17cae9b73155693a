package session

// Event is the tagged union of everything the protocol state machine
// publishes to a consumer. Each concrete type below is one variant; switch
// on the dynamic type (or a type switch over Event) to handle them.
type Event interface {
	ircEvent()
}

// SelfJoined is emitted once a self-JOIN's RPL_ENDOFNAMES has been seen,
// finalizing the join accumulator.
type SelfJoined struct {
	Channel  string
	Topic    string
	Nicklist []string
}

// SelfParted is emitted when this session's own nick parts a channel.
type SelfParted struct {
	Channel string
}

// SelfChangedNick is emitted when the server acknowledges our own NICK.
type SelfChangedNick struct {
	Old, New string
}

// SelfQuit is emitted exactly once when the session quits: after the QUIT
// frame has been written if connected, or as soon as the quit is noticed
// while disconnected, in which case no QUIT frame is written. No event
// follows it.
type SelfQuit struct{}

// UserJoined is emitted when another user joins a channel we're in.
type UserJoined struct {
	Nick    string
	Channel string
}

// UserParted is emitted when another user parts a channel we're in.
type UserParted struct {
	Nick    string
	Channel string
	Reason  string // empty if none was given
}

// UserChangedNick is emitted when another user changes their nick.
type UserChangedNick struct {
	Old, New string
}

// UserQuit is emitted when another user quits the server.
type UserQuit struct {
	Nick   string
	Reason string
}

// TopicChanged is emitted when a channel's topic is set by a TOPIC command
// (not during a join — see the join accumulator rules).
type TopicChanged struct {
	Channel    string
	SetterNick string
	Topic      string
}

// ReceivedPrivmsg is emitted for an incoming PRIVMSG from a user.
// Recipient is either a channel name or this session's current nick; the
// consumer classifies which using irc.IsChannel.
type ReceivedPrivmsg struct {
	Sender    string
	Recipient string
	Text      string
}

// SentPrivmsg is published once a PRIVMSG this session enqueued has
// actually been written to the wire.
type SentPrivmsg struct {
	Recipient string
	Text      string
}

// ServerMessage wraps any line from a server-prefixed sender that isn't
// handled specially above.
type ServerMessage struct {
	Sender  string // may be empty
	Command string
	Args    []string
}

// UnknownMessage wraps any line from a user-prefixed sender that isn't
// handled specially above.
type UnknownMessage struct {
	Sender  string
	Command string
	Args    []string
}

// ConnectivityMessage reports a connection-level transition: connecting,
// disconnected, reconnecting, and the like.
type ConnectivityMessage struct {
	Text    string
	IsError bool
}

// HostChanged is emitted if the apparent peer address changes across a
// reconnect (e.g. DNS round-robin moved us to a different host).
type HostChanged struct {
	NewHost string
}

func (SelfJoined) ircEvent()          {}
func (SelfParted) ircEvent()          {}
func (SelfChangedNick) ircEvent()     {}
func (SelfQuit) ircEvent()            {}
func (UserJoined) ircEvent()          {}
func (UserParted) ircEvent()          {}
func (UserChangedNick) ircEvent()     {}
func (UserQuit) ircEvent()            {}
func (TopicChanged) ircEvent()        {}
func (ReceivedPrivmsg) ircEvent()     {}
func (SentPrivmsg) ircEvent()         {}
func (ServerMessage) ircEvent()       {}
func (UnknownMessage) ircEvent()      {}
func (ConnectivityMessage) ircEvent() {}
func (HostChanged) ircEvent()         {}
