package session

// ServerConfig describes one IRC server to connect to. It is immutable for
// the duration of a connection attempt; a reconnect re-reads the same
// values. The autojoin list replayed on reconnect is SessionState.Autojoin,
// which Autojoin below only seeds and which grows and shrinks as channels
// are joined and parted.
type ServerConfig struct {
	Host string
	Port int

	UseTLS bool

	Nick     string
	Username string
	Realname string

	// Password is not sent to the server. Its presence is only the signal
	// to advertise SASL (see the registration handshake in engine.go); no
	// authentication exchange is completed beyond that.
	Password string

	// Autojoin is the ordered list of channels to join once registration
	// completes, and to rejoin on every subsequent reconnect.
	Autojoin []string
}
