/*
Package session implements the protocol engine's per-server supervisor: the
reconnect-with-autojoin-replay loop, the public operations a consumer issues
(join, part, privmsg, nick, topic, quit), and the typed event stream those
operations and incoming server traffic publish to.

It ties together wire (codec), transport (socket lifecycle) and irc
(shared constants/regexes) into the receive pipeline and send pipeline
described by the protocol state machine in engine.go.
*/
package session

import (
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/corvid-irc/corvid/irc"
	"github.com/corvid-irc/corvid/transport"
	"github.com/corvid-irc/corvid/wire"
)

// ReconnectDelay is the constant wait between a transport failure and the
// next connect attempt. The source this engine was distilled from used a
// fixed ten seconds; nothing here requires backoff. It is a var rather than
// a const so tests can shrink it.
var ReconnectDelay = 10 * time.Second

// eventStreamCapacity bounds how many published events may sit unconsumed
// before Session.publish blocks. Sized generously so a burst (e.g. a large
// NAMES reply) never stalls the receive worker on a slow consumer.
const eventStreamCapacity = 256

// Session supervises one configured server: dialing, registering,
// reconnecting, and exposing the consumer-facing operations of spec §4.5.
// Create one with New and call Start once.
type Session struct {
	cfg ServerConfig
	log log15.Logger

	state *SessionState

	sendCh chan frame
	events chan Event

	quitSignal chan struct{}
	quitOnce   sync.Once

	shutdown   chan struct{}
	finishOnce sync.Once

	connMu sync.Mutex
	conn   *transport.Conn

	// lastRemoteAddr is the peer address observed on the previous successful
	// connect, used to detect that a reconnect landed somewhere else behind
	// a round-robin DNS name (spec §3's HostChanged event).
	lastRemoteAddr string

	wg sync.WaitGroup
}

// New creates a Session for cfg. Start must be called to begin connecting.
func New(cfg ServerConfig, logger log15.Logger) *Session {
	if logger == nil {
		logger = log15.New("host", cfg.Host)
	}
	return &Session{
		cfg:        cfg,
		log:        logger,
		state:      newSessionState(cfg),
		sendCh:     make(chan frame, sendQueueCapacity),
		events:     make(chan Event, eventStreamCapacity),
		quitSignal: make(chan struct{}),
		shutdown:   make(chan struct{}),
	}
}

// Events returns the channel on which this session publishes its typed
// event stream. It is closed once SelfQuit has been published.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Start begins connecting and spawns the send worker and the
// connect/receive/reconnect driver. It returns immediately.
func (s *Session) Start() {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sendWorker()
	}()
	go func() {
		defer s.wg.Done()
		s.run()
	}()

	go func() {
		s.wg.Wait()
		close(s.events)
	}()
}

// JoinChannel enqueues a JOIN for channel.
func (s *Session) JoinChannel(channel string) {
	s.enqueue(wire.Encode(irc.JOIN, channel), nil)
}

// PartChannel enqueues a PART for channel, with an optional reason.
func (s *Session) PartChannel(channel, reason string) {
	if reason == "" {
		s.enqueue(wire.Encode(irc.PART, channel), nil)
		return
	}
	s.enqueue(wire.Encode(irc.PART, channel, reason), nil)
}

// SendPrivmsg enqueues a PRIVMSG to target. A SentPrivmsg event is
// published once the frame actually reaches the wire.
func (s *Session) SendPrivmsg(target, text string) {
	s.enqueue(wire.Encode(irc.PRIVMSG, target, text), SentPrivmsg{Recipient: target, Text: text})
}

// ChangeNick enqueues a NICK request.
func (s *Session) ChangeNick(newNick string) {
	s.enqueue(wire.Encode(irc.NICK, newNick), nil)
}

// ChangeTopic enqueues a TOPIC change for channel.
func (s *Session) ChangeTopic(channel, text string) {
	s.enqueue(wire.Encode(irc.TOPIC, channel, text), nil)
}

// Quit enqueues a QUIT tagged with a SelfQuit completion event and
// guarantees SelfQuit is published within ReconnectDelay-independent time
// even if the session is currently disconnected (spec §4.5).
func (s *Session) Quit() {
	// Enqueue before signalling quit: once quitSignal is closed, enqueue's
	// own select may race its two cases and drop the frame instead of
	// handing it to a live connection.
	s.enqueue(wire.Encode(irc.QUIT, "quit"), SelfQuit{})
	s.quitOnce.Do(func() {
		close(s.quitSignal)
	})
}

// Wait blocks until the session has fully shut down (all workers joined).
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	case <-s.shutdown:
	}
}

func (s *Session) getConn() *transport.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

func (s *Session) setConn(c *transport.Conn) {
	s.connMu.Lock()
	s.conn = c
	s.connMu.Unlock()
}

// finishQuit is the single point through which SelfQuit is published and
// the session's shutdown channel is closed, however the quit was observed
// (the send worker writing the tagged QUIT frame, or the reconnect driver
// noticing quitSignal while disconnected). sync.Once makes it safe for
// both paths to race.
func (s *Session) finishQuit() {
	s.finishOnce.Do(func() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		if conn != nil {
			conn.Disconnect()
		}
		s.state.Phase = Quitting
		close(s.shutdown)
		// Sent directly rather than through publish: with shutdown already
		// closed, publish's select could pick that case and drop SelfQuit.
		s.events <- SelfQuit{}
	})
}

// run is the reconnect driver: it dials, registers, runs the receive loop
// to completion, and on any non-quit failure waits ReconnectDelay before
// trying again.
func (s *Session) run() {
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		s.publish(ConnectivityMessage{Text: "connecting to " + s.cfg.Host})
		conn, err := transport.Dial(s.cfg.Host, s.cfg.Port, s.cfg.UseTLS)
		if err != nil {
			s.publish(ConnectivityMessage{Text: err.Error(), IsError: true})
			if !s.waitReconnect() {
				return
			}
			continue
		}

		remote := conn.RemoteAddr()
		if s.lastRemoteAddr != "" && s.lastRemoteAddr != remote {
			s.publish(HostChanged{NewHost: remote})
		}
		s.lastRemoteAddr = remote

		s.state.resetForReconnect(s.cfg)
		s.setConn(conn)

		// A Quit issued while Dial was in progress may have had its QUIT
		// frame discarded for lack of a connection; finish the quit here
		// instead of entering the receive loop.
		select {
		case <-s.quitSignal:
			s.finishQuit()
			return
		default:
		}

		s.state.Phase = Connecting
		s.register(s.state)

		s.receiveLoop(conn)
		s.setConn(nil)

		select {
		case <-s.shutdown:
			return
		default:
		}

		s.publish(ConnectivityMessage{Text: "server closed the connection", IsError: true})
		if !s.waitReconnect() {
			return
		}
	}
}

// waitReconnect blocks for ReconnectDelay or until shutdown fires, in
// which case it returns false and the caller must stop immediately (quit
// while disconnected must finish in well under ReconnectDelay).
func (s *Session) waitReconnect() bool {
	timer := time.NewTimer(ReconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.quitSignal:
		s.finishQuit()
		return false
	case <-s.shutdown:
		return false
	}
}

// receiveLoop reads and dispatches lines until the connection fails or is
// torn down by finishQuit.
func (s *Session) receiveLoop(conn *transport.Conn) {
	var lr wire.LineReader
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range lr.Feed(buf[:n]) {
				msg, perr := wire.Parse([]byte(line))
				if perr != nil {
					s.log.Debug("dropping malformed line", "line", line, "err", perr)
					continue
				}
				s.dispatch(s.state, msg)
			}
		}
		if err != nil {
			return
		}
	}
}
