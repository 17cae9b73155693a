package session

import (
	"strconv"
	"strings"

	"github.com/corvid-irc/corvid/irc"
	"github.com/corvid-irc/corvid/wire"
)

const defaultTopic = "(no topic)"

// register sends the NICK+USER (and optional CAP) exchange described in
// spec §4.4. It runs before the receive loop has observed a single line.
func (s *Session) register(st *SessionState) {
	st.Phase = Registering

	if s.cfg.Password != "" {
		// Encode's trailing-colon heuristic only fires when an argument
		// needs it (empty, has a space, or already starts with ':'); a
		// bare "sasl" wouldn't get one, so this one frame is built by hand
		// to match "CAP REQ :sasl" literally.
		s.enqueue([]byte("CAP REQ :sasl\r\n"), nil)
	}
	s.enqueue(wire.Encode(irc.NICK, st.CurrentNick), nil)
	s.enqueue(wire.Encode(irc.USER, s.cfg.Username, "0", "*", s.cfg.Realname), nil)
}

// dispatch runs one parsed line through the protocol state machine,
// mutating st and publishing events as described in spec §4.4. st is owned
// exclusively by the goroutine calling dispatch (the receive worker).
func (s *Session) dispatch(st *SessionState, msg *wire.Message) {
	switch msg.Command {
	case irc.PING:
		// The reply must echo the trailing argument verbatim, including
		// its leading ':', regardless of whether Encode's general
		// needs-a-colon heuristic would add one back.
		s.enqueue([]byte("PONG :"+msg.Arg(0)+"\r\n"), nil)
		return
	}

	if num, err := strconv.Atoi(msg.Command); err == nil {
		s.dispatchNumeric(st, num, msg)
		return
	}

	switch msg.Command {
	case irc.PRIVMSG:
		s.dispatchPrivmsg(st, msg)
	case irc.JOIN:
		s.dispatchJoin(st, msg)
	case irc.PART:
		s.dispatchPart(st, msg)
	case irc.NICK:
		s.dispatchNick(st, msg)
	case irc.QUIT:
		s.dispatchQuit(st, msg)
	case irc.TOPIC:
		s.dispatchTopic(st, msg)
	case irc.MODE:
		s.dispatchMode(st, msg)
	default:
		s.dispatchFallback(st, msg)
	}
}

func (s *Session) dispatchPrivmsg(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}
	s.publish(ReceivedPrivmsg{
		Sender:    msg.Nick(),
		Recipient: msg.Arg(0),
		Text:      msg.Arg(1),
	})
}

func (s *Session) dispatchJoin(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	channel := msg.Arg(0)
	nick := msg.Nick()

	if irc.Fold(nick) == irc.Fold(st.CurrentNick) {
		st.joinsInProgress[irc.Fold(channel)] = &joinAccumulator{name: channel}
		return
	}

	if cs := st.Channel(channel); cs != nil {
		cs.addMember(nick, 0)
	}
	s.publish(UserJoined{Nick: nick, Channel: channel})
}

func (s *Session) dispatchPart(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	channel := msg.Arg(0)
	nick := msg.Nick()
	reason := msg.Arg(1)

	if irc.Fold(nick) == irc.Fold(st.CurrentNick) {
		delete(st.channels, irc.Fold(channel))
		st.removeFromAutojoin(channel)
		s.publish(SelfParted{Channel: channel})
		return
	}

	if cs := st.Channel(channel); cs != nil {
		cs.removeMember(nick)
	}
	s.publish(UserParted{Nick: nick, Channel: channel, Reason: reason})
}

func (s *Session) dispatchNick(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	old := msg.Nick()
	newNick := msg.Arg(0)

	for _, cs := range st.channels {
		if cs.hasMember(old) {
			cs.renameMember(old, newNick)
		}
	}

	if irc.Fold(old) == irc.Fold(st.CurrentNick) {
		st.CurrentNick = newNick
		s.publish(SelfChangedNick{Old: old, New: newNick})
		return
	}
	s.publish(UserChangedNick{Old: old, New: newNick})
}

func (s *Session) dispatchQuit(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	nick := msg.Nick()
	for _, cs := range st.channels {
		cs.removeMember(nick)
	}
	s.publish(UserQuit{Nick: nick, Reason: msg.Arg(0)})
}

func (s *Session) dispatchTopic(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	channel := msg.Arg(0)
	topic := msg.Arg(1)

	if acc, ok := st.joinsInProgress[irc.Fold(channel)]; ok {
		acc.topic = &topic
		return
	}

	if cs := st.Channel(channel); cs != nil {
		cs.Topic = topic
	}
	s.publish(TopicChanged{Channel: channel, SetterNick: msg.Nick(), Topic: topic})
}

// dispatchMode updates the @/+ prefix this engine tracks per channel member
// (spec's ChannelState "optional capability flag"). It does not publish an
// event: spec's event table has no mode-change variant. The updated flag is
// readable through SessionState.Channel(name).Prefix; Session exports no
// accessor for it.
//
// Only the 'o' and 'v' letters are interpreted, since this engine hardcodes
// RFC1459-default prefixes rather than negotiating CHANMODES/PREFIX via
// RPL_ISUPPORT. 'b'/'e'/'I' and a setting 'k'/'l' are recognised only far
// enough to consume their argument, so a later o/v pair in the same
// modestring doesn't read the wrong token.
func (s *Session) dispatchMode(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.dispatchFallback(st, msg)
		return
	}

	cs := st.Channel(msg.Arg(0))
	if cs == nil {
		return
	}

	modestring := msg.Arg(1)
	argIdx := 2
	sign := byte('+')

	for i := 0; i < len(modestring); i++ {
		switch c := modestring[i]; c {
		case '+', '-':
			sign = c
		case 'o':
			nick := msg.Arg(argIdx)
			argIdx++
			if sign == '+' {
				cs.setPrefix(nick, '@')
			} else {
				cs.clearPrefix(nick, '@')
			}
		case 'v':
			nick := msg.Arg(argIdx)
			argIdx++
			if sign == '+' {
				cs.setPrefix(nick, '+')
			} else {
				cs.clearPrefix(nick, '+')
			}
		case 'b', 'e', 'I':
			argIdx++
		case 'k', 'l':
			if sign == '+' {
				argIdx++
			}
		}
	}
}

func (s *Session) dispatchNumeric(st *SessionState, num int, msg *wire.Message) {
	switch strconv.Itoa(num) {
	case irc.RplTopic:
		s.numericTopic(st, msg)
	case irc.RplNamReply:
		s.numericNamReply(st, msg)
	case irc.RplEndOfNames:
		s.numericEndOfNames(st, msg)
	case irc.RplEndOfMotd, irc.ErrNoMotd:
		s.finishRegistration(st)
	case irc.ErrNicknameInUse:
		s.publish(ServerMessage{Sender: msg.Sender, Command: msg.Command, Args: msg.Args})
	default:
		s.dispatchFallback(st, msg)
	}
}

func (s *Session) numericTopic(st *SessionState, msg *wire.Message) {
	// Args are "<nick> <channel> :<topic>" for 332.
	channel := msg.Arg(1)
	topic := msg.Arg(2)
	if acc, ok := st.joinsInProgress[irc.Fold(channel)]; ok {
		acc.topic = &topic
	}
}

func (s *Session) numericNamReply(st *SessionState, msg *wire.Message) {
	if len(msg.Args) < 3 {
		return
	}
	channel := msg.Args[len(msg.Args)-2]
	names := msg.Args[len(msg.Args)-1]

	acc, ok := st.joinsInProgress[irc.Fold(channel)]
	if !ok {
		return
	}

	for _, raw := range strings.Fields(names) {
		nick, prefix := stripPrefix(raw)
		acc.nicks = append(acc.nicks, nick)
		acc.prefixes = append(acc.prefixes, prefix)
	}
}

func stripPrefix(raw string) (nick string, prefix byte) {
	if raw == "" {
		return raw, 0
	}
	switch raw[0] {
	case '@', '+':
		return raw[1:], raw[0]
	default:
		return raw, 0
	}
}

func (s *Session) numericEndOfNames(st *SessionState, msg *wire.Message) {
	channel := msg.Arg(1)
	folded := irc.Fold(channel)

	acc, ok := st.joinsInProgress[folded]
	if !ok {
		return
	}
	delete(st.joinsInProgress, folded)

	topic := defaultTopic
	if acc.topic != nil {
		topic = *acc.topic
	}

	cs := newChannelState(acc.name, topic)
	for i, nick := range acc.nicks {
		cs.addMember(nick, acc.prefixes[i])
	}
	st.channels[folded] = cs
	st.addToAutojoin(acc.name)

	s.publish(SelfJoined{Channel: acc.name, Topic: topic, Nicklist: acc.nicks})
}

func (s *Session) finishRegistration(st *SessionState) {
	if st.Phase == Registered {
		return
	}
	st.Phase = Registered
	for _, channel := range st.Autojoin {
		s.enqueue(wire.Encode(irc.JOIN, channel), nil)
	}
}

func (s *Session) dispatchFallback(st *SessionState, msg *wire.Message) {
	if msg.SenderIsServer {
		s.publish(ServerMessage{Sender: msg.Sender, Command: msg.Command, Args: msg.Args})
		return
	}
	s.publish(UnknownMessage{Sender: msg.Sender, Command: msg.Command, Args: msg.Args})
}
