package session

import "github.com/corvid-irc/corvid/transport"

// frame is one outbound line together with the event (if any) that should
// be published once it has actually reached the wire. This is the queue
// item described in spec §4.3, realized as a buffered Go channel rather
// than the teacher's hand-rolled linked-list Queue (github.com/aarondl/
// ultimateq/inet.Queue) — a channel already gives the bounded-capacity FIFO
// plus the "wake on enqueue or on quit" select spec §5 asks for, so the
// custom data structure isn't needed here.
type frame struct {
	bytes []byte
	done  Event
}

// sendQueueCapacity bounds how many outbound frames may be buffered before
// a caller enqueuing another one blocks. It is generous enough that normal
// command bursts (e.g. replaying a long autojoin list) never block.
const sendQueueCapacity = 256

// enqueue places a frame on the outbound queue, or gives up once quitSignal
// fires so that no caller can block forever past a Quit.
func (s *Session) enqueue(bytes []byte, done Event) {
	select {
	case s.sendCh <- frame{bytes: bytes, done: done}:
	case <-s.quitSignal:
	}
}

// sendWorker drains the outbound queue and writes each frame to whatever
// connection is current. Per spec §4.3: if there is no current connection
// the frame is silently discarded (no retry, no blocking) so a dead server
// never stalls a consumer.
func (s *Session) sendWorker() {
	for {
		select {
		case fr := <-s.sendCh:
			s.writeFrame(fr)
		case <-s.shutdown:
			return
		}
	}
}

func (s *Session) writeFrame(fr frame) {
	conn := s.getConn()
	if conn == nil {
		return
	}

	if _, err := conn.Write(fr.bytes); err != nil {
		if conn.Classify(err) != transport.FailureLocalShutdown {
			s.log.Warn("write failed, dropping frame", "err", err)
		}
		return
	}

	if fr.done == nil {
		return
	}

	// finishQuit is the sole publisher of SelfQuit (spec §8: "exactly one
	// SelfQuit event is emitted, and no events follow it"); publishing it
	// here too would double-emit for a Quit() issued while connected.
	if _, isQuit := fr.done.(SelfQuit); isQuit {
		s.finishQuit()
		return
	}

	s.publish(fr.done)
}
