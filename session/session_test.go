package session

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
)

// fakeServer accepts one connection at a time on an ephemeral loopback port
// and hands each one to handle, which plays the IRC server side of a test
// scenario. It stands in for a real ircd the way net.Pipe stands in for a
// real socket elsewhere in this module.
type fakeServer struct {
	ln   net.Listener
	host string
	port int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}
	return &fakeServer{ln: ln, host: host, port: port}
}

func (f *fakeServer) accept(t *testing.T) net.Conn {
	t.Helper()
	conn, err := f.ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return conn
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestQuitWhileDisconnected(t *testing.T) {
	// Nothing is listening on this port: Dial fails immediately and the
	// session sits in its reconnect wait.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	old := ReconnectDelay
	ReconnectDelay = time.Hour
	defer func() { ReconnectDelay = old }()

	log := log15.New()
	log.SetHandler(log15.DiscardHandler())
	s := New(ServerConfig{Host: host, Port: port, Nick: "self"}, log)
	s.Start()

	start := time.Now()
	s.Quit()

	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				if time.Since(start) > 500*time.Millisecond {
					t.Fatalf("shutdown took %v, want <= 500ms", time.Since(start))
				}
				return
			}
			if _, ok := ev.(SelfQuit); ok {
				continue
			}
		case <-deadline:
			t.Fatal("SelfQuit/shutdown did not happen within 500ms")
		}
	}
}

func TestReconnectReplaysAutojoin(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.ln.Close()

	old := ReconnectDelay
	ReconnectDelay = 10 * time.Millisecond
	defer func() { ReconnectDelay = old }()

	log := log15.New()
	log.SetHandler(log15.DiscardHandler())
	s := New(ServerConfig{
		Host: fs.host, Port: fs.port, Nick: "self", Username: "self", Realname: "Self",
		Autojoin: []string{"#foo"},
	}, log)
	s.Start()
	defer s.Quit()

	// First connection: register, then server drops us after MOTD.
	conn1 := fs.accept(t)
	r1 := bufio.NewReader(conn1)
	for i := 0; i < 2; i++ {
		readLine(t, r1) // NICK, USER
	}
	conn1.Write([]byte(":srv 376 self :End of MOTD\r\n"))
	readLine(t, r1) // JOIN #foo from the autojoin replay
	conn1.Close()

	expectConnectivity(t, s, true)

	// Second connection: the supervisor must reconnect and replay autojoin.
	conn2 := fs.accept(t)
	r2 := bufio.NewReader(conn2)
	defer conn2.Close()
	for i := 0; i < 2; i++ {
		readLine(t, r2) // NICK, USER again
	}
	conn2.Write([]byte(":srv 376 self :End of MOTD\r\n"))

	joinLine := readLine(t, r2)
	if joinLine != "JOIN #foo" {
		t.Fatalf("replayed join = %q, want JOIN #foo", joinLine)
	}
}

func TestQuitWhileConnectedEmitsSelfQuitOnce(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.ln.Close()

	old := ReconnectDelay
	ReconnectDelay = time.Hour
	defer func() { ReconnectDelay = old }()

	log := log15.New()
	log.SetHandler(log15.DiscardHandler())
	s := New(ServerConfig{
		Host: fs.host, Port: fs.port, Nick: "self", Username: "self", Realname: "Self",
	}, log)
	s.Start()

	conn := fs.accept(t)
	defer conn.Close()
	r := bufio.NewReader(conn)
	for i := 0; i < 2; i++ {
		readLine(t, r) // NICK, USER
	}
	conn.Write([]byte(":srv 376 self :End of MOTD\r\n"))

	s.Quit()

	quitLine := readLine(t, r)
	if quitLine != "QUIT quit" {
		t.Fatalf("quit line = %q, want QUIT quit", quitLine)
	}

	selfQuitCount := 0
	for ev := range s.Events() {
		if _, ok := ev.(SelfQuit); ok {
			selfQuitCount++
		}
	}
	if selfQuitCount != 1 {
		t.Fatalf("observed %d SelfQuit events, want exactly 1", selfQuitCount)
	}
}

func expectConnectivity(t *testing.T, s *Session, isError bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if cm, ok := ev.(ConnectivityMessage); ok && cm.IsError == isError {
				return
			}
		case <-deadline:
			t.Fatalf("did not observe ConnectivityMessage(IsError=%v) in time", isError)
		}
	}
}
