// Command corvidctl is a minimal demonstration harness for the protocol
// engine: it loads config.toml, connects every configured server, logs the
// resulting event stream, and shuts down cleanly on SIGINT/SIGTERM. It is
// not part of the engine itself.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inconshreveable/log15"

	"github.com/corvid-irc/corvid/config"
	"github.com/corvid-irc/corvid/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log := log15.New()
	log.SetHandler(log15.StdoutHandler)

	servers, err := config.Load("config.toml")
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return fmt.Errorf("corvidctl: config.toml defines no [servers.*] entries")
	}

	mgr := session.NewManager()
	for name, cfg := range servers {
		mgr.Add(name, session.New(cfg, log.New("server", name)))
	}

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-mgr.Events():
			if !ok {
				return nil
			}
			log.Info("event", "server", ev.Server, "event", fmt.Sprintf("%#v", ev.Event))
		case <-quit:
			mgr.QuitAll()
		}
	}
}
