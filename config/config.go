/*
Package config loads server configuration from a TOML file using
github.com/BurntSushi/toml, the same decoder the teacher repo depends on,
producing the session.ServerConfig values the engine's supervisor consumes.
*/
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/corvid-irc/corvid/session"
)

// File is the on-disk shape of a config.toml: a table of named servers,
// each a [servers.name] block.
type File struct {
	Servers map[string]ServerEntry `toml:"servers"`
}

// ServerEntry mirrors session.ServerConfig field-for-field with TOML tags;
// it exists separately so the on-disk format can evolve (e.g. add fields
// session.ServerConfig doesn't need) without touching the engine's types.
type ServerEntry struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	UseTLS   bool     `toml:"use_tls"`
	Nick     string   `toml:"nick"`
	Username string   `toml:"username"`
	Realname string   `toml:"realname"`
	Password string   `toml:"password"`
	Autojoin []string `toml:"autojoin"`
}

func (e ServerEntry) toServerConfig() session.ServerConfig {
	return session.ServerConfig{
		Host:     e.Host,
		Port:     e.Port,
		UseTLS:   e.UseTLS,
		Nick:     e.Nick,
		Username: e.Username,
		Realname: e.Realname,
		Password: e.Password,
		Autojoin: e.Autojoin,
	}
}

// Load decodes filename and returns one session.ServerConfig per
// [servers.*] table, keyed by the same name used in the file.
func Load(filename string) (map[string]session.ServerConfig, error) {
	var f File
	if _, err := toml.DecodeFile(filename, &f); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", filename, err)
	}

	out := make(map[string]session.ServerConfig, len(f.Servers))
	for name, entry := range f.Servers {
		if entry.Port == 0 {
			entry.Port = 6667
			if entry.UseTLS {
				entry.Port = 6697
			}
		}
		out[name] = entry.toServerConfig()
	}
	return out, nil
}
