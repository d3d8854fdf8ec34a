package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host              string        `env:"HOST"`
	Port              int           `env:"PORT,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	SqliteFilepath    string        `env:"SQLITE_FILEPATH,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`
	ClientTimeout     time.Duration `env:"CLIENT_TIMEOUT"`
	WriteWait         time.Duration `env:"WRITE_WAIT"`
	SendBuffer        int           `env:"SEND_BUFFER"`
	GCInterval        time.Duration `env:"GC_INTERVAL"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT"`
}

func (c Config) CharacterRune() (rune, error) {
	if c.CharReplacement == "" {
		return '*', nil
	}
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// CensoredWordList splits the comma separated dictionary, dropping blanks.
func (c Config) CensoredWordList() []string {
	words := strings.Split(c.CensoredWords, ",")
	words = lo.Map(words, func(w string, _ int) string { return strings.TrimSpace(w) })
	return lo.Filter(words, func(w string, _ int) bool { return w != "" })
}
