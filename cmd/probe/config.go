package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"ws://localhost:1337/ws"`
	// PROBE_COLOURS enables colorized output for better readability
	Colours  bool   `envconfig:"PROBE_COLOURS" default:"true"`
	RoomSize int    `envconfig:"PROBE_ROOM_SIZE" default:"2"`
	RoomName string `envconfig:"PROBE_ROOM_NAME" default:"probe room"`
	Name     string `envconfig:"PROBE_CLIENT_NAME"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
