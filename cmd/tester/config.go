package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIAddr string `envconfig:"API_ADDR" default:"localhost:3000"`
	WSAddr  string `envconfig:"WS_ADDR" default:"localhost:8080"`
	// TESTER_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"TESTER_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
