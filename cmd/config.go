package main

import "time"

type Config struct {
	Host                      string        `env:"HOST,default=0.0.0.0"`
	HTTPPort                  int           `env:"HTTP_PORT,default=3000" validate:"gt=0,lte=65535"`
	WSPort                    int           `env:"WS_PORT,default=8080" validate:"gt=0,lte=65535,nefield=HTTPPort"`
	NumberOfWorkers           int           `env:"NUMBER_OF_WORKERS,default=0" validate:"gte=0"`
	BufferSize                int           `env:"BUFFER_SIZE,default=256" validate:"gt=0"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"gt=0"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*" validate:"len=1"`
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
}
