// Package config provides hierarchical configuration loading for the broker.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all runtime configuration for the broker.
type Config struct {
	Server  Server  `yaml:"server"`
	Store   Store   `yaml:"store"`
	Logging Logging `yaml:"logging"`
	Hooks   Hooks   `yaml:"hooks"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Store holds SQLite store configuration.
type Store struct {
	Path string `yaml:"path"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Hooks holds hook-client configuration: where the broker lives and how
// often the inbox hook is allowed to check it.
type Hooks struct {
	BrokerURL string        `yaml:"broker_url"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// DefaultPort is the broker's well-known localhost port.
const DefaultPort = "3456"

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Server: Server{
			Port:       DefaultPort,
			CORSOrigin: "*",
		},
		Store: Store{
			Path: filepath.Join(home, ".switchboard", "switchboard.db"),
		},
		Logging: Logging{
			Level:   "info",
			Service: "switchboard",
		},
		Hooks: Hooks{
			BrokerURL: "http://127.0.0.1:" + DefaultPort,
			Cooldown:  10 * time.Second,
		},
	}
}
