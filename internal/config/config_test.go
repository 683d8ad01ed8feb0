package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 10784 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Title != "PartyCast Server" {
		t.Errorf("title = %q", cfg.Title)
	}
	if cfg.Player != "auto" {
		t.Errorf("player = %q", cfg.Player)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("ping period = %v", cfg.PingPeriod)
	}
	if cfg.MulticastGroup != "224.1.1.1" || !cfg.Discovery {
		t.Errorf("discovery = %v %q", cfg.Discovery, cfg.MulticastGroup)
	}
	if cfg.HandshakeWindow != time.Minute {
		t.Errorf("handshake window = %v", cfg.HandshakeWindow)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.test.yaml")
	body := "port: 9000\ntitle: Basement\nplayer: dummy\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PARTYCAST_TITLE", "Rooftop")

	cfg, err := LoadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || cfg.Player != "dummy" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Title != "Rooftop" {
		t.Errorf("env override ignored: title = %q", cfg.Title)
	}
}

func TestLoadRejectsUnknownPlayer(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte("player: vinyl\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(file); err == nil {
		t.Fatal("want error for unknown player")
	}
}
