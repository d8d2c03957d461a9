package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lidereos/internal/lesson"
)

func TestDefaultMatchesBuiltInCatalog(t *testing.T) {
	cfg := Default("Time Comercial")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Team.Name != "Time Comercial" {
		t.Fatalf("team name = %q", cfg.Team.Name)
	}
	if len(cfg.Lessons) != len(lesson.Defaults) {
		t.Fatalf("expected %d lessons, got %d", len(lesson.Defaults), len(cfg.Lessons))
	}
	for i, l := range cfg.Lessons {
		if l != lesson.Defaults[i] {
			t.Fatalf("lesson %d differs: %+v vs %+v", i, l, lesson.Defaults[i])
		}
	}
	if len(cfg.Checklist) != len(lesson.DefaultChecklist) {
		t.Fatalf("expected %d checklist questions, got %d", len(lesson.DefaultChecklist), len(cfg.Checklist))
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("base path = %q", cfg.Server.BasePath)
	}
}

func TestGenerateDefaultRoundTrip(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault(`Time "A"`)))
	if err != nil {
		t.Fatalf("parse default: %v", err)
	}
	if cfg.Team.Name != `Time "A"` {
		t.Fatalf("team name = %q", cfg.Team.Name)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"missing team":      func(c *Config) { c.Team.Name = "" },
		"no lessons":        func(c *Config) { c.Lessons = nil },
		"duplicate lesson":  func(c *Config) { c.Lessons[1].ID = c.Lessons[0].ID },
		"unknown pillar":    func(c *Config) { c.Lessons[0].Pillar = "speed" },
		"empty lesson text": func(c *Config) { c.Lessons[0].Text = "" },
		"empty question":    func(c *Config) { c.Checklist = append(c.Checklist, "") },
		"relative webhook":  func(c *Config) { c.Webhooks = []Webhook{{URL: "/hook"}} },
		"empty event type":  func(c *Config) { c.Webhooks = []Webhook{{URL: "http://x.test/h", Events: []string{""}}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default("t")
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("expected nil,nil for missing config, got %v, %v", cfg, err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "lidere config init") {
		t.Fatalf("expected hint in error, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(GenerateDefault("Ops")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Team.Name != "Ops" {
		t.Fatalf("team name = %q", cfg.Team.Name)
	}
}

func TestFromYAMLInvalid(t *testing.T) {
	if _, err := FromYAML([]byte("team: [")); err == nil || !strings.Contains(err.Error(), "invalid config yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}
