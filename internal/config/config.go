package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lidereos/internal/coherence"
	"lidereos/internal/domain"
	"lidereos/internal/lesson"
)

// FileName is the config file looked up at the workspace root.
const FileName = "lidere.yml"

// Config models lidere.yml.
type Config struct {
	Team struct {
		Name string `yaml:"name"`
	} `yaml:"team"`
	Lessons   []domain.Lesson `yaml:"lessons"`
	Checklist []string        `yaml:"checklist"`
	Webhooks  []Webhook       `yaml:"webhooks"`
	Server    struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		JWTSecret   string   `yaml:"jwt_secret"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
}

// Webhook subscribes url to events whose type is listed. An empty list means
// every event.
type Webhook struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with lidere config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

var lessonPillars = map[string]bool{
	string(coherence.Rhythm):         true,
	string(coherence.Responsibility): true,
	string(coherence.Response):       true,
	string(coherence.Consistency):    true,
	lesson.General:                   true,
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Team.Name == "" {
		return fmt.Errorf("config.team.name is required")
	}
	if len(c.Lessons) == 0 {
		return fmt.Errorf("config.lessons must not be empty")
	}
	seen := map[int]bool{}
	for i, l := range c.Lessons {
		if seen[l.ID] {
			return fmt.Errorf("config.lessons[%d] duplicates id %d", i, l.ID)
		}
		seen[l.ID] = true
		if !lessonPillars[l.Pillar] {
			return fmt.Errorf("config.lessons[%d] has unknown pillar %q", i, l.Pillar)
		}
		if l.Title == "" || l.Text == "" {
			return fmt.Errorf("config.lessons[%d] requires title and text", i)
		}
	}
	for i, q := range c.Checklist {
		if q == "" {
			return fmt.Errorf("config.checklist[%d] is empty", i)
		}
	}
	for i, h := range c.Webhooks {
		u, err := url.Parse(h.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config.webhooks[%d].url must be an absolute http(s) url", i)
		}
		for _, evt := range h.Events {
			if evt == "" {
				return fmt.Errorf("config.webhooks[%d] has empty event type", i)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(teamName string) string {
	return fmt.Sprintf(defaultTemplate, teamName)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a team.
func Default(teamName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(teamName))).Decode(&cfg)
	cfg.Team.Name = teamName
	if len(cfg.Lessons) == 0 {
		cfg.Lessons = append([]domain.Lesson(nil), lesson.Defaults...)
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `team:
  name: %q

lessons:
  - id: 1
    pillar: rhythm
    title: "Presença sustenta clareza"
    text: "Times não travam por falta de decisão, mas por ausência após o combinado."
  - id: 2
    pillar: rhythm
    title: "Acompanhamento não é controle"
    text: "Revisitar tarefas não diminui autonomia. Aumenta a confiança de quem executa."
  - id: 6
    pillar: responsibility
    title: "Tarefa sem dono vira intenção"
    text: "Se ninguém é responsável, ninguém se sente cobrado."
  - id: 7
    pillar: responsibility
    title: "Clareza evita retrabalho"
    text: "Definir quem faz o quê é um ato de respeito ao tempo do time."
  - id: 11
    pillar: response
    title: "Atraso é dado, não falha moral"
    text: "Toda tarefa atrasada traz informação. Ignorá-la desperdiça aprendizado."
  - id: 12
    pillar: response
    title: "Problemas não somem sozinhos"
    text: "O que não é revisitado tende a se repetir."
  - id: 16
    pillar: consistency
    title: "Reunião sem ação cria ruído"
    text: "Conversas que não viram tarefa enfraquecem a liderança."
  - id: 17
    pillar: consistency
    title: "Decisão precisa virar movimento"
    text: "Decidir sem executar é só alinhar intenção."

checklist:
  - "Isso precisa ser decidido por você agora?"
  - "Isso pode virar uma regra?"
  - "Isso é urgente ou importante?"
  - "Estou resolvendo ou evitando algo?"

webhooks: []

server:
  addr: "127.0.0.1:8080"
  base_path: /v0
  jwt_secret: ""
  cors_origins: []
`
