// Package app wires a workspace directory into a ready engine.
package app

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"lidereos/internal/config"
	"lidereos/internal/db"
	"lidereos/internal/engine"
	"lidereos/internal/migrate"
)

// Workspace is an opened workspace. Close releases the database.
type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

func (w *Workspace) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// ResolveConfig loads lidere.yml from the workspace, falling back to the
// defaults named after the workspace directory when the file is absent.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", config.Path(workspace), err)
	}
	if cfg != nil {
		return cfg, nil
	}
	return config.Default(teamName(workspace)), nil
}

func teamName(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return "Meu Time"
	}
	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "Meu Time"
	}
	return name
}

// Open opens the database, applies migrations and builds the engine.
func Open(workspace string) (*Workspace, error) {
	cfg, err := ResolveConfig(workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Workspace{
		Dir:    workspace,
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg),
	}, nil
}
