package main

import (
	"fmt"
	"log/slog"

	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/logging"
	"punchlist/internal/session"
	"punchlist/internal/workflow"
)

// commandContext lazily wires the shared dependencies every subcommand needs.
type commandContext struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) loadLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	c.logger = logger
	return logger, nil
}

// withEngine opens the dashboard store, builds a workflow engine, and hands
// it to fn, closing the store afterwards.
func (c *commandContext) withEngine(fn func(*config.Config, *workflow.Engine, *dashboard.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, err := c.loadLogger()
	if err != nil {
		return err
	}
	store, err := dashboard.Open(cfg.Paths.DashboardDB)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewStore(cfg.Paths.SessionDir)
	engine := workflow.New(cfg, store, sessions, logger)
	return fn(cfg, engine, store)
}
