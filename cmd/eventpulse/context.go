package main

import (
	"strings"
	"sync"

	"eventpulse/internal/api"
	"eventpulse/internal/audit"
	"eventpulse/internal/config"
	"eventpulse/internal/curated"
	"eventpulse/internal/ingest"
	"eventpulse/internal/logging"
	"eventpulse/internal/registry"
)

// commandContext lazily resolves configuration and store handles shared by
// the subcommands. The CLI operates directly on the registry and warehouse
// databases; WAL mode lets it coexist with a running daemon.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withService opens the registry and warehouse and runs fn against a
// RegistryService, closing both afterwards.
func (c *commandContext) withService(fn func(*config.Config, *api.RegistryService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := registry.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	loader, err := curated.Open(cfg)
	if err != nil {
		return err
	}
	defer loader.Close()

	recorder := audit.NewRecorder(store, logging.NewNop())
	return fn(cfg, api.NewRegistryService(store, loader, recorder))
}

// withStore opens just the registry store.
func (c *commandContext) withStore(fn func(*config.Config, *registry.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := registry.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withSubmitter opens the registry store and runs fn against a Submitter.
func (c *commandContext) withSubmitter(fn func(*config.Config, *ingest.Submitter) error) error {
	return c.withStore(func(cfg *config.Config, store *registry.Store) error {
		recorder := audit.NewRecorder(store, logging.NewNop())
		return fn(cfg, ingest.NewSubmitter(cfg, store, recorder, logging.NewNop()))
	})
}
