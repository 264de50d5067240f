package app

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Rorical/c60chat/internal/completion"
	"github.com/Rorical/c60chat/internal/config"
	"github.com/Rorical/c60chat/internal/core"
	"github.com/Rorical/c60chat/internal/logging"
	"github.com/Rorical/c60chat/internal/persona"
	"github.com/Rorical/c60chat/internal/storage"
)

// Options are the command-line overrides applied on top of config.json.
type Options struct {
	Profile  string // profile to use instead of active_profile
	Store    string // storage backend override
	DataDir  string // replaces C60_HOME / ~/.c60
	LogLevel string
}

// Session is everything a command needs to act on the persisted chat.
type Session struct {
	Config   *config.Config
	Store    storage.Store
	Personas *persona.Catalogue
	Client   completion.Client
	Service  *core.ChatService

	logCloser io.Closer
}

// OpenSession loads configuration, starts file logging and rehydrates the
// chat from the configured store. extra options are passed to the service.
func OpenSession(opts Options, extra ...core.Option) (*Session, error) {
	cfg, err := LoadConfig(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Profile != "" {
		if err := cfg.Use(opts.Profile); err != nil {
			return nil, err
		}
	}
	if opts.Store != "" {
		cfg.Storage.Backend = opts.Store
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logCloser, err := logging.Setup(cfg.Dir(), level)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	s := &Session{Config: cfg, logCloser: logCloser}
	if err := s.open(extra); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open(extra []core.Option) error {
	cfg := s.Config

	personas := persona.Default()
	if cfg.PersonaFile != "" {
		path := cfg.PersonaFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Dir(), path)
		}
		loaded, err := persona.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load persona file: %w", err)
		}
		personas = loaded
	}
	s.Personas = personas

	store, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	s.Store = store

	p := cfg.Profile()
	client, err := completion.New(p.Provider, cfg.GetAPIKey(), p.BaseURL, completion.Settings{
		Model:       p.Model,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}, personas)
	if err != nil {
		return err
	}
	s.Client = client

	service, err := core.NewChatService(client, personas, store, extra...)
	if err != nil {
		return fmt.Errorf("failed to initialize chat service: %w", err)
	}
	s.Service = service

	log.Info().
		Str("profile", cfg.ActiveProfile).
		Str("provider", p.Provider).
		Str("model", p.Model).
		Str("store", cfg.Storage.Backend).
		Msg("Session opened")
	return nil
}

// Close stops the service and releases the store and log file.
func (s *Session) Close() {
	if s.Service != nil {
		s.Service.Stop()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}

// LoadConfig reads config.json from dataDir, or from the default location when
// dataDir is empty.
func LoadConfig(dataDir string) (*config.Config, error) {
	if dataDir != "" {
		return config.LoadConfigFrom(filepath.Join(dataDir, "config.json"))
	}
	return config.LoadConfig()
}
