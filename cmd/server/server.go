package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
)

// Server owns the infrastructure, the mounted modules, and the HTTP listener.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer wires every system from cfg without starting any of them.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure: %w", err)
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	router := buildRouter(infra, cfg.Version)
	modules.Mount(router)

	infra.Logger.Info("server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"queue_workers", cfg.Queue.Workers,
		"storage", cfg.Storage.Provider,
		"llm", cfg.LLM.Backend+"/"+cfg.LLM.Model,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start brings up infrastructure, then the hub and queue workers, then the
// listener. The first failure stops the sequence.
func (s *Server) Start() error {
	lc := s.infra.Lifecycle

	steps := []struct {
		name  string
		start func() error
	}{
		{"infrastructure", s.infra.Start},
		{"modules", s.modules.Start},
		{"http", func() error { return s.http.Start(lc) }},
	}

	for _, step := range steps {
		if err := step.start(); err != nil {
			return fmt.Errorf("start %s: %w", step.name, err)
		}
	}

	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("startup complete", "ready", s.infra.Ready())
	}()

	return nil
}

// Shutdown drains the listener and queue, then releases resources, waiting
// at most timeout overall.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}
