package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/identity"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/remote"
)

type globalOptions struct {
	configPath string
	storeURL   string
	email      string
	token      string
	verbose    bool
}

type session struct {
	cfg    *config.Config
	engine *board.Engine
	owner  string
}

// open loads config, resolves the identity and performs the initial board load.
func open(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.verbose {
		if err := logger.Init(true); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	id, err := resolveIdentity(opts, cfg)
	if err != nil {
		return nil, err
	}

	storeURL := cfg.Board.StoreURL
	if opts.storeURL != "" {
		storeURL = opts.storeURL
	}
	clientOpts := []remote.Option{
		remote.WithTimeout(cfg.Board.RequestTimeout),
		remote.WithListRetries(uint64(cfg.Board.ListRetries)),
		remote.WithOwnerFilter(id.Key),
	}
	if opts.token != "" {
		clientOpts = append(clientOpts, remote.WithBearerToken(opts.token))
	}
	client, err := remote.NewClient(storeURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	eng := board.NewEngine(client, identity.Static(id))
	if err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return &session{cfg: cfg, engine: eng, owner: id.Key}, nil
}

func resolveIdentity(opts *globalOptions, cfg *config.Config) (identity.Identity, error) {
	if opts.email != "" {
		return identity.Identity{Key: opts.email}, nil
	}
	if opts.token != "" {
		if cfg.Auth.TokenSecret == "" {
			return identity.Identity{}, errors.New("--token needs auth.token_secret (or TASKBOARD_AUTH_TOKEN_SECRET) to read the identity; pass --email instead")
		}
		return identity.ParseToken(opts.token, []byte(cfg.Auth.TokenSecret))
	}
	return identity.Identity{}, errors.New("not signed in: pass --email or --token")
}

// resolveTask accepts a full task id or a unique prefix of one.
func (s *session) resolveTask(ref string) (task.Task, error) {
	if t, ok := s.engine.Lookup(ref); ok && t.OwnerKey == s.owner {
		return t, nil
	}
	var matches []task.Task
	for _, c := range task.Categories {
		for _, t := range s.engine.View().Column(c) {
			if strings.HasPrefix(t.ID, ref) {
				matches = append(matches, t)
			}
		}
	}
	switch len(matches) {
	case 0:
		return task.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return task.Task{}, fmt.Errorf("%q is ambiguous: %d tasks match", ref, len(matches))
	}
}

var categoryAliases = map[string]task.Category{
	"todo":        task.ToDo,
	"to-do":       task.ToDo,
	"progress":    task.InProgress,
	"in-progress": task.InProgress,
	"in progress": task.InProgress,
	"doing":       task.InProgress,
	"done":        task.Done,
}

// parseCategory accepts the wire literals and a few lowercase aliases.
func parseCategory(s string) (task.Category, error) {
	if c, err := task.ParseCategory(s); err == nil {
		return c, nil
	}
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown category %q (want To-Do, In Progress or Done)", s)
}
