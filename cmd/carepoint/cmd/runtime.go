package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/backend"
	"github.com/jmcleod/carepoint/identity"
	"github.com/jmcleod/carepoint/internal/config"
	"github.com/jmcleod/carepoint/internal/util"
	"github.com/jmcleod/carepoint/session"
	"github.com/jmcleod/carepoint/storage"
	bboltstore "github.com/jmcleod/carepoint/storage/bbolt"
	"github.com/jmcleod/carepoint/storage/memory"
	"github.com/jmcleod/carepoint/storage/postgres"
	redisstore "github.com/jmcleod/carepoint/storage/redis"
	"github.com/jmcleod/carepoint/storage/sealed"
	"github.com/jmcleod/carepoint/storage/sqlite"
)

// runtime is everything a command needs, opened from the loaded config.
type runtime struct {
	store   storage.Store
	codecs  []*session.Codec
	state   *identity.State
	client  *backend.Client
	logger  *slog.Logger
	closers []func() error
}

// openStore opens the configured backend, sealing it when a passphrase is
// set. The returned closers release resources in order.
func openStore(ctx context.Context, sc config.StoreConfig) (storage.Store, []func() error, error) {
	var (
		store   storage.Store
		closers []func() error
	)
	switch sc.Driver {
	case "memory":
		store = memory.NewStore()
	case "bbolt":
		if err := os.MkdirAll(filepath.Dir(sc.DSN), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := bboltstore.NewStoreFromFile(sc.DSN, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bbolt store: %w", err)
		}
		store, closers = s, append(closers, s.Close)
	case "sqlite":
		if sc.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(sc.DSN), 0o700); err != nil {
				return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		s, err := sqlite.Open(ctx, sc.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		store, closers = s, append(closers, s.Close)
	case "postgres":
		s, err := postgres.NewStoreFromDSN(ctx, sc.DSN, sc.Namespace)
		if err != nil {
			return nil, nil, err
		}
		store, closers = s, append(closers, func() error { s.Close(); return nil })
	case "redis":
		s, err := redisstore.NewStoreFromAddr(ctx, sc.DSN, sc.RedisPass, sc.Namespace)
		if err != nil {
			return nil, nil, err
		}
		store, closers = s, append(closers, s.Close)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}

	if sc.Passphrase != "" {
		s, err := sealed.NewFromPassphrase(ctx, store, sc.Passphrase, util.DefaultArgon2idParams())
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to unlock sealed store: %w", err)
		}
		store = s
		closers = append([]func() error{func() error { s.Close(); return nil }}, closers...)
	}
	return store, closers, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openRuntime wires the store, the identity state and, when an API URL is
// configured, the remote client.
func openRuntime(ctx context.Context, c *config.Config, logger *slog.Logger) (*runtime, error) {
	store, closers, err := openStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: store, logger: logger, closers: closers}

	codecOpts := []session.Option{session.WithLogger(logger)}
	if c.Store.RepairOnRead {
		codecOpts = append(codecOpts, session.WithRepairOnRead())
	}
	stateOpts := []identity.Option{identity.WithLogger(logger)}

	if c.Backend.BaseURL != "" {
		client, err := backend.New(backend.Config{
			BaseURL:     c.Backend.BaseURL,
			DoctorsPath: c.Backend.DoctorsPath,
			ProfilePath: c.Backend.ProfilePath,
			Username:    c.Backend.Username,
			Password:    []byte(c.Backend.Password),
			Timeout:     c.Backend.Timeout,
		}, backend.WithLogger(logger))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.client = client
		stateOpts = append(stateOpts, identity.WithFetcher(client))
	}

	rt.codecs = []*session.Codec{
		session.NewOTP(store, codecOpts...),
		session.NewLogin(store, codecOpts...),
		session.NewUser(store, codecOpts...),
	}
	rt.state = identity.New(rt.codecs[0], rt.codecs[1], rt.codecs[2], stateOpts...)
	return rt, nil
}

func (rt *runtime) Close() error {
	return closeAll(rt.closers)
}

func projection(c *config.Config) session.ProjectionOptions {
	return session.ProjectionOptions{
		ImageBaseURL:     c.Profile.ImageBaseURL,
		PlaceholderImage: c.Profile.PlaceholderImage,
	}
}

// withRuntime opens a runtime for the duration of fn.
func withRuntime(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := openRuntime(cmd.Context(), cfg, newLogger(cmd.ErrOrStderr(), slog.LevelWarn))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePayload decodes a JSON object given inline or as @file.
func parsePayload(arg string) (session.Payload, error) {
	data := []byte(arg)
	if len(arg) > 1 && arg[0] == '@' {
		var err error
		if data, err = os.ReadFile(arg[1:]); err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	p, err := session.DecodePayload(data)
	if err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return p, nil
}
