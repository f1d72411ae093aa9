package server

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/backend/filestorage"
	"github.com/iota-uz/portal/pkg/backend/memory"
	"github.com/iota-uz/portal/pkg/backend/pgstore"
	"github.com/iota-uz/portal/pkg/backend/rest"
	"github.com/iota-uz/portal/pkg/configuration"
)

// Backend is the assembled provider client plus whatever it holds open.
type Backend struct {
	Client backend.Client
	Pool   *pgxpool.Pool
}

func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// NewBackend picks the auth, tables and storage implementations
// independently, following the configured modes.
func NewBackend(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (*Backend, error) {
	opts := conf.Backend
	out := &Backend{}

	var remote *rest.Client
	useRemote := func() (*rest.Client, error) {
		if remote != nil {
			return remote, nil
		}
		c, err := rest.New(rest.Options{
			URL:        opts.URL,
			AnonKey:    opts.AnonKey,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		remote = c
		return remote, nil
	}
	var mem *memory.Store
	useMemory := func() *memory.Store {
		if mem == nil {
			mem = memory.New()
		}
		return mem
	}

	switch opts.Mode {
	case configuration.ModeMemory:
		out.Client.Auth = useMemory()
	default:
		c, err := useRemote()
		if err != nil {
			return nil, err
		}
		out.Client.Auth = c
	}

	switch opts.TablesMode {
	case configuration.ModeMemory:
		out.Client.Tables = useMemory()
	case configuration.ModePostgres:
		pool, err := pgxpool.New(ctx, conf.Database.Opts)
		if err != nil {
			return nil, errors.Wrap(err, "connect to postgres")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "ping postgres")
		}
		out.Pool = pool
		out.Client.Tables = pgstore.New(pool)
	default:
		c, err := useRemote()
		if err != nil {
			return nil, err
		}
		out.Client.Tables = c
	}

	switch opts.StorageMode {
	case configuration.ModeMemory:
		out.Client.Storage = useMemory()
	case configuration.ModeFilesystem:
		out.Client.Storage = filestorage.New(opts.StoragePath)
	default:
		c, err := useRemote()
		if err != nil {
			out.Close()
			return nil, err
		}
		out.Client.Storage = c
	}

	logger.WithFields(logrus.Fields{
		"auth":    opts.Mode,
		"tables":  opts.TablesMode,
		"storage": opts.StorageMode,
	}).Info("backend configured")
	return out, nil
}
