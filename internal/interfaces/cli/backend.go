package cli

import (
	"context"
	"io"
	"time"

	appreminder "github.com/turtacn/ContractKeeper/internal/application/reminder"
	"github.com/turtacn/ContractKeeper/internal/bootstrap"
	"github.com/turtacn/ContractKeeper/internal/config"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// Migrator applies the embedded schema migrations.
type Migrator interface {
	Up() error
	Down(steps int) error
	Status() (version uint, dirty bool, err error)
	Force(version int) error
}

// SweepRunner runs the periodic jobs in-process.
type SweepRunner interface {
	Reminders(ctx context.Context, now time.Time) (*appreminder.SweepResult, error)
	Trash(ctx context.Context, now time.Time) (int, error)
}

// Publisher sends a message to the event bus.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// DocumentUploader stores contract documents.
type DocumentUploader interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (*minio.UploadResult, error)
}

// Runtime is an opened installation.  Publisher and Documents are nil when
// the corresponding backend is not configured.
type Runtime struct {
	Sweeps    SweepRunner
	Publisher Publisher
	Documents DocumentUploader
	Close     func()
}

// Backend opens what the commands need.
type Backend interface {
	Migrator(cfg *config.Config) Migrator
	Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Runtime, error)
}

type defaultBackend struct{}

func (defaultBackend) Migrator(cfg *config.Config) Migrator {
	return postgres.SchemaMigrator{DSN: cfg.Database.Postgres.DSN()}
}

func (defaultBackend) Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Runtime, error) {
	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := infra.Services()
	if err != nil {
		infra.Close()
		return nil, err
	}
	rt := &Runtime{Sweeps: svc.Sweeps(logger), Close: infra.Close}
	if infra.Producer != nil {
		rt.Publisher = infra.Producer
	}
	if svc.Documents != nil {
		rt.Documents = svc.Documents
	}
	return rt, nil
}

//Personal.AI order the ending
