//go:build integration

// Package repositories_test runs the PostgreSQL repositories against a real
// database.  Tests require Docker and are gated behind the "integration"
// build tag.
package repositories_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test helpers
// ─────────────────────────────────────────────────────────────────────────────

// startPostgres launches a PostgreSQL 16 container, applies the embedded
// migrations and returns both a database/sql connection and a pgx pool for
// out-of-band assertions.
func startPostgres(t *testing.T) (*postgres.Connection, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "contractkeeper_test",
			"TZ":                "Europe/Berlin",
			"PGTZ":              "Europe/Berlin",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := postgres.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "contractkeeper_test",
		Username: "test",
		Password: "test",
	}
	conn, err := postgres.NewConnection(ctx, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.RunMigrations())

	pool, err := pgxpool.New(ctx, "postgres://test:test@"+host+":"+strconv.Itoa(port.Int())+"/contractkeeper_test?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return conn, pool
}

func TestRepositories_Integration(t *testing.T) {
	conn, pool := startPostgres(t)
	ctx := context.Background()
	logger := logging.NewNopLogger()

	contracts := repositories.NewPostgresContractRepo(conn, logger)
	categories := repositories.NewPostgresCategoryRepo(conn, logger)
	ledger := repositories.NewPostgresReminderLedger(conn, logger)
	store := repositories.NewPostgresSettingsStore(conn, logger)

	cat := &contract.Category{Name: "Software", SortOrder: 1}
	require.NoError(t, categories.Save(ctx, cat))

	end := contract.Date(2026, 6, 30)
	c := &contract.Contract{
		Name:               "Office 365",
		Vendor:             "Microsoft",
		Status:             contract.StatusActive,
		CategoryID:         &cat.ID,
		EndDate:            &end,
		CancellationPeriod: "1 month",
		ContractType:       contract.TypeAutoRenewal,
		Currency:           "EUR",
		ReminderEnabled:    true,
		CreatedBy:          "alice",
	}
	require.NoError(t, contracts.Save(ctx, c))
	require.NotZero(t, c.ID)

	t.Run("civil dates survive a non-UTC session", func(t *testing.T) {
		got, err := contracts.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, end, *got.EndDate)
	})

	t.Run("reminder candidates", func(t *testing.T) {
		list, err := contracts.FindCandidatesForReminder(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)
	})

	t.Run("concurrent ledger inserts yield exactly one row", func(t *testing.T) {
		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			dupes   int
			inserts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := ledger.RecordSent(ctx, &reminder.Sent{
					ContractID:   c.ID,
					ReminderType: reminder.ReminderType(c, reminder.StageFirst),
					SentAt:       time.Now(),
					SentTo:       "alice",
				})
				mu.Lock()
				defer mu.Unlock()
				if reminder.IsAlreadySent(err) {
					dupes++
				} else if assert.NoError(t, err) {
					inserts++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, inserts)
		assert.Equal(t, workers-1, dupes)

		var count int
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM reminder_sent WHERE contract_id = $1", c.ID).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("expired trash honours exclusions", func(t *testing.T) {
		deleted := time.Now().Add(-40 * 24 * time.Hour)
		c.DeletedAt = &deleted
		require.NoError(t, contracts.Save(ctx, c))

		cutoff := contract.ExpiryCutoff(time.Now(), 0)
		all, err := contracts.FindExpiredTrash(ctx, cutoff, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		none, err := contracts.FindExpiredTrash(ctx, cutoff, []string{"alice"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("contract delete cascades to reminder history", func(t *testing.T) {
		require.NoError(t, contracts.Delete(ctx, c))
		_, err := contracts.Get(ctx, c.ID)
		assert.Error(t, err)

		rows, err := ledger.ListForContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("settings round trip", func(t *testing.T) {
		require.NoError(t, store.SetUser(ctx, "alice", "sort_by", "name"))
		require.NoError(t, store.SetUser(ctx, "alice", "sort_by", "cost"))
		v, err := store.GetUser(ctx, "alice", "sort_by", "endDate")
		require.NoError(t, err)
		assert.Equal(t, "cost", v)
	})
}

//Personal.AI order the ending
