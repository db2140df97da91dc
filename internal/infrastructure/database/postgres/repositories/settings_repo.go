package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/settings"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type postgresSettingsStore struct {
	baseRepo
}

// NewPostgresSettingsStore returns a settings.Store over the app_settings and
// user_settings tables.
func NewPostgresSettingsStore(conn *postgres.Connection, log logging.Logger, opts ...Option) settings.Store {
	return &postgresSettingsStore{baseRepo: newBaseRepo(conn, log, opts)}
}

func (r *postgresSettingsStore) GetGlobal(ctx context.Context, key, def string) (value string, err error) {
	defer r.observe("settings_get_global", time.Now(), &err)
	row := r.executor().QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = $1`, key)
	return scanSetting(row, def)
}

func (r *postgresSettingsStore) SetGlobal(ctx context.Context, key, value string) (err error) {
	defer r.observe("settings_set_global", time.Now(), &err)
	query := `
		INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err = r.executor().ExecContext(ctx, query, key, value); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to store setting").WithDetail(key)
	}
	return nil
}

func (r *postgresSettingsStore) GetUser(ctx context.Context, userID, key, def string) (value string, err error) {
	defer r.observe("settings_get_user", time.Now(), &err)
	row := r.executor().QueryRowContext(ctx, `SELECT value FROM user_settings WHERE user_id = $1 AND key = $2`, userID, key)
	return scanSetting(row, def)
}

func (r *postgresSettingsStore) SetUser(ctx context.Context, userID, key, value string) (err error) {
	defer r.observe("settings_set_user", time.Now(), &err)
	query := `
		INSERT INTO user_settings (user_id, key, value, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err = r.executor().ExecContext(ctx, query, userID, key, value); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to store user setting").WithDetail(key)
	}
	return nil
}

// scanSetting returns def when the key has never been written.
func scanSetting(row scanner, def string) (string, error) {
	var value string
	if err := row.Scan(&value); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return "", errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read setting")
	}
	return value, nil
}

//Personal.AI order the ending
