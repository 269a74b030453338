// The initialization package contains functions that set up required dependencies such as the SQLite database.
package initialization

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/sqlite3"
	_ "github.com/golang-migrate/migrate/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/utils"
)

// SetupDB creates the database, if it does not yet exist, and applies all remaining migrations.
func SetupDB(cfg *config.Configuration, db *sql.DB, folder, dbname string) error {
	log.Info().Msg("starting migrations")
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		log.Error().Err(err).Msg("failed to create sqlite3 migration driver")
		return err
	}

	mig, err := migrate.NewWithDatabaseInstance(
		"file://"+folder,
		dbname,
		driver,
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Migrate object")
		return err
	}

	if err = mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Error().Err(err).Msg("failed to run migrations")
		return err
	}
	return nil
}

func OpenDB(connString string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", connString)
	if err != nil {
		log.Error().Err(err).Str("connection string", connString).Msg("failed to open database")
	}
	return db, err
}

// InitQueue connects backlite to its own task tables and installs them if
// needed.
func InitQueue(cfg *config.Configuration, db *sql.DB) (*backlite.Client, error) {
	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    10 * time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		return nil, err
	}

	if err = client.Install(); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureInstance creates the instance-level application actor on first start:
// the account behind the server's root uri, with a fresh keypair.
func EnsureInstance(ctx context.Context, db *sql.DB, cfg *config.Configuration) error {
	row := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT TRUE FROM accounts WHERE uri = ?)`, cfg.Url.String())
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Info().Msg("inserting server data into the database")
	pub, priv, err := utils.GenerateKeysPem(cfg.RsaKeySize)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = db.ExecContext(ctx, `
		INSERT INTO accounts (username, host, uri, inbox, shared_inbox, public_key, private_key, created, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.Name, cfg.Domain, cfg.Url.String(),
		cfg.Url.JoinPath("ap", "inbox").String(),
		cfg.Url.JoinPath("ap", "inbox").String(),
		pub, priv, now, now,
	)
	if err != nil {
		log.Error().Err(err).Msg("insert failed")
	}
	return err
}
