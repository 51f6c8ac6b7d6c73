package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mwantia/sham/pkg/db/models"
	"github.com/mwantia/sham/pkg/fault"
	"gorm.io/gorm"
)

// migrationLockID is the postgres advisory lock key held while the schema changes.
const migrationLockID = 0x7368616d

// Migration represents one forward-only schema step.
//
// Steps are append-only and must never be edited once shipped: the recorded
// version is the index of the last applied step, not a content hash.
type Migration struct {
	Version     int
	Description string
	Up          func(*gorm.DB) error
}

// Migrator brings a database to the latest schema version
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: allMigrations(),
	}
}

// Latest returns the version of the last known migration.
func (m *Migrator) Latest() int {
	return m.migrations[len(m.migrations)-1].Version
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate(ctx context.Context) error {
	if !m.db.WithContext(ctx).Migrator().HasTable(&models.SchemaVersion{}) {
		if err := m.createVersionTable(ctx); err != nil {
			return fmt.Errorf("failed to create schema version table: %w", err)
		}
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}

		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}

	if version != m.Latest() {
		return fmt.Errorf("%w: database is at version %d, latest known migration is %d",
			fault.ErrConfigDivergence, version, m.Latest())
	}

	return nil
}

// Version returns the highest applied migration, or -1 if none is recorded.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	version, err := currentVersion(m.db.WithContext(ctx))
	if err != nil {
		return -1, fmt.Errorf("failed to query schema version: %w", err)
	}

	return version, nil
}

// Status returns migration status
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	appliedVersions := make(map[int]bool)

	if m.db.WithContext(ctx).Migrator().HasTable(&models.SchemaVersion{}) {
		var applied []models.SchemaVersion
		if err := m.db.WithContext(ctx).Find(&applied).Error; err != nil {
			return nil, fmt.Errorf("failed to query schema versions: %w", err)
		}

		for _, a := range applied {
			appliedVersions[a.Version] = true
		}
	}

	var statuses []MigrationStatus
	for _, migration := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     appliedVersions[migration.Version],
		})
	}

	return statuses, nil
}

func (m *Migrator) createVersionTable(ctx context.Context) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Concurrent CREATE TABLE IF NOT EXISTS can still collide in the postgres catalog
		if err := lockMigrations(tx); err != nil {
			return err
		}

		if err := tx.Exec(`CREATE TABLE IF NOT EXISTS _schema_version (
			version INTEGER PRIMARY KEY
		)`).Error; err != nil {
			return err
		}

		return tx.Exec("INSERT INTO _schema_version (version) VALUES (?) ON CONFLICT DO NOTHING", 0).Error
	})
}

func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}

		// A competing migrator may have applied this step while we waited
		current, err := currentVersion(tx)
		if err != nil {
			return err
		}
		if current >= migration.Version {
			return nil
		}

		if migration.Up != nil {
			if err := migration.Up(tx); err != nil {
				return err
			}
		}

		return tx.Exec("INSERT INTO _schema_version (version) VALUES (?)", migration.Version).Error
	})
}

// lockMigrations serializes migrators on postgres until tx ends. sqlite
// connections already take the write lock at BEGIN.
func lockMigrations(tx *gorm.DB) error {
	if !isPostgres(tx) {
		return nil
	}

	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockID).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return nil
}

func currentVersion(db *gorm.DB) (int, error) {
	var version sql.NullInt64
	if err := db.Raw("SELECT MAX(version) FROM _schema_version").Row().Scan(&version); err != nil {
		return -1, err
	}

	if !version.Valid {
		return -1, nil
	}

	return int(version.Int64), nil
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// serialPrimaryKey is the only dialect-dependent piece of the schema.
func serialPrimaryKey(db *gorm.DB) string {
	if isPostgres(db) {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func exec(db *gorm.DB, statements ...string) error {
	for _, statement := range statements {
		if err := db.Exec(strings.TrimSpace(statement)).Error; err != nil {
			return err
		}
	}
	return nil
}

// allMigrations returns all migrations in order. Append only.
func allMigrations() []Migration {
	return []Migration{
		{
			Version:     0,
			Description: "Baseline",
		},
		{
			Version:     1,
			Description: "Create asset table",
			Up: func(db *gorm.DB) error {
				return exec(db, fmt.Sprintf(`
					CREATE TABLE asset (
						id %s,
						name TEXT NOT NULL,
						deleted BOOLEAN NOT NULL
					)`, serialPrimaryKey(db)))
			},
		},
		{
			// value may be an empty string, it is never null
			Version:     2,
			Description: "Create tag table",
			Up: func(db *gorm.DB) error {
				return exec(db, fmt.Sprintf(`
					CREATE TABLE tag (
						id %s,
						key TEXT NOT NULL,
						value TEXT NOT NULL,
						linked_asset_id INTEGER REFERENCES asset(id)
					)`, serialPrimaryKey(db)),
					`CREATE UNIQUE INDEX tag_key_value_key ON tag (key, value)`)
			},
		},
		{
			// Setting implied_by also applies implies, e.g. "dog" -> "animal"
			Version:     3,
			Description: "Create associated_tag table",
			Up: func(db *gorm.DB) error {
				return exec(db, `
					CREATE TABLE associated_tag (
						implied_by INTEGER NOT NULL REFERENCES tag(id),
						implies INTEGER NOT NULL REFERENCES tag(id),
						PRIMARY KEY (implied_by, implies),
						CHECK (implied_by <> implies)
					)`)
			},
		},
		{
			Version:     4,
			Description: "Create asset_tag table",
			Up: func(db *gorm.DB) error {
				return exec(db, `
					CREATE TABLE asset_tag (
						asset_id INTEGER NOT NULL REFERENCES asset(id),
						tag_id INTEGER NOT NULL REFERENCES tag(id),
						PRIMARY KEY (asset_id, tag_id)
					)`)
			},
		},
		{
			// A null linked asset is one distinct global slot; asset ids start at 1
			Version:     5,
			Description: "Make tag unique on (key, value, linked_asset_id)",
			Up: func(db *gorm.DB) error {
				return exec(db,
					`DROP INDEX tag_key_value_key`,
					`CREATE UNIQUE INDEX tag_key_value_linked_asset_id_key
						ON tag (key, value, COALESCE(linked_asset_id, 0))`)
			},
		},
	}
}
