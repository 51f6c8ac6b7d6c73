package migrations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mwantia/sham/pkg/fault"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB creates an isolated in-memory sqlite database.
func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		require.NoError(t, sqlDB.Close())
	})

	return db
}

func countVersions(t *testing.T, db *gorm.DB) int64 {
	var count int64
	require.NoError(t, db.Table("_schema_version").Count(&count).Error)
	return count
}

func TestMigrationsAreIndexed(t *testing.T) {
	migrations := allMigrations()
	require.NotEmpty(t, migrations)

	for i, migration := range migrations {
		require.Equal(t, i, migration.Version, "step %q is out of order", migration.Description)
	}
}

func TestMigrateFreshDatabase(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	m := NewMigrator(db)

	require.NoError(t, m.Migrate(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, len(allMigrations())-1, version)
	require.Equal(t, 5, version)

	for _, table := range []string{"asset", "tag", "associated_tag", "asset_tag", "_schema_version"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	require.False(t, db.Migrator().HasIndex("tag", "tag_key_value_key"))
	require.True(t, db.Migrator().HasIndex("tag", "tag_key_value_linked_asset_id_key"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, NewMigrator(db).Migrate(ctx))
	first := countVersions(t, db)

	require.NoError(t, NewMigrator(db).Migrate(ctx))
	require.Equal(t, first, countVersions(t, db))

	version, err := NewMigrator(db).Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, version)
}

func TestMigratePartiallyUpgraded(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	partial := &Migrator{db: db, migrations: allMigrations()[:3]}
	require.NoError(t, partial.Migrate(ctx))

	version, err := partial.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, version)
	require.True(t, db.Migrator().HasIndex("tag", "tag_key_value_key"))
	require.False(t, db.Migrator().HasTable("asset_tag"))

	require.NoError(t, NewMigrator(db).Migrate(ctx))

	version, err = NewMigrator(db).Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, version)
	require.True(t, db.Migrator().HasTable("asset_tag"))
}

func TestMigrateDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, NewMigrator(db).Migrate(ctx))

	// a build that lost its last steps
	truncated := &Migrator{db: db, migrations: allMigrations()[:4]}
	err := truncated.Migrate(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, fault.ErrConfigDivergence))
}

func TestMigrateFailedStepIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	broken := append(allMigrations(), Migration{
		Version:     6,
		Description: "Broken step",
		Up: func(db *gorm.DB) error {
			return exec(db,
				`CREATE TABLE half_done (id INTEGER)`,
				`CREATE TABLE asset (id INTEGER)`)
		},
	})

	err := (&Migrator{db: db, migrations: broken}).Migrate(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "migration 6 (Broken step) failed")

	version, err := NewMigrator(db).Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, version)
	require.False(t, db.Migrator().HasTable("half_done"))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	statuses, err := NewMigrator(db).Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 6)
	for _, status := range statuses {
		require.False(t, status.Applied)
	}

	require.NoError(t, (&Migrator{db: db, migrations: allMigrations()[:2]}).Migrate(ctx))

	statuses, err = NewMigrator(db).Status(ctx)
	require.NoError(t, err)
	require.True(t, statuses[0].Applied)
	require.True(t, statuses[1].Applied)
	require.False(t, statuses[2].Applied)
	require.Equal(t, "Create tag table", statuses[2].Description)
}

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestMigratePostgresUpToDate(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM _schema_version`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(5))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM _schema_version`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(5))

	require.NoError(t, NewMigrator(db).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratePostgresAheadOfBuild(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM _schema_version`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM _schema_version`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))

	err := NewMigrator(db).Migrate(context.Background())
	require.True(t, errors.Is(err, fault.ErrConfigDivergence))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVersionTablePostgresTakesLock(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS _schema_version`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO _schema_version .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewMigrator(db).createVersionTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSerialPrimaryKeyPerDialect(t *testing.T) {
	pg, _ := newMockPostgres(t)
	require.Equal(t, "SERIAL PRIMARY KEY", serialPrimaryKey(pg))
	require.Equal(t, "INTEGER PRIMARY KEY AUTOINCREMENT", serialPrimaryKey(newTestDB(t)))
}
