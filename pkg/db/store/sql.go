package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/sham/pkg/db/migrations"
	"github.com/mwantia/sham/pkg/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

var _ MetadataStore = (*SQLStore)(nil)

// SQLStore implements MetadataStore on top of GORM
type SQLStore struct {
	db     *gorm.DB
	dbType string
}

// Config holds the connection settings of the metadata store
type Config struct {
	Type        string
	SQLitePath  string
	PostgresDSN string
	LogLevel    logger.LogLevel
	// Logger overrides the default GORM logger when set
	Logger logger.Interface
}

// NewSQLStore opens a metadata store for the configured database type
func NewSQLStore(cfg Config) (*SQLStore, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(cfg.Type) {
	case "", TypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		cfg.Type = TypeSQLite
		if err := ensureSQLiteDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	case TypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		cfg.Type = TypePostgres
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported metadata store type '%s'", cfg.Type)
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: cfg.Logger.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	return &SQLStore{
		db:     db,
		dbType: cfg.Type,
	}, nil
}

// SQLiteDSN enables foreign keys on every connection; sqlite leaves them off
// by default. Transactions take the write lock at BEGIN so competing writers
// wait out the busy timeout instead of failing on a lock upgrade.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "foreign_keys") {
		return path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// ensureSQLiteDir creates the parent directory of a file-backed database.
func ensureSQLiteDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") || strings.Contains(path, "mode=memory") {
		return nil
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// DB returns the underlying GORM database instance
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

// Migrator returns a schema migrator bound to this store
func (s *SQLStore) Migrator() *migrations.Migrator {
	return migrations.NewMigrator(s.db)
}

// Connect initializes the database connection
func (s *SQLStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if s.dbType == TypeSQLite {
		sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
		sqlDB.SetMaxIdleConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate brings the schema to the latest version
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.Migrator().Migrate(ctx)
}

// Health checks database connectivity
func (s *SQLStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Asset operations

func (s *SQLStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return classify(s.db.WithContext(ctx).Create(asset).Error, "failed to insert asset")
}

// GetAsset returns a visible asset; rows still behind the deleted barrier are not found.
func (s *SQLStore) GetAsset(ctx context.Context, id uint) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&asset).Error
	if err != nil {
		return nil, classify(err, "failed to get asset %d", id)
	}
	return &asset, nil
}

func (s *SQLStore) ListAssets(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	assets := []models.Asset{}
	query := s.db.WithContext(ctx).Where("deleted = ?", false)

	if tagIDs := uniqueIDs(filter.TagIDs); len(tagIDs) > 0 {
		tagged := s.db.Model(&models.AssetTag{}).
			Select("asset_id").
			Where("tag_id IN ?", tagIDs).
			Group("asset_id").
			Having("COUNT(DISTINCT tag_id) = ?", len(tagIDs))
		query = query.Where("id IN (?)", tagged)
	}

	err := query.Order("id ASC").Find(&assets).Error
	return assets, classify(err, "failed to list assets")
}

func (s *SQLStore) SetAssetDeleted(ctx context.Context, id uint, deleted bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ?", id).
		Update("deleted", deleted)
	if result.Error != nil {
		return classify(result.Error, "failed to update asset %d", id)
	}

	if result.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "failed to update asset %d", id)
	}
	return nil
}

// Tag operations

func (s *SQLStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	return classify(s.db.WithContext(ctx).Create(tag).Error, "failed to insert tag %s=%s", tag.Key, tag.Value)
}

func (s *SQLStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.WithContext(ctx).Order("id ASC").Find(&tags).Error
	return tags, classify(err, "failed to list tags")
}

// Asset tag operations

func (s *SQLStore) AttachTag(ctx context.Context, assetID, tagID uint) error {
	err := s.db.WithContext(ctx).Create(&models.AssetTag{
		AssetID: assetID,
		TagID:   tagID,
	}).Error
	return classify(err, "failed to attach tag %d to asset %d", tagID, assetID)
}

// DetachTag removes the association if present; a missing one is not an error.
func (s *SQLStore) DetachTag(ctx context.Context, assetID, tagID uint) error {
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND tag_id = ?", assetID, tagID).
		Delete(&models.AssetTag{}).Error
	return classify(err, "failed to detach tag %d from asset %d", tagID, assetID)
}

func (s *SQLStore) GetAssetTagIDs(ctx context.Context, assetID uint) ([]uint, error) {
	var tagIDs []uint
	err := s.db.WithContext(ctx).
		Model(&models.AssetTag{}).
		Where("asset_id = ?", assetID).
		Order("tag_id ASC").
		Pluck("tag_id", &tagIDs).Error
	if err != nil {
		return nil, classify(err, "failed to get tags of asset %d", assetID)
	}

	if tagIDs == nil {
		tagIDs = []uint{}
	}
	return tagIDs, nil
}

func (s *SQLStore) ListAssetTags(ctx context.Context) ([]models.AssetTag, error) {
	assetTags := []models.AssetTag{}
	err := s.db.WithContext(ctx).Order("asset_id ASC, tag_id ASC").Find(&assetTags).Error
	return assetTags, classify(err, "failed to list asset tags")
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
