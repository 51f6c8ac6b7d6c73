package store

import (
	"context"

	"github.com/mwantia/sham/pkg/db/models"
)

// MetadataStore defines the interface for database operations
type MetadataStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Asset operations
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id uint) (*models.Asset, error)
	ListAssets(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error)
	SetAssetDeleted(ctx context.Context, id uint, deleted bool) error

	// Tag operations
	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context) ([]models.Tag, error)

	// Asset tag operations
	AttachTag(ctx context.Context, assetID, tagID uint) error
	DetachTag(ctx context.Context, assetID, tagID uint) error
	GetAssetTagIDs(ctx context.Context, assetID uint) ([]uint, error)
	ListAssetTags(ctx context.Context) ([]models.AssetTag, error)
}
