package assets

import (
	"context"
	"fmt"

	"github.com/mwantia/sham/pkg/blob"
	"github.com/mwantia/sham/pkg/db/models"
	"github.com/mwantia/sham/pkg/db/store"
	"github.com/mwantia/sham/pkg/fault"
	"github.com/mwantia/sham/pkg/log"
)

// DefaultMaxPayloadSize is the upload ceiling in bytes.
const DefaultMaxPayloadSize int64 = 50_000_000

// Service coordinates the blob store and the metadata store. It is the only
// component that touches both.
type Service struct {
	metadata       store.MetadataStore
	blobs          *blob.Store
	log            log.LoggerService
	maxPayloadSize int64
}

func NewService(metadata store.MetadataStore, blobs *blob.Store, logger log.LoggerService, maxPayloadSize int64) *Service {
	if maxPayloadSize <= 0 {
		maxPayloadSize = DefaultMaxPayloadSize
	}

	return &Service{
		metadata:       metadata,
		blobs:          blobs,
		log:            logger,
		maxPayloadSize: maxPayloadSize,
	}
}

// MaxPayloadSize returns the largest accepted upload in bytes.
func (s *Service) MaxPayloadSize() int64 {
	return s.maxPayloadSize
}

// Create stores data as a new asset and returns its id.
//
// The row is inserted hidden (deleted = true) before the content is moved to
// its final path and only revealed afterwards, so an observer never sees an
// asset that is listed but unreadable. A crash after the insert leaves a
// hidden row without content; a crash before it leaves a scratch file. Both
// are accepted leaks.
func (s *Service) Create(ctx context.Context, name string, data []byte) (uint, error) {
	if size := int64(len(data)); size > s.maxPayloadSize {
		return 0, fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes",
			fault.ErrPayloadTooLarge, size, s.maxPayloadSize)
	}

	sanitized := SanitizeName(name)

	tmp, err := s.blobs.WriteTemp(ctx, data)
	if err != nil {
		return 0, err
	}

	asset := &models.Asset{
		Name:    sanitized,
		Deleted: true,
	}
	if err := s.metadata.CreateAsset(ctx, asset); err != nil {
		s.discard(tmp)
		return 0, err
	}

	// The id exists now; finish even if the caller goes away.
	finish := context.WithoutCancel(ctx)

	if err := s.blobs.Commit(tmp, asset.ID); err != nil {
		s.log.Warn("Asset %d stays hidden, content could not be moved into place: %v", asset.ID, err)
		s.discard(tmp)
		return 0, err
	}

	if err := s.metadata.SetAssetDeleted(finish, asset.ID, false); err != nil {
		s.log.Warn("Asset %d stays hidden, failed to reveal it: %v", asset.ID, err)
		return 0, err
	}

	s.log.Debug("Created asset %d '%s' (%d bytes)", asset.ID, sanitized, len(data))
	return asset.ID, nil
}

// Get returns the content of a visible asset.
func (s *Service) Get(ctx context.Context, id uint) ([]byte, error) {
	if _, err := s.metadata.GetAsset(ctx, id); err != nil {
		return nil, err
	}

	data, err := s.blobs.Read(ctx, id)
	if err != nil {
		if fault.IsNotFound(err) {
			s.log.Error("Asset %d is visible but has no content at '%s'", id, blob.PathFor(s.blobs.Root(), id))
			return nil, fmt.Errorf("asset %d is visible but its content is missing: %w", id, fault.ErrIO)
		}
		return nil, err
	}

	return data, nil
}

// List returns visible assets in ascending id order.
func (s *Service) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	return s.metadata.ListAssets(ctx, filter)
}

// Delete hides an asset again. The content file and its tag associations are
// retained.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.metadata.GetAsset(ctx, id); err != nil {
		return err
	}

	if err := s.metadata.SetAssetDeleted(ctx, id, true); err != nil {
		return err
	}

	s.log.Debug("Deleted asset %d", id)
	return nil
}

// CreateTag creates an immutable tag, optionally scoped to a linked asset.
func (s *Service) CreateTag(ctx context.Context, key, value string, linkedAssetID *uint) (uint, error) {
	tag := &models.Tag{
		Key:           key,
		Value:         value,
		LinkedAssetID: linkedAssetID,
	}
	if err := s.metadata.CreateTag(ctx, tag); err != nil {
		return 0, err
	}

	return tag.ID, nil
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.metadata.ListTags(ctx)
}

func (s *Service) AttachTag(ctx context.Context, assetID, tagID uint) error {
	return s.metadata.AttachTag(ctx, assetID, tagID)
}

// DetachTag is idempotent; detaching an absent association succeeds.
func (s *Service) DetachTag(ctx context.Context, assetID, tagID uint) error {
	return s.metadata.DetachTag(ctx, assetID, tagID)
}

// TagsForAsset returns the ids of the tags directly attached to an asset.
// Implication edges are not resolved.
func (s *Service) TagsForAsset(ctx context.Context, assetID uint) ([]uint, error) {
	return s.metadata.GetAssetTagIDs(ctx, assetID)
}

func (s *Service) ListAssetTags(ctx context.Context) ([]models.AssetTag, error) {
	return s.metadata.ListAssetTags(ctx)
}

func (s *Service) discard(tmp string) {
	if err := s.blobs.Discard(tmp); err != nil {
		s.log.Warn("Failed to discard scratch file '%s': %v", tmp, err)
	}
}
