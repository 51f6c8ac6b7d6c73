package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mwantia/sham/pkg/blob"
	"github.com/mwantia/sham/pkg/db/models"
	"github.com/mwantia/sham/pkg/db/store"
	"github.com/mwantia/sham/pkg/fault"
	"github.com/mwantia/sham/pkg/log"
	"github.com/stretchr/testify/require"

	config "github.com/mwantia/sham/internal/config/server"
)

type testEnv struct {
	root     string
	metadata *store.SQLStore
	service  *Service
}

func newTestLogger() log.LoggerService {
	return log.NewLoggerService("test", config.LogServerConfig{
		Level:      "ERROR",
		TimeFormat: "15:04:05",
		NoColor:    true,
	})
}

// newTestEnv wires a service to an in-memory sqlite store and a temporary asset directory.
func newTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()

	metadata, err := store.NewSQLStore(store.Config{
		Type:       store.TypeSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, metadata.Connect(ctx))
	require.NoError(t, metadata.Migrate(ctx))
	t.Cleanup(func() {
		require.NoError(t, metadata.Close())
	})

	root := t.TempDir()
	return &testEnv{
		root:     root,
		metadata: metadata,
		service:  NewService(metadata, blob.NewStore(root), newTestLogger(), 0),
	}
}

func scratchFiles(t *testing.T, root string) []os.DirEntry {
	entries, err := os.ReadDir(filepath.Join(root, blob.TempDirName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestCreateGetListScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	assets, err := env.service.List(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Empty(t, assets)

	id, err := env.service.Create(ctx, "My file name", []byte("12345"))
	require.NoError(t, err)
	require.Equal(t, uint(1), id)

	data, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte("12345"), data)

	assets, err = env.service.List(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Equal(t, []models.Asset{{ID: 1, Name: "My file name"}}, assets)

	id, err = env.service.Create(ctx, "Another Asset", []byte("24601"))
	require.NoError(t, err)
	require.Equal(t, uint(2), id)

	assets, err = env.service.List(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, uint(1), assets[0].ID)
	require.Equal(t, uint(2), assets[1].ID)

	require.Empty(t, scratchFiles(t, env.root))
	require.FileExists(t, blob.PathFor(env.root, 2))
}

func TestCreateSanitizesName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.service.Create(ctx, "my_file_name.foo\x07", []byte("data"))
	require.NoError(t, err)

	assets, err := env.service.List(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Equal(t, id, assets[0].ID)
	require.Equal(t, "my_file_name_foo_", assets[0].Name)
}

func TestCreateEmptyPayload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.service.Create(ctx, "empty", nil)
	require.NoError(t, err)

	data, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestCreateRejectsOversizedPayload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.service.Create(ctx, "big", make([]byte, 50_000_001))
	require.Error(t, err)
	require.True(t, fault.IsPayloadTooLarge(err))

	require.Nil(t, scratchFiles(t, env.root))
	assets, err := env.metadata.ListAssets(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Empty(t, assets)

	// the limit itself is accepted
	small := NewService(env.metadata, blob.NewStore(env.root), newTestLogger(), 4)
	_, err = small.Create(ctx, "four", []byte("1234"))
	require.NoError(t, err)
	_, err = small.Create(ctx, "five", []byte("12345"))
	require.True(t, fault.IsPayloadTooLarge(err))
}

type failingStore struct {
	store.MetadataStore
	err error
}

func (f *failingStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return f.err
}

func TestCreateDiscardsScratchFileOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	dbErr := fault.Wrap(fault.ErrDB, errors.New("connection reset"), "failed to insert asset")
	service := NewService(&failingStore{MetadataStore: env.metadata, err: dbErr}, blob.NewStore(env.root), newTestLogger(), 0)

	_, err := service.Create(ctx, "name", []byte("payload"))
	require.ErrorIs(t, err, fault.ErrDB)
	require.Empty(t, scratchFiles(t, env.root))
}

func TestIDsIncreaseUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const n = 8
	var wg sync.WaitGroup
	ids := make([]uint, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = env.service.Create(ctx, fmt.Sprintf("asset %d", i), []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	seen := map[uint]int{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		seen[ids[i]] = i
	}
	require.Len(t, seen, n)

	for id, i := range seen {
		data, err := env.service.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, data)
	}
}

func TestGetHiddenOrUnknownAsset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.service.Get(ctx, 1)
	require.True(t, fault.IsNotFound(err))

	hidden := &models.Asset{Name: "pending", Deleted: true}
	require.NoError(t, env.metadata.CreateAsset(ctx, hidden))

	_, err = env.service.Get(ctx, hidden.ID)
	require.True(t, fault.IsNotFound(err))
}

func TestGetVisibleAssetWithoutContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	asset := &models.Asset{Name: "lost", Deleted: true}
	require.NoError(t, env.metadata.CreateAsset(ctx, asset))
	require.NoError(t, env.metadata.SetAssetDeleted(ctx, asset.ID, false))

	_, err := env.service.Get(ctx, asset.ID)
	require.ErrorIs(t, err, fault.ErrIO)
	require.False(t, fault.IsNotFound(err))
}

func TestDeleteHidesAsset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.service.Create(ctx, "doomed", []byte("bytes"))
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(ctx, id))

	_, err = env.service.Get(ctx, id)
	require.True(t, fault.IsNotFound(err))

	assets, err := env.service.List(ctx, models.AssetFilter{})
	require.NoError(t, err)
	require.Empty(t, assets)

	// content is retained
	require.FileExists(t, blob.PathFor(env.root, id))

	err = env.service.Delete(ctx, id)
	require.True(t, fault.IsNotFound(err))
}

func TestTagLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	category, err := env.service.CreateTag(ctx, "Category", "nature", nil)
	require.NoError(t, err)
	require.Equal(t, uint(1), category)

	first, err := env.service.Create(ctx, "chapter1", []byte("neature is neat"))
	require.NoError(t, err)
	second, err := env.service.Create(ctx, "chapter2", []byte("neature is really neat"))
	require.NoError(t, err)

	next, err := env.service.CreateTag(ctx, "next_chapter", "", &second)
	require.NoError(t, err)
	require.Equal(t, uint(2), next)

	_, err = env.service.CreateTag(ctx, "next_chapter", "", &second)
	require.True(t, fault.IsConstraintViolation(err))

	_, err = env.service.CreateTag(ctx, "next_chapter", "", &first)
	require.NoError(t, err)

	require.NoError(t, env.service.AttachTag(ctx, first, next))
	require.True(t, fault.IsConstraintViolation(env.service.AttachTag(ctx, first, next)))

	tagIDs, err := env.service.TagsForAsset(ctx, first)
	require.NoError(t, err)
	require.Equal(t, []uint{next}, tagIDs)

	pairs, err := env.service.ListAssetTags(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.AssetTag{{AssetID: first, TagID: next}}, pairs)

	require.NoError(t, env.service.DetachTag(ctx, first, next))
	require.NoError(t, env.service.DetachTag(ctx, first, next))

	tagIDs, err = env.service.TagsForAsset(ctx, first)
	require.NoError(t, err)
	require.Empty(t, tagIDs)

	tags, err := env.service.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	require.Equal(t, "Category", tags[0].Key)
	require.Equal(t, second, *tags[1].LinkedAssetID)
}
