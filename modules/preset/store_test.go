package preset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

func newStoredPreset(t *testing.T, store *MemoryStore, name, locale string) *model.Preset {
	t.Helper()

	svc := NewService(store)
	p, err := svc.CreatePreset(context.Background(), CreatePresetRequest{
		Name:   name,
		Config: model.LocaleConfig{TargetLocale: locale},
	})
	require.NoError(t, err)
	return p
}

func TestMemoryStore_Create_RejectsDuplicateName(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	newStoredPreset(t, store, "korea-neon", "ko-KR")

	_, err := svc.CreatePreset(ctx, CreatePresetRequest{
		Name:   "korea-neon",
		Config: model.LocaleConfig{TargetLocale: "ja-JP"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateName))

	stored, err := store.GetByName(ctx, "korea-neon")
	require.NoError(t, err)
	assert.Equal(t, "ko-KR", stored.Config.TargetLocale, "original config must survive the duplicate attempt")
}

func TestMemoryStore_Update_ReplacesConfig(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created := newStoredPreset(t, store, "japan-launch", "ja-JP")

	updated, err := store.Update(ctx, "japan-launch", model.LocaleConfig{
		TargetLocale:   "ja-JP",
		RemoveBranding: true,
	})
	require.NoError(t, err)
	assert.True(t, updated.Config.RemoveBranding)
	assert.Equal(t, created.ID, updated.ID)
	assert.False(t, updated.UpdatedAt.Before(created.CreatedAt))
}

func TestMemoryStore_Update_UnknownName(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Update(context.Background(), "ghost", model.LocaleConfig{TargetLocale: "ko-KR"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMemoryStore_Delete_UnknownName(t *testing.T) {
	store := NewMemoryStore()

	err := store.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMemoryStore_Delete_FreesName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	newStoredPreset(t, store, "seasonal", "ko-KR")
	require.NoError(t, store.Delete(ctx, "seasonal"))

	available, err := store.NameAvailable(ctx, "seasonal")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestMemoryStore_GetByName_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	svc := NewService(store)
	_, err := svc.CreatePreset(ctx, CreatePresetRequest{
		Name: "logo-preset",
		Config: model.LocaleConfig{
			TargetLocale: "ko-KR",
			AttachLogo:   true,
			LogoData:     []byte{0x89, 0x50, 0x4E, 0x47},
		},
	})
	require.NoError(t, err)

	first, err := store.GetByName(ctx, "logo-preset")
	require.NoError(t, err)
	first.Config.TargetLocale = "mutated"
	first.Config.LogoData[0] = 0xFF

	second, err := store.GetByName(ctx, "logo-preset")
	require.NoError(t, err)
	assert.Equal(t, "ko-KR", second.Config.TargetLocale)
	assert.Equal(t, byte(0x89), second.Config.LogoData[0])
}

func TestMemoryStore_GetByID_FindsPreset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created := newStoredPreset(t, store, "by-id", "en-US")

	found, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "by-id", found.Name)

	_, err = store.GetByID(ctx, "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMemoryStore_List_ReturnsSummaries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	newStoredPreset(t, store, "alpha", "ko-KR")
	newStoredPreset(t, store, "beta", "ja-JP")

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	names := []string{summaries[0].Name, summaries[1].Name}
	assert.Contains(t, names, "alpha")
	assert.Contains(t, names, "beta")
	for _, s := range summaries {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.TargetLocale)
	}
}

func TestMemoryStore_NameAvailable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	available, err := store.NameAvailable(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, available)

	newStoredPreset(t, store, "fresh", "ko-KR")

	available, err = store.NameAvailable(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, available)
}
