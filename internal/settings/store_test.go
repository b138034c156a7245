package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hq/meridian-admin/internal/cache"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

type memorySettingsRepo struct {
	values map[string]Setting
	reads  int
}

func newMemorySettingsRepo() *memorySettingsRepo {
	return &memorySettingsRepo{values: make(map[string]Setting)}
}

func (m *memorySettingsRepo) GetSetting(_ context.Context, key string) (Setting, error) {
	m.reads++
	setting, ok := m.values[key]
	if !ok {
		return Setting{}, shared.ErrNotFound
	}
	return setting, nil
}

func (m *memorySettingsRepo) ListSettings(context.Context) ([]Setting, error) {
	out := make([]Setting, 0, len(m.values))
	for _, key := range orderedKeys() {
		if setting, ok := m.values[key]; ok {
			out = append(out, setting)
		}
	}
	return out, nil
}

func (m *memorySettingsRepo) UpsertSetting(_ context.Context, key, value, typ string) error {
	m.values[key] = Setting{Key: key, Value: value, Type: typ, UpdatedAt: time.Now()}
	return nil
}

func newTestStore(t *testing.T) (*Store, *memorySettingsRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemorySettingsRepo()
	return NewStore(repo, cache.NewRedis(client), nil), repo, mr
}

func TestGetFallsBackToDefault(t *testing.T) {
	store, _, _ := newTestStore(t)
	assert.Equal(t, "UTC", store.Get(context.Background(), KeyTimezone))
	assert.Equal(t, 20, store.Int(context.Background(), KeyItemsPerPage))
	assert.False(t, store.Bool(context.Background(), KeyAllowRegistration))
}

func TestGetServesSecondReadFromCache(t *testing.T) {
	store, repo, _ := newTestStore(t)
	require.NoError(t, repo.UpsertSetting(context.Background(), KeyCompanyName, "Acme", TypeString))
	repo.reads = 0

	assert.Equal(t, "Acme", store.Get(context.Background(), KeyCompanyName))
	assert.Equal(t, "Acme", store.Get(context.Background(), KeyCompanyName))
	assert.Equal(t, 1, repo.reads, "second read must hit the mirror")
}

func TestTypedAccessors(t *testing.T) {
	store, repo, _ := newTestStore(t)
	require.NoError(t, repo.UpsertSetting(context.Background(), KeyItemsPerPage, "50", TypeInteger))
	require.NoError(t, repo.UpsertSetting(context.Background(), KeyAllowRegistration, "true", TypeBoolean))

	assert.Equal(t, 50, store.Int(context.Background(), KeyItemsPerPage))
	assert.True(t, store.Bool(context.Background(), KeyAllowRegistration))
}

func TestSetValidatesTypeAndKey(t *testing.T) {
	store, _, _ := newTestStore(t)

	err := store.Set(context.Background(), KeyItemsPerPage, "not-a-number")
	assert.Equal(t, shared.KindValidationFailed, shared.KindOf(err))

	err = store.Set(context.Background(), KeyAllowRegistration, "maybe")
	assert.Equal(t, shared.KindValidationFailed, shared.KindOf(err))

	err = store.Set(context.Background(), KeyFeatureFlags, "{not json")
	assert.Equal(t, shared.KindValidationFailed, shared.KindOf(err))

	err = store.Set(context.Background(), "favorite_color", "blue")
	assert.Equal(t, shared.KindValidationFailed, shared.KindOf(err))
}

func TestJSONAccessor(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), KeyFeatureFlags, `{"beta_dashboard":true}`))

	flags := map[string]bool{}
	require.NoError(t, store.JSON(context.Background(), KeyFeatureFlags, &flags))
	assert.True(t, flags["beta_dashboard"])

	// Unwritten key decodes the default.
	empty := map[string]bool{}
	store2, _, _ := newTestStore(t)
	require.NoError(t, store2.JSON(context.Background(), KeyFeatureFlags, &empty))
	assert.Empty(t, empty)
}

func TestSetInvalidatesMirror(t *testing.T) {
	store, _, _ := newTestStore(t)

	require.NoError(t, store.Set(context.Background(), KeyCompanyName, "Acme"))
	assert.Equal(t, "Acme", store.Get(context.Background(), KeyCompanyName))

	require.NoError(t, store.Set(context.Background(), KeyCompanyName, "Meridian HQ"))
	assert.Equal(t, "Meridian HQ", store.Get(context.Background(), KeyCompanyName),
		"stale mirror entry must be dropped on write")
}

func TestAllOverlaysStoredOnDefaults(t *testing.T) {
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), KeyCurrency, "EUR"))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, len(Vocabulary()))

	values := make(map[string]string, len(all))
	for _, setting := range all {
		values[setting.Key] = setting.Value
	}
	assert.Equal(t, "EUR", values[KeyCurrency])
	assert.Equal(t, "UTC", values[KeyTimezone], "unwritten keys surface their defaults")
}

func TestCacheExpiryRefetches(t *testing.T) {
	store, repo, mr := newTestStore(t)
	require.NoError(t, repo.UpsertSetting(context.Background(), KeyCompanyName, "Acme", TypeString))

	assert.Equal(t, "Acme", store.Get(context.Background(), KeyCompanyName))
	repo.values[KeyCompanyName] = Setting{Key: KeyCompanyName, Value: "Acme 2", Type: TypeString}

	mr.FastForward(SettingTTL + time.Minute)
	assert.Equal(t, "Acme 2", store.Get(context.Background(), KeyCompanyName))
}
