package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/innoguard/internal/model"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)

	require.NoError(t, store.Save(ctx, "abc", &model.Session{Token: "tok-1", Role: model.RoleResearcher}))

	sess, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, model.RoleResearcher, sess.Role)

	require.NoError(t, store.Save(ctx, "abc", &model.Session{Token: "tok-2", Role: model.RoleDeveloper}))
	sess, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", sess.Token)
	assert.Equal(t, model.RoleDeveloper, sess.Role)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", &model.Session{Token: "A", Role: model.RoleClinician}))
	_, err := store.Load(ctx, "b")
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	exerciseStore(t, NewFileStore(path))
}

func TestFileStore_MissingFileIsNoSession(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
	_, err := store.Load(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStoreWithClient(client, "test:", time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), "xyz", &model.Session{Token: "t", Role: model.RoleClinician}))
	assert.Equal(t, "t", mr.HGet("test:xyz", KeyToken))
	assert.Equal(t, "clinician", mr.HGet("test:xyz", KeyRole))
	assert.True(t, mr.TTL("test:xyz") > 0)
}

func TestStaticSource(t *testing.T) {
	_, err := Static(nil).Session(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)

	_, err = Static(&model.Session{Role: model.RoleClinician}).Session(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionMissing)

	sess, err := Static(&model.Session{Token: "x"}).Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", sess.Token)
}

func TestBind(t *testing.T) {
	store := NewMemoryStore(0)
	require.NoError(t, store.Save(context.Background(), "id", &model.Session{Token: "x", Role: model.RoleDeveloper}))

	sess, err := Bind(store, "id").Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoleDeveloper, sess.Role)
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "researcher",
		"exp":  exp.Unix(),
	}).SignedString([]byte("secret-the-client-never-sees"))
	require.NoError(t, err)

	claims, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "researcher", claims.Role)

	got, ok := ExpiresAt(token)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, err = Inspect("not-a-jwt")
	assert.Error(t, err)
	_, ok = ExpiresAt("not-a-jwt")
	assert.False(t, ok)
}
