package demo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jywlabs/demogen/internal/config"
)

// backends returns one fresh store per local backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fileStore := NewFileStore(filepath.Join(t.TempDir(), "demos"))

	sqlStore, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "nested", "demos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	return map[string]Store{"file": fileStore, "sqlite": sqlStore}
}

func TestStore_SaveLoadIdentity(t *testing.T) {
	ctx := context.Background()
	code := "# comment\ndef fib(n):\n\treturn n  \n\nprint('<héllo & bye>')\n"

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			saved, err := store.Save(ctx, "Print fib", "1. compute\n2. print", code)
			require.NoError(t, err)
			assert.NotEmpty(t, saved.ID)

			loaded, err := store.Load(ctx, saved.ID)
			require.NoError(t, err)
			assert.Equal(t, saved, loaded)
			assert.Equal(t, code, loaded.Code)
		})
	}
}

func TestStore_RejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Save(ctx, "bytes", "d", "print('\xff\xfe')")
			require.ErrorIs(t, err, ErrInvalidRecord)
			assert.Contains(t, err.Error(), "code")

			_, err = store.Save(ctx, "caf\xe9", "d", "print(1)")
			assert.ErrorIs(t, err, ErrInvalidRecord)

			demos, err := store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, demos, "nothing is written for a rejected demo")

			saved, err := store.Save(ctx, "日本語", "ünïcode", "print('✓ 🎉')")
			require.NoError(t, err)
			loaded, err := store.Load(ctx, saved.ID)
			require.NoError(t, err)
			assert.Equal(t, saved, loaded)
		})
	}
}

func TestStore_NoDeduplication(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a, err := store.Save(ctx, "same", "same", "same")
			require.NoError(t, err)
			b, err := store.Save(ctx, "same", "same", "same")
			require.NoError(t, err)
			assert.NotEqual(t, a.ID, b.ID)

			demos, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, demos, 2)
		})
	}
}

func TestStore_DeleteSemantics(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			keep, err := store.Save(ctx, "keep", "d", "c")
			require.NoError(t, err)
			gone, err := store.Save(ctx, "gone", "d", "c")
			require.NoError(t, err)

			removed, err := store.Delete(ctx, gone.ID)
			require.NoError(t, err)
			assert.True(t, removed)

			_, err = store.Load(ctx, gone.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			removed, err = store.Delete(ctx, gone.ID)
			require.NoError(t, err)
			assert.False(t, removed, "second delete reports absence")

			demos, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, demos, 1)
			assert.Equal(t, keep.ID, demos[0].ID)
		})
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, NewID())
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Load(ctx, "../../etc/passwd")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ListEmpty(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			demos, err := store.List(ctx)
			require.NoError(t, err)
			assert.NotNil(t, demos)
			assert.Empty(t, demos)
		})
	}
}

func TestFileStore_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	store := NewFileStore(dir)

	demos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, demos)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "List must not create the directory")
}

func TestFileStore_RecordFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	d, err := store.Save(context.Background(), "uc", "desc", "code")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, d.ID+".json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+d.ID+`","use_case":"uc","detailed_description":"desc","code":"code"}`, string(data))
}

func TestFileStore_ReadsExistingRecords(t *testing.T) {
	dir := t.TempDir()
	id := NewID()
	record := `{"id": "` + id + `", "use_case": "u", "detailed_description": "", "code": "print(1)"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(record), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	store := NewFileStore(dir)
	d, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "", d.DetailedDescription, "empty field is valid")
	assert.Equal(t, "print(1)", d.Code)

	demos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, demos, 1)
}

func TestFileStore_MissingFieldIsInvalid(t *testing.T) {
	dir := t.TempDir()
	id := NewID()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(`{"id":"`+id+`","use_case":"u"}`), 0644))

	store := NewFileStore(dir)
	_, err := store.Load(context.Background(), id)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "detailed_description")

	demos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, demos)
}

func TestFileStore_ListSkipsDamagedRecords(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	var logs bytes.Buffer
	store.Logger = zerolog.New(&logs)

	good, err := store.Save(context.Background(), "u", "d", "print(1)")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, NewID()+".json"), []byte(`{"id": "trunc`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, NewID()+".json"), []byte("{\"id\":\"\xff\"}"), 0644))

	demos, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, demos, 1)
	assert.Equal(t, good, demos[0])
	assert.Equal(t, 2, strings.Count(logs.String(), "skipping invalid demo record"))
}

func TestFileStore_UnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewFileStore(filepath.Join(blocker, "demos"))
	_, err := store.Save(context.Background(), "u", "d", "c")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSQLStore_ListOrder(t *testing.T) {
	store, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "demos.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	var ids []string
	for _, uc := range []string{"a", "b", "c"} {
		d, err := store.Save(ctx, uc, "", "x")
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	demos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, demos, 3)

	var got []string
	for _, d := range demos {
		got = append(got, d.ID)
	}
	sort.Strings(ids)
	sort.Strings(got)
	assert.Equal(t, ids, got)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DriverPostgres}
	assert.Equal(t, "DELETE FROM demos WHERE id = $1 AND x = $2", pg.rebind("DELETE FROM demos WHERE id = ? AND x = ?"))

	lite := &SQLStore{dialect: DriverSQLite}
	assert.Equal(t, "WHERE id = ?", lite.rebind("WHERE id = ?"))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.StoreConfig{Driver: "file", Dir: dir}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(config.StoreConfig{Driver: "sqlite", Dir: dir}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "demos.db"))

	_, err = Open(config.StoreConfig{Driver: "postgres"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrPersistence, "postgres needs a DSN")

	_, err = Open(config.StoreConfig{Driver: "mongo"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrPersistence)
}
