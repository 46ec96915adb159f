package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/tasklite/internal/store"
)

func seed(t *testing.T, p store.Persister) *store.Store {
	t.Helper()
	s, err := store.Open(p)
	require.NoError(t, err)
	inputs := []store.AddTaskInput{
		{Name: "Buy milk", Priority: true, DueDate: "01-01-2030", Tags: []string{"home"}},
		{Name: "File taxes", DueDate: "15-04-2030", Tags: []string{"admin", "Home"}},
		{Name: "Call mom"},
	}
	for _, in := range inputs {
		_, err := s.AddTask(in)
		require.NoError(t, err)
	}
	_, err = s.MarkDone(3)
	require.NoError(t, err)
	_, err = s.EditTask(2, store.EditTaskInput{Tags: []string{"admin"}})
	require.NoError(t, err)
	return s
}

func TestRoundTripEveryFormat(t *testing.T) {
	for _, name := range []string{"state.json", "state.yaml", "state.yml", "state.toml", "state.msgpack", "state.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			p, err := Open(path, nil)
			require.NoError(t, err)

			s := seed(t, p)

			again, err := Open(path, nil)
			require.NoError(t, err)
			reopened, err := store.Open(again)
			require.NoError(t, err)
			assert.Equal(t, s.State(), reopened.State())
		})
	}
}

func TestOpenPicksBackendByExtension(t *testing.T) {
	dir := t.TempDir()

	p, err := Open(filepath.Join(dir, "x.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &Bolt{}, p)

	p, err = Open(filepath.Join(dir, "x.toml"), nil)
	require.NoError(t, err)
	require.IsType(t, &File{}, p)
	assert.Equal(t, FormatTOML, p.(*File).codec.Format())

	_, err = Open("  ", nil)
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]string{
		"a.json":    FormatJSON,
		"a.YAML":    FormatYAML,
		"a.yml":     FormatYAML,
		"a.toml":    FormatTOML,
		"a.mpk":     FormatMsgpack,
		"a.msgpack": FormatMsgpack,
		"a.bolt":    FormatBolt,
		"a.db":      FormatBolt,
		"a":         FormatJSON,
		"a.txt":     FormatJSON,
	}
	for path, want := range cases {
		assert.Equal(t, want, FormatForPath(path), path)
	}
}

func TestNewFileRejectsUnknownFormat(t *testing.T) {
	_, err := NewFile("x", "xml", nil)
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestLoadMissingOrEmptyFileHasNoState(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"missing.json", "missing.db"} {
		p, err := Open(filepath.Join(dir, name), nil)
		require.NoError(t, err)
		_, err = p.Load()
		assert.ErrorIs(t, err, store.ErrNoState, name)
	}

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	p, err := Open(empty, nil)
	require.NoError(t, err)
	_, err = p.Load()
	assert.ErrorIs(t, err, store.ErrNoState)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	cases := map[string]string{
		"state.json": `{"tasks":{},"tags":{},"next_id":1,"config":{"date_format":"02-01-2006"},"owner":"me"}`,
		"state.yaml": "tasks: {}\ntags: {}\nnext_id: 1\nconfig:\n  date_format: 02-01-2006\nowner: me\n",
		"state.toml": "next_id = 1\nowner = \"me\"\n[config]\ndate_format = \"02-01-2006\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			p, err := Open(path, nil)
			require.NoError(t, err)

			_, err = p.Load()
			require.ErrorIs(t, err, store.ErrPersistence)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestLoadRejectsTrailingJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	body := `{"tasks":{},"tags":{},"next_id":1,"config":{"date_format":"02-01-2006"}} {}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	p, err := Open(path, nil)
	require.NoError(t, err)

	_, err = p.Load()
	assert.ErrorIs(t, err, store.ErrPersistence)
}

func TestLoadRejectsNonNumericTaskKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	body := `{"tasks":{"one":{"id":1,"name":"x","priority":false,"done":false,"created_at":"2026-10-17 09:00:00"}},"tags":{},"next_id":2,"config":{"date_format":"02-01-2006"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	p, err := Open(path, nil)
	require.NoError(t, err)

	_, err = p.Load()
	assert.ErrorIs(t, err, store.ErrCorruptState)
}

func TestStoreRejectsMismatchedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	body := `{"tasks":{"1":{"id":2,"name":"x","priority":false,"done":false,"created_at":"2026-10-17 09:00:00"}},"tags":{},"next_id":3,"config":{"date_format":"02-01-2006"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	p, err := Open(path, nil)
	require.NoError(t, err)

	_, err = store.Open(p)
	assert.ErrorIs(t, err, store.ErrCorruptState)
}

func TestSavedJSONLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasklite.json")
	p, err := Open(path, nil)
	require.NoError(t, err)
	seed(t, p)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `"next_id": 4`)
	assert.Contains(t, body, `"date_format": "02-01-2006"`)
	assert.Contains(t, body, `"due_date": "2030-01-01"`)
	assert.Contains(t, body, `"home": [`)
	assert.True(t, strings.HasSuffix(body, "}\n"))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(filepath.Join(dir, "tasklite.json"), nil)
	require.NoError(t, err)
	seed(t, p)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tasklite.json", entries[0].Name())
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	p, err := Open(filepath.Join(blocker, "tasklite.json"), nil)
	require.NoError(t, err)
	err = p.Save(store.NewState(store.Config{}))
	assert.ErrorIs(t, err, store.ErrPersistence)
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasklite.json")

	dst, err := Backup(path)
	require.NoError(t, err)
	assert.Empty(t, dst)

	p, err := Open(path, nil)
	require.NoError(t, err)
	seed(t, p)

	dst, err = Backup(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dst), "tasklite.json.bak-"))

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)
}

func TestBoltLoadWithoutBucketHasNoState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	b := NewBolt(path, nil)

	db, err := b.open(false)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = b.Load()
	assert.ErrorIs(t, err, store.ErrNoState)
}
