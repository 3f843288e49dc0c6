package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kastelo.dev/etslog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func loadFixture(t *testing.T) (*etslog.Results, etslog.Layout) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := etslog.ParseFile("../testdata/two_sites.log", etslog.Options{Logger: logger})
	require.NoError(t, err)
	lay, err := etslog.DeriveLayout(res, etslog.LayoutOptions{})
	require.NoError(t, err)
	return res, lay
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	res, lay := loadFixture(t)

	id, err := s.Save(ctx, res, lay)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	cfgs, err := s.Requirements(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Configs, cfgs); diff != "" {
		t.Errorf("requirements mismatch (-want +got):\n%s", diff)
	}

	runs, err := s.Runs(ctx, id)
	require.NoError(t, err)
	require.Len(t, runs, len(res.Summaries))
	for i, r := range runs {
		assert.Equal(t, i, r.Run)
		assert.Equal(t, lay.TestIndex(i), r.Test)
		assert.Equal(t, res.Summaries[i], r.TestSummary)
	}

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements WHERE import_id = ?`, id).Scan(&n))
	assert.Equal(t, lay.Runs*lay.RequirementCount, n)
}

func TestSaveTwice(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	res, lay := loadFixture(t)

	first, err := s.Save(ctx, res, lay)
	require.NoError(t, err)
	second, err := s.Save(ctx, res, lay)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.Runs(ctx, second)
	require.NoError(t, err)
	assert.Len(t, runs, len(res.Summaries))
}

func TestMigrateIdempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestRunsUnknownImport(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.Runs(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind("SELECT a FROM t WHERE b = ? AND c = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}
