package db

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/topmass/internal/topmass"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testResult builds a 2×2 result whose accumulators hold the given weights.
func testResult(status topmass.ScanStatus, weights [4][]float64) *topmass.Result {
	r := &topmass.Result{
		Status:           status,
		Masses:           []float64{170, 175},
		JES:              []float64{0.98, 1.02},
		Likelihood:       make([]topmass.NormAccumulator, 4),
		PointsIntegrated: 128,
		Samples:          512,
		Elapsed:          1500 * time.Millisecond,
		Cycles: []topmass.CycleInfo{
			{MaxIntegrated: 64, Active: []int{0, 1}, Covered: 0.5, Status: topmass.StatusContinue},
			{MaxIntegrated: 128, Active: []int{1}, Covered: 0.95, Status: status},
		},
	}
	for i, ws := range weights {
		for _, w := range ws {
			r.Likelihood[i].Accumulate(w)
		}
	}
	return r
}

func TestNewDBMigratesToLatest(t *testing.T) {
	db := setupTestDB(t)

	latest, err := LatestMigrationVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, db.MigrateUp(MigrationsFS()))
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)
	fsys := MigrationsFS()

	require.NoError(t, db.MigrateDown(fsys))
	version, _, err := db.MigrateVersion(fsys)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'scan_cycles'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateTo(fsys, 2))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'scan_cycles'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenDBAppliesNoMigrations(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestSaveAndLoadScan(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	r := testResult(topmass.StatusOK, [4][]float64{{1, 3}, {2}, {4, 4}, {0}})
	id, err := db.SaveScan(ctx, "evt-7", r)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s, err := db.GetScan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "evt-7", s.EventID)
	assert.Equal(t, topmass.StatusOK, s.Status)
	assert.Equal(t, 128, s.Points)
	assert.Equal(t, int64(512), s.Samples)
	assert.Equal(t, 1500*time.Millisecond, s.Elapsed)
	assert.False(t, s.CreatedAt.IsZero())

	points, err := db.Likelihood(ctx, id)
	require.NoError(t, err)
	require.Len(t, points, 4)
	want := []LikelihoodPoint{
		{Mass: 170, JES: 0.98, Value: 2, N: 2},
		{Mass: 170, JES: 1.02, Value: 2, N: 1},
		{Mass: 175, JES: 0.98, Value: 4, N: 2},
		{Mass: 175, JES: 1.02, Value: 0, N: 1},
	}
	for i, w := range want {
		assert.Equal(t, w.Mass, points[i].Mass)
		assert.Equal(t, w.JES, points[i].JES)
		assert.InDelta(t, w.Value, points[i].Value, 1e-12)
		assert.Equal(t, w.N, points[i].N)
	}
	a := r.At(0, 0)
	assert.InDelta(t, a.Error(), points[0].Error, 1e-12)

	cycles, err := db.Cycles(ctx, id)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, Cycle{Cycle: 0, MaxIntegrated: 64, Active: 2, Covered: 0.5, Status: topmass.StatusContinue}, cycles[0])
	assert.Equal(t, Cycle{Cycle: 1, MaxIntegrated: 128, Active: 1, Covered: 0.95, Status: topmass.StatusOK}, cycles[1])
}

func TestGetScanNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetScan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrScanNotFound)
	assert.ErrorIs(t, db.DeleteScan(context.Background(), "missing"), ErrScanNotFound)
}

func TestSaveScanNilResult(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.SaveScan(context.Background(), "evt", nil)
	assert.Error(t, err)
}

func TestListScans(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	one := [4][]float64{{1}, {1}, {1}, {1}}
	a, err := db.SaveScan(ctx, "evt-a", testResult(topmass.StatusOK, one))
	require.NoError(t, err)
	b, err := db.SaveScan(ctx, "evt-b", testResult(topmass.StatusTimeLimit, one))
	require.NoError(t, err)
	c, err := db.SaveScan(ctx, "evt-a", testResult(topmass.StatusMaxPoints, one))
	require.NoError(t, err)

	all, err := db.ListScans(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a, b, c}, []string{all[0].ID, all[1].ID, all[2].ID})

	evtA, err := db.ListScans(ctx, "evt-a")
	require.NoError(t, err)
	require.Len(t, evtA, 2)
	assert.Equal(t, a, evtA[0].ID)
	assert.Equal(t, c, evtA[1].ID)
}

func TestDeleteScanCascades(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	id, err := db.SaveScan(ctx, "evt", testResult(topmass.StatusOK, [4][]float64{{1}, {1}, {1}, {1}}))
	require.NoError(t, err)
	require.NoError(t, db.DeleteScan(ctx, id))

	points, err := db.Likelihood(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, points)
	cycles, err := db.Cycles(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestSampleLogLikelihood(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := db.SaveScan(ctx, "evt-1", testResult(topmass.StatusOK, [4][]float64{{1}, {2}, {4}, {0.5}}))
	require.NoError(t, err)
	_, err = db.SaveScan(ctx, "evt-2", testResult(topmass.StatusMaxPoints, [4][]float64{{2}, {2}, {0}, {0.5}}))
	require.NoError(t, err)
	// Excluded by the default status filter.
	_, err = db.SaveScan(ctx, "evt-3", testResult(topmass.StatusZeroProb, [4][]float64{{8}, {8}, {8}, {8}}))
	require.NoError(t, err)

	got, err := db.SampleLogLikelihood(ctx)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.InDelta(t, -math.Log(2), got[0].Value, 1e-12)
	assert.InDelta(t, -2*math.Log(2), got[1].Value, 1e-12)
	assert.True(t, math.IsInf(got[2].Value, 1))
	assert.InDelta(t, 2*math.Log(2), got[3].Value, 1e-12)
	for _, p := range got {
		assert.Equal(t, int64(2), p.N)
	}

	zero, err := db.SampleLogLikelihood(ctx, topmass.StatusZeroProb)
	require.NoError(t, err)
	require.Len(t, zero, 4)
	assert.InDelta(t, -math.Log(8), zero[0].Value, 1e-12)
	assert.Equal(t, int64(1), zero[0].N)
}
