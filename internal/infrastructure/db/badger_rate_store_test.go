// internal/infrastructure/db/badger_rate_store_test.go
package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/damon-houk/rates/internal/domain/entity"
	"github.com/damon-houk/rates/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInMemoryStore(t *testing.T) *BadgerRateStore {
	t.Helper()

	badgerOpts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	badgerDB, err := badger.Open(badgerOpts)
	require.NoError(t, err)

	store, err := NewBadgerRateStore(badgerDB)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		badgerDB.Close()
	})

	return store
}

func TestBadgerRateStore(t *testing.T) {
	ctx := context.Background()
	store := newInMemoryStore(t)

	records, err := store.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	first := &entity.RateRecord{Base: "EUR", Date: "2020-01-01", Rates: map[string]float64{"USD": 1.1}}
	second := &entity.RateRecord{Base: "EUR", Date: "2020-01-01", Rates: map[string]float64{"USD": 1.3, "GBP": 0.85}}

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	t.Run("Scan preserves append order", func(t *testing.T) {
		records, err := store.Scan(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, first, records[0])
		assert.Equal(t, second, records[1])
	})

	t.Run("Find returns the first matching record", func(t *testing.T) {
		hit, err := store.Find(ctx, "EUR", "USD", "2020-01-01")
		require.NoError(t, err)
		assert.Equal(t, first, hit)

		hit, err = store.Find(ctx, "EUR", "GBP", "2020-01-01")
		require.NoError(t, err)
		assert.Equal(t, second, hit)
	})

	t.Run("Find miss", func(t *testing.T) {
		hit, err := store.Find(ctx, "EUR", "JPY", "2020-01-01")
		assert.NoError(t, err)
		assert.Nil(t, hit)
	})
}

func TestBadgerRateStoreMatchesLinearScan(t *testing.T) {
	ctx := context.Background()
	store := newInMemoryStore(t)

	targets := []string{"USD", "GBP", "JPY"}
	for i := 0; i < 30; i++ {
		record := &entity.RateRecord{
			Base:  "EUR",
			Date:  fmt.Sprintf("2020-01-%02d", i%5+1),
			Rates: map[string]float64{targets[i%3]: float64(i) + 0.5},
		}
		require.NoError(t, store.Append(ctx, record))
	}

	records, err := store.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 30)

	for day := 1; day <= 6; day++ {
		date := fmt.Sprintf("2020-01-%02d", day)
		for _, target := range append(targets, "CHF") {
			want := repository.FindFirst(records, "EUR", target, date)
			got, err := store.Find(ctx, "EUR", target, date)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s %s", target, date)
		}
	}
}

func TestOpenBadgerRateStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenBadgerRateStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, &entity.RateRecord{Base: "EUR", Date: "2021-06-01", Rates: map[string]float64{"USD": 1.2}}))
	require.NoError(t, store.Close())

	reopened, err := OpenBadgerRateStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Append(ctx, &entity.RateRecord{Base: "EUR", Date: "2021-06-02", Rates: map[string]float64{"USD": 1.25}}))

	records, err := reopened.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2021-06-01", records[0].Date)
	assert.Equal(t, "2021-06-02", records[1].Date)

	hit, err := reopened.Find(ctx, "EUR", "USD", "2021-06-01")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 1.2, hit.Rates["USD"])
}
