package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/database"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/reports"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

func setupDatabase(t *testing.T) *database.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ledger_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	return database.NewStore(pool)
}

// End-to-end pass over the Postgres path: register, backfill, dispose, and
// read the ledger back through the report queries.
func TestPostgresLedgerLifecycle(t *testing.T) {
	store := setupDatabase(t)
	ctx := context.Background()
	const tenant = "integration-farm"

	clock := func() time.Time { return time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC) }
	eng := engine.New(engine.NewPostgresStore(store), zerolog.Nop(), engine.WithClock(clock))

	settingsRepo := settings.NewPostgresRepository(store.Pool())
	set := settings.Default(tenant)
	require.NoError(t, settingsRepo.Upsert(ctx, set))

	cow, err := eng.RegisterCow(ctx, &herd.Cow{
		TenantID:        tenant,
		TagNumber:       "42",
		FreshenDate:     time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		PurchasePrice:   decimal.NewFromInt(1200),
		AcquisitionType: herd.AcquisitionPurchased,
	})
	require.NoError(t, err)

	hist, err := eng.ProcessHistorical(ctx, tenant, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, hist.AcquisitionsPosted)
	require.Len(t, hist.Years, 1)
	// Feb through Jun 2024 at 20.00 each.
	assert.Equal(t, 5, hist.Years[0].MonthsProcessed)
	assert.True(t, hist.Years[0].TotalAmount.Equal(decimal.NewFromInt(100)))

	// Re-running changes nothing.
	again, err := eng.ProcessHistorical(ctx, tenant, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, again.AcquisitionsPosted)
	assert.Equal(t, 5, again.Years[0].MonthsSkipped)

	d, err := eng.RecordDisposition(ctx, &herd.Disposition{
		TenantID:        tenant,
		CowID:           cow.ID,
		DispositionDate: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		DispositionType: herd.DispositionSale,
		SaleAmount:      decimal.NewFromInt(900),
	})
	require.NoError(t, err)

	res, err := eng.PostDisposition(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, res.JournalCreated)
	// June's full month was swept; Feb-May (80.00) plus 20 * 10/30.
	assert.True(t, res.AccumulatedDepr.Equal(decimal.RequireFromString("86.67")), "accum %s", res.AccumulatedDepr)

	entry, err := ledger.NewPostgresRepository(store.Pool()).GetEntry(ctx, res.EntryID)
	require.NoError(t, err)
	assert.True(t, entry.Balanced())

	reportsSvc := reports.NewService(reports.NewPostgresRepository(store.Pool()), settingsRepo)
	stats, err := reportsSvc.DashboardStats(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveCount)
	// Asset fully removed by the disposition entry.
	assert.True(t, stats.AssetValue.IsZero(), "asset value %s", stats.AssetValue)
	assert.True(t, stats.AccumDepr.IsZero(), "accumulated depreciation %s", stats.AccumDepr)

	rec, err := reportsSvc.MonthlyReconciliation(ctx, tenant, 2024, false)
	require.NoError(t, err)
	require.Len(t, rec.Rows, 12)
	assert.Equal(t, 1, rec.Rows[0].Additions)
	assert.Equal(t, 1, rec.Rows[5].Sales)
	assert.Equal(t, 0, rec.Rows[11].EndingBalance)
}

func TestTenantLockSerialisesWriters(t *testing.T) {
	store := setupDatabase(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- store.InTenantTx(ctx, "lock-tenant", func(ctx context.Context, q database.Querier) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		second <- store.InTenantTx(ctx, "lock-tenant", func(ctx context.Context, q database.Querier) error {
			return nil
		})
	}()

	select {
	case err := <-second:
		t.Fatalf("second writer entered while lock held: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-second)
}
