package ledger

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/HydrikMasqued/quartermaster/internal/events"
	baserepo "github.com/HydrikMasqued/quartermaster/internal/repo"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
	"github.com/HydrikMasqued/quartermaster/pkg/enums"
)

type passthroughTx struct {
	db *gorm.DB
}

func (p passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS contribution_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  guild_id INTEGER NOT NULL,
  actor_id INTEGER NOT NULL,
  category TEXT NOT NULL,
  item_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`, `
CREATE TABLE IF NOT EXISTS quantity_change_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  guild_id INTEGER NOT NULL,
  item_name TEXT NOT NULL,
  category TEXT NOT NULL,
  old_quantity INTEGER NOT NULL,
  new_quantity INTEGER NOT NULL,
  reason TEXT NOT NULL,
  notes TEXT,
  actor_id INTEGER NOT NULL,
  changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T) (Service, events.Repository) {
	t.Helper()
	db := setupLedgerTestDB(t)
	repo := events.NewRepository(baserepo.Direct(db))
	svc, err := NewService(ServiceParams{Repo: repo, Tx: passthroughTx{db: db}})
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	db := setupLedgerTestDB(t)
	_, err = NewService(ServiceParams{Repo: events.NewRepository(baserepo.Direct(db))})
	require.Error(t, err)
}

func TestAddContributionValidatesQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, qty := range []int64{0, -1, -50} {
		_, err := svc.AddContribution(ctx, AddContributionInput{
			GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: qty,
		})
		require.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}

	id, err := svc.AddContribution(ctx, AddContributionInput{
		GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 5,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	stock, err := svc.CurrentStock(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock)
}

func TestRecordQuantityOverrideValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordQuantityOverride(ctx, OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: -1, Reason: "recount", ActorID: 1,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.RecordQuantityOverride(ctx, OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: 5, Reason: "   ", ActorID: 1,
	})
	require.ErrorIs(t, err, ErrMissingReason)

	// zero is a legal override total
	id, err := svc.RecordQuantityOverride(ctx, OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: 0, Reason: "emptied", ActorID: 1,
	})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestRecordQuantityOverrideSnapshotsOldQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddContribution(ctx, AddContributionInput{
		GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 8,
	})
	require.NoError(t, err)

	_, err = svc.RecordQuantityOverride(ctx, OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: 20, Reason: "recount", ActorID: 1,
	})
	require.NoError(t, err)

	history, err := svc.QuantityChangeHistory(ctx, 1, "Rope")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(8), history[0].OldQuantity)
	assert.Equal(t, int64(20), history[0].NewQuantity)
}

func TestRedistributeRewritesRowsAndAppendsOverride(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for _, qty := range []int64{5, 3} {
		_, err := svc.AddContribution(ctx, AddContributionInput{
			GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: qty,
		})
		require.NoError(t, err)
	}

	err := svc.Redistribute(ctx, RedistributeInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewTotal: 10, Reason: "recount", ActorID: 200,
	})
	require.NoError(t, err)

	rows, err := repo.ListItemContributions(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(6), rows[0].Quantity)
	assert.Equal(t, int64(4), rows[1].Quantity)

	stock, err := svc.CurrentStock(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock)

	history, err := svc.QuantityChangeHistory(ctx, 1, "Rope")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(8), history[0].OldQuantity)
	assert.Equal(t, int64(10), history[0].NewQuantity)
	assert.Equal(t, "recount", history[0].Reason)

	// redistribute to zero removes every row for the key
	err = svc.Redistribute(ctx, RedistributeInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewTotal: 0, Reason: "cleared", ActorID: 200,
	})
	require.NoError(t, err)

	stock, err = svc.CurrentStock(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)

	rows, err = repo.ListItemContributions(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRedistributeNoRowsIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Redistribute(ctx, RedistributeInput{
		GuildID: 1, ItemName: "Ghost", Category: "Misc", NewTotal: 10, Reason: "recount", ActorID: 200,
	})
	require.NoError(t, err)

	// no correction event is appended for a no-op
	history, err := svc.QuantityChangeHistory(ctx, 1, "Ghost")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedistributeValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Redistribute(ctx, RedistributeInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewTotal: -1, Reason: "recount",
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = svc.Redistribute(ctx, RedistributeInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewTotal: 5, Reason: "",
	})
	require.ErrorIs(t, err, ErrMissingReason)
}

func TestRedistributeSumInvariantEndToEnd(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	quantities := []int64{13, 27, 5, 88, 2, 41}
	for _, qty := range quantities {
		_, err := svc.AddContribution(ctx, AddContributionInput{
			GuildID: 1, ActorID: 100, Category: "Supplies", ItemName: "Nails", Quantity: qty,
		})
		require.NoError(t, err)
	}

	for _, newTotal := range []int64{250, 63, 7, 1} {
		err := svc.Redistribute(ctx, RedistributeInput{
			GuildID: 1, ItemName: "Nails", Category: "Supplies", NewTotal: newTotal, Reason: "audit", ActorID: 200,
		})
		require.NoError(t, err)

		stock, err := svc.CurrentStock(ctx, 1, "Supplies", "Nails")
		require.NoError(t, err)
		assert.Equal(t, newTotal, stock, "newTotal %d", newTotal)

		rows, err := repo.ListItemContributions(ctx, 1, "Supplies", "Nails")
		require.NoError(t, err)
		for _, row := range rows {
			assert.Positive(t, row.Quantity, "newTotal %d left a non-positive row", newTotal)
		}
	}
}

func TestStockSeriesOverrideSemantics(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendContribution(ctx, &models.ContributionEvent{
		GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 5, CreatedAt: base,
	}))
	require.NoError(t, repo.AppendQuantityChange(ctx, &models.QuantityChangeEvent{
		GuildID: 1, ItemName: "Rope", Category: "Misc",
		OldQuantity: 5, NewQuantity: 12, Reason: "recount", ActorID: 200,
		ChangedAt: base.Add(time.Minute),
	}))
	require.NoError(t, repo.AppendContribution(ctx, &models.ContributionEvent{
		GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 7, CreatedAt: base.Add(2 * time.Minute),
	}))

	series, err := svc.StockSeries(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, int64(5), series[0].Balance)
	assert.Equal(t, int64(12), series[1].Balance)
	assert.Equal(t, int64(19), series[2].Balance)
}

func TestRemoveEvent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddContribution(ctx, AddContributionInput{
		GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 5,
	})
	require.NoError(t, err)

	removed, err := svc.RemoveEvent(ctx, 1, enums.EventKindContribution, id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RemoveEvent(ctx, 1, enums.EventKindContribution, id)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.RemoveEvent(ctx, 1, enums.EventKind("bogus"), id)
	require.ErrorIs(t, err, ErrUnknownEventKind)
}
