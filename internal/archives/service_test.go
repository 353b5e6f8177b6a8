package archives

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
	"github.com/HydrikMasqued/quartermaster/internal/ledger"
	baserepo "github.com/HydrikMasqued/quartermaster/internal/repo"
	pkgerrors "github.com/HydrikMasqued/quartermaster/pkg/errors"
)

type passthroughTx struct {
	db *gorm.DB
}

func (p passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}

func setupArchivesTestDB(t *testing.T) *gorm.DB {
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
);`, `
CREATE TABLE IF NOT EXISTS ledger_archives (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  guild_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  archived_data TEXT NOT NULL,
  created_by_id INTEGER NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestStack(t *testing.T) (Service, ledger.Service, events.Repository) {
	t.Helper()
	db := setupArchivesTestDB(t)
	eventsRepo := events.NewRepository(baserepo.Direct(db))
	tx := passthroughTx{db: db}

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: eventsRepo, Tx: tx})
	require.NoError(t, err)

	archiveSvc, err := NewService(ServiceParams{
		Repo:   NewRepository(baserepo.Direct(db)),
		Events: eventsRepo,
		Tx:     tx,
	})
	require.NoError(t, err)

	return archiveSvc, ledgerSvc, eventsRepo
}

func TestArchiveEpochRequiresName(t *testing.T) {
	svc, _, _ := newTestStack(t)

	_, err := svc.ArchiveEpoch(context.Background(), ArchiveEpochInput{GuildID: 1, ActorID: 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestArchiveEpochResetsLedger(t *testing.T) {
	archiveSvc, ledgerSvc, _ := newTestStack(t)
	ctx := context.Background()

	for _, qty := range []int64{5, 3} {
		_, err := ledgerSvc.AddContribution(ctx, ledger.AddContributionInput{
			GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: qty,
		})
		require.NoError(t, err)
	}
	_, err := ledgerSvc.RecordQuantityOverride(ctx, ledger.OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: 12, Reason: "recount", ActorID: 200,
	})
	require.NoError(t, err)

	// a second guild must be untouched by guild 1's archive
	_, err = ledgerSvc.AddContribution(ctx, ledger.AddContributionInput{
		GuildID: 2, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: 9,
	})
	require.NoError(t, err)

	archiveID, err := archiveSvc.ArchiveEpoch(ctx, ArchiveEpochInput{
		GuildID: 1, Name: "Season 1", Description: "spring epoch", ActorID: 200,
	})
	require.NoError(t, err)
	require.Positive(t, archiveID)

	stock, err := ledgerSvc.CurrentStock(ctx, 1, "Misc", "Rope")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock, "archived guild restarts from an empty base")

	trail, err := ledgerSvc.AuditTrail(ctx, 1, events.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, trail, "override history is cleared with the epoch")

	otherStock, err := ledgerSvc.CurrentStock(ctx, 2, "Misc", "Rope")
	require.NoError(t, err)
	assert.Equal(t, int64(9), otherStock)
}

func TestArchiveSnapshotRoundTrips(t *testing.T) {
	archiveSvc, ledgerSvc, _ := newTestStack(t)
	ctx := context.Background()

	for _, qty := range []int64{5, 3} {
		_, err := ledgerSvc.AddContribution(ctx, ledger.AddContributionInput{
			GuildID: 1, ActorID: 100, Category: "Misc", ItemName: "Rope", Quantity: qty,
		})
		require.NoError(t, err)
	}
	_, err := ledgerSvc.RecordQuantityOverride(ctx, ledger.OverrideInput{
		GuildID: 1, ItemName: "Rope", Category: "Misc", NewQuantity: 12, Reason: "recount", ActorID: 200,
	})
	require.NoError(t, err)

	archiveID, err := archiveSvc.ArchiveEpoch(ctx, ArchiveEpochInput{
		GuildID: 1, Name: "Season 1", ActorID: 200,
	})
	require.NoError(t, err)

	archive, snapshot, err := archiveSvc.Get(ctx, archiveID)
	require.NoError(t, err)
	require.NotNil(t, archive)
	require.NotNil(t, snapshot)

	assert.Equal(t, "Season 1", archive.Name)
	assert.Equal(t, 2, snapshot.TotalContributions)
	assert.Equal(t, 3, snapshot.TotalAuditEvents)
	require.Len(t, snapshot.Contributions, 2)
	assert.Equal(t, int64(5), snapshot.Contributions[0].Quantity)
	assert.Equal(t, int64(3), snapshot.Contributions[1].Quantity)
	require.Len(t, snapshot.AuditEvents, 3)

	listed, err := archiveSvc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, archiveID, listed[0].ID)
}

func TestCapAuditEventsKeepsMostRecent(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	stream := make([]events.AuditEvent, maxArchivedAuditEvents+5)
	for i := range stream {
		stream[i] = events.AuditEvent{
			EventID:    int64(i + 1),
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		}
	}

	capped := capAuditEvents(stream, maxArchivedAuditEvents)
	require.Len(t, capped, maxArchivedAuditEvents)

	// the oldest five fall off the front; the newest event survives
	assert.Equal(t, int64(6), capped[0].EventID)
	assert.Equal(t, stream[len(stream)-1].EventID, capped[len(capped)-1].EventID)

	short := capAuditEvents(stream[:3], maxArchivedAuditEvents)
	assert.Len(t, short, 3)
}

func TestGetMissingArchiveIsNotFound(t *testing.T) {
	svc, _, _ := newTestStack(t)

	_, _, err := svc.Get(context.Background(), 404)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
