package archives

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/HydrikMasqued/quartermaster/internal/events"
	"github.com/HydrikMasqued/quartermaster/internal/ledger"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
	pkgerrors "github.com/HydrikMasqued/quartermaster/pkg/errors"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
	"github.com/HydrikMasqued/quartermaster/pkg/metrics"
)

// The snapshot keeps every contribution but caps the audit trail, matching
// how much history an archive blob is allowed to carry.
const maxArchivedAuditEvents = 1000

// Snapshot is the JSON payload stored in an archive row. It is the only copy
// of the epoch's data once the live rows are cleared.
type Snapshot struct {
	ArchivedAt         time.Time                  `json:"archived_at"`
	TotalContributions int                        `json:"total_contributions"`
	TotalAuditEvents   int                        `json:"total_audit_events"`
	Contributions      []models.ContributionEvent `json:"contributions"`
	AuditEvents        []events.AuditEvent        `json:"audit_events"`
}

// ArchiveEpochInput describes the epoch close requested by an administrator.
type ArchiveEpochInput struct {
	GuildID     int64
	Name        string
	Description string
	Notes       string
	ActorID     int64
}

// Service closes ledger epochs: snapshot, persist, clear.
type Service interface {
	ArchiveEpoch(ctx context.Context, input ArchiveEpochInput) (int64, error)
	List(ctx context.Context, guildID int64) ([]models.LedgerArchive, error)
	Get(ctx context.Context, id int64) (*models.LedgerArchive, *Snapshot, error)
}

// ServiceParams wires the archive service dependencies.
type ServiceParams struct {
	Repo    Repository
	Events  events.Repository
	Tx      ledger.TxRunner
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
}

type service struct {
	repo    Repository
	events  events.Repository
	tx      ledger.TxRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires an archive service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("archive repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		events:  params.Events,
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// ArchiveEpoch snapshots the guild's live contributions and audit trail into
// a blob row, then deletes both live event tables for the guild in the same
// transaction. Post-archive, stock computation restarts from an empty base.
func (s *service) ArchiveEpoch(ctx context.Context, input ArchiveEpochInput) (int64, error) {
	if strings.TrimSpace(input.Name) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "archive name is required")
	}

	var archiveID int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventsRepo := s.events.WithTx(tx)
		archiveRepo := s.repo.WithTx(tx)

		contributions, err := eventsRepo.ListGuildContributions(ctx, input.GuildID)
		if err != nil {
			return err
		}
		auditEvents, err := eventsRepo.QueryAudit(ctx, input.GuildID, events.AuditFilter{})
		if err != nil {
			return err
		}

		snapshot := Snapshot{
			ArchivedAt:         time.Now().UTC(),
			TotalContributions: len(contributions),
			TotalAuditEvents:   len(auditEvents),
			Contributions:      contributions,
			AuditEvents:        capAuditEvents(auditEvents, maxArchivedAuditEvents),
		}

		blob, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encoding archive snapshot: %w", err)
		}

		archive := &models.LedgerArchive{
			GuildID:      input.GuildID,
			Name:         input.Name,
			Description:  input.Description,
			Notes:        input.Notes,
			ArchivedData: blob,
			CreatedByID:  input.ActorID,
		}
		if err := archiveRepo.Create(ctx, archive); err != nil {
			return err
		}

		if _, err := eventsRepo.DeleteGuildContributions(ctx, input.GuildID); err != nil {
			return err
		}
		if _, err := eventsRepo.DeleteGuildQuantityChanges(ctx, input.GuildID); err != nil {
			return err
		}

		archiveID = archive.ID
		return nil
	})
	if err != nil {
		s.metrics.IncArchive("error")
		return 0, err
	}

	s.metrics.IncArchive("ok")
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithGuildID(ctx, input.GuildID), map[string]any{
			"archive_id":   archiveID,
			"archive_name": input.Name,
		})
		s.logg.Info(logCtx, "ledger.epoch.archived")
	}
	return archiveID, nil
}

// capAuditEvents trims an ascending audit stream to its most recent n events.
// The oldest entries drop first; TotalAuditEvents in the snapshot still
// records the full count.
func capAuditEvents(auditEvents []events.AuditEvent, n int) []events.AuditEvent {
	if len(auditEvents) <= n {
		return auditEvents
	}
	return auditEvents[len(auditEvents)-n:]
}

func (s *service) List(ctx context.Context, guildID int64) ([]models.LedgerArchive, error) {
	return s.repo.ListByGuildID(ctx, guildID)
}

func (s *service) Get(ctx context.Context, id int64) (*models.LedgerArchive, *Snapshot, error) {
	archive, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "archive not found")
		}
		return nil, nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(archive.ArchivedData, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("decoding archive snapshot: %w", err)
	}
	return archive, &snapshot, nil
}
