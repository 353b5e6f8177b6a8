package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/HydrikMasqued/quartermaster/internal/events"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
	"github.com/HydrikMasqued/quartermaster/pkg/enums"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
	"github.com/HydrikMasqued/quartermaster/pkg/metrics"
)

// Service is the ledger contract the chat and reporting layers consume.
type Service interface {
	AddContribution(ctx context.Context, input AddContributionInput) (int64, error)
	RecordQuantityOverride(ctx context.Context, input OverrideInput) (int64, error)
	Redistribute(ctx context.Context, input RedistributeInput) error
	CurrentStock(ctx context.Context, guildID int64, category, itemName string) (int64, error)
	CurrentStockAll(ctx context.Context, guildID int64) ([]events.ItemTotal, error)
	AuditTrail(ctx context.Context, guildID int64, filter events.AuditFilter) ([]events.AuditEvent, error)
	StockSeries(ctx context.Context, guildID int64, category, itemName string) ([]BalancePoint, error)
	QuantityChangeHistory(ctx context.Context, guildID int64, itemName string) ([]models.QuantityChangeEvent, error)
	RemoveEvent(ctx context.Context, guildID int64, kind enums.EventKind, eventID int64) (bool, error)
}

// TxRunner executes fn inside a storage transaction. Satisfied by db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddContributionInput records a donation of Quantity units.
type AddContributionInput struct {
	GuildID  int64
	ActorID  int64
	Category string
	ItemName string
	Quantity int64
}

// OverrideInput records an absolute administrative override of an item's
// aggregate stock.
type OverrideInput struct {
	GuildID     int64
	ItemName    string
	Category    string
	NewQuantity int64
	Reason      string
	Notes       *string
	ActorID     int64
}

// RedistributeInput remaps NewTotal across the item key's existing rows.
type RedistributeInput struct {
	GuildID  int64
	ItemName string
	Category string
	NewTotal int64
	Reason   string
	Notes    *string
	ActorID  int64
}

// ServiceParams wires the ledger service dependencies.
type ServiceParams struct {
	Repo    events.Repository
	Tx      TxRunner
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
}

type service struct {
	repo    events.Repository
	tx      TxRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	keys    *keyMutex
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
		keys:    newKeyMutex(),
	}, nil
}

func (s *service) AddContribution(ctx context.Context, input AddContributionInput) (int64, error) {
	if input.Quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	event := &models.ContributionEvent{
		GuildID:  input.GuildID,
		ActorID:  input.ActorID,
		Category: input.Category,
		ItemName: input.ItemName,
		Quantity: input.Quantity,
	}
	if err := s.repo.AppendContribution(ctx, event); err != nil {
		return 0, err
	}

	s.metrics.IncAppended(string(enums.EventKindContribution))
	if s.logg != nil {
		ctx = s.logg.WithItemKey(s.logg.WithGuildID(ctx, input.GuildID), input.Category, input.ItemName)
		s.logg.Info(ctx, "ledger.contribution.appended")
	}
	return event.ID, nil
}

func (s *service) RecordQuantityOverride(ctx context.Context, input OverrideInput) (int64, error) {
	if input.NewQuantity < 0 {
		return 0, ErrInvalidQuantity
	}
	if strings.TrimSpace(input.Reason) == "" {
		return 0, ErrMissingReason
	}

	// advisory snapshot only; replay never reads old_quantity
	oldQuantity, err := s.repo.SumItemQuantity(ctx, input.GuildID, input.Category, input.ItemName)
	if err != nil {
		return 0, err
	}

	event := &models.QuantityChangeEvent{
		GuildID:     input.GuildID,
		ItemName:    input.ItemName,
		Category:    input.Category,
		OldQuantity: oldQuantity,
		NewQuantity: input.NewQuantity,
		Reason:      input.Reason,
		Notes:       input.Notes,
		ActorID:     input.ActorID,
	}
	if err := s.repo.AppendQuantityChange(ctx, event); err != nil {
		return 0, err
	}

	s.metrics.IncAppended(string(enums.EventKindQuantityChange))
	if s.logg != nil {
		ctx = s.logg.WithItemKey(s.logg.WithGuildID(ctx, input.GuildID), input.Category, input.ItemName)
		s.logg.Info(ctx, "ledger.override.appended")
	}
	return event.ID, nil
}

// Redistribute remaps NewTotal onto the item key's rows, oldest first, then
// appends the override event that documents the change. The per-key lock plus
// the surrounding transaction keep a concurrent contribution or second
// redistribution from interleaving between the read and the writes.
func (s *service) Redistribute(ctx context.Context, input RedistributeInput) error {
	if input.NewTotal < 0 {
		return ErrInvalidQuantity
	}
	if strings.TrimSpace(input.Reason) == "" {
		return ErrMissingReason
	}

	unlock := s.keys.Lock(input.GuildID, input.Category, input.ItemName)
	defer unlock()

	start := time.Now()
	outcome := "noop"

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.ListItemContributions(ctx, input.GuildID, input.Category, input.ItemName)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		plan := planRedistribution(rows, input.NewTotal)

		if plan.DeleteAll {
			if err := repo.DeleteItemContributions(ctx, input.GuildID, input.Category, input.ItemName); err != nil {
				return err
			}
		} else {
			for _, id := range plan.Deletes {
				if _, err := repo.DeleteContribution(ctx, input.GuildID, id); err != nil {
					return err
				}
			}
			for _, update := range plan.Updates {
				if err := repo.UpdateContributionQuantity(ctx, update.ID, update.Quantity); err != nil {
					return err
				}
			}
		}

		change := &models.QuantityChangeEvent{
			GuildID:     input.GuildID,
			ItemName:    input.ItemName,
			Category:    input.Category,
			OldQuantity: plan.CurrentTotal,
			NewQuantity: input.NewTotal,
			Reason:      input.Reason,
			Notes:       input.Notes,
			ActorID:     input.ActorID,
		}
		if err := repo.AppendQuantityChange(ctx, change); err != nil {
			return err
		}

		outcome = "applied"
		return nil
	})

	if err != nil {
		s.metrics.ObserveRedistribution("error", time.Since(start))
		return err
	}

	s.metrics.ObserveRedistribution(outcome, time.Since(start))
	if outcome == "applied" {
		s.metrics.IncAppended(string(enums.EventKindQuantityChange))
	}
	if s.logg != nil {
		logCtx := s.logg.WithItemKey(s.logg.WithGuildID(ctx, input.GuildID), input.Category, input.ItemName)
		logCtx = s.logg.WithField(logCtx, "new_total", input.NewTotal)
		s.logg.Info(logCtx, "ledger.redistribution."+outcome)
	}
	return nil
}

// CurrentStock reads the materialized view: contribution rows already reflect
// every redistribution, so their sum is the live balance. Replay is the
// audit-side verification path, not this one.
func (s *service) CurrentStock(ctx context.Context, guildID int64, category, itemName string) (int64, error) {
	return s.repo.SumItemQuantity(ctx, guildID, category, itemName)
}

func (s *service) CurrentStockAll(ctx context.Context, guildID int64) ([]events.ItemTotal, error) {
	return s.repo.ListGuildItemTotals(ctx, guildID)
}

func (s *service) AuditTrail(ctx context.Context, guildID int64, filter events.AuditFilter) ([]events.AuditEvent, error) {
	return s.repo.QueryAudit(ctx, guildID, filter)
}

func (s *service) StockSeries(ctx context.Context, guildID int64, category, itemName string) ([]BalancePoint, error) {
	seq, err := s.repo.QueryAudit(ctx, guildID, events.AuditFilter{ItemName: itemName, Category: category})
	if err != nil {
		return nil, err
	}
	return ReplaySeries(seq, ItemKey{Category: category, ItemName: itemName}), nil
}

func (s *service) QuantityChangeHistory(ctx context.Context, guildID int64, itemName string) ([]models.QuantityChangeEvent, error) {
	return s.repo.ListItemQuantityChanges(ctx, guildID, itemName)
}

func (s *service) RemoveEvent(ctx context.Context, guildID int64, kind enums.EventKind, eventID int64) (bool, error) {
	var (
		removed bool
		err     error
	)
	switch kind {
	case enums.EventKindContribution:
		removed, err = s.repo.DeleteContribution(ctx, guildID, eventID)
	case enums.EventKindQuantityChange:
		removed, err = s.repo.DeleteQuantityChange(ctx, guildID, eventID)
	default:
		return false, ErrUnknownEventKind
	}
	if err != nil {
		return false, err
	}

	if removed {
		s.metrics.IncRemoved(string(kind))
		if s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithGuildID(ctx, guildID), map[string]any{
				"event_kind": kind,
				"event_id":   eventID,
			})
			s.logg.Info(logCtx, "ledger.event.removed")
		}
	}
	return removed, nil
}
