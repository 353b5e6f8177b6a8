package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HydrikMasqued/quartermaster/api/responses"
	"github.com/HydrikMasqued/quartermaster/api/validators"
	"github.com/HydrikMasqued/quartermaster/internal/events"
	"github.com/HydrikMasqued/quartermaster/internal/ledger"
	"github.com/HydrikMasqued/quartermaster/pkg/enums"
	pkgerrors "github.com/HydrikMasqued/quartermaster/pkg/errors"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
)

const maxAuditLimit = 500

type contributionRequest struct {
	ActorID  int64  `json:"actor_id" validate:"required,gt=0"`
	Category string `json:"category" validate:"required,min=1,max=100"`
	ItemName string `json:"item_name" validate:"required,min=1,max=200"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
}

type overrideRequest struct {
	ItemName    string  `json:"item_name" validate:"required,min=1,max=200"`
	Category    string  `json:"category" validate:"required,min=1,max=100"`
	NewQuantity int64   `json:"new_quantity" validate:"gte=0"`
	Reason      string  `json:"reason" validate:"required,min=1,max=500"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ActorID     int64   `json:"actor_id" validate:"required,gt=0"`
}

type redistributeRequest struct {
	ItemName string  `json:"item_name" validate:"required,min=1,max=200"`
	Category string  `json:"category" validate:"required,min=1,max=100"`
	NewTotal int64   `json:"new_total" validate:"gte=0"`
	Reason   string  `json:"reason" validate:"required,min=1,max=500"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ActorID  int64   `json:"actor_id" validate:"required,gt=0"`
}

func guildFromPath(r *http.Request) (int64, error) {
	return validators.ParsePathInt64(chi.URLParam(r, "guildID"), "guildID")
}

func AddContribution(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req contributionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.AddContribution(r.Context(), ledger.AddContributionInput{
			GuildID:  guildID,
			ActorID:  req.ActorID,
			Category: strings.TrimSpace(req.Category),
			ItemName: strings.TrimSpace(req.ItemName),
			Quantity: req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"event_id": id})
	}
}

func RecordQuantityOverride(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req overrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.RecordQuantityOverride(r.Context(), ledger.OverrideInput{
			GuildID:     guildID,
			ItemName:    strings.TrimSpace(req.ItemName),
			Category:    strings.TrimSpace(req.Category),
			NewQuantity: req.NewQuantity,
			Reason:      strings.TrimSpace(req.Reason),
			Notes:       req.Notes,
			ActorID:     req.ActorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"event_id": id})
	}
}

func Redistribute(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req redistributeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Redistribute(r.Context(), ledger.RedistributeInput{
			GuildID:  guildID,
			ItemName: strings.TrimSpace(req.ItemName),
			Category: strings.TrimSpace(req.Category),
			NewTotal: req.NewTotal,
			Reason:   strings.TrimSpace(req.Reason),
			Notes:    req.Notes,
			ActorID:  req.ActorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"item_name": req.ItemName,
			"category":  req.Category,
			"new_total": req.NewTotal,
		})
	}
}

func CurrentStock(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemName := strings.TrimSpace(r.URL.Query().Get("item"))
		category := strings.TrimSpace(r.URL.Query().Get("category"))

		if itemName == "" {
			totals, err := svc.CurrentStockAll(r.Context(), guildID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if totals == nil {
				totals = []events.ItemTotal{}
			}
			responses.WriteSuccess(w, map[string]any{"items": totals})
			return
		}

		if category == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "category is required when item is set").
					WithDetails(map[string]string{"field": "category"}))
			return
		}

		total, err := svc.CurrentStock(r.Context(), guildID, category, itemName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"item_name": itemName,
			"category":  category,
			"total":     total,
		})
	}
}

func StockSeries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemName := strings.TrimSpace(r.URL.Query().Get("item"))
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		if itemName == "" || category == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "item and category query parameters are required"))
			return
		}

		series, err := svc.StockSeries(r.Context(), guildID, category, itemName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if series == nil {
			series = []ledger.BalancePoint{}
		}

		responses.WriteSuccess(w, map[string]any{
			"item_name": itemName,
			"category":  category,
			"series":    series,
		})
	}
}

func AuditTrail(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxAuditLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trail, err := svc.AuditTrail(r.Context(), guildID, events.AuditFilter{
			ItemName: strings.TrimSpace(r.URL.Query().Get("item")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if trail == nil {
			trail = []events.AuditEvent{}
		}

		responses.WriteSuccess(w, map[string]any{"events": trail})
	}
}

func QuantityChangeHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemName := strings.TrimSpace(r.URL.Query().Get("item"))
		changes, err := svc.QuantityChangeHistory(r.Context(), guildID, itemName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"changes": changes})
	}
}

func RemoveEvent(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseEventKind(chi.URLParam(r, "kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event kind").
					WithDetails(map[string]string{"field": "kind"}))
			return
		}

		eventID, err := validators.ParsePathInt64(chi.URLParam(r, "eventID"), "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.RemoveEvent(r.Context(), guildID, kind, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !removed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "event not found"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"event_kind": kind,
			"event_id":   eventID,
			"removed":    true,
		})
	}
}
