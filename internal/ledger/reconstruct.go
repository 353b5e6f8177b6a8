package ledger

import (
	"sort"
	"time"

	"github.com/HydrikMasqued/quartermaster/internal/events"
	"github.com/HydrikMasqued/quartermaster/pkg/enums"
)

// ItemKey identifies one trackable stock unit. Matching is exact-string:
// differently cased or spaced names are distinct items.
type ItemKey struct {
	Category string
	ItemName string
}

// BalancePoint is one step of a reconstructed running balance.
type BalancePoint struct {
	EventID    int64           `json:"event_id"`
	Kind       enums.EventKind `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Delta      int64           `json:"delta"`
	Balance    int64           `json:"balance"`
}

// ReplaySeries folds an event sequence into the running balance for one item
// key. Contributions add their delta; a quantity change sets the balance to
// its new total unconditionally, regardless of prior history (old_quantity is
// audit metadata and never consulted). Events are ordered by (occurred_at,
// kind, id): ids come from two separate tables and can collide, so full
// timestamp-and-id ties rank the quantity change before the contribution,
// matching the audit query. Replaying the same sequence always yields the
// same series.
func ReplaySeries(seq []events.AuditEvent, key ItemKey) []BalancePoint {
	filtered := make([]events.AuditEvent, 0, len(seq))
	for _, e := range seq {
		if e.Category == key.Category && e.ItemName == key.ItemName {
			filtered = append(filtered, e)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].OccurredAt.Equal(filtered[j].OccurredAt) {
			return filtered[i].OccurredAt.Before(filtered[j].OccurredAt)
		}
		ri, rj := kindRank(filtered[i].Kind), kindRank(filtered[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return filtered[i].EventID < filtered[j].EventID
	})

	series := make([]BalancePoint, 0, len(filtered))
	var balance int64
	for _, e := range filtered {
		switch e.Kind {
		case enums.EventKindQuantityChange:
			if e.NewQuantity != nil {
				balance = *e.NewQuantity
			}
		default:
			balance += e.QuantityDelta
		}
		series = append(series, BalancePoint{
			EventID:    e.EventID,
			Kind:       e.Kind,
			OccurredAt: e.OccurredAt,
			Delta:      e.QuantityDelta,
			Balance:    balance,
		})
	}
	return series
}

// kindRank orders event kinds within one timestamp: the override lands first
// so a same-instant contribution stacks on top of the new total.
func kindRank(kind enums.EventKind) int {
	if kind == enums.EventKindQuantityChange {
		return 0
	}
	return 1
}

// ReplayBalance folds the sequence down to the final balance for the key.
// An empty filtered sequence yields 0.
func ReplayBalance(seq []events.AuditEvent, key ItemKey) int64 {
	series := ReplaySeries(seq, key)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Balance
}
