package ledger

import (
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
)

type quantityAssignment struct {
	ID       int64
	Quantity int64
}

// redistributionPlan is the pure outcome of remapping a new aggregate total
// onto the existing rows for an item key, computed before any write happens.
type redistributionPlan struct {
	CurrentTotal int64
	DeleteAll    bool
	Updates      []quantityAssignment
	Deletes      []int64
}

// planRedistribution apportions newTotal across rows proportionally to their
// current quantities. Integer arithmetic only: every row but the last gets
// floor(newTotal*qty/currentTotal) and the last absorbs the remainder, so the
// surviving quantities sum to newTotal exactly. Rows assigned 0 are marked
// for deletion rather than stored as zero.
//
// rows must be ordered oldest first and non-empty; newTotal must be >= 0.
func planRedistribution(rows []models.ContributionEvent, newTotal int64) redistributionPlan {
	plan := redistributionPlan{}
	for _, row := range rows {
		plan.CurrentTotal += row.Quantity
	}

	if newTotal == 0 {
		plan.DeleteAll = true
		return plan
	}

	if plan.CurrentTotal <= 0 {
		// nothing proportional to scale from; the oldest row takes it all
		plan.Updates = append(plan.Updates, quantityAssignment{ID: rows[0].ID, Quantity: newTotal})
		return plan
	}

	remaining := newTotal
	for i, row := range rows {
		var newQty int64
		if i == len(rows)-1 {
			newQty = remaining
			if newQty < 0 {
				newQty = 0
			}
		} else {
			newQty = newTotal * row.Quantity / plan.CurrentTotal
		}
		remaining -= newQty

		if newQty == 0 {
			plan.Deletes = append(plan.Deletes, row.ID)
			continue
		}
		plan.Updates = append(plan.Updates, quantityAssignment{ID: row.ID, Quantity: newQty})
	}
	return plan
}
