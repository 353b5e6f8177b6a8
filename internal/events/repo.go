package events

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/HydrikMasqued/quartermaster/internal/repo"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
)

// Repository is the append/read surface over the two event tables. Queries
// that return sequences are ordered ascending by (occurred_at, id) so replay
// is deterministic.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	AppendContribution(ctx context.Context, event *models.ContributionEvent) error
	AppendQuantityChange(ctx context.Context, event *models.QuantityChangeEvent) error

	QueryAudit(ctx context.Context, guildID int64, filter AuditFilter) ([]AuditEvent, error)
	ListItemContributions(ctx context.Context, guildID int64, category, itemName string) ([]models.ContributionEvent, error)
	ListGuildContributions(ctx context.Context, guildID int64) ([]models.ContributionEvent, error)
	ListItemQuantityChanges(ctx context.Context, guildID int64, itemName string) ([]models.QuantityChangeEvent, error)
	SumItemQuantity(ctx context.Context, guildID int64, category, itemName string) (int64, error)
	ListGuildItemTotals(ctx context.Context, guildID int64) ([]ItemTotal, error)

	UpdateContributionQuantity(ctx context.Context, id int64, quantity int64) error
	DeleteContribution(ctx context.Context, guildID, id int64) (bool, error)
	DeleteQuantityChange(ctx context.Context, guildID, id int64) (bool, error)
	DeleteItemContributions(ctx context.Context, guildID int64, category, itemName string) error
	DeleteGuildContributions(ctx context.Context, guildID int64) (int64, error)
	DeleteGuildQuantityChanges(ctx context.Context, guildID int64) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an event repository routing statements through the
// given executor. Pass the db.Client in production so reads and appends get
// the same retry and reconnect treatment as transactions.
func NewRepository(exec repo.Executor) Repository {
	return &repository{base: repo.NewBase(exec)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(repo.Direct(tx))}
}

func (r *repository) AppendContribution(ctx context.Context, event *models.ContributionEvent) error {
	return r.base.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(event).Error
	})
}

func (r *repository) AppendQuantityChange(ctx context.Context, event *models.QuantityChangeEvent) error {
	return r.base.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(event).Error
	})
}

// QueryAudit merges both tables into one chronological stream. The UNION keeps
// the original tables intact while presenting the single-ledger shape the
// reconstructor folds over. Ids from the two tables can collide, so a full
// timestamp-and-id tie orders quantity changes before contributions to keep
// the stream deterministic.
func (r *repository) QueryAudit(ctx context.Context, guildID int64, filter AuditFilter) ([]AuditEvent, error) {
	conditions := []string{"guild_id = ?"}
	params := []any{guildID}
	if filter.ItemName != "" {
		conditions = append(conditions, "item_name = ?")
		params = append(params, filter.ItemName)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		params = append(params, filter.Category)
	}
	where := strings.Join(conditions, " AND ")

	sql := fmt.Sprintf(`
SELECT 'contribution' AS kind,
       c.id AS event_id,
       c.category AS category,
       c.item_name AS item_name,
       c.quantity AS quantity_delta,
       NULL AS old_quantity,
       NULL AS new_quantity,
       NULL AS reason,
       NULL AS notes,
       c.created_at AS occurred_at,
       c.actor_id AS actor_id
FROM contribution_events c
WHERE %s
UNION ALL
SELECT 'quantity_change' AS kind,
       qc.id AS event_id,
       qc.category AS category,
       qc.item_name AS item_name,
       (qc.new_quantity - qc.old_quantity) AS quantity_delta,
       qc.old_quantity AS old_quantity,
       qc.new_quantity AS new_quantity,
       qc.reason AS reason,
       qc.notes AS notes,
       qc.changed_at AS occurred_at,
       qc.actor_id AS actor_id
FROM quantity_change_events qc
WHERE %s
ORDER BY occurred_at ASC, CASE kind WHEN 'quantity_change' THEN 0 ELSE 1 END ASC, event_id ASC`, where, where)

	args := append(append([]any{}, params...), params...)
	if filter.Limit > 0 {
		sql += "\nLIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []AuditEvent
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.Raw(sql, args...).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListItemContributions(ctx context.Context, guildID int64, category, itemName string) ([]models.ContributionEvent, error) {
	var rows []models.ContributionEvent
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.
			Where("guild_id = ? AND category = ? AND item_name = ?", guildID, category, itemName).
			Order("created_at ASC, id ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListGuildContributions(ctx context.Context, guildID int64) ([]models.ContributionEvent, error) {
	var rows []models.ContributionEvent
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.
			Where("guild_id = ?", guildID).
			Order("category ASC, created_at ASC, id ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListItemQuantityChanges(ctx context.Context, guildID int64, itemName string) ([]models.QuantityChangeEvent, error) {
	var rows []models.QuantityChangeEvent
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.
			Where("guild_id = ? AND item_name = ?", guildID, itemName).
			Order("changed_at DESC, id DESC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumItemQuantity(ctx context.Context, guildID int64, category, itemName string) (int64, error) {
	var total int64
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		total = 0
		return conn.
			Model(&models.ContributionEvent{}).
			Select("COALESCE(SUM(quantity), 0)").
			Where("guild_id = ? AND category = ? AND item_name = ?", guildID, category, itemName).
			Scan(&total).Error
	})
	if err != nil {
		return 0, err
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

func (r *repository) ListGuildItemTotals(ctx context.Context, guildID int64) ([]ItemTotal, error) {
	var rows []ItemTotal
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.
			Model(&models.ContributionEvent{}).
			Select("item_name, category, SUM(quantity) AS total").
			Where("guild_id = ?", guildID).
			Group("item_name, category").
			Having("SUM(quantity) > 0").
			Order("category ASC, item_name ASC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateContributionQuantity(ctx context.Context, id int64, quantity int64) error {
	return r.base.Run(ctx, func(conn *gorm.DB) error {
		return conn.
			Model(&models.ContributionEvent{}).
			Where("id = ?", id).
			Update("quantity", quantity).Error
	})
}

func (r *repository) DeleteContribution(ctx context.Context, guildID, id int64) (bool, error) {
	var affected int64
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		res := conn.
			Where("guild_id = ? AND id = ?", guildID, id).
			Delete(&models.ContributionEvent{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repository) DeleteQuantityChange(ctx context.Context, guildID, id int64) (bool, error) {
	var affected int64
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		res := conn.
			Where("guild_id = ? AND id = ?", guildID, id).
			Delete(&models.QuantityChangeEvent{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repository) DeleteItemContributions(ctx context.Context, guildID int64, category, itemName string) error {
	return r.base.Run(ctx, func(conn *gorm.DB) error {
		return conn.
			Where("guild_id = ? AND category = ? AND item_name = ?", guildID, category, itemName).
			Delete(&models.ContributionEvent{}).Error
	})
}

func (r *repository) DeleteGuildContributions(ctx context.Context, guildID int64) (int64, error) {
	var affected int64
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		res := conn.
			Where("guild_id = ?", guildID).
			Delete(&models.ContributionEvent{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *repository) DeleteGuildQuantityChanges(ctx context.Context, guildID int64) (int64, error) {
	var affected int64
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		res := conn.
			Where("guild_id = ?", guildID).
			Delete(&models.QuantityChangeEvent{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}
