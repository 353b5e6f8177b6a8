package archives

import (
	"context"

	"gorm.io/gorm"

	"github.com/HydrikMasqued/quartermaster/internal/repo"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
)

// Repository manages persistence for epoch archives.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, archive *models.LedgerArchive) error
	ListByGuildID(ctx context.Context, guildID int64) ([]models.LedgerArchive, error)
	GetByID(ctx context.Context, id int64) (*models.LedgerArchive, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an archive repository routing statements through the
// given executor.
func NewRepository(exec repo.Executor) Repository {
	return &repository{base: repo.NewBase(exec)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(repo.Direct(tx))}
}

func (r *repository) Create(ctx context.Context, archive *models.LedgerArchive) error {
	return r.base.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(archive).Error
	})
}

func (r *repository) ListByGuildID(ctx context.Context, guildID int64) ([]models.LedgerArchive, error) {
	var rows []models.LedgerArchive
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		rows = nil
		return conn.
			Where("guild_id = ?", guildID).
			Order("created_at DESC, id DESC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.LedgerArchive, error) {
	var row models.LedgerArchive
	err := r.base.Run(ctx, func(conn *gorm.DB) error {
		row = models.LedgerArchive{}
		return conn.First(&row, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}
