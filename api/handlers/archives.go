package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HydrikMasqued/quartermaster/api/responses"
	"github.com/HydrikMasqued/quartermaster/api/validators"
	"github.com/HydrikMasqued/quartermaster/internal/archives"
	"github.com/HydrikMasqued/quartermaster/pkg/db/models"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
)

type archiveRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Notes       string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ActorID     int64  `json:"actor_id" validate:"required,gt=0"`
}

// archiveSummary is the list representation, the blob stays out of listings.
type archiveSummary struct {
	ID          int64  `json:"id"`
	GuildID     int64  `json:"guild_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedByID int64  `json:"created_by_id"`
	CreatedAt   string `json:"created_at"`
}

func summarize(a models.LedgerArchive) archiveSummary {
	return archiveSummary{
		ID:          a.ID,
		GuildID:     a.GuildID,
		Name:        a.Name,
		Description: a.Description,
		CreatedByID: a.CreatedByID,
		CreatedAt:   a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func ArchiveEpoch(svc archives.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req archiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.ArchiveEpoch(r.Context(), archives.ArchiveEpochInput{
			GuildID:     guildID,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Notes:       strings.TrimSpace(req.Notes),
			ActorID:     req.ActorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"archive_id": id})
	}
}

func ListArchives(svc archives.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID, err := guildFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), guildID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summaries := make([]archiveSummary, 0, len(rows))
		for _, row := range rows {
			summaries = append(summaries, summarize(row))
		}

		responses.WriteSuccess(w, map[string]any{"archives": summaries})
	}
}

func GetArchive(svc archives.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archiveID, err := validators.ParsePathInt64(chi.URLParam(r, "archiveID"), "archiveID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		archive, snapshot, err := svc.Get(r.Context(), archiveID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"archive":  summarize(*archive),
			"snapshot": snapshot,
		})
	}
}
