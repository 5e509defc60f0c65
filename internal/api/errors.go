package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/markerdeck/markerdeck/internal/catalog"
	"github.com/markerdeck/markerdeck/internal/editor"
	"github.com/markerdeck/markerdeck/internal/export"
	"github.com/markerdeck/markerdeck/internal/media"
	"github.com/markerdeck/markerdeck/internal/stash"
	"github.com/markerdeck/markerdeck/internal/wall"
)

// writeServiceError maps a service error onto an HTTP error response.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *editor.ValidationError
		batch      *editor.BatchError
		reqErr     *stash.RequestError
		gqlErr     *stash.GraphQLError
	)

	switch {
	case errors.As(err, &validation):
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:    validation.Error(),
			Code:     "VALIDATION_ERROR",
			Invalid:  validation.InvalidCount(),
			Problems: validation.Problems,
		})
	case errors.As(err, &batch):
		logger.Error("batch save incomplete", "saved", batch.Saved, "total", batch.Total, "failed", batch.Failed.String(), "error", batch.Err)
		WriteJSON(w, http.StatusBadGateway, BatchErrorResponse{
			Error:  batch.Error(),
			Code:   "BATCH_INCOMPLETE",
			Saved:  batch.Saved,
			Total:  batch.Total,
			Failed: batch.Failed,
		})
	case errors.Is(err, editor.ErrSaveInProgress):
		WriteError(w, http.StatusConflict, err.Error(), "SAVE_IN_PROGRESS")
	case errors.Is(err, stash.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "NOT_CONFIGURED")
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, stash.ErrNotFound),
		errors.Is(err, editor.ErrUnknownRef):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, errBadBody),
		errors.Is(err, editor.ErrNotExisting),
		errors.Is(err, editor.ErrNoPendingDelete),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, media.ErrInvalidID),
		errors.Is(err, media.ErrInvalidWidth),
		errors.Is(err, wall.ErrNoClips),
		errors.Is(err, wall.ErrInvalidTile):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, editor.ErrDeleteRefused),
		errors.Is(err, stash.ErrUnavailable),
		errors.Is(err, media.ErrTooLarge),
		errors.As(err, &reqErr),
		errors.As(err, &gqlErr):
		logger.Error("upstream request failed", "error", err)
		WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
