package services

import (
	"context"
	"errors"

	"github.com/triplink/triplink-backend/internal/models"
)

// storeError turns a store failure into an AppError. Typed errors pass
// through unchanged so checks made inside a transaction keep their kind.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, models.ErrNotFound):
		return models.NewNotFound(notFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.NewUnavailable("Request cancelled", err)
	default:
		return models.NewInternal("Internal server error", err)
	}
}
