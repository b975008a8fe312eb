package service

import (
	"errors"
	"fmt"

	"campaignstudio/internal/repository"
)

// storeErr lifts repository sentinels into the service vocabulary the
// handlers map to status codes.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrCampaignNotFound),
		errors.Is(err, repository.ErrThemeNotFound),
		errors.Is(err, repository.ErrPostNotFound),
		errors.Is(err, repository.ErrAssetNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrStaleWrite):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
