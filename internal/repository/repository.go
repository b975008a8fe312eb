package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrThemeNotFound    = errors.New("theme not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrAssetNotFound    = errors.New("asset not found")
	// ErrStaleWrite is returned when a conditional update matched no row
	// because the row changed underneath the caller.
	ErrStaleWrite = errors.New("row changed concurrently")
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
