package store

import (
	"context"

	"github.com/ayatoki/kiroku/internal/profile"
)

// Store provides read access to the activity-log history.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Ping verifies the history database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}
