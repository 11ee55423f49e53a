package nart

import "context"

// Loader persists assembled patients into NART.
type Loader interface {
	// Load writes p and everything it owns in a single transaction.
	Load(ctx context.Context, p *Patient) error
	// SaveSitePrefix records the site_prefix global property unless one is
	// already set.
	SaveSitePrefix(ctx context.Context, prefix string) error
	// MaxAccession returns the highest "<site>-<n>" accession number already
	// used by an order, or 0.
	MaxAccession(ctx context.Context, site string) (int64, error)
}

// Actor is the NART user and location recorded as creator, provider and
// location on every migrated row.
type Actor struct {
	UserID     int
	LocationID int
}
