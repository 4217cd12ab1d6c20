package models

import "time"

// Vendor is created lazily on first sighting of a normalized name. The
// unique index on NormalizedName is what keeps concurrent first sightings
// from producing duplicates; callers create and re-fetch on conflict.
type Vendor struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:255;not null"`
	NormalizedName string `gorm:"size:255;not null;uniqueIndex"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
