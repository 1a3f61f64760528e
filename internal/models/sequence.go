package models

// SequenceCounter backs the per-year document numbering. One row per
// (document class, year) pair holds the last issued value.
type SequenceCounter struct {
	DocumentClass string `gorm:"primaryKey;size:20"`
	Year          int    `gorm:"primaryKey"`
	Value         int64  `gorm:"not null"`
}
