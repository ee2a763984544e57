package models

import "time"

type Bookmark struct {
	ID         int64
	UserID     int64
	URL        string
	Title      string
	Notes      *string
	CreatedAt  time.Time
	Archived   bool
	ArchivedAt *time.Time
}
