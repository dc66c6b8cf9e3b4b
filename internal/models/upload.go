package models

import "time"

// Upload records which account stored an image
type Upload struct {
	Filename    string
	UserID      int64
	ContentType string
	Size        int64
	CreatedAt   time.Time
}
