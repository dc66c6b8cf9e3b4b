package models

import "time"

// UserPage is the public profile page owned by one account
type UserPage struct {
	ID                 int64
	UserID             int64
	Biography          string
	ProfileImageURL    string
	BackgroundImageURL string
	MusicURLs          []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserPageInput carries the editable fields of a page
type UserPageInput struct {
	Biography          string
	ProfileImageURL    string
	BackgroundImageURL string
	MusicURLs          []string
}

// PublicUserPage is a page joined with its owner's username
type PublicUserPage struct {
	Username string
	Page     *UserPage
}
