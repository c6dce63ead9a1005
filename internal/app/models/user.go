package models

import (
	"time"
)

// User is the profile of an authenticated person, keyed by the identity provider uid
type User struct {
	UID         string    `json:"uid" db:"uid"`
	DisplayName string    `json:"displayName" db:"display_name"`
	PhotoURL    *string   `json:"photoUrl,omitempty" db:"photo_url"`
	Titles      []string  `json:"titles" db:"titles"` // temporary award tags
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// AddTitles appends tags that are not present yet and reports how many were added
func (u *User) AddTitles(tags ...string) int {
	added := 0
	for _, tag := range tags {
		if tag == "" || containsString(u.Titles, tag) {
			continue
		}
		u.Titles = append(u.Titles, tag)
		added++
	}
	return added
}

// FeedbackStatus is the triage state of a feedback item
type FeedbackStatus string

const (
	FeedbackOpen       FeedbackStatus = "OPEN"
	FeedbackInProgress FeedbackStatus = "IN_PROGRESS"
	FeedbackResolved   FeedbackStatus = "RESOLVED"
)

// Feedback is a user report triaged from the admin dashboard
type Feedback struct {
	ID        string         `json:"id" db:"id"`
	UID       string         `json:"uid" db:"uid"`
	Category  string         `json:"category" db:"category"`
	Message   string         `json:"message" db:"message"`
	Status    FeedbackStatus `json:"status" db:"status"`
	AdminNote string         `json:"adminNote,omitempty" db:"admin_note"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`
}
