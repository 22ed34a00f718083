package model

import (
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/datatypes"
)

// Streak tracks consecutive calendar days with at least one recorded activity.
// swagger:model Streak
type Streak struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint            `gorm:"uniqueIndex;not null" json:"userId"`
	CurrentStreak    int             `gorm:"not null" json:"currentStreak"`
	LongestStreak    int             `gorm:"not null" json:"longestStreak"`
	LastActivityDate *datatypes.Date `json:"lastActivityDate"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Streak) TableName() string {
	return "streaks"
}

// LastActivity returns the last activity day, false if the user never had one.
func (s *Streak) LastActivity() (civil.Date, bool) {
	if s.LastActivityDate == nil {
		return civil.Date{}, false
	}
	return civil.DateOf(time.Time(*s.LastActivityDate)), true
}

func (s *Streak) setLastActivity(day civil.Date) {
	d := datatypes.Date(day.In(time.UTC))
	s.LastActivityDate = &d
}

// Update applies an activity on day and reports whether the state changed.
// Same day is a no-op, the next day extends the streak, anything else
// (a gap or a day before the last activity) restarts it at 1.
func (s *Streak) Update(day civil.Date) bool {
	last, ok := s.LastActivity()
	switch {
	case !ok:
		s.CurrentStreak = 1
	case day == last:
		return false
	case day == last.AddDays(1):
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.setLastActivity(day)
	return true
}
