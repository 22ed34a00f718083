package service

import (
	"time"

	"cloud.google.com/go/civil"
)

// Calendar maps instants to calendar days in the single reference timezone
// used for every streak computation.
type Calendar struct {
	Location *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Location: loc}
}

func (c Calendar) DateOf(t time.Time) civil.Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}
