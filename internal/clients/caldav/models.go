package caldav

import "github.com/emersion/go-ical"

// Calendar represents a calendar collection on the server
type Calendar struct {
	Path        string
	DisplayName string
	Description string
}

// Object is one stored calendar resource
type Object struct {
	Path string
	ETag string
	Data *ical.Calendar
}
