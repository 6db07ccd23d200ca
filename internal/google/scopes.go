package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// Scopes are the OAuth scopes availsync requests. Creating and deleting
// events in the availability calendar needs full calendar access.
var Scopes = []string{
	calendar.CalendarScope,
}
