package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Field values used by the Calendar API.
const (
	TransparencyOpaque      = "opaque"
	TransparencyTransparent = "transparent"

	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"

	ResponseDeclined = "declined"

	DefaultTimeZone = "UTC"

	dateLayout = "2006-01-02"
)

// Private extended properties that mark events availsync created.
const (
	ManagedKey   = "availsync"
	ManagedValue = "managed"
	SourceKey    = "availsyncSource"
)

// ManagedProperty is the privateExtendedProperty filter for managed events.
const ManagedProperty = ManagedKey + "=" + ManagedValue

// SourceProperty returns the privateExtendedProperty filter for events
// mirrored from source.
func SourceProperty(source string) string {
	return SourceKey + "=" + source
}

// EventInput describes an event to create.
type EventInput struct {
	Summary string
	Start   time.Time
	End     time.Time
	// AllDay writes Start and End as dates. End is exclusive.
	AllDay bool
	// TimeZone for timed events. Defaults to UTC.
	TimeZone string
	// Transparency is "opaque" or "transparent". Empty leaves the API default.
	Transparency string
	// Private extended properties.
	Private map[string]string
}

// EventSummary is the subset of an event availsync works with.
type EventSummary struct {
	ID           string
	Summary      string
	Status       string
	Transparency string
	EventType    string
	Start        time.Time
	End          time.Time
	AllDay       bool
	// SelfResponse is the response status of the attendee marked self, if any.
	SelfResponse string
	// Managed is set when the event carries the availsync private marker.
	Managed  bool
	// Source is the source calendar recorded on managed events.
	Source   string
	HTMLLink string
}

// IsTransparent reports whether the event is marked "show as available".
func (e EventSummary) IsTransparent() bool {
	return e.Transparency == TransparencyTransparent
}

// IsCancelled reports whether the event was cancelled.
func (e EventSummary) IsCancelled() bool {
	return e.Status == StatusCancelled
}

// IsDeclined reports whether the calendar owner declined the event.
func (e EventSummary) IsDeclined() bool {
	return e.SelfResponse == ResponseDeclined
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID          string
	Summary     string
	Description string
	TimeZone    string
	Primary     bool
	AccessRole  string // "owner", "writer", "reader", "freeBusyReader"
}

// Writable reports whether events can be created in the calendar.
func (c CalendarInfo) Writable() bool {
	return c.AccessRole == "owner" || c.AccessRole == "writer"
}

// ListOptions narrows ListEvents.
type ListOptions struct {
	// PrivateProperties filter by private extended properties, each as
	// "key=value". An event must carry all of them.
	PrivateProperties []string
}

// parseEventTime reads an EventDateTime. Dates become midnight UTC.
func parseEventTime(edt *calendar.EventDateTime) (t time.Time, allDay bool, ok bool) {
	if edt == nil {
		return time.Time{}, false, false
	}
	if edt.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, false
		}
		return parsed, false, true
	}
	if edt.Date != "" {
		parsed, err := time.Parse(dateLayout, edt.Date)
		if err != nil {
			return time.Time{}, false, false
		}
		return parsed, true, true
	}
	return time.Time{}, false, false
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:           event.Id,
		Summary:      event.Summary,
		Status:       event.Status,
		Transparency: event.Transparency,
		EventType:    event.EventType,
		HTMLLink:     event.HtmlLink,
	}

	if start, allDay, ok := parseEventTime(event.Start); ok {
		summary.Start = start
		summary.AllDay = allDay
	}
	if end, _, ok := parseEventTime(event.End); ok {
		summary.End = end
	}

	for _, att := range event.Attendees {
		if att != nil && att.Self {
			summary.SelfResponse = att.ResponseStatus
			break
		}
	}

	if event.ExtendedProperties != nil {
		summary.Managed = event.ExtendedProperties.Private[ManagedKey] == ManagedValue
		summary.Source = event.ExtendedProperties.Private[SourceKey]
	}

	return summary
}

// toEvent builds the API representation of input.
func toEvent(input EventInput) *calendar.Event {
	event := &calendar.Event{
		Summary:      input.Summary,
		Transparency: input.Transparency,
	}

	if input.AllDay {
		event.Start = &calendar.EventDateTime{Date: input.Start.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: input.End.Format(dateLayout)}
	} else {
		tz := input.TimeZone
		if tz == "" {
			tz = DefaultTimeZone
		}
		event.Start = &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
		event.End = &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	if len(input.Private) > 0 {
		private := make(map[string]string, len(input.Private))
		for k, v := range input.Private {
			private[k] = v
		}
		event.ExtendedProperties = &calendar.EventExtendedProperties{Private: private}
	}

	return event
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}
