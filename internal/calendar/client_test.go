package calendar

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/availsync/internal/calendar/calendartest"
	"github.com/teemow/availsync/internal/google"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*Client, *calendartest.Server) {
	t.Helper()
	fake := calendartest.NewServer(t)
	c := NewClientWithService(fake.Service(t), "default",
		WithRateLimiter(NewRateLimiterWithConfig(1000, 1000)))
	c.backoff = time.Millisecond
	return c, fake
}

func TestListEvents_Paginates(t *testing.T) {
	c, fake := newTestClient(t)
	fake.PageSize = 2

	for i := 0; i < 5; i++ {
		start := day.Add(time.Duration(9+i) * time.Hour)
		fake.AddTimed("primary", "meeting", start, start.Add(30*time.Minute))
	}
	// outside the window
	fake.AddTimed("primary", "later", day.AddDate(0, 0, 10), day.AddDate(0, 0, 10).Add(time.Hour))

	events, err := c.ListEvents(context.Background(), "primary", day, day.AddDate(0, 0, 7), ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, day.Add(time.Duration(9+i)*time.Hour), e.Start.UTC())
	}

	lists := 0
	for _, r := range fake.Requests() {
		if r == "GET /calendars/primary/events" {
			lists++
		}
	}
	assert.Equal(t, 3, lists)
}

func TestListEvents_PrivateProperty(t *testing.T) {
	c, fake := newTestClient(t)

	fake.AddEvent("target", &calendar.Event{
		Summary:            "Busy",
		Start:              &calendar.EventDateTime{DateTime: day.Add(9 * time.Hour).Format(time.RFC3339)},
		End:                &calendar.EventDateTime{DateTime: day.Add(10 * time.Hour).Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{Private: map[string]string{ManagedKey: ManagedValue, SourceKey: "work"}},
	})
	fake.AddEvent("target", &calendar.Event{
		Summary:            "Busy",
		Start:              &calendar.EventDateTime{DateTime: day.Add(13 * time.Hour).Format(time.RFC3339)},
		End:                &calendar.EventDateTime{DateTime: day.Add(14 * time.Hour).Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{Private: map[string]string{ManagedKey: ManagedValue, SourceKey: "personal"}},
	})
	fake.AddTimed("target", "manual", day.Add(11*time.Hour), day.Add(12*time.Hour))

	all, err := c.ListEvents(context.Background(), "target", day, day.AddDate(0, 0, 1), ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	managed, err := c.ListEvents(context.Background(), "target", day, day.AddDate(0, 0, 1),
		ListOptions{PrivateProperties: []string{ManagedProperty}})
	require.NoError(t, err)
	require.Len(t, managed, 2)
	assert.True(t, managed[0].Managed)

	work, err := c.ListEvents(context.Background(), "target", day, day.AddDate(0, 0, 1),
		ListOptions{PrivateProperties: []string{ManagedProperty, SourceProperty("work")}})
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "work", work[0].Source)
	assert.True(t, work[0].Start.Equal(day.Add(9*time.Hour)))
}

func TestCreateEvent_Timed(t *testing.T) {
	c, fake := newTestClient(t)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	created, err := c.CreateEvent(context.Background(), "target", EventInput{
		Summary:      "Busy",
		Start:        start,
		End:          start.Add(time.Hour),
		Transparency: TransparencyOpaque,
		Private:      map[string]string{ManagedKey: ManagedValue, SourceKey: "primary"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Managed)
	assert.True(t, created.Start.Equal(start))

	stored := fake.Events("target")
	require.Len(t, stored, 1)
	assert.Equal(t, "Busy", stored[0].Summary)
	assert.Equal(t, TransparencyOpaque, stored[0].Transparency)
	assert.Equal(t, "UTC", stored[0].Start.TimeZone)
	assert.Equal(t, "primary", stored[0].ExtendedProperties.Private[SourceKey])
}

func TestCreateEvent_AllDay(t *testing.T) {
	c, fake := newTestClient(t)

	created, err := c.CreateEvent(context.Background(), "target", EventInput{
		Summary: "Busy",
		Start:   day,
		End:     day.AddDate(0, 0, 1),
		AllDay:  true,
	})
	require.NoError(t, err)
	assert.True(t, created.AllDay)

	stored := fake.Events("target")
	require.Len(t, stored, 1)
	assert.Equal(t, "2025-03-10", stored[0].Start.Date)
	assert.Equal(t, "2025-03-11", stored[0].End.Date)
	assert.Empty(t, stored[0].Start.DateTime)
}

func TestDeleteEvent(t *testing.T) {
	c, fake := newTestClient(t)
	e := fake.AddTimed("target", "Busy", day, day.Add(time.Hour))

	require.NoError(t, c.DeleteEvent(context.Background(), "target", e.Id))
	assert.Empty(t, fake.Events("target"))

	// already gone
	require.NoError(t, c.DeleteEvent(context.Background(), "target", e.Id))

	fake.FailNext(http.MethodDelete, http.StatusGone)
	require.NoError(t, c.DeleteEvent(context.Background(), "target", "whatever"))
}

func TestDeleteEvent_Error(t *testing.T) {
	c, fake := newTestClient(t)
	fake.FailNext(http.MethodDelete, http.StatusForbidden)

	err := c.DeleteEvent(context.Background(), "target", "evt1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete event")
	assert.True(t, google.IsForbidden(err))
}

func TestCall_RetriesRateLimit(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddTimed("primary", "meeting", day.Add(9*time.Hour), day.Add(10*time.Hour))
	fake.FailNext(http.MethodGet, http.StatusTooManyRequests, http.StatusTooManyRequests)

	events, err := c.ListEvents(context.Background(), "primary", day, day.AddDate(0, 0, 1), ListOptions{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Len(t, fake.Requests(), 3)
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	c, fake := newTestClient(t)
	fake.FailNext(http.MethodGet, http.StatusTooManyRequests, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests)

	_, err := c.ListEvents(context.Background(), "primary", day, day.AddDate(0, 0, 1), ListOptions{})
	require.Error(t, err)
	assert.True(t, google.IsRateLimited(err))
	assert.Len(t, fake.Requests(), 4)
}

func TestCall_NoRetryOnOtherErrors(t *testing.T) {
	c, fake := newTestClient(t)
	fake.FailNext(http.MethodGet, http.StatusInternalServerError)

	_, err := c.ListEvents(context.Background(), "primary", day, day.AddDate(0, 0, 1), ListOptions{})
	require.Error(t, err)
	assert.Len(t, fake.Requests(), 1)
}

func TestListCalendars(t *testing.T) {
	c, fake := newTestClient(t)
	fake.PageSize = 1
	fake.AddCalendar(&calendar.CalendarListEntry{Id: "me@example.com", Summary: "Me", Primary: true, AccessRole: "owner"})
	fake.AddCalendar(&calendar.CalendarListEntry{Id: "busy@group.calendar.google.com", Summary: "Availability", AccessRole: "writer"})
	fake.AddCalendar(&calendar.CalendarListEntry{Id: "holidays", Summary: "Holidays", AccessRole: "reader"})

	cals, err := c.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 3)
	assert.True(t, cals[0].Primary)
	assert.True(t, cals[1].Writable())
	assert.False(t, cals[2].Writable())

	info, err := c.GetCalendar(context.Background(), "holidays")
	require.NoError(t, err)
	assert.Equal(t, "Holidays", info.Summary)

	_, err = c.GetCalendar(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, google.IsNotFound(err))
}

func TestContextCancelled(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListEvents(ctx, "primary", day, day.AddDate(0, 0, 1), ListOptions{})
	assert.Error(t, err)
}

func TestNewClientForAccountWithProvider_NilProvider(t *testing.T) {
	_, err := NewClientForAccountWithProvider(context.Background(), "default", nil)
	assert.Error(t, err)
}
