// Package calendartest provides an in-memory fake of the Google Calendar v3
// REST API for tests.
package calendartest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Server is a fake Calendar API. The zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	events    map[string][]*calendar.Event
	calendars []*calendar.CalendarListEntry
	failures  map[string][]int
	nextID    int
	requests  []string

	// PageSize caps every result page, to exercise pagination.
	PageSize int
}

// NewServer starts a fake API that is closed when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		events:   make(map[string][]*calendar.Event),
		failures: make(map[string][]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", s.listEvents)
	mux.HandleFunc("POST /calendars/{cal}/events", s.insertEvent)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", s.deleteEvent)
	mux.HandleFunc("GET /users/me/calendarList", s.listCalendars)
	mux.HandleFunc("GET /users/me/calendarList/{cal}", s.getCalendar)

	s.Server = httptest.NewServer(s.record(mux))
	tb.Cleanup(s.Close)
	return s
}

// Service returns a calendar.Service talking to the fake.
func (s *Server) Service(tb testing.TB) *calendar.Service {
	tb.Helper()
	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(s.URL+"/"),
		option.WithHTTPClient(s.Client()),
	)
	if err != nil {
		tb.Fatalf("failed to create calendar service: %v", err)
	}
	return svc
}

// AddEvent stores a copy of e in calendarID, assigning an ID when empty.
func (s *Server) AddEvent(calendarID string, e *calendar.Event) *calendar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(calendarID, e)
}

// AddTimed is a shorthand for an opaque timed event.
func (s *Server) AddTimed(calendarID, summary string, start, end time.Time) *calendar.Event {
	return s.AddEvent(calendarID, &calendar.Event{
		Summary: summary,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	})
}

// Events returns the events stored in calendarID ordered by start.
func (s *Server) Events(calendarID string) []*calendar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]*calendar.Event(nil), s.events[calendarID]...)
	sortByStart(out)
	return out
}

// AddCalendar appends an entry to the calendar list.
func (s *Server) AddCalendar(entry *calendar.CalendarListEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars = append(s.calendars, entry)
}

// FailNext makes the next requests with the given HTTP method fail with codes,
// one code per request.
func (s *Server) FailNext(method string, codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], codes...)
}

// Requests returns "METHOD path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		var code int
		if queue := s.failures[r.Method]; len(queue) > 0 {
			code = queue[0]
			s.failures[r.Method] = queue[1:]
		}
		s.mu.Unlock()

		if code != 0 {
			writeError(w, code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) addLocked(calendarID string, e *calendar.Event) *calendar.Event {
	cp := *e
	if cp.Id == "" {
		s.nextID++
		cp.Id = fmt.Sprintf("evt%d", s.nextID)
	}
	if cp.Status == "" {
		cp.Status = "confirmed"
	}
	cp.HtmlLink = "https://calendar.example.com/event?eid=" + cp.Id
	s.events[calendarID] = append(s.events[calendarID], &cp)
	return &cp
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeMin, _ := time.Parse(time.RFC3339, q.Get("timeMin"))
	timeMax, _ := time.Parse(time.RFC3339, q.Get("timeMax"))
	private := q["privateExtendedProperty"]

	s.mu.Lock()
	var matched []*calendar.Event
	for _, e := range s.events[r.PathValue("cal")] {
		start, end := bounds(e)
		if !timeMin.IsZero() && !end.After(timeMin) {
			continue
		}
		if !timeMax.IsZero() && !start.Before(timeMax) {
			continue
		}
		if !hasPrivate(e, private) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.Unlock()
	sortByStart(matched)

	items, next := s.page(len(matched), q.Get("maxResults"), q.Get("pageToken"))
	writeJSON(w, &calendar.Events{Items: matched[items[0]:items[1]], NextPageToken: next})
}

func (s *Server) insertEvent(w http.ResponseWriter, r *http.Request) {
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	created := s.addLocked(r.PathValue("cal"), &e)
	s.mu.Unlock()

	writeJSON(w, created)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	cal, id := r.PathValue("cal"), r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events[cal] {
		if e.Id == id {
			s.events[cal] = append(s.events[cal][:i], s.events[cal][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound)
}

func (s *Server) listCalendars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	entries := append([]*calendar.CalendarListEntry(nil), s.calendars...)
	s.mu.Unlock()

	items, next := s.page(len(entries), q.Get("maxResults"), q.Get("pageToken"))
	writeJSON(w, &calendar.CalendarList{Items: entries[items[0]:items[1]], NextPageToken: next})
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.calendars {
		if entry.Id == r.PathValue("cal") {
			writeJSON(w, entry)
			return
		}
	}
	writeError(w, http.StatusNotFound)
}

// page returns the [from, to) slice bounds and the next page token.
func (s *Server) page(total int, maxResults, token string) ([2]int, string) {
	size := total
	if n, err := strconv.Atoi(maxResults); err == nil && n > 0 && n < size {
		size = n
	}
	s.mu.Lock()
	if s.PageSize > 0 && s.PageSize < size {
		size = s.PageSize
	}
	s.mu.Unlock()

	from, _ := strconv.Atoi(token)
	if from > total {
		from = total
	}
	to := from + size
	if to >= total {
		return [2]int{from, total}, ""
	}
	return [2]int{from, to}, strconv.Itoa(to)
}

func bounds(e *calendar.Event) (time.Time, time.Time) {
	return parse(e.Start), parse(e.End)
}

func parse(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, edt.DateTime)
		return t
	}
	t, _ := time.Parse("2006-01-02", edt.Date)
	return t
}

// hasPrivate reports whether e carries every "key=value" filter.
func hasPrivate(e *calendar.Event, filters []string) bool {
	for _, filter := range filters {
		key, value, _ := strings.Cut(filter, "=")
		if e.ExtendedProperties == nil {
			return false
		}
		if v, ok := e.ExtendedProperties.Private[key]; !ok || v != value {
			return false
		}
	}
	return true
}

func sortByStart(events []*calendar.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		si, _ := bounds(events[i])
		sj, _ := bounds(events[j])
		return si.Before(sj)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int) {
	reason := "backendError"
	switch code {
	case http.StatusTooManyRequests:
		reason = "rateLimitExceeded"
	case http.StatusNotFound:
		reason = "notFound"
	case http.StatusGone:
		reason = "deleted"
	case http.StatusUnauthorized:
		reason = "authError"
	case http.StatusBadRequest:
		reason = "badRequest"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": http.StatusText(code),
			"errors":  []map[string]string{{"reason": reason, "message": http.StatusText(code)}},
		},
	})
}
