package calendar

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/availsync/internal/google"
	"github.com/teemow/availsync/internal/instrumentation"
)

const (
	pageSize          = 250
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Client wraps the Google Calendar service
type Client struct {
	svc        *calendar.Service
	account    string // The account this client is associated with
	metrics    *instrumentation.Metrics
	limiter    *RateLimiter
	maxRetries int
	// backoff is the base delay before retrying a rate-limited call when
	// Google sends no Retry-After. It doubles per attempt.
	backoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetrics records API calls in m.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithRateLimiter replaces the default limiter. Clients of one account should
// share a limiter.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccountWithProvider creates a Calendar client authenticated
// with the token the provider holds for account.
func NewClientForAccountWithProvider(ctx context.Context, account string, provider google.TokenProvider, opts ...ClientOption) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	ts, err := provider.TokenSource(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(google.NewHTTPClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return NewClientWithService(svc, account, opts...), nil
}

// NewClientWithService wraps an existing service.
func NewClientWithService(svc *calendar.Service, account string, opts ...ClientOption) *Client {
	c := &Client{
		svc:        svc,
		account:    account,
		limiter:    NewRateLimiter(),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call runs fn under the rate limiter inside a span, retrying rate-limited
// attempts, and records the outcome.
func (c *Client) call(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, op, attrs...)
	defer span.End()

	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		if err = c.limiter.Wait(ctx); err != nil {
			break
		}
		err = fn(ctx)
		if err == nil || !google.IsRateLimited(err) || attempt >= c.maxRetries {
			break
		}

		backoff := google.RetryAfter(err)
		if backoff == 0 {
			backoff = c.backoff << attempt
		}
		span.AddEvent("rate_limited", trace.WithAttributes(
			attribute.Int("attempt", attempt+1),
			attribute.String("backoff", backoff.String()),
		))
		c.limiter.RecordRateLimitError(backoff)
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, op, status, time.Since(start))

	return err
}

// ListEvents returns every event instance in [timeMin, timeMax), expanding
// recurring events and following all result pages.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, opts ListOptions) ([]EventSummary, error) {
	attrs := instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()

	var summaries []EventSummary
	pageToken := ""
	for {
		var page *calendar.Events
		err := c.call(ctx, instrumentation.OperationList, attrs, func(ctx context.Context) error {
			call := c.svc.Events.List(calendarID).
				TimeMin(timeMin.UTC().Format(time.RFC3339)).
				TimeMax(timeMax.UTC().Format(time.RFC3339)).
				SingleEvents(true).
				OrderBy("startTime").
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			if len(opts.PrivateProperties) > 0 {
				call = call.PrivateExtendedProperty(opts.PrivateProperties...)
			}

			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for _, event := range page.Items {
			summaries = append(summaries, toEventSummary(event))
		}

		if page.NextPageToken == "" {
			return summaries, nil
		}
		pageToken = page.NextPageToken
	}
}

// CreateEvent creates a new calendar event
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	attrs := instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()
	event := toEvent(input)

	var created *calendar.Event
	err := c.call(ctx, instrumentation.OperationCreate, attrs, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}

// DeleteEvent deletes an event. Events that are already gone count as deleted.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithCalendar(calendarID).
		WithResourceID(eventID).
		Build()

	err := c.call(ctx, instrumentation.OperationDelete, attrs, func(ctx context.Context) error {
		err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
		if google.IsNotFound(err) || google.IsGone(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListCalendars lists all calendars in the user's calendar list
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var calendars []CalendarInfo
	pageToken := ""
	for {
		var page *calendar.CalendarList
		err := c.call(ctx, instrumentation.OperationList, nil, func(ctx context.Context) error {
			call := c.svc.CalendarList.List().MaxResults(pageSize).Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}

		for _, entry := range page.Items {
			calendars = append(calendars, toCalendarInfo(entry))
		}

		if page.NextPageToken == "" {
			return calendars, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetCalendar retrieves information about a specific calendar
func (c *Client) GetCalendar(ctx context.Context, calendarID string) (*CalendarInfo, error) {
	attrs := instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()

	var entry *calendar.CalendarListEntry
	err := c.call(ctx, instrumentation.OperationGet, attrs, func(ctx context.Context) error {
		var err error
		entry, err = c.svc.CalendarList.Get(calendarID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}

	info := toCalendarInfo(entry)
	return &info, nil
}
