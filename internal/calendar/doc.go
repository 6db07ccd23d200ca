// Package calendar is a thin client for the Google Calendar v3 API.
//
// It covers what availsync needs: listing expanded event instances in a time
// window, creating and deleting events, and listing the calendars an account
// can see. Every call is rate limited, traced and counted, and retried when
// Google reports a rate limit.
package calendar
