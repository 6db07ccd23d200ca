// Package google handles OAuth2 for the Google Calendar API: it reads the
// installed-application client secret (credentials.json), runs the loopback
// authorization flow, caches tokens per account on disk and classifies
// googleapi errors.
package google
