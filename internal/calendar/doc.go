// Package calendar drives the Google Calendar API on behalf of connected
// users: event creation and free/busy queries over per-user OAuth clients.
package calendar
