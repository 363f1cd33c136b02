// Package google holds the Google OAuth configuration and the per-user token
// plumbing shared by the calendar collaborators and the connect flow.
package google
