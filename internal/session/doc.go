// Package session holds the process-wide mutable state that maps anonymous
// voice calls back to authenticated users.
//
// The Registry issues short-lived opaque tokens ahead of a call and redeems
// them destructively at call start. The CallCache remembers the resolved
// identity for the lifetime of a call. Neither survives a process restart.
package session
