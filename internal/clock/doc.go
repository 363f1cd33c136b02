// Package clock produces canonical "current time" snapshots for grounding
// voice conversations in real time.
//
// A Snapshot carries the same instant in several representations (ISO
// timestamp, date, 12/24-hour clock, weekday, prose sentence) so that the
// conversational agent and the calendar tools share one consistent notion
// of "now". Snapshots are always computed fresh; there is no caching.
package clock
