// Package sessions persists capture burst records in SQLite.
//
// Every START..STOP/CLOSE burst becomes one row: when it began, the exposure
// and resolution it ran with, how many frames it delivered, and why it ended.
// The database is an operational record, not a frame archive; schema changes
// bump the version in store.go and users clear the database to adopt them.
package sessions
