// Package location provides the rooms that climate devices are placed in.
//
// Rooms carry a canonical name and a set of spoken aliases. Aliases are
// unique across the site, so "lounge" always means the same room.
//
// The package provides a Repository interface with a SQLite implementation.
// Rooms are administered externally; the climate skill only reads them.
// CreateRoom exists for seeding and tests.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines.
package location
