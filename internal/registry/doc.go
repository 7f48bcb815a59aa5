// Package registry is the in-memory entity registry of rooms and climate
// devices used to resolve spoken targets.
//
// The registry reads from the location and device repositories and keeps an
// immutable snapshot that is swapped atomically on Refresh. Lookups never
// observe a half-loaded view. Devices that cannot be addressed (unknown room,
// malformed capabilities, unpublishable topic) are left out of the snapshot
// and logged.
//
// Room lookup is tiered:
//
//	1. exact canonical name      "living room"
//	2. exact alias               "lounge"
//	3. fuzzy similarity >= 0.6   "livin room"
//
// Usage:
//
//	reg := registry.New(location.NewSQLiteRepository(db.DB), device.NewSQLiteRepository(db.DB), registry.Options{})
//	reg.SetLogger(log)
//	if err := reg.Refresh(ctx); err != nil { ... }
//	rooms, _ := reg.FindRooms(ctx, "lounge")
package registry
