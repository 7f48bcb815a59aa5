package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/location"
	"github.com/nerrad567/gray-logic-climate/internal/textmatch"
)

// Default matching parameters used when Options leaves them zero.
const (
	DefaultFuzzyThreshold  = 0.6
	DefaultAmbiguityMargin = 0.05
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes room matching. Zero values use the package defaults.
type Options struct {
	FuzzyThreshold  float64
	AmbiguityMargin float64
}

// Stats summarises the loaded snapshot.
type Stats struct {
	Rooms    int       `json:"rooms"`
	Devices  int       `json:"devices"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Registry is a read-mostly in-memory view of rooms and climate devices.
//
// The registry holds an immutable snapshot. Refresh builds a new snapshot
// from the repositories and swaps it in under the write lock, so every
// reader sees either the complete old view or the complete new one.
// The first lookup on an empty registry loads it.
//
// All public methods are thread-safe. Returned values are deep copies.
type Registry struct {
	rooms   location.Repository
	devices device.Repository
	opts    Options

	mu   sync.RWMutex // protects snap
	snap *snapshot

	loadMu sync.Mutex // serialises snapshot builds

	logger Logger
	now    func() time.Time
}

// New creates a registry over the given repositories.
func New(rooms location.Repository, devices device.Repository, opts Options) *Registry {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.AmbiguityMargin <= 0 {
		opts.AmbiguityMargin = DefaultAmbiguityMargin
	}
	return &Registry{
		rooms:   rooms,
		devices: devices,
		opts:    opts,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Refresh reloads rooms and devices from the repositories.
// On failure the previous snapshot stays in place.
func (r *Registry) Refresh(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	_, err := r.load(ctx)
	return err
}

// load builds and publishes a snapshot. Callers hold loadMu.
func (r *Registry) load(ctx context.Context) (*snapshot, error) {
	rooms, err := r.rooms.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing rooms: %w", ErrUnavailable, err)
	}
	devices, err := r.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", ErrUnavailable, err)
	}

	snap := buildSnapshot(rooms, devices, r.now(), func(d *device.Device, reason error) {
		r.logger.Warn("skipping device", "id", d.ID, "name", d.Name, "error", reason)
	})

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	r.logger.Info("registry refreshed",
		"rooms", len(snap.rooms),
		"devices", len(snap.devices),
		"skipped", snap.skipped,
	)
	return snap, nil
}

// current returns the published snapshot, loading it on first use.
func (r *Registry) current(ctx context.Context) (*snapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	r.mu.RLock()
	snap = r.snap
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return r.load(ctx)
}

// FindRooms returns the rooms a spoken hint refers to.
// Exact name matches win over exact alias matches, which win over fuzzy
// matches. An empty hint returns nil.
func (r *Registry) FindRooms(ctx context.Context, hint string) ([]location.Room, error) {
	if textmatch.Normalise(hint) == "" {
		return nil, nil
	}
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	return copyRooms(snap.matchRooms(hint, r.opts.FuzzyThreshold, r.opts.AmbiguityMargin)), nil
}

// FindDevices returns devices in room (all rooms when room is nil) whose
// name or an alias contains fragment. An empty fragment matches every
// device in scope.
func (r *Registry) FindDevices(ctx context.Context, room *location.Room, fragment string) ([]device.Device, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}

	roomID := ""
	if room != nil {
		roomID = room.ID
	}

	var out []device.Device
	for _, d := range snap.scope(roomID) {
		if deviceContains(d, fragment) {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func deviceContains(d *device.Device, fragment string) bool {
	if textmatch.Contains(d.Name, fragment) {
		return true
	}
	for _, a := range d.Aliases {
		if textmatch.Contains(a, fragment) {
			return true
		}
	}
	return false
}

// GetDevice retrieves a device by ID.
//
// A device newer than the snapshot is read from the repository and must
// pass the same checks as snapshot devices.
//
// Returns:
//   - device.ErrDeviceNotFound if the device does not exist
//   - ErrDeviceUnusable if the stored device fails validation
//   - ErrUnavailable if the repository cannot be read
func (r *Registry) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	if d, ok := snap.deviceByID[id]; ok {
		return d.DeepCopy(), nil
	}

	// Might be newer than the snapshot; served without caching.
	d, err := r.devices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := admit(d, snap.roomByID); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnusable, id, err)
	}
	return d, nil
}

// Room returns the room with the given ID.
func (r *Registry) Room(ctx context.Context, id string) (*location.Room, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	rm, ok := snap.roomByID[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm.DeepCopy(), nil
}

// Rooms returns all rooms.
func (r *Registry) Rooms(ctx context.Context) ([]location.Room, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	return copyRooms(snap.rooms), nil
}

// Devices returns every usable device, ordered by name.
func (r *Registry) Devices(ctx context.Context) ([]device.Device, error) {
	return r.FindDevices(ctx, nil, "")
}

// Stats reports counts for the current snapshot without triggering a load.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap == nil {
		return Stats{}
	}
	return Stats{
		Rooms:    len(snap.rooms),
		Devices:  len(snap.devices),
		Skipped:  snap.skipped,
		LoadedAt: snap.loadedAt,
	}
}

func copyRooms(in []*location.Room) []location.Room {
	if len(in) == 0 {
		return nil
	}
	out := make([]location.Room, 0, len(in))
	for _, rm := range in {
		out = append(out, *rm.DeepCopy())
	}
	return out
}
