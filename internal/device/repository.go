package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices with their aliases.
	List(ctx context.Context) ([]Device, error)

	// ListByRoom retrieves all devices in a specific room.
	ListByRoom(ctx context.Context, roomID string) ([]Device, error)

	// Create inserts a new device and its aliases.
	// Returns ErrDeviceExists if the ID is taken, ErrAliasTaken if an alias
	// collides with another device in the same room.
	Create(ctx context.Context, device *Device) error
}

const selectDeviceColumns = `
	SELECT id, room_id, name, slug, kind, topic, capabilities,
		payload_templates, created_at, updated_at
	FROM devices`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDeviceColumns+` WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}

	aliases, err := r.loadAliases(ctx, `WHERE device_id = ?`, id)
	if err != nil {
		return nil, err
	}
	d.Aliases = aliases[id]
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	devices, err := r.queryDevices(ctx, selectDeviceColumns+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return r.attachAliases(ctx, devices, "")
}

// ListByRoom retrieves all devices in a specific room.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	devices, err := r.queryDevices(ctx, selectDeviceColumns+` WHERE room_id = ? ORDER BY name`, roomID)
	if err != nil {
		return nil, err
	}
	return r.attachAliases(ctx, devices, roomID)
}

// Create inserts a new device with its aliases in one transaction.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = GenerateID()
	}
	if device.Slug == "" {
		device.Slug = GenerateSlug(device.Name)
	}
	if err := ValidateDevice(device); err != nil {
		return err
	}

	capsJSON, err := json.Marshal(device.Capabilities)
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}
	templates := device.PayloadTemplates
	if templates == nil {
		templates = PayloadTemplates{}
	}
	templatesJSON, err := json.Marshal(templates)
	if err != nil {
		return fmt.Errorf("marshalling payload templates: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	const insertDevice = `
		INSERT INTO devices (
			id, room_id, name, slug, kind, topic, capabilities,
			payload_templates, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertDevice,
		device.ID, device.RoomID, device.Name, device.Slug, string(device.Kind),
		nullableString(device.Topic), string(capsJSON), string(templatesJSON),
		device.CreatedAt.Format(time.RFC3339), device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		switch {
		case isUniqueConstraintError(err):
			return ErrDeviceExists
		case isForeignKeyError(err):
			return fmt.Errorf("%w: %s", ErrRoomNotFound, device.RoomID)
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	for _, alias := range device.Aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO device_aliases (device_id, room_id, alias) VALUES (?, ?, ?)`,
			device.ID, device.RoomID, strings.TrimSpace(alias),
		); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %q", ErrAliasTaken, alias)
			}
			return fmt.Errorf("inserting device alias %q: %w", alias, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device: %w", err)
	}
	return nil
}

// queryDevices executes a query and returns a slice of devices without aliases.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// attachAliases fills Aliases on each device. roomID narrows the alias query.
func (r *SQLiteRepository) attachAliases(ctx context.Context, devices []Device, roomID string) ([]Device, error) {
	if len(devices) == 0 {
		return devices, nil
	}

	var (
		aliases map[string][]string
		err     error
	)
	if roomID != "" {
		aliases, err = r.loadAliases(ctx, `WHERE room_id = ?`, roomID)
	} else {
		aliases, err = r.loadAliases(ctx, "")
	}
	if err != nil {
		return nil, err
	}

	for i := range devices {
		devices[i].Aliases = aliases[devices[i].ID]
	}
	return devices, nil
}

// loadAliases returns aliases keyed by device ID.
func (r *SQLiteRepository) loadAliases(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	query := `SELECT device_id, alias FROM device_aliases ` + where + ` ORDER BY device_id, alias`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying device aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, alias string
		if err := rows.Scan(&id, &alias); err != nil {
			return nil, fmt.Errorf("scanning device alias: %w", err)
		}
		out[id] = append(out[id], alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device aliases: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row into a Device.
func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var kind, capsJSON, templatesJSON, createdAt, updatedAt string
	var topic sql.NullString

	if err := row.Scan(
		&d.ID, &d.RoomID, &d.Name, &d.Slug, &kind, &topic, &capsJSON,
		&templatesJSON, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d.Kind = Kind(kind)
	if topic.Valid {
		d.Topic = topic.String
	}

	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}
	if templatesJSON != "" && templatesJSON != "{}" {
		if err := json.Unmarshal([]byte(templatesJSON), &d.PayloadTemplates); err != nil {
			return nil, fmt.Errorf("unmarshalling payload templates: %w", err)
		}
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // schema default format
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // schema default format

	return &d, nil
}

// nullableString returns nil for empty strings so nullable TEXT columns stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// isForeignKeyError checks if an error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
