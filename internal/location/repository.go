package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines read access to rooms, plus the seeding writes used by
// administration tooling and tests.
type Repository interface {
	// ListRooms returns every room with its aliases, ordered by sort order then name.
	ListRooms(ctx context.Context) ([]Room, error)

	// GetRoom returns a single room. Returns ErrRoomNotFound if absent.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// CreateRoom inserts a room and its aliases in one transaction.
	CreateRoom(ctx context.Context, room *Room) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListRooms returns every room with its aliases attached.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	const query = `SELECT id, name, slug, sort_order, created_at, updated_at
		FROM rooms
		ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	index := make(map[string]int)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		index[rm.ID] = len(rooms)
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}

	aliases, err := r.loadAliases(ctx, "")
	if err != nil {
		return nil, err
	}
	for roomID, list := range aliases {
		if i, ok := index[roomID]; ok {
			rooms[i].Aliases = list
		}
	}

	return rooms, nil
}

// GetRoom returns a single room with its aliases.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	const query = `SELECT id, name, slug, sort_order, created_at, updated_at
		FROM rooms WHERE id = ?`

	rm, err := scanRoom(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("querying room %s: %w", id, err)
	}

	aliases, err := r.loadAliases(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.Aliases = aliases[id]
	return rm, nil
}

// CreateRoom inserts a room and its aliases atomically.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	if room.Slug == "" {
		room.Slug = GenerateSlug(room.Name)
	}
	if err := ValidateRoom(room); err != nil {
		return err
	}

	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	const insertRoom = `INSERT INTO rooms (id, name, slug, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRoom,
		room.ID, room.Name, room.Slug, room.SortOrder,
		room.CreatedAt.Format(time.RFC3339), room.UpdatedAt.Format(time.RFC3339),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
		}
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}

	for _, alias := range room.Aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_aliases (alias, room_id) VALUES (?, ?)`,
			strings.TrimSpace(alias), room.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %q", ErrAliasTaken, alias)
			}
			return fmt.Errorf("inserting room alias %q: %w", alias, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing room %s: %w", room.ID, err)
	}
	return nil
}

// loadAliases returns aliases keyed by room ID. An empty roomID loads all.
func (r *SQLiteRepository) loadAliases(ctx context.Context, roomID string) (map[string][]string, error) {
	query := `SELECT room_id, alias FROM room_aliases`
	var args []any
	if roomID != "" {
		query += ` WHERE room_id = ?`
		args = append(args, roomID)
	}
	query += ` ORDER BY room_id, alias`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying room aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, alias string
		if err := rows.Scan(&id, &alias); err != nil {
			return nil, fmt.Errorf("scanning room alias: %w", err)
		}
		out[id] = append(out[id], alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room aliases: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*Room, error) {
	var rm Room
	var createdAt, updatedAt string

	if err := row.Scan(&rm.ID, &rm.Name, &rm.Slug, &rm.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rm.CreatedAt = parseTime(createdAt)
	rm.UpdatedAt = parseTime(updatedAt)
	return &rm, nil
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
