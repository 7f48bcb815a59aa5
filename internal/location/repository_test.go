package location

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the rooms tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE room_aliases (
			alias TEXT NOT NULL COLLATE NOCASE PRIMARY KEY,
			room_id TEXT NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		) STRICT;

		INSERT INTO rooms (id, name, slug, sort_order) VALUES
			('room-living', 'Living Room', 'living-room', 0),
			('room-kitchen', 'Kitchen', 'kitchen', 1),
			('room-master', 'Master Bedroom', 'master-bedroom', 2);

		INSERT INTO room_aliases (alias, room_id) VALUES
			('lounge', 'room-living'),
			('front room', 'room-living'),
			('main bedroom', 'room-master');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

func TestSQLiteRepository_ListRooms(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}

	if len(rooms) != 3 {
		t.Fatalf("ListRooms() returned %d rooms, want 3", len(rooms))
	}
	if rooms[0].ID != "room-living" {
		t.Errorf("first room = %s, want room-living (sort order)", rooms[0].ID)
	}
	if len(rooms[0].Aliases) != 2 {
		t.Errorf("living room aliases = %v, want 2 entries", rooms[0].Aliases)
	}
	if len(rooms[1].Aliases) != 0 {
		t.Errorf("kitchen aliases = %v, want none", rooms[1].Aliases)
	}
	if rooms[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be parsed from the column default")
	}
}

func TestSQLiteRepository_GetRoom(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	room, err := repo.GetRoom(ctx, "room-master")
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if room.Name != "Master Bedroom" {
		t.Errorf("Name = %q, want %q", room.Name, "Master Bedroom")
	}
	if len(room.Aliases) != 1 || room.Aliases[0] != "main bedroom" {
		t.Errorf("Aliases = %v, want [main bedroom]", room.Aliases)
	}

	_, err = repo.GetRoom(ctx, "room-missing")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom(missing) error = %v, want ErrRoomNotFound", err)
	}
}

func TestSQLiteRepository_CreateRoom(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	room := &Room{ID: "room-study", Name: "Study", Aliases: []string{"office", "den"}}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.Slug != "study" {
		t.Errorf("Slug = %q, want generated %q", room.Slug, "study")
	}

	got, err := repo.GetRoom(ctx, "room-study")
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if len(got.Aliases) != 2 {
		t.Errorf("Aliases = %v, want 2", got.Aliases)
	}
}

func TestSQLiteRepository_CreateRoom_AliasUniqueAcrossRooms(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	// "Lounge" collides with the living room alias regardless of case.
	err := repo.CreateRoom(ctx, &Room{ID: "room-snug", Name: "Snug", Aliases: []string{"Lounge"}})
	if !errors.Is(err, ErrAliasTaken) {
		t.Fatalf("CreateRoom() error = %v, want ErrAliasTaken", err)
	}

	// The room insert must roll back with the alias.
	if _, err := repo.GetRoom(ctx, "room-snug"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("room-snug should not exist after failed create, got %v", err)
	}
}

func TestSQLiteRepository_CreateRoom_Duplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.CreateRoom(context.Background(), &Room{ID: "room-kitchen", Name: "Kitchen Two"})
	if !errors.Is(err, ErrRoomExists) {
		t.Errorf("CreateRoom() error = %v, want ErrRoomExists", err)
	}
}

func TestRoom_DeepCopy(t *testing.T) {
	orig := &Room{ID: "r", Name: "R", Aliases: []string{"a"}}
	cpy := orig.DeepCopy()
	cpy.Aliases[0] = "changed"

	if orig.Aliases[0] != "a" {
		t.Error("DeepCopy shares the alias slice with the original")
	}

	var nilRoom *Room
	if nilRoom.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}
