package location

import "time"

// Room represents a physical space that climate devices live in.
//
// Aliases are alternative spoken names ("lounge" for "Living Room"); an
// alias belongs to at most one room across the whole site.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SortOrder int       `json:"sort_order"`
	Aliases   []string  `json:"aliases,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the room.
func (r *Room) DeepCopy() *Room {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Aliases != nil {
		cpy.Aliases = make([]string, len(r.Aliases))
		copy(cpy.Aliases, r.Aliases)
	}
	return &cpy
}
