package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/location"
	"github.com/nerrad567/gray-logic-climate/internal/textmatch"
)

// snapshot is an immutable view of the registry. It is built once and
// never modified after being published, so readers holding a pointer
// always see a consistent set of rooms and devices.
type snapshot struct {
	rooms      []*location.Room
	roomByID   map[string]*location.Room
	devices    []*device.Device
	deviceByID map[string]*device.Device
	byRoom     map[string][]*device.Device
	skipped    int
	loadedAt   time.Time
}

// buildSnapshot indexes rooms and devices. Devices rejected by admit are
// dropped and reported through skip.
func buildSnapshot(rooms []location.Room, devices []device.Device, now time.Time,
	skip func(d *device.Device, reason error)) *snapshot {
	s := &snapshot{
		roomByID:   make(map[string]*location.Room, len(rooms)),
		deviceByID: make(map[string]*device.Device, len(devices)),
		byRoom:     make(map[string][]*device.Device, len(rooms)),
		loadedAt:   now,
	}

	for i := range rooms {
		rm := rooms[i].DeepCopy()
		s.rooms = append(s.rooms, rm)
		s.roomByID[rm.ID] = rm
	}

	for i := range devices {
		d := devices[i].DeepCopy()
		if err := admit(d, s.roomByID); err != nil {
			s.skipped++
			skip(d, err)
			continue
		}
		s.devices = append(s.devices, d)
		s.deviceByID[d.ID] = d
		s.byRoom[d.RoomID] = append(s.byRoom[d.RoomID], d)
	}

	sort.SliceStable(s.devices, func(i, j int) bool { return s.devices[i].Name < s.devices[j].Name })
	for _, list := range s.byRoom {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}

	return s
}

// admit checks a device is usable and normalises its topic in place.
func admit(d *device.Device, rooms map[string]*location.Room) error {
	if _, ok := rooms[d.RoomID]; !ok {
		return device.ErrRoomNotFound
	}
	if err := device.ValidateCapabilities(d.Capabilities); err != nil {
		return err
	}
	if err := device.ValidatePayloadTemplates(d.PayloadTemplates); err != nil {
		return err
	}
	if d.Topic != "" {
		topic, err := device.ValidateTopic(d.Topic)
		if err != nil {
			return err
		}
		d.Topic = topic
	}
	return nil
}

// scope returns the devices in a room, or every device when roomID is empty.
func (s *snapshot) scope(roomID string) []*device.Device {
	if roomID == "" {
		return s.devices
	}
	return s.byRoom[roomID]
}

// roomByKey returns the room whose ID or slug equals key, ignoring case
// and surrounding space.
func (s *snapshot) roomByKey(key string) *location.Room {
	key = strings.TrimSpace(key)
	if rm, ok := s.roomByID[key]; ok {
		return rm
	}
	for _, rm := range s.rooms {
		if strings.EqualFold(rm.ID, key) || (rm.Slug != "" && strings.EqualFold(rm.Slug, key)) {
			return rm
		}
	}
	return nil
}

// matchRooms finds rooms for a hint using room ID or slug, then exact
// name, then exact alias, then fuzzy similarity. Only the first tier that
// produces a match is returned; fuzzy matches within margin of the best
// score are kept.
func (s *snapshot) matchRooms(hint string, threshold, margin float64) []*location.Room {
	q := textmatch.Tokens(hint)
	if len(q) == 0 {
		return nil
	}
	if rm := s.roomByKey(hint); rm != nil {
		return []*location.Room{rm}
	}
	norm := textmatch.Normalise(hint)

	var exact []*location.Room
	for _, rm := range s.rooms {
		if textmatch.Normalise(rm.Name) == norm {
			exact = append(exact, rm)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	var alias []*location.Room
	for _, rm := range s.rooms {
		for _, a := range rm.Aliases {
			if textmatch.Normalise(a) == norm {
				alias = append(alias, rm)
				break
			}
		}
	}
	if len(alias) > 0 {
		return alias
	}

	type scored struct {
		room  *location.Room
		score float64
	}
	var fuzzy []scored
	best := 0.0
	for _, rm := range s.rooms {
		sc := textmatch.ScoreTokens(q, textmatch.Tokens(rm.Name))
		for _, a := range rm.Aliases {
			sc = max(sc, textmatch.ScoreTokens(q, textmatch.Tokens(a)))
		}
		if sc >= threshold {
			fuzzy = append(fuzzy, scored{rm, sc})
			best = max(best, sc)
		}
	}

	sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].score > fuzzy[j].score })
	var out []*location.Room
	for _, f := range fuzzy {
		if best-f.score <= margin {
			out = append(out, f.room)
		}
	}
	return out
}
