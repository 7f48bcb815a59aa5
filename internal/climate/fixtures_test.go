package climate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/location"
	"github.com/nerrad567/gray-logic-climate/internal/registry"
)

// memRooms is a read-only location.Repository.
type memRooms []location.Room

func (m memRooms) ListRooms(context.Context) ([]location.Room, error) {
	out := make([]location.Room, 0, len(m))
	for i := range m {
		out = append(out, *m[i].DeepCopy())
	}
	return out, nil
}

func (m memRooms) GetRoom(_ context.Context, id string) (*location.Room, error) {
	for i := range m {
		if m[i].ID == id {
			return m[i].DeepCopy(), nil
		}
	}
	return nil, location.ErrRoomNotFound
}

func (m memRooms) CreateRoom(context.Context, *location.Room) error {
	return errors.New("read-only")
}

// memDevices is a read-only device.Repository.
type memDevices []device.Device

func (m memDevices) GetByID(_ context.Context, id string) (*device.Device, error) {
	for i := range m {
		if m[i].ID == id {
			return m[i].DeepCopy(), nil
		}
	}
	return nil, device.ErrDeviceNotFound
}

func (m memDevices) List(context.Context) ([]device.Device, error) {
	out := make([]device.Device, 0, len(m))
	for i := range m {
		out = append(out, *m[i].DeepCopy())
	}
	return out, nil
}

func (m memDevices) ListByRoom(_ context.Context, roomID string) ([]device.Device, error) {
	var out []device.Device
	for i := range m {
		if m[i].RoomID == roomID {
			out = append(out, *m[i].DeepCopy())
		}
	}
	return out, nil
}

func (m memDevices) Create(context.Context, *device.Device) error {
	return errors.New("read-only")
}

// brokenRegistry fails every lookup.
type brokenRegistry struct{}

var errStoreDown = errors.New("database is locked")

func (brokenRegistry) FindRooms(context.Context, string) ([]location.Room, error) {
	return nil, errStoreDown
}

func (brokenRegistry) FindDevices(context.Context, *location.Room, string) ([]device.Device, error) {
	return nil, errStoreDown
}

func (brokenRegistry) Rooms(context.Context) ([]location.Room, error) {
	return nil, errStoreDown
}

var (
	thermostatCaps = device.Capabilities{
		Actions:     []device.Action{device.ActionSetTemperature, device.ActionSetMode},
		Temperature: &device.TemperatureRange{Min: 16, Max: 28, Step: 0.5},
		Modes:       []string{"heat", "cool", "auto", "off"},
	}
	radiatorCaps = device.Capabilities{
		Actions:     []device.Action{device.ActionSetTemperature},
		Temperature: &device.TemperatureRange{Min: 5, Max: 30, Step: 0.5},
	}
	heaterCaps = device.Capabilities{
		Actions: []device.Action{device.ActionOnOff},
	}
)

func dev(id, roomID, name string, kind device.Kind, caps device.Capabilities, aliases ...string) device.Device {
	return device.Device{
		ID:           id,
		Name:         name,
		Slug:         device.GenerateSlug(name),
		RoomID:       roomID,
		Kind:         kind,
		Aliases:      aliases,
		Capabilities: caps,
	}
}

// home is the fixture house used across the package tests.
func home() (memRooms, memDevices) {
	rooms := memRooms{
		{ID: "living", Name: "Living Room", Aliases: []string{"lounge"}},
		{ID: "bedroom", Name: "Bedroom"},
		{ID: "kitchen", Name: "Kitchen"},
		{ID: "garage", Name: "Garage"},
		{ID: "office", Name: "Office"},
	}
	devices := memDevices{
		dev("living-thermostat", "living", "Living Room Thermostat", device.KindThermostat, thermostatCaps, "main thermostat"),
		dev("bedroom-thermostat", "bedroom", "Bedroom Thermostat", device.KindThermostat, thermostatCaps),
		dev("bedroom-heater", "bedroom", "Bedroom Heater", device.KindHeater, heaterCaps, "space heater"),
		dev("kitchen-heater", "kitchen", "Kitchen Heater", device.KindHeater, heaterCaps, "space heater"),
		dev("kitchen-thermostat", "kitchen", "Thermostat", device.KindThermostat, thermostatCaps),
		dev("garage-thermostat", "garage", "Thermostat", device.KindThermostat, thermostatCaps),
		dev("office-radiator-1", "office", "Office Radiator 1", device.KindRadiatorValve, radiatorCaps),
		dev("office-radiator-2", "office", "Office Radiator 2", device.KindRadiatorValve, radiatorCaps),
		dev("office-radiator-3", "office", "Office Radiator 3", device.KindRadiatorValve, radiatorCaps),
	}
	return rooms, devices
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	rooms, devices := home()
	reg := registry.New(rooms, devices, registry.Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return reg
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

var fixedTime = time.Date(2026, 3, 8, 18, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }
