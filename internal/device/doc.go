// Package device defines climate devices and their capability descriptors.
//
// A Device belongs to exactly one room and declares what it can do through
// Capabilities: the supported actions (set_temperature, set_mode, on_off),
// the temperature range and step, and the allowed modes. Devices also carry
// spoken aliases, unique within their room, and an optional control topic
// plus per-action payload templates for devices that do not understand the
// standard command envelope.
//
// # Key Types
//
//   - Device: a climate device as stored in the entity registry
//   - Kind: thermostat, ac_unit, radiator_valve, heater
//   - Capabilities: the operating envelope checked before any command is built
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	devices, err := repo.ListByRoom(ctx, "room-living")
//
// Devices are administered externally. Repository.Create exists for seeding
// and tests and enforces the same validation as ValidateDevice.
package device
