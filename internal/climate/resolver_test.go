package climate

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/registry"
)

func TestResolve(t *testing.T) {
	reg := newTestRegistry(t)
	r := NewResolver(reg, 0)

	tests := []struct {
		name      string
		phrase    string
		roomHint  string
		wantIDs   []string
		wantTier  Tier
		wantGroup bool
		unmatched bool
	}{
		{
			name:     "exact name ignores case",
			phrase:   "LIVING ROOM THERMOSTAT",
			wantIDs:  []string{"living-thermostat"},
			wantTier: TierName,
		},
		{
			name:     "exact name drops article",
			phrase:   "the bedroom thermostat",
			wantIDs:  []string{"bedroom-thermostat"},
			wantTier: TierName,
		},
		{
			name:     "alias",
			phrase:   "Main Thermostat",
			wantIDs:  []string{"living-thermostat"},
			wantTier: TierAlias,
		},
		{
			name:     "shared alias across rooms",
			phrase:   "space heater",
			wantIDs:  []string{"bedroom-heater", "kitchen-heater"},
			wantTier: TierAlias,
		},
		{
			name:     "same name in two rooms",
			phrase:   "thermostat",
			wantIDs:  []string{"garage-thermostat", "kitchen-thermostat"},
			wantTier: TierName,
		},
		{
			name:     "room hint restricts scope",
			phrase:   "thermostat",
			roomHint: "kitchen",
			wantIDs:  []string{"kitchen-thermostat"},
			wantTier: TierName,
		},
		{
			name:     "room hint by alias",
			phrase:   "thermostat",
			roomHint: "the lounge",
			wantIDs:  []string{"living-thermostat"},
			wantTier: TierFuzzy,
		},
		{
			name:     "fuzzy typo",
			phrase:   "livin room thermostat",
			wantIDs:  []string{"living-thermostat"},
			wantTier: TierFuzzy,
		},
		{
			name:      "unmatched room hint searches globally",
			phrase:    "bedroom heater",
			roomHint:  "attic",
			wantIDs:   []string{"bedroom-heater"},
			wantTier:  TierName,
			unmatched: true,
		},
		{
			name:      "group by kind in room",
			phrase:    "all radiators",
			roomHint:  "office",
			wantIDs:   []string{"office-radiator-1", "office-radiator-2", "office-radiator-3"},
			wantTier:  TierFuzzy,
			wantGroup: true,
		},
		{
			name:      "bare group phrase",
			phrase:    "everything",
			roomHint:  "bedroom",
			wantIDs:   []string{"bedroom-heater", "bedroom-thermostat"},
			wantTier:  TierFuzzy,
			wantGroup: true,
		},
		{
			name:   "no match",
			phrase: "sauna",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), tt.phrase, tt.roomHint)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Group != tt.wantGroup {
				t.Errorf("Group = %v, want %v", res.Group, tt.wantGroup)
			}
			if res.RoomHintUnmatched != tt.unmatched {
				t.Errorf("RoomHintUnmatched = %v, want %v", res.RoomHintUnmatched, tt.unmatched)
			}

			// Non-group results of the first tier must match exactly;
			// extra lower-scored fuzzy candidates are allowed.
			got := res.Candidates
			if tt.wantTier == TierFuzzy && !tt.wantGroup && len(got) > len(tt.wantIDs) {
				got = got[:len(tt.wantIDs)]
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Resolve(%q) = %d candidates, want %d: %+v", tt.phrase, len(got), len(tt.wantIDs), ids(got))
			}
			for i, c := range got {
				if c.Device.ID != tt.wantIDs[i] {
					t.Errorf("candidate[%d] = %s, want %s", i, c.Device.ID, tt.wantIDs[i])
				}
				if c.Tier != tt.wantTier {
					t.Errorf("candidate[%d] tier = %s, want %s", i, c.Tier, tt.wantTier)
				}
			}
		})
	}
}

func TestResolve_FuzzyRanksBestFirst(t *testing.T) {
	r := NewResolver(newTestRegistry(t), 0)

	res, err := r.Resolve(context.Background(), "livin room thermostat", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Score > res.Candidates[i-1].Score {
			t.Errorf("candidates not sorted by score: %v", ids(res.Candidates))
		}
		if res.Candidates[i].Score < DefaultFuzzyThreshold {
			t.Errorf("candidate %s below threshold: %.2f", res.Candidates[i].Device.ID, res.Candidates[i].Score)
		}
	}

	c, f := Disambiguate(res, "", DefaultAmbiguityMargin)
	if f != nil {
		t.Fatalf("Disambiguate() failure = %s", f.Reason)
	}
	if c.Device.ID != "living-thermostat" {
		t.Errorf("selected %s, want living-thermostat", c.Device.ID)
	}
}

func TestResolve_CandidateCarriesRoomName(t *testing.T) {
	r := NewResolver(newTestRegistry(t), 0)

	res, err := r.Resolve(context.Background(), "kitchen heater", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(res.Candidates))
	}
	if got := res.Candidates[0].Label(); got != "Kitchen Heater in the Kitchen" {
		t.Errorf("Label() = %q", got)
	}
}

// groupWordRegistry holds a device whose canonical name contains a group word.
func groupWordRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	rooms := memRooms{
		{ID: "den", Name: "Den"},
		{ID: "bed", Name: "Bedroom"},
	}
	devices := memDevices{
		dev("aio", "den", "All-in-one AC", device.KindACUnit, thermostatCaps, "every room unit"),
		dev("bed-ac", "bed", "Bedroom AC", device.KindACUnit, thermostatCaps),
	}
	reg := registry.New(rooms, devices, registry.Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return reg
}

func TestResolve_ExactNameWithGroupWord(t *testing.T) {
	r := NewResolver(groupWordRegistry(t), 0)

	tests := []struct {
		phrase    string
		wantIDs   []string
		wantTier  Tier
		wantGroup bool
	}{
		{phrase: "All-in-one AC", wantIDs: []string{"aio"}, wantTier: TierName},
		{phrase: "the all in one ac", wantIDs: []string{"aio"}, wantTier: TierName},
		{phrase: "every room unit", wantIDs: []string{"aio"}, wantTier: TierAlias},
		{phrase: "all ac", wantIDs: []string{"aio", "bed-ac"}, wantGroup: true},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			res, err := r.Resolve(context.Background(), tt.phrase, "")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Group != tt.wantGroup {
				t.Errorf("Group = %v, want %v", res.Group, tt.wantGroup)
			}
			got := ids(res.Candidates)
			slices.Sort(got)
			if !slices.Equal(got, tt.wantIDs) {
				t.Fatalf("candidates = %v, want %v", got, tt.wantIDs)
			}
			if !tt.wantGroup && res.Candidates[0].Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", res.Candidates[0].Tier, tt.wantTier)
			}
		})
	}
}

func TestResolve_RegistryUnavailable(t *testing.T) {
	r := NewResolver(brokenRegistry{}, 0)

	_, err := r.Resolve(context.Background(), "thermostat", "")
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("Resolve() error = %v, want ErrRegistryUnavailable", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Resolve() error = %v, want cause preserved", err)
	}
}

func TestSplitGroup(t *testing.T) {
	tests := []struct {
		in        []string
		want      string
		wantGroup bool
	}{
		{[]string{"all", "radiators"}, "radiators", true},
		{[]string{"all", "of", "the", "heaters"}, "heaters", true},
		{[]string{"every", "thermostat"}, "thermostat", true},
		{[]string{"everything"}, "", true},
		{[]string{"all", "devices"}, "", true},
		{[]string{"all", "of", "them"}, "", true},
		{[]string{"bedroom", "heater"}, "bedroom heater", false},
	}

	for _, tt := range tests {
		got, group := splitGroup(tt.in)
		if joinTokens(got) != tt.want || group != tt.wantGroup {
			t.Errorf("splitGroup(%v) = %q, %v; want %q, %v", tt.in, joinTokens(got), group, tt.want, tt.wantGroup)
		}
	}
}

func ids(c []Candidate) []string {
	out := make([]string, len(c))
	for i := range c {
		out[i] = c[i].Device.ID
	}
	return out
}
