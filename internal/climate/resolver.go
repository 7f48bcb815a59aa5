package climate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/location"
	"github.com/nerrad567/gray-logic-climate/internal/textmatch"
)

const (
	// DefaultFuzzyThreshold is the minimum tier-3 score kept.
	DefaultFuzzyThreshold = 0.6

	// DefaultAmbiguityMargin is how close two fuzzy scores must be to tie.
	DefaultAmbiguityMargin = 0.05

	// kindWeight discounts matches on a generic kind word ("heater") so a
	// device's own name always scores higher.
	kindWeight = 0.9
)

// groupWords mark a phrase addressing several devices.
var groupWords = map[string]struct{}{
	"all": {}, "every": {}, "each": {}, "everything": {},
}

// groupFillers may follow a group word ("all of the radiators").
var groupFillers = map[string]struct{}{
	"of": {}, "the": {}, "my": {}, "our": {}, "devices": {}, "device": {},
}

// Registry is the read interface the resolver needs.
type Registry interface {
	FindRooms(ctx context.Context, hint string) ([]location.Room, error)
	FindDevices(ctx context.Context, room *location.Room, fragment string) ([]device.Device, error)
	Rooms(ctx context.Context) ([]location.Room, error)
}

// Resolver maps a spoken target phrase to ranked candidate devices.
type Resolver struct {
	reg       Registry
	threshold float64
}

// NewResolver creates a resolver. A threshold <= 0 uses DefaultFuzzyThreshold.
func NewResolver(reg Registry, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Resolver{reg: reg, threshold: threshold}
}

// Resolve ranks devices against phrase.
//
// Matching is tiered: exact canonical name, then exact alias, then fuzzy
// similarity against names, aliases, and the generic words for the
// device's kind. A tier is only consulted when the tiers above it found
// nothing, except for group phrases, which collect every tier. A phrase
// that is some device's exact name or alias is never a group phrase, even
// when it contains a group word ("All-in-one AC").
//
// A room hint that matches a room limits the search to that room. A hint
// that matches nothing widens the search to all rooms and is flagged on
// the result. Any registry error is wrapped in ErrRegistryUnavailable.
func (r *Resolver) Resolve(ctx context.Context, phrase, roomHint string) (Resolution, error) {
	full := textmatch.Tokens(phrase)
	res := Resolution{
		Phrase:   joinTokens(full),
		RoomHint: roomHint,
	}

	allRooms, err := r.reg.Rooms(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	roomNames := make(map[string]string, len(allRooms))
	for _, rm := range allRooms {
		roomNames[rm.ID] = rm.Name
	}

	scope, err := r.scope(ctx, &res)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}

	if exact := exactMatches(scope, res.Phrase, roomNames); len(exact) > 0 {
		res.Candidates = exact
		return res, nil
	}

	tokens, group := splitGroup(full)
	res.Phrase = joinTokens(tokens)
	res.Group = group
	res.Candidates = r.rank(scope, tokens, roomNames, group)
	return res, nil
}

// exactMatches returns the name tier, or the alias tier when no name
// matched, for the phrase as spoken.
func exactMatches(devices []device.Device, phrase string, roomNames map[string]string) []Candidate {
	if phrase == "" {
		return nil
	}
	var byName, byAlias []Candidate
	for _, d := range devices {
		switch {
		case textmatch.Normalise(d.Name) == phrase:
			byName = append(byName, Candidate{Device: d, RoomName: roomNames[d.RoomID], Tier: TierName, Score: 1})
		case aliasMatches(d.Aliases, phrase):
			byAlias = append(byAlias, Candidate{Device: d, RoomName: roomNames[d.RoomID], Tier: TierAlias, Score: 1})
		}
	}
	out := byName
	if len(out) == 0 {
		out = byAlias
	}
	sortCandidates(out)
	return out
}

// scope loads the devices the phrase is matched against and records which
// rooms the hint selected.
func (r *Resolver) scope(ctx context.Context, res *Resolution) ([]device.Device, error) {
	if textmatch.Normalise(res.RoomHint) == "" {
		return r.reg.FindDevices(ctx, nil, "")
	}

	rooms, err := r.reg.FindRooms(ctx, res.RoomHint)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		res.RoomHintUnmatched = true
		return r.reg.FindDevices(ctx, nil, "")
	}

	res.Rooms = rooms
	var out []device.Device
	for i := range rooms {
		devices, err := r.reg.FindDevices(ctx, &rooms[i], "")
		if err != nil {
			return nil, err
		}
		out = append(out, devices...)
	}
	return out, nil
}

func (r *Resolver) rank(devices []device.Device, tokens []string, roomNames map[string]string, group bool) []Candidate {
	candidate := func(d device.Device, tier Tier, score float64) Candidate {
		return Candidate{Device: d, RoomName: roomNames[d.RoomID], Tier: tier, Score: score}
	}

	// A bare group phrase ("everything") targets every device in scope.
	if len(tokens) == 0 {
		out := make([]Candidate, 0, len(devices))
		for _, d := range devices {
			out = append(out, candidate(d, TierFuzzy, 1))
		}
		sortCandidates(out)
		return out
	}

	phrase := joinTokens(tokens)
	var byName, byAlias, fuzzy []Candidate
	for _, d := range devices {
		switch {
		case textmatch.Normalise(d.Name) == phrase:
			byName = append(byName, candidate(d, TierName, 1))
		case aliasMatches(d.Aliases, phrase):
			byAlias = append(byAlias, candidate(d, TierAlias, 1))
		default:
			if score := fuzzyScore(d, roomNames[d.RoomID], tokens); score >= r.threshold {
				fuzzy = append(fuzzy, candidate(d, TierFuzzy, score))
			}
		}
	}

	var out []Candidate
	if group {
		out = append(append(append(out, byName...), byAlias...), fuzzy...)
	} else {
		switch {
		case len(byName) > 0:
			out = byName
		case len(byAlias) > 0:
			out = byAlias
		default:
			out = fuzzy
		}
	}
	sortCandidates(out)
	return out
}

func aliasMatches(aliases []string, phrase string) bool {
	for _, a := range aliases {
		if textmatch.Normalise(a) == phrase {
			return true
		}
	}
	return false
}

// fuzzyScore is the best similarity between the phrase and anything the
// device may be called, optionally prefixed by its room name.
func fuzzyScore(d device.Device, roomName string, tokens []string) float64 {
	best := 0.0
	try := func(s string, weight float64) {
		if sc := textmatch.ScoreTokens(tokens, textmatch.Tokens(s)) * weight; sc > best {
			best = sc
		}
	}

	names := append([]string{d.Name}, d.Aliases...)
	for _, n := range names {
		try(n, 1)
		if roomName != "" {
			try(roomName+" "+n, 1)
		}
	}
	for _, form := range d.Kind.SpokenForms() {
		try(form, kindWeight)
		if roomName != "" {
			try(roomName+" "+form, kindWeight)
		}
	}
	return best
}

// sortCandidates orders by tier ascending, score descending, then name and ID.
func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Device.Name != b.Device.Name {
			return a.Device.Name < b.Device.Name
		}
		return a.Device.ID < b.Device.ID
	})
}

// splitGroup removes group words and the fillers that follow them.
func splitGroup(tokens []string) ([]string, bool) {
	group := false
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := groupWords[t]; ok {
			group = true
			continue
		}
		out = append(out, t)
	}
	if !group {
		return tokens, false
	}
	for len(out) > 0 {
		if _, ok := groupFillers[out[0]]; !ok {
			break
		}
		out = out[1:]
	}
	// "all devices" and "all of them" leave nothing meaningful behind.
	if len(out) == 1 && out[0] == "them" {
		out = nil
	}
	return out, true
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
