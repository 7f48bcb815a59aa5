package climate

import "github.com/nerrad567/gray-logic-climate/internal/textmatch"

// scoreEpsilon absorbs float noise when comparing fuzzy scores.
const scoreEpsilon = 1e-9

// Disambiguate reduces a resolution to one device.
//
// The top rank is every candidate in the best tier; within the fuzzy tier
// only candidates scoring within margin of the best share it. A single
// top-rank candidate is selected. Several are reported as Ambiguous unless
// exactly one of them lives in originRoom (a room ID or name). Nothing is
// ever guessed beyond that.
func Disambiguate(res Resolution, originRoom string, margin float64) (Candidate, *Failure) {
	if len(res.Candidates) == 0 {
		return Candidate{}, notFound(res)
	}

	top := topRank(res.Candidates, margin)
	if len(top) == 1 {
		return top[0], nil
	}

	if originRoom != "" {
		var local []Candidate
		origin := textmatch.Normalise(originRoom)
		for _, c := range top {
			if c.Device.RoomID == originRoom || textmatch.Normalise(c.RoomName) == origin {
				local = append(local, c)
			}
		}
		if len(local) == 1 {
			return local[0], nil
		}
	}

	return Candidate{}, &Failure{
		Reason:            ReasonAmbiguous,
		Phrase:            res.Phrase,
		RoomName:          res.roomName(),
		RoomHint:          res.RoomHint,
		RoomHintUnmatched: res.RoomHintUnmatched,
		Candidates:        top,
	}
}

// topRank returns the leading candidates that rank equally. Candidates
// must already be sorted.
func topRank(c []Candidate, margin float64) []Candidate {
	best := c[0]
	n := 1
	for n < len(c) {
		next := c[n]
		if next.Tier != best.Tier {
			break
		}
		if best.Tier == TierFuzzy && best.Score-next.Score > margin+scoreEpsilon {
			break
		}
		n++
	}
	return c[:n]
}

func notFound(res Resolution) *Failure {
	return &Failure{
		Reason:            ReasonNotFound,
		Phrase:            res.Phrase,
		RoomName:          res.roomName(),
		RoomHint:          res.RoomHint,
		RoomHintUnmatched: res.RoomHintUnmatched,
	}
}
