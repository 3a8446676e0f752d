package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/esports-platform/models"
)

// SlotRef points at one slot of another generated match.
type SlotRef struct {
	UID  string
	Slot int
}

// BracketMatch is one node of the generated match graph.
// WinnerTo and LoserTo are the edges progression follows once a result is in.
type BracketMatch struct {
	UID          string
	Side         models.BracketSide
	Round        int
	OrderInRound int

	Participant1ID *int
	Participant2ID *int

	WinnerTo *SlotRef
	LoserTo  *SlotRef

	// IsBye is set when only one slot of the match can ever be filled.
	IsBye bool
	// ByeParticipantID is set when the bye is already resolved at generation time.
	ByeParticipantID *int

	sources [2]source
}

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceSeed
	sourceWinner
	sourceLoser
)

type source struct {
	kind sourceKind
	uid  string
}

func (m *BracketMatch) slot(slot int) *int {
	if slot == 1 {
		return m.Participant1ID
	}
	return m.Participant2ID
}

func (m *BracketMatch) setSlot(slot int, id *int) {
	if slot == 1 {
		m.Participant1ID = id
		return
	}
	m.Participant2ID = id
}

func matchUID(prefix string, round, order int) string {
	return fmt.Sprintf("%s-R%dM%d", prefix, round, order)
}

func sidePrefix(side models.BracketSide) string {
	switch side {
	case models.SideLosers:
		return "L"
	case models.SideGrandFinal:
		return "GF"
	case models.SideGroup:
		return "G"
	case models.SidePlayoff:
		return "P"
	default:
		return "W"
	}
}

// graph keeps generated matches in creation order; sources always precede their targets.
type graph struct {
	matches []*BracketMatch
	byUID   map[string]*BracketMatch
}

func newGraph() *graph {
	return &graph{byUID: make(map[string]*BracketMatch)}
}

func (g *graph) add(m *BracketMatch) *BracketMatch {
	g.matches = append(g.matches, m)
	g.byUID[m.UID] = m
	return m
}

func (g *graph) linkWinner(from *BracketMatch, to *BracketMatch, slot int) {
	from.WinnerTo = &SlotRef{UID: to.UID, Slot: slot}
	to.sources[slot-1] = source{kind: sourceWinner, uid: from.UID}
}

func (g *graph) linkLoser(from *BracketMatch, to *BracketMatch, slot int) {
	from.LoserTo = &SlotRef{UID: to.UID, Slot: slot}
	to.sources[slot-1] = source{kind: sourceLoser, uid: from.UID}
}

// resolve walks the graph in creation order, marks byes, drops matches that can never
// be played and pushes generation-time bye winners into their next match.
func (g *graph) resolve() []*BracketMatch {
	liveSlots := make(map[string]int, len(g.matches))
	void := make(map[string]bool)

	slotLive := func(src source, m *BracketMatch, slot int) bool {
		switch src.kind {
		case sourceSeed:
			return m.slot(slot) != nil
		case sourceWinner:
			return liveSlots[src.uid] >= 1
		case sourceLoser:
			return liveSlots[src.uid] == 2
		default:
			return false
		}
	}

	for _, m := range g.matches {
		live := 0
		var liveSlot int
		for i, src := range m.sources {
			if slotLive(src, m, i+1) {
				live++
				liveSlot = i + 1
			}
		}
		liveSlots[m.UID] = live

		switch live {
		case 0:
			void[m.UID] = true
		case 1:
			m.IsBye = true
			if p := m.slot(liveSlot); p != nil {
				m.ByeParticipantID = p
				if m.WinnerTo != nil {
					g.byUID[m.WinnerTo.UID].setSlot(m.WinnerTo.Slot, p)
				}
			}
		}
		if live < 2 {
			m.LoserTo = nil
		}
	}

	out := make([]*BracketMatch, 0, len(g.matches))
	for _, m := range g.matches {
		if void[m.UID] {
			continue
		}
		if m.WinnerTo != nil && void[m.WinnerTo.UID] {
			m.WinnerTo = nil
		}
		out = append(out, m)
	}
	return out
}

func sortMatches(matches []*BracketMatch) {
	sideOrder := map[models.BracketSide]int{
		models.SideGroup:      0,
		models.SideWinners:    1,
		models.SidePlayoff:    1,
		models.SideLosers:     2,
		models.SideGrandFinal: 3,
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if sideOrder[a.Side] != sideOrder[b.Side] {
			return sideOrder[a.Side] < sideOrder[b.Side]
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.OrderInRound < b.OrderInRound
	})
}

func intPtr(v int) *int {
	return &v
}
