package kot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mode selects how a delta is split into tickets.
type Mode string

const (
	// ModeSingle prints one ticket per send.
	ModeSingle Mode = "SINGLE"
	// ModeKitchenBar splits by preparation station.
	ModeKitchenBar Mode = "KITCHEN_BAR"
	// ModeCategory maps menu categories onto named groups.
	ModeCategory Mode = "CATEGORY"
)

// DefaultGroup receives every line no other rule claims.
const DefaultGroup = "KITCHEN"

var ErrInvalidMode = errors.New("invalid kot mode")

// Preference is the stored per-restaurant grouping record.
type Preference struct {
	Mode           Mode                 `json:"mode"`
	DefaultGroup   string               `json:"default_group"`
	CategoryGroups map[uuid.UUID]string `json:"category_groups,omitempty"`
	GroupOrder     []string             `json:"group_order,omitempty"`
}

// DefaultPreference is used until a restaurant stores its own.
func DefaultPreference() Preference {
	return Preference{Mode: ModeSingle, DefaultGroup: DefaultGroup}
}

// Validate checks the mode and group names.
func (p Preference) Validate() error {
	switch p.Mode {
	case ModeSingle, ModeKitchenBar, ModeCategory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	for cid, g := range p.CategoryGroups {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("category %s: group name is empty", cid)
		}
	}
	for _, g := range p.GroupOrder {
		if strings.TrimSpace(g) == "" {
			return errors.New("group_order contains an empty name")
		}
	}
	return nil
}

func (p Preference) normalized() Preference {
	if p.Mode == "" {
		p.Mode = ModeSingle
	}
	p.DefaultGroup = strings.TrimSpace(p.DefaultGroup)
	if p.DefaultGroup == "" {
		p.DefaultGroup = DefaultGroup
	}
	return p
}

func (p Preference) groupFor(l Line) string {
	switch p.Mode {
	case ModeKitchenBar:
		if s := strings.ToUpper(strings.TrimSpace(l.Station)); s != "" {
			return s
		}
	case ModeCategory:
		if g := strings.TrimSpace(p.CategoryGroups[l.CategoryID]); g != "" {
			return g
		}
	}
	return p.DefaultGroup
}

// Group partitions lines into tickets of the given kind. Lines keep their
// relative order inside a ticket. Tickets are ordered by GroupOrder first,
// then by first appearance. Lines with a non-positive quantity are skipped,
// so an empty input yields no tickets.
func Group(lines []Line, pref Preference, kind Kind) []Ticket {
	pref = pref.normalized()

	byGroup := make(map[string]*Ticket)
	var seen []string
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		g := pref.groupFor(l)
		t, ok := byGroup[g]
		if !ok {
			t = &Ticket{Group: g, Kind: kind}
			byGroup[g] = t
			seen = append(seen, g)
		}
		t.Lines = append(t.Lines, l)
	}
	if len(seen) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(seen))
	placed := make(map[string]bool, len(seen))
	for _, g := range pref.GroupOrder {
		g = strings.TrimSpace(g)
		if _, ok := byGroup[g]; ok && !placed[g] {
			ordered = append(ordered, g)
			placed[g] = true
		}
	}
	for _, g := range seen {
		if !placed[g] {
			ordered = append(ordered, g)
		}
	}

	out := make([]Ticket, 0, len(ordered))
	for _, g := range ordered {
		out = append(out, *byGroup[g])
	}
	return out
}
