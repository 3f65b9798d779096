package automation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownProfile is returned for a schedule profile name that is not defined.
var ErrUnknownProfile = errors.New("unknown schedule profile")

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "sixPerDay"

// Slot is a daily fire time.
type Slot struct {
	Hour   int
	Minute int
}

// String renders the slot as HH:MM.
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// CronSpec returns the 5-field cron expression firing daily at the slot.
func (s Slot) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
}

var profiles = map[string][]Slot{
	"threePerDay": {{8, 0}, {14, 0}, {20, 0}},
	"fourPerDay":  {{6, 0}, {12, 0}, {18, 0}, {0, 0}},
	"sixPerDay":   {{6, 0}, {10, 0}, {14, 0}, {18, 0}, {22, 0}, {2, 0}},
	"eightPerDay": {{6, 0}, {9, 0}, {12, 0}, {15, 0}, {18, 0}, {21, 0}, {0, 0}, {3, 0}},
}

var profileAliases = map[string]string{
	"3": "threePerDay",
	"4": "fourPerDay",
	"6": "sixPerDay",
	"8": "eightPerDay",
}

// ProfileNames returns the defined profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileSlots returns a copy of the slots of the named profile. Names are
// matched case-insensitively; "3", "4", "6" and "8" are accepted as shorthands.
func ProfileSlots(name string) ([]Slot, error) {
	name = strings.TrimSpace(name)
	if alias, ok := profileAliases[name]; ok {
		name = alias
	}
	for key, slots := range profiles {
		if strings.EqualFold(key, name) {
			return append([]Slot(nil), slots...), nil
		}
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
}

// ParseSlots parses a comma separated list of HH:MM times.
func ParseSlots(s string) ([]Slot, error) {
	var slots []Slot
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hh, mm, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid slot %q: want HH:MM", part)
		}
		h, err := strconv.Atoi(hh)
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid hour in slot %q", part)
		}
		m, err := strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return nil, fmt.Errorf("invalid minute in slot %q", part)
		}
		slots = append(slots, Slot{Hour: h, Minute: m})
	}
	if len(slots) == 0 {
		return nil, errors.New("no slots given")
	}
	return slots, nil
}
