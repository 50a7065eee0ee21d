// README: Address history merge; text (case/space-insensitive) and non-empty coordinates are unique keys.
package client

import (
	"strings"
	"time"

	"centraltaxi/internal/types"
)

type MergeOutcome string

const (
	MergeAppended     MergeOutcome = "appended"
	MergeCoordsUpdate MergeOutcome = "coords_updated"
	MergeTextUpdate   MergeOutcome = "text_updated"
	MergeUnchanged    MergeOutcome = "unchanged"
)

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MergeAddresses returns the merged list and what happened. The input slice is not modified.
// Empty incoming coordinates never clear stored ones, and an update that would make two
// entries share text or coordinates is skipped.
func MergeAddresses(list []Address, text string, coords types.Coords, mode Mode, now time.Time) ([]Address, MergeOutcome) {
	text = strings.TrimSpace(text)
	coords = coords.Normalize()
	key := normalizeText(text)
	if key == "" && coords == "" {
		return list, MergeUnchanged
	}

	textIdx, coordsIdx := -1, -1
	for i, a := range list {
		if textIdx < 0 && key != "" && normalizeText(a.Text) == key {
			textIdx = i
		}
		if coordsIdx < 0 && coords != "" && a.Coords.Normalize() == coords {
			coordsIdx = i
		}
	}

	switch {
	case textIdx >= 0 && coordsIdx >= 0:
		return list, MergeUnchanged
	case textIdx >= 0:
		if coords == "" {
			return list, MergeUnchanged
		}
		out := cloneAddresses(list)
		out[textIdx].Coords = coords
		out[textIdx].UpdatedAt = &now
		return out, MergeCoordsUpdate
	case coordsIdx >= 0:
		if key == "" {
			return list, MergeUnchanged
		}
		out := cloneAddresses(list)
		out[coordsIdx].Text = text
		out[coordsIdx].UpdatedAt = &now
		return out, MergeTextUpdate
	}

	out := cloneAddresses(list)
	for i := range out {
		out[i].Active = false
	}
	if mode == "" {
		mode = ModeManual
	}
	out = append(out, Address{
		Text:         text,
		Coords:       coords,
		RegisteredAt: now,
		Active:       true,
		Mode:         mode,
	})
	return out, MergeAppended
}

func cloneAddresses(list []Address) []Address {
	out := make([]Address, len(list), len(list)+1)
	copy(out, list)
	return out
}
