package layout

// Width tiers used by the dashboard.
//
//   - TierNarrow (<100): detail panel below the list, user column only.
//   - TierSplit (100-159): detail panel beside the list.
//   - TierWide (>=160): URL column added to the rows.
const (
	SplitViewThreshold = 100
	WideViewThreshold  = 160
)

// Tier describes the current width bucket.
type Tier int

const (
	TierNarrow Tier = iota
	TierSplit
	TierWide
)

// TierForWidth maps a terminal width to a tier.
func TierForWidth(width int) Tier {
	switch {
	case width >= WideViewThreshold:
		return TierWide
	case width >= SplitViewThreshold:
		return TierSplit
	default:
		return TierNarrow
	}
}

// TruncateRunes trims a string to max runes and appends suffix if truncated.
// It is rune‑aware to avoid splitting emoji or wide glyphs.
func TruncateRunes(s string, max int, suffix string) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < len([]rune(suffix)) {
		return string(runes[:max])
	}
	return string(runes[:max-len([]rune(suffix))]) + suffix
}

// SplitProportions returns list/detail widths for the split view. Below
// SplitViewThreshold the detail panel gets no column of its own.
func SplitProportions(total int) (list int, detail int) {
	if total < SplitViewThreshold {
		return total, 0
	}
	// 4 columns for the panel border and padding
	avail := total - 4
	list = int(float64(avail) * 0.6)
	detail = avail - list
	return
}

// LabelWidth returns the width of the label column of a list row, given
// the list width and the cells every row spends on other columns.
func LabelWidth(listWidth, fixed int) int {
	w := (listWidth - fixed) / 2
	if w < 12 {
		return 12
	}
	if w > 32 {
		return 32
	}
	return w
}
