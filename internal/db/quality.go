package db

import "strings"

// ComputeFighterQuality scores a fighter record in [0,1] by counting filled
// fields. Called explicitly by the services that mutate fighters; nothing
// recomputes it behind a save hook.
func ComputeFighterQuality(f *Fighter) float64 {
	if f == nil {
		return 0
	}

	const totalFields = 8
	filled := 0

	if strings.TrimSpace(f.FirstName) != "" {
		filled++
	}
	if strings.TrimSpace(f.LastName) != "" {
		filled++
	}
	if f.Nickname != nil && strings.TrimSpace(*f.Nickname) != "" {
		filled++
	}
	if f.Nationality != nil && strings.TrimSpace(*f.Nationality) != "" {
		filled++
	}
	if f.DateOfBirth != nil {
		filled++
	}
	if f.WikipediaURL != nil && strings.TrimSpace(*f.WikipediaURL) != "" {
		filled++
	}
	if f.Wins+f.Losses+f.Draws+f.NoContests > 0 {
		filled++
	}
	if strings.TrimSpace(f.DataSource) != "" {
		filled++
	}

	return float64(filled) / float64(totalFields)
}

// ComputeHistoryQuality scores a fight-history row in [0,1]. Linked rows
// score higher because the authoritative fields are synced.
func ComputeHistoryQuality(h *FightHistory) float64 {
	if h == nil {
		return 0
	}

	const totalFields = 10
	filled := 0

	if h.Result != ResultUnknown && h.Result != "" {
		filled++
	}
	if strings.TrimSpace(h.OpponentName) != "" {
		filled++
	}
	if h.OpponentFighterID != nil {
		filled++
	}
	if h.MethodKind != MethodOther && h.MethodKind != "" {
		filled++
	}
	if h.EventName != nil && strings.TrimSpace(*h.EventName) != "" {
		filled++
	}
	if h.EventDate != nil {
		filled++
	}
	if h.EventID != nil {
		filled++
	}
	if h.FightID != nil {
		filled++
	}
	if h.Round != nil {
		filled++
	}
	if h.WeightClass != nil && strings.TrimSpace(*h.WeightClass) != "" {
		filled++
	}

	return float64(filled) / float64(totalFields)
}
