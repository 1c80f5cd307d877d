package leaderboard

type BadgeID string

const (
	BadgeSpeedDemon  BadgeID = "speed_demon"
	BadgeUnstoppable BadgeID = "unstoppable"
	BadgeVeteran     BadgeID = "veteran"
	BadgeFlawless    BadgeID = "flawless"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

var AllBadges = map[BadgeID]Badge{
	BadgeSpeedDemon:  {ID: BadgeSpeedDemon, Name: "Speed Demon", Description: "Mean reaction time under 300ms"},
	BadgeUnstoppable: {ID: BadgeUnstoppable, Name: "Unstoppable", Description: "3-match win streak"},
	BadgeVeteran:     {ID: BadgeVeteran, Name: "Veteran", Description: "Played 10+ matches"},
	BadgeFlawless:    {ID: BadgeFlawless, Name: "Flawless", Description: "Won a match without the opponent scoring"},
}

// EvaluateBadges checks which badges the stats earn. flawless reports
// whether any recorded win was a shutout.
func EvaluateBadges(stats PlayerStats, flawless bool) []Badge {
	earned := []Badge{}

	if stats.BestMean > 0 && stats.BestMean < 300 {
		earned = append(earned, AllBadges[BadgeSpeedDemon])
	}
	if stats.WinStreak >= 3 {
		earned = append(earned, AllBadges[BadgeUnstoppable])
	}
	if stats.GamesPlayed >= 10 {
		earned = append(earned, AllBadges[BadgeVeteran])
	}
	if flawless {
		earned = append(earned, AllBadges[BadgeFlawless])
	}

	return earned
}
