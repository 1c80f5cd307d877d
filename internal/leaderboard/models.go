package leaderboard

// Entry is one row of the ranked highscore board. Value is the player's best
// mean reaction time in milliseconds.
type Entry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

// PlayerStats summarizes a player's recorded results and highscores.
type PlayerStats struct {
	Username    string  `json:"username"`
	GamesPlayed int     `json:"gamesPlayed"`
	WinCount    int     `json:"winCount"`
	WinStreak   int     `json:"winStreak"`
	TotalScore  int     `json:"totalScore"`
	BestMean    float64 `json:"bestMean,omitempty"`
	Badges      []Badge `json:"badges"`
}
