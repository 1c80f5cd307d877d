package match

// Emitter delivers named events to connections and match groups. Calls must
// not block; the coordinator emits while holding a session lock.
type Emitter interface {
	Emit(connID, event string, args ...any)
	EmitGroup(groupID, event string, args ...any)
	JoinGroup(connID, groupID string)
	LeaveGroup(connID, groupID string)
}

// Server-sent event names.
const (
	EventRoomCreated          = "roomCreated"
	EventWaitingForPlayer     = "waitingForPlayer"
	EventCountdown            = "countdown"
	EventStartGame            = "startGame"
	EventVirusLogic           = "virusLogic"
	EventOpponentReactionTime = "opponentReactionTime"
	EventScoreUpdate          = "scoreUpdate"
	EventGameOver             = "gameOver"
	EventPlayerLeft           = "playerLeft"
)

const waitingMessage = "waiting for another player to join!"

type PlayerInfo struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type RoomCreated struct {
	GameID  string       `json:"gameId"`
	Players []PlayerInfo `json:"players"`
}

type WaitingNotice struct {
	Message string `json:"message"`
}

type ScoreUpdate struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}
