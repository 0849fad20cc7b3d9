package game

// OpCode identifies a protocol message. The numbering is shared with
// clients and must never be 0.
type OpCode int

const (
	// Initiated by the server.
	OpStageChanged OpCode = 1
	OpNextStep     OpCode = 5
	OpHostChanged  OpCode = 6
	OpReadyUpdate  OpCode = 8
	OpResults      OpCode = 9
	OpTerminating  OpCode = 12

	// Initiated by players. SettingsUpdate and RevealResult are also
	// echoed/relayed by the server under the same opcode.
	OpKickPlayer     OpCode = 2 // host only
	OpStartGame      OpCode = 3 // host only
	OpPlayerInput    OpCode = 4
	OpSettingsUpdate OpCode = 7  // host only
	OpRevealResult   OpCode = 10 // host only
	OpNewRound       OpCode = 11 // host only
)

// Envelope is one inbound message as delivered by the transport runtime.
// Data is wire-encoded and decoded into a strict payload type before any
// state is touched; undecodable payloads are dropped.
type Envelope struct {
	Sender string
	Op     OpCode
	Data   string
}

// KickPlayerMessage asks the server to ban a player from the session.
type KickPlayerMessage struct {
	UserID string `json:"userId"`
}

// SettingsPatch is the host-supplied portion of Settings. The session
// language is fixed at creation and deliberately absent here.
type SettingsPatch struct {
	MaxPlayers            int   `json:"maxPlayers"`
	ShowFullPreviousLine  bool  `json:"showFullPreviousLine"`
	RevealLastWordInLines bool  `json:"revealLastWordInLines"`
	RevealAtMostPercent   int   `json:"revealAtMostPercent"`
	StepDuration          int64 `json:"stepDuration"` // ms
	TurnOnTts             bool  `json:"turnOnTts"`
}

// PlayerInputMessage carries a player's current line text for the running
// step, plus their readiness flag.
type PlayerInputMessage struct {
	Step  int    `json:"step"`
	Input string `json:"input"`
	Ready bool   `json:"ready"`
}

// RevealResultMessage is the host's presentation pointer during the
// results stage: which poem and which of its lines is on display. The
// server relays it verbatim and accepts backward navigation.
type RevealResultMessage struct {
	Poetry     int `json:"poetry"`
	PoetryLine int `json:"poetryLine"`
}

// HostChangedMessage announces the current host.
type HostChangedMessage struct {
	UserID string `json:"userId"`
}

// StageChangedMessage announces a stage transition.
type StageChangedMessage struct {
	Stage Stage `json:"stage"`
}

// NextStepMessage is the personalized per-step notification. Lines holds
// the (possibly obscured) lines of the poem the recipient now continues,
// Input their own previously submitted text for the slot, and Active
// whether they hold an assignment this round at all.
type NextStepMessage struct {
	Step    int      `json:"step"`
	Last    int      `json:"last"`
	Timeout int64    `json:"timeout"` // ms until the step deadline
	Lines   []string `json:"lines,omitempty"`
	Input   string   `json:"input,omitempty"`
	Active  bool     `json:"active"`
}

// ReadyUpdateMessage reports how many assigned players marked ready.
type ReadyUpdateMessage struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

// ResultsMessage carries the finished poems in presentation order.
type ResultsMessage struct {
	Results map[string][]Line `json:"results"`
	Order   []string          `json:"order"`
}

// TerminatingMessage warns connected players that the session is shutting
// down and a successor will accept rejoins within the grace period.
type TerminatingMessage struct {
	CreatorID    string `json:"creatorId"`
	GraceSeconds int    `json:"graceSeconds"`
}
