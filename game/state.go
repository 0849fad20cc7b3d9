package game

// Stage is the coarse phase of a session. It governs which messages are
// accepted at any given moment.
type Stage string

const (
	StageGettingReady Stage = "gettingReady"
	StageInProgress   Stage = "inProgress"
	StageResults      Stage = "results"
)

const (
	MinPlayers = 2
	MaxPlayers = 16

	MinStepDuration = 30_000  // ms
	MaxStepDuration = 300_000 // ms

	MinRevealPercent = 10
	MaxRevealPercent = 50

	// Length of the "get ready" grace step that precedes the first
	// writing step.
	ZeroStepDuration = 3_000 // ms
)

// Settings are owned by the session and mutable only by the current host
// while the session is getting ready. Out-of-range values are clamped,
// never rejected.
type Settings struct {
	Language              string `json:"language"`
	MaxPlayers            int    `json:"maxPlayers"`
	ShowFullPreviousLine  bool   `json:"showFullPreviousLine"`
	RevealLastWordInLines bool   `json:"revealLastWordInLines"`
	RevealAtMostPercent   int    `json:"revealAtMostPercent"`
	StepDuration          int64  `json:"stepDuration"` // ms
	TurnOnTts             bool   `json:"turnOnTts"`
}

func DefaultSettings(language string) Settings {
	return Settings{
		Language:              language,
		MaxPlayers:            MaxPlayers,
		ShowFullPreviousLine:  true,
		RevealLastWordInLines: true,
		RevealAtMostPercent:   33,
		StepDuration:          180_000,
		TurnOnTts:             true,
	}
}

// Line is one contributed line of a poem.
type Line struct {
	Author string `json:"author"`
	Input  string `json:"input"`
}

// State is the full authoritative session state. Every field is exported
// and JSON-tagged so the whole struct can travel through a snapshot.
type State struct {
	Stage    Stage    `json:"stage"`
	Settings Settings `json:"settings"`

	// Presences holds the userIds with a live connection. JoinOrder
	// records historical join order, is never reordered, and outlives
	// disconnects; it is the source of truth for host election.
	Presences map[string]bool `json:"presences"`
	Host      string          `json:"host"`
	JoinOrder []string        `json:"joinOrder"`
	Kicked    map[string]bool `json:"kicked"`

	// Round-scoped assignment state. Results maps a poem owner to the
	// poem's lines, one per step. PlayerToResult maps a player to the
	// poem owner they write for at each step. ResultOrder fixes the
	// presentation order of the poems.
	Results        map[string][]Line   `json:"results"`
	ResultOrder    []string            `json:"resultOrder"`
	PlayerToResult map[string][]string `json:"playerToResult"`

	LastStep    int   `json:"lastStep"`
	CurrentStep int   `json:"currentStep"` // -1 before a round starts
	NextStepAt  int64 `json:"nextStepAt"`  // unix ms, 0 when unset

	Ready              map[string]bool  `json:"ready"`
	WaitReconnectUntil map[string]int64 `json:"waitReconnectUntil"` // unix ms

	// Last relayed reveal pointer, replayed to late joiners.
	LastReveal *RevealResultMessage `json:"lastReveal,omitempty"`

	Terminating bool `json:"terminating"`
}

func newState(language string) *State {
	return &State{
		Stage:              StageGettingReady,
		Settings:           DefaultSettings(language),
		Presences:          make(map[string]bool),
		JoinOrder:          []string{},
		Kicked:             make(map[string]bool),
		Results:            make(map[string][]Line),
		PlayerToResult:     make(map[string][]string),
		LastStep:           0,
		CurrentStep:        -1,
		Ready:              make(map[string]bool),
		WaitReconnectUntil: make(map[string]int64),
	}
}

// clampSettings folds a host-supplied settings patch into s, clamping each
// numeric field to its valid range. Language is owned by the session and
// cannot be patched.
func (s *Settings) clampSettings(patch SettingsPatch) {
	s.MaxPlayers = clampInt(patch.MaxPlayers, MinPlayers, MaxPlayers)
	s.ShowFullPreviousLine = patch.ShowFullPreviousLine
	s.RevealLastWordInLines = patch.RevealLastWordInLines
	s.RevealAtMostPercent = clampInt(patch.RevealAtMostPercent, MinRevealPercent, MaxRevealPercent)
	s.StepDuration = clampInt64(patch.StepDuration, MinStepDuration, MaxStepDuration)
	s.TurnOnTts = patch.TurnOnTts
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
