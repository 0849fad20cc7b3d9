package game

import (
	"math/rand/v2"
	"time"

	"github.com/poembox/poembox/wire"
)

// Dispatcher is the narrow outbound contract a Match uses to reach its
// players. Sends are fire-and-forget; the match never waits for delivery.
// An empty recipient list means "all connected presences".
type Dispatcher interface {
	Broadcast(op OpCode, data string, to ...string)
	Kick(userIDs ...string)
}

// Match is the authoritative state machine for one session. All methods
// must be called from a single goroutine: the runtime drives a match as a
// cooperative actor, invoking Tick on a fixed cadence and Join/Leave/
// Terminate in between ticks. The match itself performs no I/O and holds
// no locks.
type Match struct {
	state          *State
	rng            *rand.Rand
	reconnectGrace time.Duration
	logf           func(format string, args ...any)
}

// New creates a fresh match in the getting-ready stage.
func New(language string, reconnectGrace time.Duration, logf func(format string, args ...any)) *Match {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Match{
		state:          newState(language),
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		reconnectGrace: reconnectGrace,
		logf:           logf,
	}
}

// Stage returns the current stage.
func (m *Match) Stage() Stage {
	return m.state.Stage
}

// Empty reports whether nobody is connected.
func (m *Match) Empty() bool {
	return len(m.state.Presences) == 0
}

// Terminating reports whether the match has stopped accepting traffic.
func (m *Match) Terminating() bool {
	return m.state.Terminating
}

// JoinAttempt is the admission check run before a presence is added.
// Mid-round joins are allowed only for players already in the join order,
// so a disconnected player can return to their seat but strangers cannot
// wander into a running game.
func (m *Match) JoinAttempt(userID string) error {
	st := m.state
	switch {
	case st.Terminating:
		return ErrShuttingDown
	case st.Kicked[userID]:
		return ErrKicked
	case st.Presences[userID]:
		return ErrAlreadyJoined
	case len(st.Presences) >= st.Settings.MaxPlayers:
		return ErrSessionFull
	case st.Stage != StageGettingReady && !m.inJoinOrder(userID):
		return ErrInProgress
	}
	return nil
}

func (m *Match) inJoinOrder(userID string) bool {
	for _, id := range m.state.JoinOrder {
		if id == userID {
			return true
		}
	}
	return false
}

// Join folds a newly connected presence into the match and resynchronizes
// the joiner: current host, settings and stage always, plus a personalized
// step view mid-round or the full results set afterwards.
func (m *Match) Join(userID string, now time.Time, d Dispatcher) {
	st := m.state

	if !m.inJoinOrder(userID) {
		st.JoinOrder = append(st.JoinOrder, userID)
	}
	st.Presences[userID] = true
	delete(st.WaitReconnectUntil, userID)

	m.electHost(d)

	if st.Host != "" {
		m.send(d, OpHostChanged, HostChangedMessage{UserID: st.Host}, userID)
	}
	m.send(d, OpSettingsUpdate, st.Settings, userID)
	m.send(d, OpStageChanged, StageChangedMessage{Stage: st.Stage}, userID)

	switch st.Stage {
	case StageInProgress:
		if st.CurrentStep >= 0 {
			remaining := st.NextStepAt - now.UnixMilli()
			if remaining < 0 {
				remaining = 0
			}
			m.sendStepView(d, userID, remaining)
		}
	case StageResults:
		m.send(d, OpResults, ResultsMessage{Results: st.Results, Order: st.ResultOrder}, userID)
		if st.LastReveal != nil {
			m.send(d, OpRevealResult, *st.LastReveal, userID)
		}
	}
}

// Leave removes presences. Join order is permanent, so the players keep
// their seats; mid-round a reconnection grace window is armed so their
// absence neither stalls the turn forever nor forfeits it instantly.
func (m *Match) Leave(userIDs []string, now time.Time, d Dispatcher) {
	st := m.state
	until := now.Add(m.reconnectGrace).UnixMilli()

	for _, id := range userIDs {
		if !st.Presences[id] {
			continue
		}
		delete(st.Presences, id)
		delete(st.Ready, id)
		if st.Stage == StageInProgress {
			st.WaitReconnectUntil[id] = until
		}
	}

	m.electHost(d)
}

// Tick runs one scheduler slice: host election, the tick's inbound batch
// in delivery order, then turn advancement, so a ready flag and an
// expiring deadline landing in the same tick resolve consistently.
func (m *Match) Tick(now time.Time, msgs []Envelope, d Dispatcher) {
	if m.state.Terminating {
		return
	}

	m.electHost(d)

	sendReady := false
	for _, msg := range msgs {
		m.dispatch(msg, now, d, &sendReady)
	}

	if sendReady && m.state.Stage == StageInProgress {
		m.send(d, OpReadyUpdate, ReadyUpdateMessage{
			Ready: len(m.state.Ready),
			Total: len(m.state.PlayerToResult),
		})
	}

	if m.state.Stage == StageInProgress {
		m.advance(now, d)
	}
}

// electHost derives the host as the earliest-joined connected player and
// broadcasts at most one change notification.
func (m *Match) electHost(d Dispatcher) {
	st := m.state

	next := ""
	for _, id := range st.JoinOrder {
		if st.Presences[id] {
			next = id
			break
		}
	}

	if next == st.Host {
		return
	}
	st.Host = next
	if next != "" {
		m.send(d, OpHostChanged, HostChangedMessage{UserID: next})
	}
}

// dispatch validates and applies one inbound message. Malformed,
// out-of-context or unauthorized messages are dropped without affecting
// the rest of the batch.
func (m *Match) dispatch(msg Envelope, now time.Time, d Dispatcher, sendReady *bool) {
	switch msg.Op {
	case OpKickPlayer:
		m.handleKick(msg, d)
	case OpSettingsUpdate:
		m.handleSettings(msg, d)
	case OpStartGame:
		m.handleStart(msg, now, d)
	case OpPlayerInput:
		m.handleInput(msg, sendReady)
	case OpRevealResult:
		m.handleReveal(msg, d)
	case OpNewRound:
		m.handleNewRound(msg, d)
	default:
		m.logf("drop message with unknown opcode %d from %s", msg.Op, msg.Sender)
	}
}

func (m *Match) fromHost(msg Envelope) bool {
	return m.state.Host != "" && m.state.Host == msg.Sender
}

func (m *Match) handleKick(msg Envelope, d Dispatcher) {
	st := m.state
	if !m.fromHost(msg) || st.Stage != StageGettingReady {
		return
	}
	data, err := wire.Decode[KickPlayerMessage](msg.Data)
	if err != nil || data.UserID == "" {
		return
	}
	if data.UserID == msg.Sender || !st.Presences[data.UserID] {
		return
	}

	m.logf("kicking player %s", data.UserID)
	st.Kicked[data.UserID] = true
	d.Kick(data.UserID)
}

func (m *Match) handleSettings(msg Envelope, d Dispatcher) {
	st := m.state
	if !m.fromHost(msg) || st.Stage != StageGettingReady {
		return
	}
	patch, err := wire.Decode[SettingsPatch](msg.Data)
	if err != nil {
		return
	}

	st.Settings.clampSettings(patch)
	m.send(d, OpSettingsUpdate, st.Settings)
}

func (m *Match) handleStart(msg Envelope, now time.Time, d Dispatcher) {
	st := m.state
	if !m.fromHost(msg) || st.Stage != StageGettingReady {
		return
	}

	players := m.connectedInJoinOrder()
	if len(players) < MinPlayers {
		return
	}

	m.logf("starting game with %d players", len(players))
	st.Stage = StageInProgress
	m.send(d, OpStageChanged, StageChangedMessage{Stage: st.Stage})

	st.LastStep = len(players)
	st.CurrentStep = 0
	st.NextStepAt = now.UnixMilli() + ZeroStepDuration
	st.Results, st.PlayerToResult, st.ResultOrder = newAssignment(players, m.rng)

	for _, id := range players {
		m.send(d, OpNextStep, NextStepMessage{
			Step:    st.CurrentStep,
			Last:    st.LastStep,
			Timeout: ZeroStepDuration,
			Active:  true,
		}, id)
	}
}

func (m *Match) handleInput(msg Envelope, sendReady *bool) {
	st := m.state
	if st.Stage != StageInProgress || st.CurrentStep < 1 {
		return
	}
	data, err := wire.Decode[PlayerInputMessage](msg.Data)
	if err != nil {
		return
	}
	if data.Step != st.CurrentStep {
		return
	}
	steps, ok := st.PlayerToResult[msg.Sender]
	if !ok {
		return
	}

	owner := steps[st.CurrentStep-1]
	st.Results[owner][st.CurrentStep-1].Input = data.Input

	switch {
	case data.Ready && !st.Ready[msg.Sender]:
		st.Ready[msg.Sender] = true
		*sendReady = true
	case !data.Ready && st.Ready[msg.Sender]:
		delete(st.Ready, msg.Sender)
		*sendReady = true
	}
}

func (m *Match) handleReveal(msg Envelope, d Dispatcher) {
	st := m.state
	if !m.fromHost(msg) || st.Stage != StageResults {
		return
	}
	// Decoded for validation only; the host may move the pointer freely,
	// including backward.
	data, err := wire.Decode[RevealResultMessage](msg.Data)
	if err != nil {
		return
	}

	st.LastReveal = &data
	m.send(d, OpRevealResult, data)
}

func (m *Match) handleNewRound(msg Envelope, d Dispatcher) {
	st := m.state
	if !m.fromHost(msg) || st.Stage != StageResults {
		return
	}

	m.logf("starting new round")
	st.Results = make(map[string][]Line)
	st.ResultOrder = nil
	st.PlayerToResult = make(map[string][]string)
	st.LastStep = 0
	st.CurrentStep = -1
	st.NextStepAt = 0
	st.Ready = make(map[string]bool)
	st.WaitReconnectUntil = make(map[string]int64)
	st.LastReveal = nil

	st.Stage = StageGettingReady
	m.send(d, OpStageChanged, StageChangedMessage{Stage: st.Stage})
}

// advance moves the round forward when the step deadline has passed or
// every assigned player that could still act is ready. A disconnected
// player inside their reconnection grace window blocks early advancement;
// once the window expires they are simply skipped.
func (m *Match) advance(now time.Time, d Dispatcher) {
	st := m.state
	if st.CurrentStep < 0 || st.NextStepAt == 0 {
		return
	}

	nowMS := now.UnixMilli()
	if nowMS < st.NextStepAt && !m.everyoneReady(nowMS) {
		return
	}

	if st.CurrentStep == st.LastStep {
		m.logf("round finished, showing results")
		st.Stage = StageResults
		st.NextStepAt = 0
		m.send(d, OpStageChanged, StageChangedMessage{Stage: st.Stage})
		m.send(d, OpResults, ResultsMessage{Results: st.Results, Order: st.ResultOrder})
		return
	}

	st.CurrentStep++
	st.NextStepAt = nowMS + st.Settings.StepDuration
	st.Ready = make(map[string]bool)

	for _, id := range m.connectedInJoinOrder() {
		m.sendStepView(d, id, st.Settings.StepDuration)
	}
}

func (m *Match) everyoneReady(nowMS int64) bool {
	st := m.state
	for id := range st.PlayerToResult {
		if st.Presences[id] {
			if !st.Ready[id] {
				return false
			}
			continue
		}
		if until, ok := st.WaitReconnectUntil[id]; ok && nowMS < until {
			return false
		}
	}
	return true
}

// sendStepView sends one player their personalized view of the current
// step: the obscured lines of the poem they continue and their own
// submitted text, or a spectator notice if they hold no assignment.
func (m *Match) sendStepView(d Dispatcher, userID string, timeout int64) {
	st := m.state

	next := NextStepMessage{
		Step:    st.CurrentStep,
		Last:    st.LastStep,
		Timeout: timeout,
	}

	steps, ok := st.PlayerToResult[userID]
	if !ok {
		m.send(d, OpNextStep, next, userID)
		return
	}

	next.Active = true
	if st.CurrentStep >= 1 {
		owner := steps[st.CurrentStep-1]
		next.Lines = m.viewLines(owner)
		next.Input = st.Results[owner][st.CurrentStep-1].Input
	}
	m.send(d, OpNextStep, next, userID)
}

// viewLines renders the filled-in lines of a poem the way its next author
// is allowed to see them.
func (m *Match) viewLines(owner string) []string {
	st := m.state

	inputs := make([]string, 0, st.LastStep)
	for _, line := range st.Results[owner] {
		if line.Input != "" {
			inputs = append(inputs, line.Input)
		}
	}

	out := make([]string, len(inputs))
	for i, input := range inputs {
		showFull := st.Settings.ShowFullPreviousLine && i == len(inputs)-1
		out[i] = Obscure(input, showFull, st.Settings.RevealLastWordInLines, st.Settings.RevealAtMostPercent)
	}
	return out
}

func (m *Match) connectedInJoinOrder() []string {
	st := m.state
	out := make([]string, 0, len(st.Presences))
	for _, id := range st.JoinOrder {
		if st.Presences[id] {
			out = append(out, id)
		}
	}
	return out
}

// Terminate prepares the match for a graceful shutdown. If the session is
// still getting ready, or nobody is connected, there is nothing worth
// restoring and nil is returned. Otherwise every connected player except
// the restarter is warned and a snapshot of the full state is handed back
// for persistence. A terminating match accepts no further traffic.
func (m *Match) Terminate(now time.Time, graceSeconds int, d Dispatcher) *Snapshot {
	st := m.state
	if st.Terminating {
		return nil
	}
	if len(st.Presences) == 0 || st.Stage == StageGettingReady {
		st.Terminating = true
		return nil
	}

	restarter := st.Host
	if restarter == "" {
		for _, id := range st.JoinOrder {
			if st.Presences[id] {
				restarter = id
				break
			}
		}
	}

	notice := TerminatingMessage{CreatorID: restarter, GraceSeconds: graceSeconds}
	for _, id := range m.connectedInJoinOrder() {
		if id == restarter {
			continue
		}
		m.send(d, OpTerminating, notice, id)
	}

	st.Terminating = true
	return &Snapshot{State: st, SavedAt: now.UnixMilli()}
}

// send encodes and dispatches one outbound payload. Encoding failures are
// logged and swallowed: nothing crosses the tick boundary as a panic.
func (m *Match) send(d Dispatcher, op OpCode, v any, to ...string) {
	data, err := wire.Encode(v)
	if err != nil {
		m.logf("encode opcode %d: %v", op, err)
		return
	}
	d.Broadcast(op, data, to...)
}
