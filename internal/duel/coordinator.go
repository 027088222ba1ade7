package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/coinclash/backend/internal/catalog"
	"github.com/coinclash/backend/internal/channel"
	"github.com/coinclash/backend/internal/config"
	"github.com/coinclash/backend/internal/matchmaking"
)

// State is the coordinator's lifecycle position.
type State string

const (
	StateSelectType  State = "SELECT_TYPE"
	StateSetup       State = "SETUP"
	StateMatchmaking State = "MATCHMAKING"
	StateReadyCheck  State = "READY_CHECK"
	StateBattle      State = "BATTLE"
	StateVictory     State = "VICTORY"
	StateDefeat      State = "DEFEAT"
	StateTimeout     State = "TIMEOUT"
)

// Status is a player's per-round answering state.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusLocked  Status = "LOCKED"
	StatusCorrect Status = "CORRECT"
)

// Channel payloads
type JoinedPayload struct {
	DisplayName string `json:"display_name"`
}

type NextRoundPayload struct {
	Round   int          `json:"round"`
	Subject catalog.Coin `json:"subject"`
	Options []string     `json:"options"`
}

type UserStatusPayload struct {
	Status Status `json:"status"`
	Score  int    `json:"score"`
}

// Rules are the per-duel timing and scoring knobs.
type Rules struct {
	RoundDuration   time.Duration
	WinScore        int
	LockedGrace     time.Duration
	CorrectAdvance  time.Duration
	MatchWait       time.Duration
	LivenessTimeout time.Duration
	RankLimit       int
	MinRankedPool   int
}

func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		RoundDuration:   time.Duration(cfg.RoundSeconds) * time.Second,
		WinScore:        cfg.WinScore,
		LockedGrace:     time.Duration(cfg.LockedGraceMillis) * time.Millisecond,
		CorrectAdvance:  time.Duration(cfg.CorrectAdvanceMillis) * time.Millisecond,
		MatchWait:       time.Duration(cfg.MatchWaitSeconds) * time.Second,
		LivenessTimeout: time.Duration(cfg.LivenessTimeoutSeconds) * time.Second,
		RankLimit:       cfg.RankLimit,
		MinRankedPool:   cfg.MinRankedPool,
	}
}

// JoinService is the matcher surface the coordinator drives.
type JoinService interface {
	Join(ctx context.Context, userID string, stake int) (*matchmaking.JoinResult, error)
	Cancel(ctx context.Context, entryID string) error
	WaitForMatch(ctx context.Context, entryID string, timeout time.Duration) (string, error)
}

// Settler records the terminal result and credits the winner.
type Settler interface {
	Complete(ctx context.Context, duelID, winnerID string) (bool, error)
}

// DuelChannelID is the pub/sub channel name for one duel session.
func DuelChannelID(duelID string) string {
	return "duel:" + duelID
}

// Coordinator is the per-client duel state machine. It drives matchmaking,
// exchanges events over the duel channel, and evaluates win/timeout
// conditions locally; there is no server-side copy of round state. Every
// incoming event is processed as a discrete idempotent transition under one
// mutex, so duplicate and out-of-order deliveries are safe to hand it.
type Coordinator struct {
	mu sync.Mutex

	rules    Rules
	userID   string
	name     string
	joiner   JoinService
	ch       channel.Channel
	provider catalog.Provider
	settler  Settler
	rng      *rand.Rand

	state    State
	stake    int
	entryID  string
	duelID   string
	isLeader bool

	opponentID   string
	opponentName string

	round     int
	subject   catalog.Coin
	options   []string
	correct   string
	ownStatus Status
	oppStatus Status
	ownScore  int
	oppScore  int
	deadline  time.Time
	wrongPick string

	coins []catalog.Coin

	events   <-chan channel.Event
	stopSub  func()
	waitStop context.CancelFunc

	roundTimer    *time.Timer
	advanceTimer  *time.Timer
	livenessTimer *time.Timer
	epoch         int
}

// Snapshot is a copy of the observable coordinator state, for UIs and tests.
type Snapshot struct {
	State        State
	Stake        int
	EntryID      string
	DuelID       string
	IsLeader     bool
	OpponentID   string
	OpponentName string
	Round        int
	Subject      catalog.Coin
	Options      []string
	OwnStatus    Status
	OppStatus    Status
	OwnScore     int
	OppScore     int
	WrongPick    string
	Deadline     time.Time
}

func NewCoordinator(userID, displayName string, rules Rules, joiner JoinService, ch channel.Channel, provider catalog.Provider, settler Settler) *Coordinator {
	return &Coordinator{
		rules:    rules,
		userID:   userID,
		name:     displayName,
		joiner:   joiner,
		ch:       ch,
		provider: provider,
		settler:  settler,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    StateSelectType,
	}
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := make([]string, len(c.options))
	copy(opts, c.options)
	return Snapshot{
		State:        c.state,
		Stake:        c.stake,
		EntryID:      c.entryID,
		DuelID:       c.duelID,
		IsLeader:     c.isLeader,
		OpponentID:   c.opponentID,
		OpponentName: c.opponentName,
		Round:        c.round,
		Subject:      c.subject,
		Options:      opts,
		OwnStatus:    c.ownStatus,
		OppStatus:    c.oppStatus,
		OwnScore:     c.ownScore,
		OppScore:     c.oppScore,
		WrongPick:    c.wrongPick,
		Deadline:     c.deadline,
	}
}

// SelectPointsMode moves SELECT_TYPE → SETUP.
func (c *Coordinator) SelectPointsMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSelectType || c.state == StateTimeout {
		c.state = StateSetup
	}
}

// StartMatch joins the queue at the given stake. A duel id in the response
// makes this client the follower; otherwise it leads and waits, bounded, for
// a pairing notification on its queue entry. Store failures drop the
// coordinator back to SETUP and surface to the caller.
func (c *Coordinator) StartMatch(ctx context.Context, stake int) error {
	c.mu.Lock()
	if c.state != StateSetup {
		c.mu.Unlock()
		return fmt.Errorf("cannot start matchmaking from state %s", c.state)
	}
	c.state = StateMatchmaking
	c.stake = stake
	c.mu.Unlock()

	res, err := c.joiner.Join(ctx, c.userID, stake)
	if err != nil {
		c.mu.Lock()
		c.state = StateSetup
		c.mu.Unlock()
		return fmt.Errorf("join failed: %w", err)
	}

	c.mu.Lock()
	c.entryID = res.EntryID
	c.mu.Unlock()

	if res.DuelID != "" {
		// Follower: paired immediately
		c.attach(ctx, res.DuelID, false)
		return nil
	}

	// Leader: bounded wait for a pairing notification
	waitCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.waitStop = cancel
	c.mu.Unlock()

	go func() {
		duelID, err := c.joiner.WaitForMatch(waitCtx, res.EntryID, c.rules.MatchWait)
		if err != nil {
			c.mu.Lock()
			inMatchmaking := c.state == StateMatchmaking
			if inMatchmaking {
				c.state = StateTimeout
			}
			entryID := c.entryID
			c.mu.Unlock()
			if inMatchmaking {
				if errors.Is(err, matchmaking.ErrWaitTimeout) {
					log.Printf("[DUEL] Matchmaking timed out for user %s", c.userID)
				} else {
					log.Printf("[DUEL] Matchmaking wait failed for user %s: %v", c.userID, err)
				}
				// Best-effort: a failed cancel just leaves the entry to go stale
				if err := c.joiner.Cancel(context.Background(), entryID); err != nil {
					log.Printf("[DUEL] Cancel after timeout failed for entry %s: %v", entryID, err)
				}
			}
			return
		}
		c.attach(ctx, duelID, true)
	}()
	return nil
}

// Abandon cancels a pending queue entry and returns to SETUP. Valid only
// before pairing; once a duel exists the liveness/forfeit path applies.
func (c *Coordinator) Abandon(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateMatchmaking || c.duelID != "" {
		c.mu.Unlock()
		return nil
	}
	entryID := c.entryID
	if c.waitStop != nil {
		c.waitStop()
		c.waitStop = nil
	}
	c.state = StateSetup
	c.mu.Unlock()

	return c.joiner.Cancel(ctx, entryID)
}

// Retry moves TIMEOUT back to SETUP for another attempt.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTimeout {
		c.state = StateSetup
	}
}

// attach subscribes to the duel channel and announces this client. The move
// to READY_CHECK happens once the opponent's JOINED arrives.
func (c *Coordinator) attach(ctx context.Context, duelID string, leader bool) {
	events, stop := c.ch.Subscribe(ctx, DuelChannelID(duelID))

	c.mu.Lock()
	if c.state != StateMatchmaking {
		c.mu.Unlock()
		stop()
		return
	}
	c.duelID = duelID
	c.isLeader = leader
	c.events = events
	c.stopSub = stop
	c.mu.Unlock()

	log.Printf("[DUEL] Attached: duel=%s user=%s leader=%v", duelID, c.userID, leader)

	go c.eventLoop(ctx, events)

	c.publish(ctx, channel.EventJoined, JoinedPayload{DisplayName: c.name})
	c.armLiveness()
}

func (c *Coordinator) eventLoop(ctx context.Context, events <-chan channel.Event) {
	for ev := range events {
		c.HandleEvent(ctx, ev)
	}
}

// HandleEvent applies one channel event. Self-originated events are always
// dropped (naive transports echo every publish back to the sender), malformed
// payloads are no-ops, and nothing is processed after a terminal state.
func (c *Coordinator) HandleEvent(ctx context.Context, ev channel.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.SenderID == "" || ev.SenderID == c.userID {
		return
	}
	if c.state == StateVictory || c.state == StateDefeat {
		return
	}

	c.armLivenessLocked()

	switch ev.Type {
	case channel.EventJoined:
		c.handleJoinedLocked(ctx, ev)
	case channel.EventNextRound:
		c.handleNextRoundLocked(ev)
	case channel.EventUserStatus:
		c.handleUserStatusLocked(ctx, ev)
	case channel.EventLeft:
		c.handleLeftLocked(ctx)
	default:
		// Unknown event types are silently discarded
	}
}

func (c *Coordinator) handleJoinedLocked(ctx context.Context, ev channel.Event) {
	var p JoinedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}

	firstSight := c.opponentID == ""
	c.opponentID = ev.SenderID
	c.opponentName = p.DisplayName

	if c.state == StateMatchmaking {
		c.state = StateReadyCheck
		log.Printf("[DUEL] Ready: duel=%s user=%s opponent=%s", c.duelID, c.userID, c.opponentName)
	}

	// Re-announce so a peer that subscribed after our first JOINED still
	// learns who we are. Receivers treat repeats as no-ops.
	if firstSight {
		go c.publish(ctx, channel.EventJoined, JoinedPayload{DisplayName: c.name})
	}
}

func (c *Coordinator) handleNextRoundLocked(ev channel.Event) {
	var p NextRoundPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	if p.Round <= c.round || p.Subject.Symbol == "" || !validRoundOptions(p.Subject, p.Options) {
		// Stale, duplicate, or malformed
		return
	}
	if c.state != StateReadyCheck && c.state != StateBattle {
		return
	}

	c.state = StateBattle
	c.applyRoundLocked(p.Round, p.Subject, p.Options)
}

// validRoundOptions enforces the shape the leader's BuildOptions guarantees:
// four distinct non-empty answers, one of them the uppercased subject symbol.
func validRoundOptions(subject catalog.Coin, options []string) bool {
	if len(options) != 4 {
		return false
	}
	seen := make(map[string]bool, 4)
	for _, o := range options {
		if o == "" || seen[o] {
			return false
		}
		seen[o] = true
	}
	return seen[strings.ToUpper(subject.Symbol)]
}

func (c *Coordinator) handleUserStatusLocked(ctx context.Context, ev channel.Event) {
	var p UserStatusPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return
	}
	if c.state != StateBattle {
		return
	}

	switch p.Status {
	case StatusCorrect, StatusLocked, StatusActive:
		c.oppStatus = p.Status
	default:
		return
	}
	c.oppScore = p.Score

	if p.Status == StatusCorrect && p.Score >= c.rules.WinScore {
		c.state = StateDefeat
		c.teardownLocked()
		log.Printf("[DUEL] Defeat: duel=%s user=%s opponent_score=%d", c.duelID, c.userID, p.Score)
		return
	}

	if c.isLeader {
		if p.Status == StatusCorrect {
			c.scheduleAdvanceLocked(ctx, c.rules.CorrectAdvance)
		} else if p.Status == StatusLocked && c.ownStatus == StatusLocked {
			c.scheduleAdvanceLocked(ctx, c.rules.LockedGrace)
		}
	}
}

func (c *Coordinator) handleLeftLocked(ctx context.Context) {
	switch c.state {
	case StateBattle:
		// Opponent forfeits; remaining client takes the duel
		c.winLocked(ctx, "opponent left")
	case StateReadyCheck:
		log.Printf("[DUEL] Opponent left before start: duel=%s", c.duelID)
		c.teardownLocked()
		c.state = StateSetup
	}
}

// StartBattle seeds round 1. Only the leader may trigger it; this is what
// guards against both clients independently seeding the first round.
func (c *Coordinator) StartBattle(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReadyCheck {
		c.mu.Unlock()
		return fmt.Errorf("cannot start battle from state %s", c.state)
	}
	if !c.isLeader {
		c.mu.Unlock()
		return errors.New("only the leader starts the battle")
	}
	c.state = StateBattle
	c.mu.Unlock()

	return c.nextRound(ctx)
}

// nextRound draws a subject, builds the answer set, applies it locally and
// broadcasts it. Leader only.
func (c *Coordinator) nextRound(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateBattle || !c.isLeader {
		c.mu.Unlock()
		return nil
	}
	if c.coins == nil {
		coins, err := c.provider.Coins(ctx)
		if err != nil || len(coins) == 0 {
			c.mu.Unlock()
			return fmt.Errorf("load subject pool: %w", err)
		}
		c.coins = coins
	}

	subject, err := PickSubject(c.coins, c.rules.RankLimit, c.rules.MinRankedPool, c.rng)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	options := BuildOptions(subject.Symbol, c.rng)
	round := c.round + 1

	c.applyRoundLocked(round, subject, options)
	c.mu.Unlock()

	c.publish(ctx, channel.EventNextRound, NextRoundPayload{
		Round:   round,
		Subject: subject,
		Options: options,
	})
	log.Printf("[DUEL] Round %d: duel=%s subject=%s", round, c.duelID, subject.Symbol)
	return nil
}

// applyRoundLocked resets local round state for a newly seen round number.
func (c *Coordinator) applyRoundLocked(round int, subject catalog.Coin, options []string) {
	c.round = round
	c.subject = subject
	c.options = options
	c.correct = reverseLookupCorrect(subject, options)
	c.ownStatus = StatusActive
	c.oppStatus = StatusActive
	c.wrongPick = ""
	c.deadline = time.Now().Add(c.rules.RoundDuration)
	c.cancelAdvanceLocked()
	c.armRoundTimerLocked(round)
}

// reverseLookupCorrect prefers the uppercased symbol; the options are
// guaranteed to contain it exactly once.
func reverseLookupCorrect(subject catalog.Coin, options []string) string {
	up := strings.ToUpper(subject.Symbol)
	for _, o := range options {
		if o == up {
			return o
		}
	}
	return up
}

// SelectAnswer handles the local player's pick for the current round. A
// correct pick scores and broadcasts CORRECT; anything else locks the player
// out for the rest of the round.
func (c *Coordinator) SelectAnswer(ctx context.Context, option string) error {
	c.mu.Lock()
	if c.state != StateBattle {
		c.mu.Unlock()
		return fmt.Errorf("no round in progress (state %s)", c.state)
	}
	if c.ownStatus != StatusActive {
		c.mu.Unlock()
		return errors.New("already answered this round")
	}

	if option == c.correct {
		c.ownStatus = StatusCorrect
		c.ownScore++
		score := c.ownScore
		won := score >= c.rules.WinScore
		if won {
			c.winLocked(ctx, "score threshold")
		} else if c.isLeader {
			c.scheduleAdvanceLocked(ctx, c.rules.CorrectAdvance)
		}
		c.mu.Unlock()

		c.publish(ctx, channel.EventUserStatus, UserStatusPayload{Status: StatusCorrect, Score: score})
		return nil
	}

	c.ownStatus = StatusLocked
	c.wrongPick = option
	score := c.ownScore
	if c.isLeader && c.oppStatus == StatusLocked {
		c.scheduleAdvanceLocked(ctx, c.rules.LockedGrace)
	}
	c.mu.Unlock()

	c.publish(ctx, channel.EventUserStatus, UserStatusPayload{Status: StatusLocked, Score: score})
	return nil
}

// winLocked finalizes a local victory and settles the stake. Must hold mu.
func (c *Coordinator) winLocked(ctx context.Context, reason string) {
	c.state = StateVictory
	duelID := c.duelID
	c.teardownLocked()
	log.Printf("[DUEL] Victory (%s): duel=%s user=%s", reason, duelID, c.userID)

	if c.settler != nil {
		go func() {
			if _, err := c.settler.Complete(context.WithoutCancel(ctx), duelID, c.userID); err != nil {
				log.Printf("[DUEL] Settlement failed: duel=%s winner=%s err=%v", duelID, c.userID, err)
			}
		}()
	}
}

// scheduleAdvanceLocked arms the early-advance timer (post-correct pause or
// both-locked grace). Re-arming replaces any pending advance.
func (c *Coordinator) scheduleAdvanceLocked(ctx context.Context, delay time.Duration) {
	c.cancelAdvanceLocked()
	epoch := c.epoch
	round := c.round
	c.advanceTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := c.epoch != epoch || c.round != round || c.state != StateBattle
		c.mu.Unlock()
		if stale {
			return
		}
		if err := c.nextRound(ctx); err != nil {
			log.Printf("[DUEL] Advance failed: %v", err)
		}
	})
}

func (c *Coordinator) cancelAdvanceLocked() {
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
}

// armRoundTimerLocked schedules the leader's fallback advance when the round
// clock runs out with no winner. Followers keep no round timer; the
// authoritative round content always originates from the leader's broadcast.
func (c *Coordinator) armRoundTimerLocked(round int) {
	if c.roundTimer != nil {
		c.roundTimer.Stop()
		c.roundTimer = nil
	}
	if !c.isLeader {
		return
	}
	epoch := c.epoch
	c.roundTimer = time.AfterFunc(c.rules.RoundDuration, func() {
		c.mu.Lock()
		stale := c.epoch != epoch || c.round != round || c.state != StateBattle
		c.mu.Unlock()
		if stale {
			return
		}
		log.Printf("[DUEL] Round %d timed out, advancing: duel=%s", round, c.duelID)
		if err := c.nextRound(context.Background()); err != nil {
			log.Printf("[DUEL] Timeout advance failed: %v", err)
		}
	})
}

// armLiveness (re)starts the opponent liveness clock. If the opponent goes
// silent for the whole window mid-battle, the remaining client takes the
// duel by forfeit instead of being stuck unwinnable.
func (c *Coordinator) armLiveness() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armLivenessLocked()
}

func (c *Coordinator) armLivenessLocked() {
	if c.rules.LivenessTimeout <= 0 {
		return
	}
	if c.livenessTimer != nil {
		c.livenessTimer.Stop()
	}
	epoch := c.epoch
	c.livenessTimer = time.AfterFunc(c.rules.LivenessTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			return
		}
		switch c.state {
		case StateBattle:
			log.Printf("[DUEL] Opponent unresponsive, forfeit: duel=%s", c.duelID)
			c.winLocked(context.Background(), "liveness timeout")
		case StateReadyCheck:
			log.Printf("[DUEL] Opponent never arrived: duel=%s", c.duelID)
			c.teardownLocked()
			c.state = StateSetup
		case StateMatchmaking:
			if c.duelID != "" {
				log.Printf("[DUEL] No JOINED from opponent: duel=%s", c.duelID)
				c.teardownLocked()
				c.state = StateSetup
			}
		}
	})
}

// teardownLocked stops timers and the subscription. Must hold mu.
func (c *Coordinator) teardownLocked() {
	c.epoch++
	if c.roundTimer != nil {
		c.roundTimer.Stop()
		c.roundTimer = nil
	}
	c.cancelAdvanceLocked()
	if c.livenessTimer != nil {
		c.livenessTimer.Stop()
		c.livenessTimer = nil
	}
	if c.stopSub != nil {
		stop := c.stopSub
		c.stopSub = nil
		go stop()
	}
}

func (c *Coordinator) publish(ctx context.Context, eventType string, payload any) {
	c.mu.Lock()
	duelID := c.duelID
	c.mu.Unlock()
	if duelID == "" {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[DUEL] marshal %s failed: %v", eventType, err)
		return
	}
	ev := channel.Event{Type: eventType, SenderID: c.userID, Payload: data}
	if err := c.ch.Publish(ctx, DuelChannelID(duelID), ev); err != nil {
		log.Printf("[DUEL] publish %s failed: %v", eventType, err)
	}
}
