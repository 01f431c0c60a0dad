package battle

import (
	"context"

	"github.com/looplab/fsm"
)

// Phase is the battle state.
type Phase string

const (
	PhasePlayerTurn Phase = "player_turn"
	PhaseEnemyTurn  Phase = "enemy_turn"
	PhaseVictory    Phase = "victory"
	PhaseDefeat     Phase = "defeat"
	PhaseTimeout    Phase = "timeout"
	PhaseAborted    Phase = "aborted"
)

// Terminal reports whether no further actions are possible in p.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseVictory, PhaseDefeat, PhaseTimeout, PhaseAborted:
		return true
	}
	return false
}

// Outcome is how a battle ended.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeTimeout Outcome = "timeout"
	OutcomeAborted Outcome = "aborted"
)

// Phase transition events.
const (
	evEndPlayerTurn   = "end_player_turn"
	evBeginPlayerTurn = "begin_player_turn"
	evSave            = "save"
	evFall            = "fall"
	evTimeUp          = "time_up"
	evAbort           = "abort"
)

// newPhaseMachine builds the battle state machine. onEnter is called with the
// destination of every successful transition.
//
//	player_turn --end_player_turn--> enemy_turn --begin_player_turn--> player_turn
//	player_turn --save--> victory
//	enemy_turn  --fall--> defeat
//	enemy_turn  --time_up--> timeout
//	player_turn|enemy_turn --abort--> aborted
func newPhaseMachine(onEnter func(Phase)) *fsm.FSM {
	pt, et := string(PhasePlayerTurn), string(PhaseEnemyTurn)
	return fsm.NewFSM(
		pt,
		fsm.Events{
			{Name: evEndPlayerTurn, Src: []string{pt}, Dst: et},
			{Name: evBeginPlayerTurn, Src: []string{et}, Dst: pt},
			{Name: evSave, Src: []string{pt}, Dst: string(PhaseVictory)},
			{Name: evFall, Src: []string{et}, Dst: string(PhaseDefeat)},
			{Name: evTimeUp, Src: []string{et}, Dst: string(PhaseTimeout)},
			{Name: evAbort, Src: []string{pt, et}, Dst: string(PhaseAborted)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(Phase(e.Dst))
			},
		},
	)
}
