package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownGameStatus = errors.New("unknown game status")

// Phase orders match progress. It only ever moves forward within one match.
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhasePlaying
	PhaseComplete
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusComplete = "complete"

	// NoWinner is the text form of a tied match's winner.
	NoWinner = "none"
)

func (that Phase) String() string {
	switch that {
	case PhaseWaiting:
		return StatusWaiting
	case PhasePlaying:
		return StatusPlaying
	case PhaseComplete:
		return StatusComplete
	default:
		return "unknown"
	}
}

// MatchStatus is Waiting, Playing, or Complete with either a winning mark or no winner.
// The zero value is Waiting.
type MatchStatus struct {
	phase  Phase
	winner Mark
}

func Waiting() MatchStatus { return MatchStatus{phase: PhaseWaiting} }

func Playing() MatchStatus { return MatchStatus{phase: PhasePlaying} }

func Won(mark Mark) MatchStatus { return MatchStatus{phase: PhaseComplete, winner: mark} }

func Tie() MatchStatus { return MatchStatus{phase: PhaseComplete} }

func (that MatchStatus) Phase() Phase {
	return that.phase
}

func (that MatchStatus) IsWaiting() bool {
	return that.phase == PhaseWaiting
}

func (that MatchStatus) IsPlaying() bool {
	return that.phase == PhasePlaying
}

func (that MatchStatus) IsComplete() bool {
	return that.phase == PhaseComplete
}

// Winner - returns the winning mark; false while the match is open or when it was a tie.
func (that MatchStatus) Winner() (Mark, bool) {
	if that.phase != PhaseComplete || that.winner == 0 {
		return 0, false
	}
	return that.winner, true
}

func (that MatchStatus) IsTie() bool {
	return that.phase == PhaseComplete && that.winner == 0
}

func (that MatchStatus) String() string {
	if that.phase != PhaseComplete {
		return that.phase.String()
	}

	if winner, ok := that.Winner(); ok {
		return fmt.Sprintf("%s(%s)", StatusComplete, winner)
	}

	return fmt.Sprintf("%s(%s)", StatusComplete, NoWinner)
}

type statusJSON struct {
	Phase  string `json:"phase"`
	Winner string `json:"winner,omitempty"`
}

func (that MatchStatus) MarshalJSON() ([]byte, error) {
	body := statusJSON{Phase: that.phase.String()}

	if that.phase == PhaseComplete {
		body.Winner = NoWinner
		if winner, ok := that.Winner(); ok {
			body.Winner = winner.String()
		}
	}

	return json.Marshal(body)
}

func (that *MatchStatus) UnmarshalJSON(data []byte) error {
	var body statusJSON
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	switch body.Phase {
	case StatusWaiting:
		*that = Waiting()
	case StatusPlaying:
		*that = Playing()
	case StatusComplete:
		if body.Winner == NoWinner {
			*that = Tie()
			return nil
		}

		var winner Mark
		if err := winner.UnmarshalText([]byte(body.Winner)); err != nil {
			return err
		}

		*that = Won(winner)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, body.Phase)
	}

	return nil
}

// Snapshot is a read-only copy of match state for renderers.
type Snapshot struct {
	Board  Board       `json:"board"`
	Turn   Mark        `json:"player_turn"`
	Status MatchStatus `json:"status"`
}

// MatchRecord is one persisted entry of a node's match history.
type MatchRecord struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Mark      Mark      `json:"mark"`
	Snapshot  Snapshot  `json:"snapshot"`
	UpdatedAt time.Time `json:"updated_at"`
}
