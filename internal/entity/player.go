package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMark = errors.New("unknown mark")
	ErrUnknownRole = errors.New("unknown session role")
)

// Mark is the symbol a participant places on a cell.
type Mark uint8

const (
	Circle Mark = iota + 1
	Cross
)

// FirstMover opens every match. The Initiator always plays it.
const FirstMover = Circle

// Toggle - returns the opposite mark.
func Toggle(mark Mark) Mark {
	if mark == Circle {
		return Cross
	}
	return Circle
}

func (that Mark) String() string {
	switch that {
	case Circle:
		return "O"
	case Cross:
		return "X"
	default:
		return "?"
	}
}

func (that Mark) MarshalText() ([]byte, error) {
	if that != Circle && that != Cross {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMark, that)
	}
	return []byte(that.String()), nil
}

func (that *Mark) UnmarshalText(text []byte) error {
	switch string(text) {
	case "O":
		*that = Circle
	case "X":
		*that = Cross
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMark, text)
	}
	return nil
}

// Role is fixed for the lifetime of a match and decides handshake and turn order.
type Role uint8

const (
	// Initiator accepts the inbound connection and plays FirstMover.
	Initiator Role = iota + 1
	// Responder dials out.
	Responder
)

// ParseRole - parses a role name from configuration.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "initiator", "server", "s":
		return Initiator, nil
	case "responder", "client", "c":
		return Responder, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

// Mark - returns the mark played by this role.
func (that Role) Mark() Mark {
	if that == Initiator {
		return FirstMover
	}
	return Toggle(FirstMover)
}

func (that Role) String() string {
	switch that {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return "unknown"
	}
}

func (that Role) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*that = role

	return nil
}
