// Package peer runs the network side of a match: it owns the connection to the
// other node, performs the handshake and then exchanges exactly one move in each
// direction per round.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/transport/wire"
)

const tracerName = "github.com/rocketscienceinc/tictactoe-peer/transport/peer"

var ErrUnknownRole = errors.New("session role is not set")

// moveSink receives the ready sentinel and the opponent's moves.
type moveSink interface {
	Push(move entity.Move)
}

// moveSource yields locally confirmed moves to transmit.
type moveSource interface {
	Pop(ctx context.Context) (entity.Move, error)
}

type Config struct {
	Role         entity.Role
	Addr         string
	MaxFrameSize uint64
}

// Session is the background worker of one match. It is the only user of its connection.
type Session struct {
	logger *slog.Logger
	tracer trace.Tracer

	conf     Config
	inbound  moveSink
	outbound moveSource

	mu          sync.Mutex
	transitions []State

	sent     atomic.Int64
	received atomic.Int64
}

func New(logger *slog.Logger, conf Config, inbound moveSink, outbound moveSource) *Session {
	return &Session{
		logger: logger.With("component", "peer", "role", conf.Role.String()),
		tracer: otel.Tracer(tracerName),

		conf:     conf,
		inbound:  inbound,
		outbound: outbound,

		transitions: []State{StateDisconnected},
	}
}

// Run - accepts (initiator) or dials (responder) one connection and serves it until it fails
// or ctx ends.
func (that *Session) Run(ctx context.Context) error {
	switch that.conf.Role {
	case entity.Initiator:
		var lc net.ListenConfig

		listener, err := lc.Listen(ctx, "tcp", that.conf.Addr)
		if err != nil {
			return that.fail(ctx, fmt.Errorf("%w: failed to listen on %s: %w", apperror.ErrConnection, that.conf.Addr, err))
		}
		// kept open for the whole session so later dials sit unaccepted
		defer listener.Close()

		that.logger.Info("waiting for opponent", "addr", listener.Addr().String())

		return that.AcceptAndServe(ctx, listener)
	case entity.Responder:
		var dialer net.Dialer

		conn, err := dialer.DialContext(ctx, "tcp", that.conf.Addr)
		if err != nil {
			return that.fail(ctx, fmt.Errorf("%w: failed to connect to %s: %w", apperror.ErrConnection, that.conf.Addr, err))
		}

		return that.Serve(ctx, conn)
	default:
		return that.fail(ctx, fmt.Errorf("%w: %d", ErrUnknownRole, that.conf.Role))
	}
}

// AcceptAndServe - accepts exactly one connection from listener and serves it.
// The listener is never accepted from again; closing it is up to the caller.
func (that *Session) AcceptAndServe(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})

	conn, err := listener.Accept()
	stop()

	if err != nil {
		return that.fail(ctx, fmt.Errorf("%w: failed to accept: %w", apperror.ErrConnection, err))
	}

	return that.Serve(ctx, conn)
}

// Serve - runs the handshake and the round loop on conn, closing it on return.
// It only returns on failure or when ctx ends.
func (that *Session) Serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	log := that.logger.With("method", "Serve", "remote", conn.RemoteAddr().String())
	log.Info("peer connected")

	that.setState(StateAwaitingHandshake)

	codec := wire.NewCodec(conn, that.conf.MaxFrameSize)

	if err := that.handshake(ctx, codec); err != nil {
		return that.fail(ctx, err)
	}

	that.setState(StateActive)
	that.inbound.Push(entity.PeerReady)

	log.Info("handshake complete, match is live")

	for round := 1; ; round++ {
		if err := that.playRound(ctx, codec, round); err != nil {
			return that.fail(ctx, err)
		}
	}
}

func (that *Session) handshake(ctx context.Context, codec *wire.Codec) (err error) {
	_, span := that.tracer.Start(ctx, "peer.handshake",
		trace.WithAttributes(attribute.String("peer.role", that.conf.Role.String())))
	defer func() { endSpan(span, err) }()

	if that.conf.Role == entity.Responder {
		if err = codec.WriteHello(); err != nil {
			return fmt.Errorf("failed to send hello: %w", err)
		}

		if err = codec.ReadHello(); err != nil {
			return fmt.Errorf("failed to receive hello: %w", err)
		}

		return nil
	}

	if err = codec.ReadHello(); err != nil {
		return fmt.Errorf("failed to receive hello: %w", err)
	}

	if err = codec.WriteHello(); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	return nil
}

// playRound - moves one local move out and one remote move in. The initiator's mark opens
// the match, so it sends first; the responder receives first.
func (that *Session) playRound(ctx context.Context, codec *wire.Codec, round int) (err error) {
	ctx, span := that.tracer.Start(ctx, "peer.round",
		trace.WithAttributes(
			attribute.String("peer.role", that.conf.Role.String()),
			attribute.Int("peer.round", round),
		))
	defer func() { endSpan(span, err) }()

	if that.conf.Role == entity.Initiator {
		if err = that.sendLocal(ctx, codec); err != nil {
			return err
		}
		return that.receiveRemote(codec)
	}

	if err = that.receiveRemote(codec); err != nil {
		return err
	}
	return that.sendLocal(ctx, codec)
}

func (that *Session) sendLocal(ctx context.Context, codec *wire.Codec) error {
	move, err := that.outbound.Pop(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for local move: %w", err)
	}

	if err = codec.WriteMove(move); err != nil {
		return fmt.Errorf("failed to send move %s: %w", move, err)
	}

	that.sent.Add(1)
	that.logger.Debug("move sent", "move", move.String())

	return nil
}

func (that *Session) receiveRemote(codec *wire.Codec) error {
	move, err := codec.ReadMove()
	if err != nil {
		return fmt.Errorf("failed to receive move: %w", err)
	}

	that.received.Add(1)
	that.inbound.Push(move)
	that.logger.Debug("move received", "move", move.String())

	return nil
}

// fail - moves the session to Failed and reports why. Shutdown is logged but not treated as
// a protocol fault.
func (that *Session) fail(ctx context.Context, err error) error {
	that.setState(StateFailed)

	if ctx.Err() != nil {
		that.logger.Info("session stopped", "reason", ctx.Err())
		return ctx.Err()
	}

	that.logger.Error("session failed", "error", err)

	return err
}

func (that *Session) setState(state State) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.transitions = append(that.transitions, state)
}

// State - the current lifecycle state; safe to call from any goroutine.
func (that *Session) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.transitions[len(that.transitions)-1]
}

// Transitions - every state the session has been in, oldest first.
func (that *Session) Transitions() []State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]State(nil), that.transitions...)
}

// Sent - moves written to the peer.
func (that *Session) Sent() int64 {
	return that.sent.Load()
}

// Received - moves read from the peer.
func (that *Session) Received() int64 {
	return that.received.Load()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
