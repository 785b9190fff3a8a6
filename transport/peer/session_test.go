package peer

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/queue"
	"github.com/rocketscienceinc/tictactoe-peer/transport/wire"
)

const waitFor = 2 * time.Second

type node struct {
	session  *Session
	inbound  *queue.Queue[entity.Move]
	outbound *queue.Queue[entity.Move]
	done     chan error
}

func newNode(role entity.Role, addr string) *node {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	inbound := queue.New[entity.Move]()
	outbound := queue.New[entity.Move]()

	return &node{
		session:  New(logger, Config{Role: role, Addr: addr, MaxFrameSize: wire.DefaultMaxFrameSize}, inbound, outbound),
		inbound:  inbound,
		outbound: outbound,
		done:     make(chan error, 1),
	}
}

func (n *node) serve(ctx context.Context, conn net.Conn) {
	go func() { n.done <- n.session.Serve(ctx, conn) }()
}

func (n *node) drain(t *testing.T, count int) []entity.Move {
	t.Helper()

	require.Eventually(t, func() bool { return n.inbound.Len() >= count }, waitFor, 5*time.Millisecond)

	moves := make([]entity.Move, 0, count)
	for range count {
		move, ok := n.inbound.TryPop()
		require.True(t, ok)
		moves = append(moves, move)
	}

	return moves
}

func (n *node) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-n.done:
		return err
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
		return nil
	}
}

func TestSession_Handshake(t *testing.T) {
	t.Run("Both sides become active and deliver the ready sentinel", func(t *testing.T) {
		// Given: an initiator and a responder joined by a pipe
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		initiator := newNode(entity.Initiator, "")
		responder := newNode(entity.Responder, "")
		left, right := net.Pipe()

		// When: both sessions start
		initiator.serve(ctx, left)
		responder.serve(ctx, right)

		// Then: each inbound queue gets PeerReady first
		assert.Equal(t, []entity.Move{entity.PeerReady}, initiator.drain(t, 1))
		assert.Equal(t, []entity.Move{entity.PeerReady}, responder.drain(t, 1))
		assert.Equal(t, StateActive, initiator.session.State())
		assert.Equal(t, StateActive, responder.session.State())

		cancel()
		assert.ErrorIs(t, initiator.wait(t), context.Canceled)
		assert.ErrorIs(t, responder.wait(t), context.Canceled)
	})

	t.Run("Wrong hello fails the initiator before it becomes active", func(t *testing.T) {
		// Given: an initiator and a raw peer that greets with something else
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		initiator := newNode(entity.Initiator, "")
		left, right := net.Pipe()
		defer right.Close()
		initiator.serve(ctx, left)

		// When: the peer sends "howdy"
		require.NoError(t, wire.NewCodec(right, 0).WriteFrame([]byte("howdy")))

		// Then: the session fails with a protocol error and never reached Active
		err := initiator.wait(t)
		require.ErrorIs(t, err, apperror.ErrProtocol)
		assert.Equal(t, StateFailed, initiator.session.State())
		assert.Equal(t, []State{StateDisconnected, StateAwaitingHandshake, StateFailed}, initiator.session.Transitions())
		assert.Zero(t, initiator.inbound.Len())
	})

	t.Run("Responder fails when the reply is not hello", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		responder := newNode(entity.Responder, "")
		left, right := net.Pipe()
		defer left.Close()
		responder.serve(ctx, right)

		raw := wire.NewCodec(left, 0)
		require.NoError(t, raw.ReadHello())
		require.NoError(t, raw.WriteFrame([]byte("bye")))

		err := responder.wait(t)
		require.ErrorIs(t, err, apperror.ErrProtocol)
		assert.NotContains(t, responder.session.Transitions(), StateActive)
	})
}

func TestSession_Rounds(t *testing.T) {
	// Given: two connected sessions with their local moves already confirmed
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initiator := newNode(entity.Initiator, "")
	responder := newNode(entity.Responder, "")

	initiatorMoves := []entity.Move{{Col: 0, Row: 0}, {Col: 1, Row: 1}, {Col: 2, Row: 2}, {Col: 0, Row: 2}}
	responderMoves := []entity.Move{{Col: 1, Row: 0}, {Col: 2, Row: 0}, {Col: 0, Row: 1}, {Col: 2, Row: 1}}
	for i := range initiatorMoves {
		initiator.outbound.Push(initiatorMoves[i])
		responder.outbound.Push(responderMoves[i])
	}

	left, right := net.Pipe()

	// When: the sessions run
	initiator.serve(ctx, left)
	responder.serve(ctx, right)

	// Then: each side receives the other's moves in round order after PeerReady
	rounds := len(initiatorMoves)
	assert.Equal(t, append([]entity.Move{entity.PeerReady}, initiatorMoves...), responder.drain(t, rounds+1))
	assert.Equal(t, append([]entity.Move{entity.PeerReady}, responderMoves...), initiator.drain(t, rounds+1))

	// Then: sent and received counts match across the link
	require.Eventually(t, func() bool { return responder.session.Sent() == int64(rounds) }, waitFor, 5*time.Millisecond)
	assert.Equal(t, initiator.session.Sent(), responder.session.Received())
	assert.Equal(t, responder.session.Sent(), initiator.session.Received())

	cancel()
	initiator.wait(t)
	responder.wait(t)
}

func TestSession_ResponderWaitsForInitiatorMove(t *testing.T) {
	// Given: an active link where only the responder has a move queued
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initiator := newNode(entity.Initiator, "")
	responder := newNode(entity.Responder, "")
	responder.outbound.Push(entity.Move{Col: 1, Row: 1})

	left, right := net.Pipe()
	initiator.serve(ctx, left)
	responder.serve(ctx, right)
	initiator.drain(t, 1)
	responder.drain(t, 1)

	// When: some time passes
	time.Sleep(50 * time.Millisecond)

	// Then: the responder has not sent out of turn
	assert.Zero(t, responder.session.Sent())
	assert.Equal(t, 1, responder.outbound.Len())

	// When: the initiator's move is confirmed
	initiator.outbound.Push(entity.Move{Col: 0, Row: 0})

	// Then: the round completes
	assert.Equal(t, []entity.Move{{Col: 0, Row: 0}}, responder.drain(t, 1))
	assert.Equal(t, []entity.Move{{Col: 1, Row: 1}}, initiator.drain(t, 1))
}

func TestSession_ConnectionLost(t *testing.T) {
	// Given: an active initiator
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initiator := newNode(entity.Initiator, "")
	left, right := net.Pipe()
	initiator.serve(ctx, left)

	raw := wire.NewCodec(right, 0)
	require.NoError(t, raw.WriteHello())
	require.NoError(t, raw.ReadHello())
	initiator.drain(t, 1)

	// When: the peer vanishes while a local move is pending
	require.NoError(t, right.Close())
	initiator.outbound.Push(entity.Move{Col: 2, Row: 2})

	// Then: the session fails with a connection error
	err := initiator.wait(t)
	require.ErrorIs(t, err, apperror.ErrConnection)
	assert.Equal(t, StateFailed, initiator.session.State())
}

func TestSession_MalformedMoveIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder := newNode(entity.Responder, "")
	left, right := net.Pipe()
	defer left.Close()
	responder.serve(ctx, right)

	raw := wire.NewCodec(left, 0)
	require.NoError(t, raw.ReadHello())
	require.NoError(t, raw.WriteHello())
	responder.drain(t, 1)

	// When: the initiator sends garbage as its move
	require.NoError(t, raw.WriteFrame([]byte("7 7")))

	// Then: protocol error, session failed, nothing delivered
	err := responder.wait(t)
	require.ErrorIs(t, err, apperror.ErrProtocol)
	assert.Equal(t, StateFailed, responder.session.State())
	assert.Zero(t, responder.inbound.Len())
}

func TestSession_RunOverTCP(t *testing.T) {
	// Given: a loopback listener for the initiator
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	initiator := newNode(entity.Initiator, "")
	responder := newNode(entity.Responder, listener.Addr().String())

	go func() { initiator.done <- initiator.session.AcceptAndServe(ctx, listener) }()
	go func() { responder.done <- responder.session.Run(ctx) }()

	// When: the handshake completes and one round is played
	initiator.drain(t, 1)
	responder.drain(t, 1)
	initiator.outbound.Push(entity.Move{Col: 1, Row: 1})
	responder.outbound.Push(entity.Move{Col: 0, Row: 0})

	// Then: the moves cross
	assert.Equal(t, []entity.Move{{Col: 1, Row: 1}}, responder.drain(t, 1))
	assert.Equal(t, []entity.Move{{Col: 0, Row: 0}}, initiator.drain(t, 1))

	// Then: a third node dialing in is never served
	intruder, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer intruder.Close()

	require.NoError(t, intruder.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err = intruder.Read(make([]byte, 1))
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())

	cancel()
	initiator.wait(t)
	responder.wait(t)
}

func TestSession_DialFailure(t *testing.T) {
	// Given: an address nobody listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	responder := newNode(entity.Responder, addr)

	// When: the responder runs
	err = responder.session.Run(context.Background())

	// Then: it fails once, with no retry
	require.ErrorIs(t, err, apperror.ErrConnection)
	assert.Equal(t, []State{StateDisconnected, StateFailed}, responder.session.Transitions())
}
