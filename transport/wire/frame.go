// Package wire implements the peer framing: an 8-byte big-endian length prefix
// followed by exactly that many payload bytes. Frames carry no type tag; the
// session's protocol state decides how a payload is read.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

// HeaderSize is the length prefix size in bytes.
const HeaderSize = 8

// DefaultMaxFrameSize bounds the prefix a peer may announce before we allocate for it.
const DefaultMaxFrameSize = 1024

// Hello is the handshake payload, sent by the responder and echoed by the initiator.
var Hello = []byte("hello")

// Codec reads and writes frames on a connected stream.
type Codec struct {
	rw io.ReadWriter

	// maxFrameSize of 0 accepts any announced length.
	maxFrameSize uint64
}

func NewCodec(rw io.ReadWriter, maxFrameSize uint64) *Codec {
	return &Codec{
		rw:           rw,
		maxFrameSize: maxFrameSize,
	}
}

// WriteFrame - writes the length prefix and the payload in a single write.
func (that *Codec) WriteFrame(payload []byte) error {
	buf := make([]byte, HeaderSize, HeaderSize+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(len(payload)))
	buf = append(buf, payload...)

	if _, err := that.rw.Write(buf); err != nil {
		return fmt.Errorf("%w: failed to write frame: %w", apperror.ErrConnection, err)
	}

	return nil
}

// ReadFrame - blocks until a whole frame has arrived.
func (that *Codec) ReadFrame() ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(that.rw, header); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", apperror.ErrConnection, err)
	}

	size := binary.BigEndian.Uint64(header)
	if that.maxFrameSize > 0 && size > that.maxFrameSize {
		return nil, fmt.Errorf("%w: %w: %d > %d", apperror.ErrProtocol, apperror.ErrFrameTooLarge, size, that.maxFrameSize)
	}

	if that.maxFrameSize == 0 {
		return that.readUncapped(size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(that.rw, payload); err != nil {
		return nil, fmt.Errorf("%w: failed to read payload: %w", apperror.ErrConnection, err)
	}

	return payload, nil
}

// readUncapped grows the payload as bytes arrive, so an announced length is never allocated up front.
func (that *Codec) readUncapped(size uint64) ([]byte, error) {
	if size > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %w: %d", apperror.ErrProtocol, apperror.ErrFrameTooLarge, size)
	}

	var payload bytes.Buffer
	if _, err := io.CopyN(&payload, that.rw, int64(size)); err != nil {
		return nil, fmt.Errorf("%w: failed to read payload: %w", apperror.ErrConnection, err)
	}

	return payload.Bytes(), nil
}

func (that *Codec) WriteHello() error {
	return that.WriteFrame(Hello)
}

// ReadHello - reads one frame and requires it to be exactly Hello.
func (that *Codec) ReadHello() error {
	payload, err := that.ReadFrame()
	if err != nil {
		return err
	}

	if !bytes.Equal(payload, Hello) {
		return fmt.Errorf("%w: %w: %q", apperror.ErrProtocol, apperror.ErrBadHandshake, payload)
	}

	return nil
}

func (that *Codec) WriteMove(move entity.Move) error {
	return that.WriteFrame(EncodeMove(move))
}

func (that *Codec) ReadMove() (entity.Move, error) {
	payload, err := that.ReadFrame()
	if err != nil {
		return entity.Move{}, err
	}

	return DecodeMove(payload)
}

// EncodeMove - renders a move as "<col> <row>".
func EncodeMove(move entity.Move) []byte {
	return []byte(strconv.Itoa(move.Col) + " " + strconv.Itoa(move.Row))
}

// DecodeMove - parses "<col> <row>"; both values must address a board cell.
func DecodeMove(payload []byte) (entity.Move, error) {
	colText, rowText, ok := strings.Cut(string(payload), " ")
	if !ok {
		return entity.Move{}, malformed(payload)
	}

	col, err := strconv.Atoi(colText)
	if err != nil {
		return entity.Move{}, malformed(payload)
	}

	row, err := strconv.Atoi(rowText)
	if err != nil {
		return entity.Move{}, malformed(payload)
	}

	move := entity.Move{Col: col, Row: row}
	if !move.InBounds() {
		return entity.Move{}, malformed(payload)
	}

	return move, nil
}

func malformed(payload []byte) error {
	return fmt.Errorf("%w: %w: %q", apperror.ErrProtocol, apperror.ErrMalformedMove, payload)
}
