package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/udisondev/arenarelay/internal/symbol"
)

// MessageMarker — 8-байтовая сигнатура, открывающая каждое сообщение пакета.
// Её отсутствие в ожидаемой позиции означает рассинхронизацию потока:
// соединение закрывается без ответа.
var MessageMarker = []byte{0xf6, 0x40, 0xbb, 0x78, 0xa2, 0xe7, 0x8c, 0xbb}

// MaxMessageBody caps a single message body. Larger declared lengths are a
// framing error and fail the connection.
const MaxMessageBody = 1 << 20

const headerSize = 24

var (
	ErrBadMarker = errors.New("message marker mismatch")
	ErrTruncated = errors.New("truncated packet")
	ErrOversize  = errors.New("message body exceeds limit")
)

// Message — одно типизированное сообщение протокола.
// Symbol отдаёт типовой символ, Stream описывает формат тела.
type Message interface {
	Symbol() symbol.Symbol
	Stream(s *Stream) error
}

// Registry maps type symbols to message factories for decoding.
type Registry map[symbol.Symbol]func() Message

// Unknown carries a message whose type symbol has no registered factory.
// It is logged and ignored by handlers; receiving one is not an error.
type Unknown struct {
	TypeSymbol symbol.Symbol
	Payload    []byte
}

func (m *Unknown) Symbol() symbol.Symbol { return m.TypeSymbol }

func (m *Unknown) Stream(s *Stream) error {
	return s.StreamBytesTail(&m.Payload)
}

// Marshal returns the wire form of one or more messages concatenated into a packet.
func Marshal(msgs ...Message) ([]byte, error) {
	var out bytes.Buffer
	for _, m := range msgs {
		s := NewStream(EncodeMode, nil)
		if err := m.Stream(s); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", m.Symbol().HexString(), err)
		}
		body := s.Bytes()
		if len(body) > MaxMessageBody {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrOversize, m.Symbol().HexString(), len(body))
		}
		out.Write(MessageMarker)
		var hdr [16]byte
		binary.LittleEndian.PutUint64(hdr[:8], uint64(m.Symbol()))
		binary.LittleEndian.PutUint64(hdr[8:], uint64(len(body)))
		out.Write(hdr[:])
		out.Write(body)
	}
	return out.Bytes(), nil
}

// ParsePacket разбирает пакет на сообщения, последовательно снимая заголовки.
// Неизвестный типовой символ даёт *Unknown; ошибки маркера, длины или
// усечённого тела фатальны для соединения.
func ParsePacket(reg Registry, data []byte) ([]Message, error) {
	var msgs []Message
	for off := 0; off < len(data); {
		if len(data)-off < headerSize {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(data)-off)
		}
		if !bytes.Equal(data[off:off+8], MessageMarker) {
			return nil, ErrBadMarker
		}
		sym := symbol.Symbol(binary.LittleEndian.Uint64(data[off+8 : off+16]))
		bodyLen := binary.LittleEndian.Uint64(data[off+16 : off+24])
		if bodyLen > MaxMessageBody {
			return nil, fmt.Errorf("%w: %d bytes declared", ErrOversize, bodyLen)
		}
		off += headerSize
		if uint64(len(data)-off) < bodyLen {
			return nil, fmt.Errorf("%w: body wants %d bytes, %d left", ErrTruncated, bodyLen, len(data)-off)
		}
		body := data[off : off+int(bodyLen)]
		off += int(bodyLen)

		var m Message
		if factory, ok := reg[sym]; ok {
			m = factory()
		} else {
			m = &Unknown{TypeSymbol: sym}
		}
		if err := m.Stream(NewStream(DecodeMode, body)); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", sym.HexString(), err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
