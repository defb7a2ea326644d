package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/symbol"
)

// Mode selects whether a Stream writes values out or reads them back.
type Mode int

const (
	DecodeMode Mode = iota
	EncodeMode
)

// Stream (де)сериализует тело сообщения. Один и тот же Stream-метод сообщения
// описывает оба направления: в EncodeMode значения пишутся в буфер,
// в DecodeMode — читаются из него в те же поля.
type Stream struct {
	mode Mode
	buf  *bytes.Buffer
}

// NewStream returns a stream over data. In EncodeMode data is the initial
// (usually empty) output; in DecodeMode it is the message body to read.
func NewStream(mode Mode, data []byte) *Stream {
	return &Stream{mode: mode, buf: bytes.NewBuffer(data)}
}

// Mode returns the stream direction.
func (s *Stream) Mode() Mode { return s.mode }

// Len returns the number of bytes remaining (decode) or written (encode).
func (s *Stream) Len() int { return s.buf.Len() }

// Bytes returns the accumulated encode buffer.
func (s *Stream) Bytes() []byte { return s.buf.Bytes() }

func (s *Stream) read(p []byte) error {
	if _, err := s.buf.Read(p); err != nil {
		return fmt.Errorf("short body: %w", err)
	}
	return nil
}

// StreamByte transfers a single byte.
func (s *Stream) StreamByte(v *byte) error {
	if s.mode == EncodeMode {
		return s.buf.WriteByte(*v)
	}
	b, err := s.buf.ReadByte()
	if err != nil {
		return fmt.Errorf("short body: %w", err)
	}
	*v = b
	return nil
}

// StreamU16 transfers a little-endian uint16.
func (s *Stream) StreamU16(v *uint16) error {
	var b [2]byte
	if s.mode == EncodeMode {
		binary.LittleEndian.PutUint16(b[:], *v)
		_, err := s.buf.Write(b[:])
		return err
	}
	if err := s.read(b[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint16(b[:])
	return nil
}

// StreamU32 transfers a little-endian uint32.
func (s *Stream) StreamU32(v *uint32) error {
	var b [4]byte
	if s.mode == EncodeMode {
		binary.LittleEndian.PutUint32(b[:], *v)
		_, err := s.buf.Write(b[:])
		return err
	}
	if err := s.read(b[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint32(b[:])
	return nil
}

// StreamU64 transfers a little-endian uint64.
func (s *Stream) StreamU64(v *uint64) error {
	var b [8]byte
	if s.mode == EncodeMode {
		binary.LittleEndian.PutUint64(b[:], *v)
		_, err := s.buf.Write(b[:])
		return err
	}
	if err := s.read(b[:]); err != nil {
		return err
	}
	*v = binary.LittleEndian.Uint64(b[:])
	return nil
}

// StreamI64 transfers a little-endian int64.
func (s *Stream) StreamI64(v *int64) error {
	u := uint64(*v)
	if err := s.StreamU64(&u); err != nil {
		return err
	}
	*v = int64(u)
	return nil
}

// StreamSymbol transfers a little-endian 64-bit type symbol.
func (s *Stream) StreamSymbol(v *symbol.Symbol) error {
	u := uint64(*v)
	if err := s.StreamU64(&u); err != nil {
		return err
	}
	*v = symbol.Symbol(u)
	return nil
}

// StreamI16 transfers a little-endian int16.
func (s *Stream) StreamI16(v *int16) error {
	u := uint16(*v)
	if err := s.StreamU16(&u); err != nil {
		return err
	}
	*v = int16(u)
	return nil
}

// StreamF32 transfers a little-endian float32.
func (s *Stream) StreamF32(v *float32) error {
	u := math.Float32bits(*v)
	if err := s.StreamU32(&u); err != nil {
		return err
	}
	*v = math.Float32frombits(u)
	return nil
}

// StreamGUID transfers a GUID in Microsoft wire order:
// the first three fields little-endian, the final eight bytes as-is.
func (s *Stream) StreamGUID(v *uuid.UUID) error {
	var b [16]byte
	if s.mode == EncodeMode {
		b = guidSwap([16]byte(*v))
		_, err := s.buf.Write(b[:])
		return err
	}
	if err := s.read(b[:]); err != nil {
		return err
	}
	*v = uuid.UUID(guidSwap(b))
	return nil
}

func guidSwap(b [16]byte) [16]byte {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
	return b
}

// StreamStringU16 transfers a UTF-8 string prefixed by its u16 byte length.
func (s *Stream) StreamStringU16(v *string) error {
	if s.mode == EncodeMode {
		if len(*v) > math.MaxUint16 {
			return fmt.Errorf("string of %d bytes exceeds u16 prefix", len(*v))
		}
		n := uint16(len(*v))
		if err := s.StreamU16(&n); err != nil {
			return err
		}
		_, err := s.buf.WriteString(*v)
		return err
	}
	var n uint16
	if err := s.StreamU16(&n); err != nil {
		return err
	}
	b := make([]byte, n)
	if err := s.read(b); err != nil {
		return err
	}
	*v = string(b)
	return nil
}

// StreamStringU32 transfers a UTF-8 string prefixed by its u32 byte length.
func (s *Stream) StreamStringU32(v *string) error {
	if s.mode == EncodeMode {
		if len(*v) > math.MaxUint32 {
			return fmt.Errorf("string of %d bytes exceeds u32 prefix", len(*v))
		}
		n := uint32(len(*v))
		if err := s.StreamU32(&n); err != nil {
			return err
		}
		_, err := s.buf.WriteString(*v)
		return err
	}
	var n uint32
	if err := s.StreamU32(&n); err != nil {
		return err
	}
	b := make([]byte, n)
	if err := s.read(b); err != nil {
		return err
	}
	*v = string(b)
	return nil
}

// StreamJSONTail transfers v as a JSON document occupying the rest of the body.
func (s *Stream) StreamJSONTail(v any) error {
	if s.mode == EncodeMode {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding json tail: %w", err)
		}
		_, err = s.buf.Write(data)
		return err
	}
	rest := s.buf.Bytes()
	s.buf.Next(len(rest))
	if err := json.Unmarshal(rest, v); err != nil {
		return fmt.Errorf("decoding json tail: %w", err)
	}
	return nil
}

// StreamBytesTail transfers the rest of the body as raw bytes.
func (s *Stream) StreamBytesTail(v *[]byte) error {
	if s.mode == EncodeMode {
		_, err := s.buf.Write(*v)
		return err
	}
	rest := s.buf.Bytes()
	*v = append([]byte(nil), rest...)
	s.buf.Next(len(rest))
	return nil
}

// RunFuncs executes field transfer steps in order, stopping at the first error.
func RunFuncs(fns []func() error) error {
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
