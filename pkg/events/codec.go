package events

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/mdx/pkg/units"
)

// Wire layout. A raw record is a concatenation of length-prefixed
// sub-records: u16 length || tag byte || payload, all little-endian.
// The first sub-record is the header; the rest are events. The header
// body is a fixed 92 bytes including its tag.
const (
	tagHeader uint8 = iota
	tagFill
	tagPlace
	tagReduce
	tagEvict
	tagFillSummary
	tagFee
	tagTimeInForce
	tagExpiredOrder
)

const headerBodyLen = 92

// schema selects the wire generation. The legacy generation predates the
// per-event index field and the expiry fields on place and time-in-force
// records.
type schema uint8

const (
	schemaCurrent schema = iota
	schemaLegacy
)

var (
	ErrShortRecord   = errors.New("events: record truncated")
	ErrMissingHeader = errors.New("events: record does not begin with a header")
	ErrBadLength     = errors.New("events: sub-record length out of range")
)

// rawEvent is one decoded event sub-record before batch translation.
type rawEvent struct {
	index   uint64
	details Details
}

// decodedRecord is one raw record after schema-aware parsing.
type decodedRecord struct {
	header Header
	events []rawEvent
}

type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) remaining() int { return len(r.buf) - r.off }

func (r *byteReader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrShortRecord
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, ErrShortRecord
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrShortRecord
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *byteReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *byteReader) account() (Account, error) {
	var a Account
	if r.remaining() < len(a) {
		return a, ErrShortRecord
	}
	copy(a[:], r.buf[r.off:])
	r.off += len(a)
	return a, nil
}

func (r *byteReader) clientOrderID() (ClientOrderID, error) {
	var c ClientOrderID
	if r.remaining() < len(c) {
		return c, ErrShortRecord
	}
	copy(c[:], r.buf[r.off:])
	r.off += len(c)
	return c, nil
}

// decodeRecord parses one raw record. It first assumes the current wire
// generation; if any sub-record fails to parse it retries the whole
// record under the legacy generation, so mixed histories replay cleanly.
func decodeRecord(sig Signature, data []byte) (decodedRecord, error) {
	rec, err := decodeRecordSchema(sig, data, schemaCurrent)
	if err == nil {
		return rec, nil
	}
	legacy, legacyErr := decodeRecordSchema(sig, data, schemaLegacy)
	if legacyErr == nil {
		return legacy, nil
	}
	return decodedRecord{}, err
}

func decodeRecordSchema(sig Signature, data []byte, s schema) (decodedRecord, error) {
	r := &byteReader{buf: data}
	var rec decodedRecord
	first := true
	position := uint64(0)
	for r.remaining() > 0 {
		length, err := r.u16()
		if err != nil {
			return decodedRecord{}, err
		}
		if length == 0 || int(length) > r.remaining() {
			return decodedRecord{}, fmt.Errorf("%w: %d bytes declared, %d left", ErrBadLength, length, r.remaining())
		}
		body := &byteReader{buf: r.buf[r.off : r.off+int(length)]}
		r.off += int(length)

		tag, err := body.u8()
		if err != nil {
			return decodedRecord{}, err
		}
		if first {
			if tag != tagHeader {
				return decodedRecord{}, ErrMissingHeader
			}
			rec.header, err = decodeHeader(sig, body)
			if err != nil {
				return decodedRecord{}, err
			}
			if cap(rec.events) == 0 {
				rec.events = make([]rawEvent, 0, totalEventsHint(data))
			}
			first = false
			continue
		}
		ev, known, err := decodeEvent(tag, body, s, position)
		if err != nil {
			return decodedRecord{}, err
		}
		if !known {
			// Unknown tag from a newer emitter; the length prefix
			// already advanced past it.
			continue
		}
		if body.remaining() != 0 {
			return decodedRecord{}, fmt.Errorf("events: %d trailing bytes after tag %d", body.remaining(), tag)
		}
		rec.events = append(rec.events, ev)
		position++
	}
	if first {
		return decodedRecord{}, ErrMissingHeader
	}
	return rec, nil
}

// totalEventsHint peeks the header's event count for preallocation.
func totalEventsHint(data []byte) int {
	// length prefix (2) + header body; the count is the last u16 of the body.
	if len(data) < 2+headerBodyLen {
		return 0
	}
	return int(binary.LittleEndian.Uint16(data[2+headerBodyLen-2:]))
}

func decodeHeader(sig Signature, body *byteReader) (Header, error) {
	if body.remaining() != headerBodyLen-1 {
		return Header{}, fmt.Errorf("events: header body is %d bytes, want %d", body.remaining()+1, headerBodyLen)
	}
	h := Header{Signature: sig}
	var err error
	if h.Instruction, err = body.u8(); err != nil {
		return Header{}, err
	}
	if h.SequenceNumber, err = body.u64(); err != nil {
		return Header{}, err
	}
	if h.Timestamp, err = body.i64(); err != nil {
		return Header{}, err
	}
	if h.Slot, err = body.u64(); err != nil {
		return Header{}, err
	}
	if h.Market, err = body.account(); err != nil {
		return Header{}, err
	}
	if h.Signer, err = body.account(); err != nil {
		return Header{}, err
	}
	// Trailing u16 is the batch event count, consumed for framing only.
	if _, err = body.u16(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func decodeEvent(tag uint8, body *byteReader, s schema, position uint64) (rawEvent, bool, error) {
	index := position
	if s == schemaCurrent {
		idx, err := body.u16()
		if err != nil {
			return rawEvent{}, false, err
		}
		index = uint64(idx)
	}
	var (
		d   Details
		err error
	)
	switch tag {
	case tagFill:
		d, err = decodeFill(body)
	case tagPlace:
		d, err = decodePlace(body, s)
	case tagReduce:
		d, err = decodeReduce(body, false)
	case tagExpiredOrder:
		d, err = decodeReduce(body, true)
	case tagEvict:
		d, err = decodeEvict(body)
	case tagFillSummary:
		d, err = decodeFillSummary(body)
	case tagFee:
		d, err = decodeFee(body)
	case tagTimeInForce:
		d, err = decodeTimeInForce(body, s)
	default:
		return rawEvent{}, false, nil
	}
	if err != nil {
		return rawEvent{}, false, err
	}
	return rawEvent{index: index, details: d}, true, nil
}

func decodeFill(body *byteReader) (Details, error) {
	var f Fill
	var err error
	if f.OrderSequenceNumber, err = body.u64(); err != nil {
		return nil, err
	}
	if f.Maker, err = body.account(); err != nil {
		return nil, err
	}
	var v uint64
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	f.PriceInTicks = units.Ticks(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	f.BaseLotsFilled = units.BaseLots(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	f.BaseLotsRemaining = units.BaseLots(v)
	f.SideFilled = SideFromOrderSequenceNumber(f.OrderSequenceNumber)
	f.IsFullFill = f.BaseLotsRemaining == 0
	return f, nil
}

func decodePlace(body *byteReader, s schema) (Details, error) {
	var p Place
	var err error
	if p.OrderSequenceNumber, err = body.u64(); err != nil {
		return nil, err
	}
	if p.ClientOrderID, err = body.clientOrderID(); err != nil {
		return nil, err
	}
	if p.Maker, err = body.account(); err != nil {
		return nil, err
	}
	var v uint64
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	p.PriceInTicks = units.Ticks(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	p.BaseLotsPlaced = units.BaseLots(v)
	if s == schemaLegacy {
		return p, nil
	}
	if p.Expiry.LastValidSlot, err = optionalU64(body); err != nil {
		return nil, err
	}
	if p.Expiry.LastValidUnixTimestamp, err = optionalU64(body); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeReduce(body *byteReader, expired bool) (Details, error) {
	var rd Reduce
	var err error
	if rd.OrderSequenceNumber, err = body.u64(); err != nil {
		return nil, err
	}
	if rd.Maker, err = body.account(); err != nil {
		return nil, err
	}
	var v uint64
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	rd.PriceInTicks = units.Ticks(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	rd.BaseLotsRemoved = units.BaseLots(v)
	if expired {
		rd.BaseLotsRemaining = 0
		rd.IsFullCancel = true
		rd.IsExpired = true
		return rd, nil
	}
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	rd.BaseLotsRemaining = units.BaseLots(v)
	rd.IsFullCancel = rd.BaseLotsRemaining == 0
	return rd, nil
}

func decodeEvict(body *byteReader) (Details, error) {
	var e Evict
	var err error
	if e.OrderSequenceNumber, err = body.u64(); err != nil {
		return nil, err
	}
	if e.Maker, err = body.account(); err != nil {
		return nil, err
	}
	var v uint64
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	e.PriceInTicks = units.Ticks(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	e.BaseLotsEvicted = units.BaseLots(v)
	return e, nil
}

func decodeFillSummary(body *byteReader) (Details, error) {
	var fs FillSummary
	var err error
	if fs.ClientOrderID, err = body.clientOrderID(); err != nil {
		return nil, err
	}
	var v uint64
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	fs.TotalBaseLotsFilled = units.BaseLots(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	fs.TotalQuoteLotsFilledInclFees = units.QuoteLots(v)
	if v, err = body.u64(); err != nil {
		return nil, err
	}
	fs.TotalQuoteLotsFees = units.QuoteLots(v)
	return fs, nil
}

func decodeFee(body *byteReader) (Details, error) {
	v, err := body.u64()
	if err != nil {
		return nil, err
	}
	return Fee{QuoteLotsFees: units.QuoteLots(v)}, nil
}

func decodeTimeInForce(body *byteReader, s schema) (Details, error) {
	var t TimeInForce
	var err error
	if t.OrderSequenceNumber, err = body.u64(); err != nil {
		return nil, err
	}
	if s == schemaLegacy {
		if t.LastValidUnixTimestamp, err = body.u64(); err != nil {
			return nil, err
		}
		return t, nil
	}
	if t.LastValidSlot, err = body.u64(); err != nil {
		return nil, err
	}
	if t.LastValidUnixTimestamp, err = body.u64(); err != nil {
		return nil, err
	}
	return t, nil
}

// optionalU64 reads a presence byte followed by the value when present.
func optionalU64(body *byteReader) (uint64, error) {
	present, err := body.u8()
	if err != nil {
		return 0, err
	}
	if present == 0 {
		return 0, nil
	}
	return body.u64()
}
