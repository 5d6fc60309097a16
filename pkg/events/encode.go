package events

import (
	"encoding/binary"
	"fmt"
)

// EncodeRecord serializes a header and event payloads into one raw record
// in the current wire generation. It is the inverse of the decoder and is
// used by replay tooling and tests.
func EncodeRecord(h Header, details []Details) ([]byte, error) {
	return encodeRecordSchema(h, details, schemaCurrent)
}

// EncodeRecordLegacy serializes in the wire generation that predates
// per-event indexes and expiry fields.
func EncodeRecordLegacy(h Header, details []Details) ([]byte, error) {
	return encodeRecordSchema(h, details, schemaLegacy)
}

func encodeRecordSchema(h Header, details []Details, s schema) ([]byte, error) {
	var w recordWriter
	w.beginSubRecord(tagHeader)
	w.u8(h.Instruction)
	w.u64(h.SequenceNumber)
	w.u64(uint64(h.Timestamp))
	w.u64(h.Slot)
	w.bytes(h.Market[:])
	w.bytes(h.Signer[:])
	w.u16(uint16(len(details)))
	w.endSubRecord()

	for i, d := range details {
		if err := encodeEvent(&w, d, s, uint16(i)); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}

func encodeEvent(w *recordWriter, d Details, s schema, index uint16) error {
	switch ev := d.(type) {
	case Fill:
		w.beginSubRecord(tagFill)
		w.index(s, index)
		w.u64(ev.OrderSequenceNumber)
		w.bytes(ev.Maker[:])
		w.u64(uint64(ev.PriceInTicks))
		w.u64(uint64(ev.BaseLotsFilled))
		w.u64(uint64(ev.BaseLotsRemaining))
	case Place:
		w.beginSubRecord(tagPlace)
		w.index(s, index)
		w.u64(ev.OrderSequenceNumber)
		w.bytes(ev.ClientOrderID[:])
		w.bytes(ev.Maker[:])
		w.u64(uint64(ev.PriceInTicks))
		w.u64(uint64(ev.BaseLotsPlaced))
		if s == schemaCurrent {
			w.optionalU64(ev.Expiry.LastValidSlot)
			w.optionalU64(ev.Expiry.LastValidUnixTimestamp)
		}
	case Reduce:
		if ev.IsExpired {
			w.beginSubRecord(tagExpiredOrder)
			w.index(s, index)
			w.u64(ev.OrderSequenceNumber)
			w.bytes(ev.Maker[:])
			w.u64(uint64(ev.PriceInTicks))
			w.u64(uint64(ev.BaseLotsRemoved))
			break
		}
		w.beginSubRecord(tagReduce)
		w.index(s, index)
		w.u64(ev.OrderSequenceNumber)
		w.bytes(ev.Maker[:])
		w.u64(uint64(ev.PriceInTicks))
		w.u64(uint64(ev.BaseLotsRemoved))
		w.u64(uint64(ev.BaseLotsRemaining))
	case Evict:
		w.beginSubRecord(tagEvict)
		w.index(s, index)
		w.u64(ev.OrderSequenceNumber)
		w.bytes(ev.Maker[:])
		w.u64(uint64(ev.PriceInTicks))
		w.u64(uint64(ev.BaseLotsEvicted))
	case FillSummary:
		w.beginSubRecord(tagFillSummary)
		w.index(s, index)
		w.bytes(ev.ClientOrderID[:])
		w.u64(uint64(ev.TotalBaseLotsFilled))
		w.u64(uint64(ev.TotalQuoteLotsFilledInclFees))
		w.u64(uint64(ev.TotalQuoteLotsFees))
	case Fee:
		w.beginSubRecord(tagFee)
		w.index(s, index)
		w.u64(uint64(ev.QuoteLotsFees))
	case TimeInForce:
		w.beginSubRecord(tagTimeInForce)
		w.index(s, index)
		w.u64(ev.OrderSequenceNumber)
		if s == schemaCurrent {
			w.u64(ev.LastValidSlot)
		}
		w.u64(ev.LastValidUnixTimestamp)
	default:
		return fmt.Errorf("events: cannot encode %T", d)
	}
	w.endSubRecord()
	return nil
}

type recordWriter struct {
	buf   []byte
	lenAt int
}

func (w *recordWriter) beginSubRecord(tag uint8) {
	w.lenAt = len(w.buf)
	w.buf = append(w.buf, 0, 0)
	w.buf = append(w.buf, tag)
}

func (w *recordWriter) endSubRecord() {
	binary.LittleEndian.PutUint16(w.buf[w.lenAt:], uint16(len(w.buf)-w.lenAt-2))
}

func (w *recordWriter) index(s schema, index uint16) {
	if s == schemaCurrent {
		w.u16(index)
	}
}

func (w *recordWriter) u8(v uint8)     { w.buf = append(w.buf, v) }
func (w *recordWriter) bytes(b []byte) { w.buf = append(w.buf, b...) }
func (w *recordWriter) u16(v uint16)   { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *recordWriter) u64(v uint64)   { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *recordWriter) optionalU64(v uint64) {
	if v == 0 {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(v)
}
