package orderbook

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

// Snapshot layout:
//
//	magic   [4]byte "MELS"
//	version uint16  big endian
//	crc     uint32  big endian, IEEE over payload
//	payload protobuf wire format, field 1 repeated Order
//
// Order fields: 1 id (varint), 2 price, 3 qty, 4 timestamp (all zigzag).
// Orders are written in book order so every backend produces the same bytes
// for the same logical book.
const (
	snapshotMagic   = "MELS"
	snapshotVersion = 1
	headerLen       = 4 + 2 + 4

	fieldOrder     protowire.Number = 1
	fieldID        protowire.Number = 1
	fieldPrice     protowire.Number = 2
	fieldQty       protowire.Number = 3
	fieldTimestamp protowire.Number = 4
)

func encodeSnapshot(orders []SellOrder) []byte {
	var payload []byte
	var msg []byte
	for _, o := range orders {
		msg = msg[:0]
		msg = protowire.AppendTag(msg, fieldID, protowire.VarintType)
		msg = protowire.AppendVarint(msg, o.ID)
		msg = protowire.AppendTag(msg, fieldPrice, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(o.Price))
		msg = protowire.AppendTag(msg, fieldQty, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(o.Qty))
		msg = protowire.AppendTag(msg, fieldTimestamp, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(o.Timestamp))

		payload = protowire.AppendTag(payload, fieldOrder, protowire.BytesType)
		payload = protowire.AppendBytes(payload, msg)
	}

	out := make([]byte, headerLen, headerLen+len(payload))
	copy(out, snapshotMagic)
	binary.BigEndian.PutUint16(out[4:], snapshotVersion)
	binary.BigEndian.PutUint32(out[6:], crc32.ChecksumIEEE(payload))
	return append(out, payload...)
}

func decodeSnapshot(data []byte) ([]SellOrder, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptSnapshot, len(data))
	}
	if string(data[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, data[:4])
	}
	if v := binary.BigEndian.Uint16(data[4:]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}
	payload := data[headerLen:]
	if want, got := binary.BigEndian.Uint32(data[6:]), crc32.ChecksumIEEE(payload); want != got {
		return nil, fmt.Errorf("%w: checksum %08x, expected %08x", ErrCorruptSnapshot, got, want)
	}

	var orders []SellOrder
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		payload = payload[n:]

		if num != fieldOrder || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, payload)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
			}
			payload = payload[n:]
			continue
		}

		msg, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		payload = payload[n:]

		o, err := decodeOrder(msg)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func decodeOrder(msg []byte) (SellOrder, error) {
	var o SellOrder
	var seen [5]bool
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return o, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		msg = msg[n:]

		if typ != protowire.VarintType || num < fieldID || num > fieldTimestamp {
			n = protowire.ConsumeFieldValue(num, typ, msg)
			if n < 0 {
				return o, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
			}
			msg = msg[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(msg)
		if n < 0 {
			return o, fmt.Errorf("%w: %v", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		msg = msg[n:]
		seen[num] = true

		switch num {
		case fieldID:
			o.ID = core.ID(v)
		case fieldPrice:
			o.Price = protowire.DecodeZigZag(v)
		case fieldQty:
			o.Qty = protowire.DecodeZigZag(v)
		case fieldTimestamp:
			o.Timestamp = protowire.DecodeZigZag(v)
		}
	}

	if !seen[fieldID] || !seen[fieldPrice] || !seen[fieldQty] {
		return o, fmt.Errorf("%w: order is missing required fields", ErrCorruptSnapshot)
	}
	return o, nil
}
