package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseCommand decodes one externally tagged command line such as
// {"PlaceSell":{"id":1,"price":10,"qty":5,"timestamp":1}}.
// Every field of the variant is required and unknown fields are refused.
func ParseCommand(line []byte) (Command, error) {
	tag, body, err := splitVariant(line)
	if err != nil {
		return nil, err
	}

	var cmd Command
	switch tag {
	case KindPlaceSell:
		var c PlaceSell
		err = decodeVariant(body, &c, "id", "price", "qty", "timestamp")
		cmd = c
	case KindCancelSell:
		var c CancelSell
		err = decodeVariant(body, &c, "id")
		cmd = c
	case KindBuyByQty:
		var c BuyByQty
		err = decodeVariant(body, &c, "id", "qty", "timestamp")
		cmd = c
	case KindBuyByBudget:
		var c BuyByBudget
		err = decodeVariant(body, &c, "id", "budget", "timestamp")
		cmd = c
	default:
		err = fmt.Errorf("%w `%s`, expected one of PlaceSell, CancelSell, BuyByQty, BuyByBudget", errUnknownVariant, tag)
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// ParseEvent decodes one event line produced by MarshalEvent.
func ParseEvent(line []byte) (Event, error) {
	tag, body, err := splitVariant(line)
	if err != nil {
		return nil, err
	}

	var ev Event
	switch tag {
	case KindAccepted:
		err = decodeVariant(body, &Accepted{})
		ev = Accepted{}
	case KindRejected:
		var e Rejected
		err = decodeVariant(body, &e, "reason")
		ev = e
	case KindTrade:
		var e Trade
		err = decodeVariant(body, &e, "buyer_id", "seller_id", "qty", "price")
		ev = e
	case KindSellUpdated:
		err = decodeVariant(body, &SellUpdated{})
		ev = SellUpdated{}
	case KindSellClosed:
		err = decodeVariant(body, &SellClosed{})
		ev = SellClosed{}
	case KindBuyResultQty:
		var e BuyResultQty
		err = decodeVariant(body, &e, "filled")
		ev = e
	case KindBuyResultBudget:
		var e BuyResultBudget
		err = decodeVariant(body, &e, "spent", "filled")
		ev = e
	default:
		err = fmt.Errorf("%w `%s`", errUnknownVariant, tag)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// MarshalCommand encodes a command as a single JSON object without a newline.
func MarshalCommand(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", errUnknownVariant)
	}
	return json.Marshal(map[string]Command{cmd.Kind(): cmd})
}

// MarshalEvent encodes an event as a single JSON object without a newline.
// Field-less events encode as {"Accepted":{}}.
func MarshalEvent(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", errUnknownVariant)
	}
	return json.Marshal(map[string]Event{ev.Kind(): ev})
}

// ParseFailure is the single event emitted for a line that did not decode.
func ParseFailure(err error) Event {
	return Rejected{Reason: "parse error: " + err.Error()}
}

// IsBlank reports whether a line carries no command at all.
func IsBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}

func splitVariant(line []byte) (string, json.RawMessage, error) {
	if IsBlank(line) {
		return "", nil, errEmptyLine
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(line, &outer); err != nil {
		return "", nil, err
	}
	if len(outer) != 1 {
		return "", nil, errNotObject
	}

	for tag, body := range outer {
		return tag, body, nil
	}
	return "", nil, errNotObject
}

var nullLiteral = []byte("null")

// decodeVariant checks the field set of body before decoding it into out,
// so a missing or null field is an error rather than a silent zero.
func decodeVariant(body json.RawMessage, out any, fields ...string) error {
	var present map[string]json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &present); err != nil {
			return err
		}
	}

	for name, raw := range present {
		if !contains(fields, name) {
			return fmt.Errorf("unknown field `%s`", name)
		}
		if bytes.Equal(bytes.TrimSpace(raw), nullLiteral) {
			return fmt.Errorf("invalid type: null for field `%s`", name)
		}
	}
	for _, name := range fields {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("missing field `%s`", name)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
