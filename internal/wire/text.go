package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeText parses one line (without the trailing '\n') of the
// comma-separated text protocol. Leading/trailing whitespace around commas
// is tolerated; a trailing '\r' should already have been stripped by the
// caller's line splitter.
func DecodeText(line string) (Message, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return nil, decodeErr("empty line")
	}

	switch fields[0] {
	case "N":
		if len(fields) != 7 {
			return nil, decodeErr("N: wrong field count")
		}
		user, err := parseU32(fields[1])
		if err != nil {
			return nil, err
		}
		price, err := parseU32(fields[3])
		if err != nil {
			return nil, err
		}
		qty, err := parseU32(fields[4])
		if err != nil {
			return nil, err
		}
		if len(fields[5]) != 1 {
			return nil, decodeErr("N: side must be one character")
		}
		side := Side(fields[5][0])
		if !side.Valid() {
			return nil, decodeErr("N: invalid side")
		}
		oid, err := parseU32(fields[6])
		if err != nil {
			return nil, err
		}
		return &NewOrder{
			UserID:      user,
			Symbol:      SymbolFrom(fields[2]),
			Price:       price,
			Quantity:    qty,
			Side:        side,
			UserOrderID: oid,
		}, nil

	case "C":
		if len(fields) != 3 {
			return nil, decodeErr("C: wrong field count")
		}
		user, err := parseU32(fields[1])
		if err != nil {
			return nil, err
		}
		oid, err := parseU32(fields[2])
		if err != nil {
			return nil, err
		}
		return &Cancel{UserID: user, UserOrderID: oid}, nil

	case "F":
		return &Flush{}, nil

	default:
		return nil, decodeErr("unknown text message tag")
	}
}

// splitFields splits on commas and trims surrounding whitespace from each
// field, tolerating arbitrary spacing like "N,  1 , IBM".
func splitFields(line string) []string {
	raw := strings.Split(line, ",")
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f == "" && len(fields) == 0 {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, decodeErr(fmt.Sprintf("bad integer field %q", s))
	}
	return uint32(v), nil
}

// EncodeText renders the text wire form of m, without a trailing newline.
func EncodeText(m Message) string {
	switch v := m.(type) {
	case *NewOrder:
		return fmt.Sprintf("N, %d, %s, %d, %d, %s, %d",
			v.UserID, v.Symbol, v.Price, v.Quantity, v.Side, v.UserOrderID)
	case *Cancel:
		return fmt.Sprintf("C, %d, %d", v.UserID, v.UserOrderID)
	case *Flush:
		return "F"
	case *Ack:
		return fmt.Sprintf("A, %s, %d, %d", v.Symbol, v.UserID, v.UserOrderID)
	case *CancelAck:
		return fmt.Sprintf("C, %s, %d, %d", v.Symbol, v.UserID, v.UserOrderID)
	case *Trade:
		return fmt.Sprintf("T, %s, %d, %d, %d, %d, %d, %d",
			v.Symbol, v.BuyUser, v.BuyOrder, v.SellUser, v.SellOrder, v.Price, v.Quantity)
	case *TopOfBook:
		if v.Eliminated() {
			return fmt.Sprintf("B, %s, %s, -, -", v.Symbol, v.Side)
		}
		return fmt.Sprintf("B, %s, %s, %d, %d", v.Symbol, v.Side, v.Price, v.Quantity)
	default:
		return ""
	}
}
