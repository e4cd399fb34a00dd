package wire

import "encoding/binary"

// Binary message sizes, bit-exact per spec. No padding between fields.
const (
	SizeNewOrder  = 27
	SizeCancel    = 10
	SizeFlush     = 2
	SizeAck       = 18
	SizeCancelAck = 18
	SizeTrade     = 34
	SizeTopOfBook = 19
)

const (
	tagNewOrder  = 'N'
	tagCancel    = 'C'
	tagFlush     = 'F'
	tagAck       = 'A'
	tagCancelAck = 'X'
	tagTrade     = 'T'
	tagTopOfBook = 'B'
)

// DecodeBinary parses one binary message from the front of buf and returns
// the message plus the number of bytes consumed. It returns (nil, 0, err)
// when buf does not yet hold a complete message (err is ErrShortBuffer) or
// is not a recognised binary message (err is ErrDecode).
func DecodeBinary(buf []byte) (Message, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrShortBuffer
	}
	if buf[0] != magicBinary {
		return nil, 0, decodeErr("missing binary magic byte")
	}
	switch buf[1] {
	case tagNewOrder:
		if len(buf) < SizeNewOrder {
			return nil, 0, ErrShortBuffer
		}
		m := &NewOrder{
			UserID:      binary.BigEndian.Uint32(buf[2:6]),
			Price:       binary.BigEndian.Uint32(buf[14:18]),
			Quantity:    binary.BigEndian.Uint32(buf[18:22]),
			Side:        Side(buf[22]),
			UserOrderID: binary.BigEndian.Uint32(buf[23:27]),
		}
		copy(m.Symbol[:], buf[6:14])
		if !m.Side.Valid() {
			return nil, 0, decodeErr("invalid side byte in NewOrder")
		}
		return m, SizeNewOrder, nil

	case tagCancel:
		if len(buf) < SizeCancel {
			return nil, 0, ErrShortBuffer
		}
		m := &Cancel{
			UserID:      binary.BigEndian.Uint32(buf[2:6]),
			UserOrderID: binary.BigEndian.Uint32(buf[6:10]),
		}
		return m, SizeCancel, nil

	case tagFlush:
		return &Flush{}, SizeFlush, nil

	default:
		return nil, 0, decodeErr("unknown binary subtype")
	}
}

// InputMessageSize returns the total encoded size (magic byte included) of
// an input message whose tag byte is tag, so a raw-framed reader can learn
// how many more bytes to read after peeking just the header.
func InputMessageSize(tag byte) (int, error) {
	switch tag {
	case tagNewOrder:
		return SizeNewOrder, nil
	case tagCancel:
		return SizeCancel, nil
	case tagFlush:
		return SizeFlush, nil
	default:
		return 0, decodeErr("unknown binary subtype")
	}
}

// ErrShortBuffer signals the buffer does not yet hold a full message; the
// caller should wait for more bytes rather than treat this as a parse
// failure.
var ErrShortBuffer = decodeErr("short buffer")

// EncodeBinary appends the binary wire form of m to dst and returns the
// result. Only output message kinds (Ack, CancelAck, Trade, TopOfBook) and
// the three input kinds (for loopback/testing) are supported.
func EncodeBinary(dst []byte, m Message) []byte {
	switch v := m.(type) {
	case *NewOrder:
		dst = append(dst, magicBinary, tagNewOrder)
		dst = appendU32(dst, v.UserID)
		dst = append(dst, v.Symbol[:]...)
		dst = appendU32(dst, v.Price)
		dst = appendU32(dst, v.Quantity)
		dst = append(dst, byte(v.Side))
		dst = appendU32(dst, v.UserOrderID)
	case *Cancel:
		dst = append(dst, magicBinary, tagCancel)
		dst = appendU32(dst, v.UserID)
		dst = appendU32(dst, v.UserOrderID)
	case *Flush:
		dst = append(dst, magicBinary, tagFlush)
	case *Ack:
		dst = append(dst, magicBinary, tagAck)
		dst = append(dst, v.Symbol[:]...)
		dst = appendU32(dst, v.UserID)
		dst = appendU32(dst, v.UserOrderID)
	case *CancelAck:
		dst = append(dst, magicBinary, tagCancelAck)
		dst = append(dst, v.Symbol[:]...)
		dst = appendU32(dst, v.UserID)
		dst = appendU32(dst, v.UserOrderID)
	case *Trade:
		dst = append(dst, magicBinary, tagTrade)
		dst = append(dst, v.Symbol[:]...)
		dst = appendU32(dst, v.BuyUser)
		dst = appendU32(dst, v.BuyOrder)
		dst = appendU32(dst, v.SellUser)
		dst = appendU32(dst, v.SellOrder)
		dst = appendU32(dst, v.Price)
		dst = appendU32(dst, v.Quantity)
	case *TopOfBook:
		dst = append(dst, magicBinary, tagTopOfBook)
		dst = append(dst, v.Symbol[:]...)
		dst = append(dst, byte(v.Side))
		dst = appendU32(dst, v.Price)
		dst = appendU32(dst, v.Quantity)
	}
	return dst
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// DecodeBinaryOutput parses one of the four output message kinds (Ack,
// CancelAck, Trade, TopOfBook). It exists alongside DecodeBinary so a
// subscriber or test harness that only ever reads the engine's output stream
// need not carry the input-side validation rules.
func DecodeBinaryOutput(buf []byte) (Message, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrShortBuffer
	}
	if buf[0] != magicBinary {
		return nil, 0, decodeErr("missing binary magic byte")
	}
	switch buf[1] {
	case tagAck:
		if len(buf) < SizeAck {
			return nil, 0, ErrShortBuffer
		}
		m := &Ack{
			UserID:      binary.BigEndian.Uint32(buf[10:14]),
			UserOrderID: binary.BigEndian.Uint32(buf[14:18]),
		}
		copy(m.Symbol[:], buf[2:10])
		return m, SizeAck, nil
	case tagCancelAck:
		if len(buf) < SizeCancelAck {
			return nil, 0, ErrShortBuffer
		}
		m := &CancelAck{
			UserID:      binary.BigEndian.Uint32(buf[10:14]),
			UserOrderID: binary.BigEndian.Uint32(buf[14:18]),
		}
		copy(m.Symbol[:], buf[2:10])
		return m, SizeCancelAck, nil
	case tagTrade:
		if len(buf) < SizeTrade {
			return nil, 0, ErrShortBuffer
		}
		m := &Trade{
			BuyUser:   binary.BigEndian.Uint32(buf[10:14]),
			BuyOrder:  binary.BigEndian.Uint32(buf[14:18]),
			SellUser:  binary.BigEndian.Uint32(buf[18:22]),
			SellOrder: binary.BigEndian.Uint32(buf[22:26]),
			Price:     binary.BigEndian.Uint32(buf[26:30]),
			Quantity:  binary.BigEndian.Uint32(buf[30:34]),
		}
		copy(m.Symbol[:], buf[2:10])
		return m, SizeTrade, nil
	case tagTopOfBook:
		if len(buf) < SizeTopOfBook {
			return nil, 0, ErrShortBuffer
		}
		m := &TopOfBook{
			Side:     Side(buf[10]),
			Price:    binary.BigEndian.Uint32(buf[11:15]),
			Quantity: binary.BigEndian.Uint32(buf[15:19]),
		}
		copy(m.Symbol[:], buf[2:10])
		return m, SizeTopOfBook, nil
	default:
		return nil, 0, decodeErr("unknown binary output subtype")
	}
}
