package escrow

import (
	"encoding/binary"

	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

const (
	tagOpen byte = iota
	tagBid
	tagCancel
	tagSettle
)

// Command is one of OpenCommand, BidCommand, CancelCommand or SettleCommand.
type Command interface {
	Name() string
	// Encode returns the wire form accepted by Decode.
	Encode() []byte
}

type OpenCommand struct {
	InitialPrice    uint64
	DurationSeconds uint64
}

type BidCommand struct {
	Price uint64
}

type CancelCommand struct{}

type SettleCommand struct{}

func (OpenCommand) Name() string   { return "open" }
func (BidCommand) Name() string    { return "bid" }
func (CancelCommand) Name() string { return "cancel" }
func (SettleCommand) Name() string { return "settle" }

func (c OpenCommand) Encode() []byte {
	buf := []byte{tagOpen}
	buf = binary.LittleEndian.AppendUint64(buf, c.InitialPrice)
	return binary.LittleEndian.AppendUint64(buf, c.DurationSeconds)
}

func (c BidCommand) Encode() []byte {
	return binary.LittleEndian.AppendUint64([]byte{tagBid}, c.Price)
}

func (CancelCommand) Encode() []byte { return []byte{tagCancel} }
func (SettleCommand) Encode() []byte { return []byte{tagSettle} }

func readUint64(src []byte) (uint64, []byte, error) {
	if len(src) < 8 {
		return 0, nil, core.InvalidCommand
	}
	return binary.LittleEndian.Uint64(src[:8]), src[8:], nil
}

// Decode parses [tag:u8][payload]. Trailing bytes after the payload are ignored.
func Decode(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(core.InvalidCommand, "empty command")
	}
	rest := data[1:]
	switch data[0] {
	case tagOpen:
		price, rest, err := readUint64(rest)
		if err != nil {
			return nil, errors.Wrap(err, "open: initial price")
		}
		duration, _, err := readUint64(rest)
		if err != nil {
			return nil, errors.Wrap(err, "open: duration")
		}
		return OpenCommand{InitialPrice: price, DurationSeconds: duration}, nil
	case tagBid:
		price, _, err := readUint64(rest)
		if err != nil {
			return nil, errors.Wrap(err, "bid: price")
		}
		return BidCommand{Price: price}, nil
	case tagCancel:
		return CancelCommand{}, nil
	case tagSettle:
		return SettleCommand{}, nil
	}
	return nil, errors.Wrapf(core.InvalidCommand, "unknown tag %d", data[0])
}
