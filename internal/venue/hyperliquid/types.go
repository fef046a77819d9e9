package hyperliquid

import (
	"fmt"
	"strconv"
	"time"
)

// BookTop is the best bid/ask for one coin, parsed from an l2Book payload.
type BookTop struct {
	Coin      string
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

// Mid returns the midpoint of the top of book.
func (t BookTop) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// infoRequest is the POST /info body for an l2Book snapshot.
type infoRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// l2Level is one price level: px and sz are decimal strings, n the number of
// orders at the level.
type l2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// l2Book is the order book payload. Levels[0] holds bids, Levels[1] asks,
// both best-first.
type l2Book struct {
	Coin   string       `json:"coin"`
	Time   int64        `json:"time"` // ms since epoch
	Levels [2][]l2Level `json:"levels"`
}

// top extracts the best bid and ask. An empty side makes the snapshot
// unusable for spread math.
func (b l2Book) top() (BookTop, error) {
	if len(b.Levels[0]) == 0 || len(b.Levels[1]) == 0 {
		return BookTop{}, fmt.Errorf("hyperliquid: l2Book for %q has an empty side", b.Coin)
	}

	bid, err := strconv.ParseFloat(b.Levels[0][0].Px, 64)
	if err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: parse bid px %q: %w", b.Levels[0][0].Px, err)
	}
	ask, err := strconv.ParseFloat(b.Levels[1][0].Px, 64)
	if err != nil {
		return BookTop{}, fmt.Errorf("hyperliquid: parse ask px %q: %w", b.Levels[1][0].Px, err)
	}
	if bid <= 0 || ask <= 0 || bid >= ask {
		return BookTop{}, fmt.Errorf("hyperliquid: crossed or degenerate book for %q (bid=%v ask=%v)", b.Coin, bid, ask)
	}

	return BookTop{
		Coin:      b.Coin,
		Bid:       bid,
		Ask:       ask,
		UpdatedAt: time.UnixMilli(b.Time),
	}, nil
}

// wireOrder is one order in an exchange action. Field names follow the
// venue's compact schema: a=asset, b=isBuy, p=price ("0" for market-like
// IOC), s=size, r=reduceOnly, t=type, c=client order id.
// The msgpack tags matter: signatures cover the msgpack serialization of the
// action, and the venue packs map keys in this declaration order.
type wireOrder struct {
	Asset      string    `json:"a" msgpack:"a"`
	IsBuy      bool      `json:"b" msgpack:"b"`
	Price      string    `json:"p" msgpack:"p"`
	Size       string    `json:"s" msgpack:"s"`
	ReduceOnly bool      `json:"r" msgpack:"r"`
	Type       orderType `json:"t" msgpack:"t"`
	Cloid      string    `json:"c,omitempty" msgpack:"c,omitempty"`
}

type orderType struct {
	Limit limitType `json:"limit" msgpack:"limit"`
}

type limitType struct {
	Tif string `json:"tif" msgpack:"tif"` // "Ioc" for market-like execution
}

// orderAction is the signed action body.
type orderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []wireOrder `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

// rsvSignature is the split form of a 65-byte secp256k1 signature.
type rsvSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// exchangeRequest is the POST /exchange envelope.
type exchangeRequest struct {
	Action       orderAction  `json:"action"`
	Nonce        uint64       `json:"nonce"`
	Signature    rsvSignature `json:"signature"`
	VaultAddress *string      `json:"vaultAddress"`
}

// exchangeResponse is the order placement reply. Statuses is parallel to the
// submitted orders: each entry carries exactly one of filled, resting or
// error.
type exchangeResponse struct {
	Status   string `json:"status"` // "ok" or "err"
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []orderStatus `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

type orderStatus struct {
	Filled  *fillDetail `json:"filled,omitempty"`
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Error string `json:"error,omitempty"`
}

type fillDetail struct {
	TotalSz string `json:"totalSz"`
	AvgPx   string `json:"avgPx"`
	Oid     int64  `json:"oid"`
}
