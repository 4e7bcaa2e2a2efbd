package feed

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/parityarb/paritybot/internal/domain"
)

// subscribeCommand is the CLOB market-channel subscription frame. Auth is an
// empty object and Markets an empty array for public market data; both fields
// must still be present on the wire.
type subscribeCommand struct {
	Auth     struct{} `json:"auth"`
	Markets  []string `json:"markets"`
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

func newSubscribeCommand(assetIDs []string) subscribeCommand {
	return subscribeCommand{
		Markets:  []string{},
		AssetIDs: assetIDs,
		Type:     "subscribe",
	}
}

// wsEnvelope carries the fields common to every market-channel event.
type wsEnvelope struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Timestamp string `json:"timestamp"`
}

// lastTradeMessage reports the price of the most recent trade on a token.
type lastTradeMessage struct {
	wsEnvelope
	Price string `json:"price"`
	Size  string `json:"size"`
	Side  string `json:"side"`
}

// priceChangeMessage carries incremental level changes for a token.
type priceChangeMessage struct {
	wsEnvelope
	Changes []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
		Side  string `json:"side"`
	} `json:"changes"`
}

// wsLevel is one price level. The feed accepts both encodings seen on the
// wire: an object {"price": "0.45", "size": "100"} and a positional pair
// ["0.45", "100"].
type wsLevel struct {
	Price float64
	Size  float64
}

func (l *wsLevel) UnmarshalJSON(data []byte) error {
	var obj struct {
		Price json.Number `json:"price"`
		Size  json.Number `json:"size"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Price != "" {
		return l.fromStrings(obj.Price.String(), obj.Size.String())
	}

	var pair []json.Number
	if err := json.Unmarshal(data, &pair); err == nil && len(pair) >= 2 {
		return l.fromStrings(pair[0].String(), pair[1].String())
	}

	return fmt.Errorf("feed: unrecognized level encoding: %s", data)
}

func (l *wsLevel) fromStrings(price, size string) error {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return fmt.Errorf("feed: parse level price %q: %w", price, err)
	}
	s, err := strconv.ParseFloat(size, 64)
	if err != nil {
		return fmt.Errorf("feed: parse level size %q: %w", size, err)
	}
	l.Price, l.Size = p, s
	return nil
}

// parseLevels decodes raw level JSON individually so one malformed level drops
// without discarding its siblings.
func parseLevels(raw []json.RawMessage) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		var lvl wsLevel
		if err := json.Unmarshal(r, &lvl); err != nil {
			continue
		}
		if lvl.Price <= 0 || lvl.Size < 0 {
			continue
		}
		out = append(out, domain.PriceLevel{Price: lvl.Price, Size: lvl.Size})
	}
	return out
}

// bookToSnapshot normalizes a book event: bids sorted descending, asks
// ascending, timestamp parsed from epoch milliseconds with a wall-clock
// fallback.
func bookToSnapshot(msg *rawBookMessage) (string, []domain.PriceLevel, []domain.PriceLevel, time.Time) {
	bids := parseLevels(coalesce(msg.Bids, msg.Buys))
	asks := parseLevels(coalesce(msg.Asks, msg.Sells))

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	return msg.AssetID, bids, asks, parseTimestamp(msg.Timestamp)
}

// rawBookMessage defers level decoding so malformed levels can be dropped one
// at a time.
type rawBookMessage struct {
	wsEnvelope
	Bids  []json.RawMessage `json:"bids"`
	Asks  []json.RawMessage `json:"asks"`
	Buys  []json.RawMessage `json:"buys"`
	Sells []json.RawMessage `json:"sells"`
}

func coalesce(a, b []json.RawMessage) []json.RawMessage {
	if len(a) > 0 {
		return a
	}
	return b
}

// parsePriceSize decodes the string-typed price and size fields carried by
// trade events. An empty size parses as zero.
func parsePriceSize(price, size string) (float64, float64, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("feed: parse price %q: %w", price, err)
	}
	var s float64
	if size != "" {
		s, err = strconv.ParseFloat(size, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("feed: parse size %q: %w", size, err)
		}
	}
	return p, s, nil
}

// parseTimestamp reads the exchange's epoch-milliseconds string; unparseable
// stamps fall back to the local receive time.
func parseTimestamp(s string) time.Time {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Now().UTC()
}
