package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a display-only value. TradingView templates emit the same field as a
// string in one alert and a bare number in another, so any JSON scalar is
// accepted and kept verbatim.
type Text string

// UnmarshalJSON keeps numbers and booleans in their literal form. Objects and
// arrays are stored as compact JSON. null yields the empty value.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// IsZero reports whether the value was absent, null or an empty string.
func (t Text) IsZero() bool { return t == "" }

// Or returns t, or def when t is empty.
func (t Text) Or(def string) string {
	if t == "" {
		return def
	}
	return string(t)
}

// Signal is one inbound alert as posted by the charting platform.
type Signal struct {
	Strategy   Text `json:"strategy"`
	Symbol     Text `json:"symbol"`
	Direction  Text `json:"direction"`
	Price      Text `json:"price"`
	Timestamp  Text `json:"timestamp"`
	Timeframe  Text `json:"timeframe"`
	Confidence Text `json:"confidence"`
}

// MissingFields returns the names of required fields that are absent or empty,
// in a stable order.
func (s *Signal) MissingFields() []string {
	var missing []string
	if s.Strategy.IsZero() {
		missing = append(missing, "strategy")
	}
	if s.Symbol.IsZero() {
		missing = append(missing, "symbol")
	}
	return missing
}

// Bias is the market direction a signal points to.
type Bias int

const (
	BiasNeutral Bias = iota
	BiasLong
	BiasShort
)

// ClassifyDirection maps a free-form direction ("BUY", "strong sell", ...) to a
// Bias. "buy" wins when both words appear.
func ClassifyDirection(direction string) Bias {
	d := strings.ToLower(direction)
	switch {
	case strings.Contains(d, "buy"):
		return BiasLong
	case strings.Contains(d, "sell"):
		return BiasShort
	default:
		return BiasNeutral
	}
}

func (b Bias) Icon() string {
	switch b {
	case BiasLong:
		return "📈"
	case BiasShort:
		return "📉"
	default:
		return "➡️"
	}
}

func (b Bias) String() string {
	switch b {
	case BiasLong:
		return "long"
	case BiasShort:
		return "short"
	default:
		return "neutral"
	}
}
