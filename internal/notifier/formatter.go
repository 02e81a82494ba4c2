package notifier

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"SignalRelay/internal/model"
	"SignalRelay/internal/strategy"
)

// Fallbacks for fields the alert left out.
const (
	DefaultStrategy   = "未知策略"
	DefaultSymbol     = "未知交易對"
	DefaultDirection  = "未知方向"
	DefaultPrice      = "未知價格"
	DefaultTimeframe  = "未知時間框架"
	DefaultConfidence = "中等"
	UnknownTime       = "未知時間"
)

// DefaultTimezone is where alert times are displayed.
const DefaultTimezone = "Asia/Taipei"

// RiskParams is the fixed risk block appended to every message.
var RiskParams = struct {
	StopLossPct   int
	TakeProfitPct int
	PositionPct   int
}{1, 2, 2}

const displayLayout = "2006/01/02 15:04:05"

// zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Formatter renders signals into chat messages. It holds no mutable state and
// is safe for concurrent use.
type Formatter struct {
	Cooldown  time.Duration
	Location  *time.Location
	ParseMode string
}

// NewFormatter returns a Formatter for the given markup mode ("Markdown" or "HTML").
func NewFormatter(cooldown time.Duration, loc *time.Location, parseMode string) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{Cooldown: cooldown, Location: loc, ParseMode: parseMode}
}

// Format builds the notification text. now stands in for a missing timestamp.
// Output depends only on sig, now and the Formatter fields.
func (f *Formatter) Format(sig *model.Signal, now time.Time) string {
	m := markupFor(f.ParseMode)

	name := sig.Strategy.Or(DefaultStrategy)
	direction := sig.Direction.Or(DefaultDirection)
	profile := strategy.Lookup(name)
	arrow := model.ClassifyDirection(direction).Icon()

	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s %s\n\n", profile.Icon, m.bold("交易信號通知"), profile.Icon))
	m.field(&b, "🏷", "策略", name)
	m.field(&b, "💱", "交易對", sig.Symbol.Or(DefaultSymbol))
	m.field(&b, arrow, "方向", direction)
	m.field(&b, "💰", "價格", sig.Price.Or(DefaultPrice))
	m.field(&b, "⏰", "時間", f.displayTime(sig.Timestamp, now))
	m.field(&b, "📊", "時間框架", sig.Timeframe.Or(DefaultTimeframe))
	m.field(&b, "🎯", "信心程度", sig.Confidence.Or(DefaultConfidence))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("🔒 %s\n", m.bold("風控參數")))
	b.WriteString(fmt.Sprintf("├ 止損: %d%%\n", RiskParams.StopLossPct))
	b.WriteString(fmt.Sprintf("├ 止盈: %d%%\n", RiskParams.TakeProfitPct))
	b.WriteString(fmt.Sprintf("├ 倉位: 總資金%d%%\n", RiskParams.PositionPct))
	b.WriteString(fmt.Sprintf("└ 冷卻期: %s分鐘\n\n", minutes(f.Cooldown)))

	if len(profile.Advisory) > 0 {
		b.WriteString(fmt.Sprintf("💡 %s\n", m.bold("操作建議")))
		for _, tip := range profile.Advisory {
			b.WriteString("- " + m.escape(tip) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("⚠️ %s: 市場有風險，投資需謹慎", m.bold("風險提示")))
	return b.String()
}

func (f *Formatter) displayTime(ts model.Text, now time.Time) string {
	if ts.IsZero() {
		return now.In(f.location()).Format(displayLayout)
	}
	t, ok := ParseTimestamp(ts.String())
	if !ok {
		return fmt.Sprintf("%s (%s)", UnknownTime, ts)
	}
	return t.In(f.location()).Format(displayLayout)
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// ParseTimestamp reads an ISO-8601 time or a numeric epoch. Epochs below 1e12
// are seconds, larger ones milliseconds.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return time.Time{}, false
	}
	if v < 1e12 {
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)), true
	}
	return time.UnixMilli(int64(v)), true
}

// LoadLocation resolves a display zone. Asia/Taipei falls back to a fixed
// UTC+8 zone when the host has no tzdata.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimezone {
		return time.FixedZone("CST", 8*60*60), nil
	}
	return nil, fmt.Errorf("load timezone %q: %w", name, err)
}

func minutes(d time.Duration) string {
	m := d.Minutes()
	if m == math.Trunc(m) {
		return strconv.FormatInt(int64(m), 10)
	}
	return strconv.FormatFloat(m, 'f', -1, 64)
}

// markup applies bold and escaping for a Telegram parse mode.
type markup struct {
	bold   func(string) string
	escape func(string) string
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func markupFor(parseMode string) markup {
	switch strings.ToLower(parseMode) {
	case "html":
		return markup{
			bold:   func(s string) string { return "<b>" + html.EscapeString(s) + "</b>" },
			escape: html.EscapeString,
		}
	case "markdown":
		return markup{
			bold:   func(s string) string { return "*" + s + "*" },
			escape: markdownEscaper.Replace,
		}
	default:
		plain := func(s string) string { return s }
		return markup{bold: plain, escape: plain}
	}
}

func (m markup) field(b *strings.Builder, icon, label, value string) {
	b.WriteString(fmt.Sprintf("%s %s: %s\n", icon, m.bold(label), m.escape(value)))
}
