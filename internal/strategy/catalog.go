package strategy

import "strings"

// Kind identifies a strategy the relay knows how to annotate.
type Kind int

const (
	Unknown Kind = iota
	HigherTimeframeTrend
	Unicorn
	TurtleSoup
)

func (k Kind) String() string {
	switch k {
	case HigherTimeframeTrend:
		return "higher_timeframe_trend"
	case Unicorn:
		return "unicorn"
	case TurtleSoup:
		return "turtle_soup"
	default:
		return "unknown"
	}
}

// Profile is the display data attached to a strategy.
type Profile struct {
	Kind Kind
	// Name is the canonical alert name; empty for Unknown.
	Name string
	Icon string
	// Match is the substring that selects the advisory block.
	Match    string
	Advisory []string
}

// Catalog lists the known strategies in advisory match order.
var Catalog = []Profile{
	{
		Kind:  HigherTimeframeTrend,
		Name:  "高時間框架順勢",
		Icon:  "🚀",
		Match: "高時間框架",
		Advisory: []string{
			"確認1小時趨勢方向",
			"在5分鐘圖表進場",
			"使用1:2風險報酬比",
		},
	},
	{
		Kind:  Unicorn,
		Name:  "Unicorn模型",
		Icon:  "🦄",
		Match: "Unicorn",
		Advisory: []string{
			"等待價格回踩價值區域",
			"確認BK+FVG重疊",
			"設置緊密止損",
		},
	},
	{
		Kind:  TurtleSoup,
		Name:  "Turtle Soup",
		Icon:  "🐢",
		Match: "Turtle",
		Advisory: []string{
			"確認假動作完成",
			"等待反轉確認信號",
			"快速進場，緊密止損",
		},
	},
}

// DefaultIcon is used for strategies whose name is not an exact catalog entry.
const DefaultIcon = "📊"

// Lookup resolves the icon and advisory for a strategy name.
//
// The icon requires an exact name match, while the advisory only needs the
// profile's Match substring, so "Unicorn v2" gets the generic icon but still
// carries the Unicorn tips. Kind follows the advisory.
func Lookup(name string) Profile {
	p := Profile{Kind: Unknown, Icon: DefaultIcon}
	for _, c := range Catalog {
		if c.Name == name {
			p.Icon = c.Icon
			break
		}
	}
	for _, c := range Catalog {
		if strings.Contains(name, c.Match) {
			p.Kind = c.Kind
			p.Name = c.Name
			p.Match = c.Match
			p.Advisory = c.Advisory
			break
		}
	}
	return p
}
