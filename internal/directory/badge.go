package directory

import "github.com/jgxilos/wdd231/internal/models"

// Badge is the presentation of a membership tier.
type Badge struct {
	Label string
	Class string
}

var (
	goldBadge   = Badge{Label: "⭐ Gold", Class: "gold"}
	silverBadge = Badge{Label: "🥈 Silver", Class: "silver"}
	memberBadge = Badge{Label: "👤 Member", Class: "member"}
)

// BadgeFor maps a level to its badge. Every value outside {2, 3} is the
// basic member badge.
func BadgeFor(level models.MembershipLevel) Badge {
	switch level {
	case models.LevelGold:
		return goldBadge
	case models.LevelSilver:
		return silverBadge
	default:
		return memberBadge
	}
}
