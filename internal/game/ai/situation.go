package ai

import lua "github.com/yuin/gopher-lua"

// Situation is the snapshot an enemy decides on.
type Situation struct {
	EnemyID     string
	EnemyHP     int
	EnemyMaxHP  int
	PlayerHP    int
	PlayerMaxHP int
	Turn        int
	// HasSpecial is false when the enemy has no special ability; special rules are then skipped.
	HasSpecial bool
}

// EnemyHPBelow reports whether EnemyHP < EnemyMaxHP × ratio.
func (s Situation) EnemyHPBelow(ratio float64) bool {
	return float64(s.EnemyHP) < float64(s.EnemyMaxHP)*ratio
}

// PlayerHPAbove reports whether PlayerHP > PlayerMaxHP × ratio.
func (s Situation) PlayerHPAbove(ratio float64) bool {
	return float64(s.PlayerHP) > float64(s.PlayerMaxHP)*ratio
}

// LuaArgs returns the positional arguments passed to precondition hooks:
// enemy_id, enemy_hp, enemy_max_hp, player_hp, player_max_hp, turn.
func (s Situation) LuaArgs() []lua.LValue {
	return []lua.LValue{
		lua.LString(s.EnemyID),
		lua.LNumber(s.EnemyHP),
		lua.LNumber(s.EnemyMaxHP),
		lua.LNumber(s.PlayerHP),
		lua.LNumber(s.PlayerMaxHP),
		lua.LNumber(s.Turn),
	}
}
