package counters

import "strings"

// Kind names a counter, e.g. "damage" or "stun".
type Kind string

const (
	Damage  Kind = "damage"
	Poison  Kind = "poison"
	Stun    Kind = "stun"
	Daze    Kind = "daze"
	Power   Kind = "power"
	Guard   Kind = "guard"
	Vigor   Kind = "vigor"
	Weaken  Kind = "weaken"
	Brittle Kind = "brittle"
)

// String returns the string representation of the counter kind.
func (k Kind) String() string {
	return string(k)
}

// Normalize lower-cases and trims a user-supplied kind.
func Normalize(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Delta is a signed change to the three printed stats.
type Delta struct {
	Atk int `json:"atk"`
	Def int `json:"def"`
	HP  int `json:"hp"`
}

// Add returns d + o.
func (d Delta) Add(o Delta) Delta {
	return Delta{Atk: d.Atk + o.Atk, Def: d.Def + o.Def, HP: d.HP + o.HP}
}

// Scale returns d multiplied by n.
func (d Delta) Scale(n int) Delta {
	return Delta{Atk: d.Atk * n, Def: d.Def * n, HP: d.HP * n}
}

// IsZero reports whether d changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Stat names one of the three printed stats.
type Stat string

const (
	StatAtk Stat = "atk"
	StatDef Stat = "def"
	StatHP  Stat = "hp"
)

// ParseStat accepts "atk", "def" or "hp" in any case.
func ParseStat(s string) (Stat, bool) {
	switch Stat(strings.ToLower(strings.TrimSpace(s))) {
	case StatAtk:
		return StatAtk, true
	case StatDef:
		return StatDef, true
	case StatHP:
		return StatHP, true
	default:
		return "", false
	}
}

// With returns d with delta added to one stat.
func (d Delta) With(stat Stat, delta int) Delta {
	switch stat {
	case StatAtk:
		d.Atk += delta
	case StatDef:
		d.Def += delta
	case StatHP:
		d.HP += delta
	}
	return d
}

// effects maps each stat-bearing counter kind to its per-counter delta.
var effects = map[Kind]Delta{
	Damage:  {HP: -1},
	Power:   {Atk: 1},
	Guard:   {Def: 1},
	Vigor:   {HP: 1},
	Weaken:  {Atk: -1},
	Brittle: {Def: -1},
}

// EffectOf returns the per-counter stat delta of kind, if it has one.
func EffectOf(kind Kind) (Delta, bool) {
	d, ok := effects[kind]
	return d, ok
}
