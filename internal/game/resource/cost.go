package resource

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Cost is a parsed cost string: exact per-element requirements plus an
// amount payable by any element.
type Cost struct {
	Fixed    Amounts `json:"fixed"`
	Wildcard int     `json:"wildcard"`
	HasX     bool    `json:"has_x,omitempty"` // an X placeholder appeared in the source string
}

// Total returns the number of resources the cost requires.
func (c Cost) Total() int {
	return c.Fixed.Total() + c.Wildcard
}

// IsZero reports whether nothing needs to be paid.
func (c Cost) IsZero() bool {
	return c.Total() == 0
}

// Clone returns an independent copy of c.
func (c Cost) Clone() Cost {
	return Cost{Fixed: c.Fixed.Copy(), Wildcard: c.Wildcard, HasX: c.HasX}
}

// DefaultLetters is the letter table used when none is configured.
var DefaultLetters = map[rune]string{
	'F': "Fire",
	'W': "Water",
	'E': "Earth",
	'N': "Wind",
	'L': "Light",
	'D': "Dark",
}

// DefaultWildcard is the letter that means "any element".
const DefaultWildcard = 'A'

var (
	costToken = regexp.MustCompile(`(\d+|X)?([A-Z])`)
	costWhole = regexp.MustCompile(`^(?:(?:\d+|X)?[A-Z])*$`)
)

// CostParser turns cost strings like "2W1A" into Cost values.
type CostParser struct {
	letters  map[rune]Element
	reverse  map[Element]rune
	wildcard rune
}

// NewCostParser builds a parser over a letter→element table and a wildcard
// letter. Letters are case-insensitive.
func NewCostParser(letters map[rune]string, wildcard rune) *CostParser {
	if len(letters) == 0 {
		letters = DefaultLetters
	}
	if wildcard == 0 {
		wildcard = DefaultWildcard
	}
	cp := &CostParser{
		letters:  make(map[rune]Element, len(letters)),
		reverse:  make(map[Element]rune, len(letters)),
		wildcard: unicode.ToUpper(wildcard),
	}
	for r, name := range letters {
		r = unicode.ToUpper(r)
		cp.letters[r] = Element(name)
		cp.reverse[Element(name)] = r
	}
	return cp
}

// Elements returns the known elements in letter-table order of their letters.
func (cp *CostParser) Elements() []Element {
	out := make([]Element, 0, len(cp.reverse))
	for el := range cp.reverse {
		out = append(out, el)
	}
	sortElementsByLetter(out, cp.reverse)
	return out
}

// Element resolves a single letter.
func (cp *CostParser) Element(letter rune) (Element, bool) {
	el, ok := cp.letters[unicode.ToUpper(letter)]
	return el, ok
}

// ParseCost parses a run of (<digits>|X)?<letter> tokens. A missing quantity
// means 1 and X means 0. Braces and whitespace are ignored.
func (cp *CostParser) ParseCost(costStr string) (Cost, error) {
	cost := Cost{Fixed: make(Amounts)}

	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '{' || r == '}' {
			return -1
		}
		return unicode.ToUpper(r)
	}, costStr)
	if s == "" {
		return cost, nil
	}
	if !costWhole.MatchString(s) {
		return Cost{}, fmt.Errorf("malformed cost string: %q", costStr)
	}

	for _, match := range costToken.FindAllStringSubmatch(s, -1) {
		qty := 1
		switch match[1] {
		case "":
		case "X":
			qty = 0
			cost.HasX = true
		default:
			n, err := strconv.Atoi(match[1])
			if err != nil {
				return Cost{}, fmt.Errorf("invalid quantity %q in cost %q: %w", match[1], costStr, err)
			}
			qty = n
		}

		letter := rune(match[2][0])
		if letter == cp.wildcard {
			cost.Wildcard += qty
			continue
		}
		el, ok := cp.letters[letter]
		if !ok {
			return Cost{}, fmt.Errorf("unknown cost letter %q in %q", string(letter), costStr)
		}
		if qty > 0 {
			cost.Fixed[el] += qty
		}
	}

	return cost, nil
}

// Format renders c back into a cost string, fixed elements first.
func (cp *CostParser) Format(c Cost) string {
	var b strings.Builder
	elements := c.Fixed.Elements()
	sortElementsByLetter(elements, cp.reverse)
	for _, el := range elements {
		n := c.Fixed[el]
		letter, ok := cp.reverse[el]
		if !ok || n <= 0 {
			continue
		}
		b.WriteString(strconv.Itoa(n))
		b.WriteRune(letter)
	}
	if c.Wildcard > 0 {
		b.WriteString(strconv.Itoa(c.Wildcard))
		b.WriteRune(cp.wildcard)
	} else if c.HasX {
		b.WriteString("X")
		b.WriteRune(cp.wildcard)
	}
	return b.String()
}

func sortElementsByLetter(els []Element, reverse map[Element]rune) {
	for i := 1; i < len(els); i++ {
		for j := i; j > 0 && reverse[els[j]] < reverse[els[j-1]]; j-- {
			els[j], els[j-1] = els[j-1], els[j]
		}
	}
}
