package policy

import (
	"strings"

	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
)

// Config is the transport form of a policy as it appears in instance
// configuration and ledger records. Budget is a decimal string in whole
// grain.
type Config struct {
	Type               Type     `yaml:"type" json:"type"`
	Budget             string   `yaml:"budget" json:"budget"`
	NumPeriodsLookback *float64 `yaml:"numPeriodsLookback,omitempty" json:"numPeriodsLookback,omitempty"`
	Discount           *float64 `yaml:"discount,omitempty" json:"discount,omitempty"`
	Recipient          string   `yaml:"recipient,omitempty" json:"recipient,omitempty"`
	Memo               string   `yaml:"memo,omitempty" json:"memo,omitempty"`
}

// FromConfig maps c onto its policy variant and validates it. Type names
// are matched case-insensitively.
func FromConfig(c Config) (Policy, error) {
	budget, err := grain.FromDecimal(c.Budget)
	if err != nil {
		return nil, errs.InvalidConfiguration("%s policy budget %q: %v", c.Type, c.Budget, err)
	}

	var p Policy
	switch Type(strings.ToUpper(string(c.Type))) {
	case TypeImmediate:
		p = Immediate{Budget: budget, NumPeriodsLookback: c.NumPeriodsLookback}
	case TypeRecent:
		if c.Discount == nil {
			return nil, errs.InvalidConfiguration("RECENT policy requires a discount")
		}
		p = Recent{Budget: budget, Discount: *c.Discount}
	case TypeBalanced:
		lb := 0
		if c.NumPeriodsLookback != nil {
			v := *c.NumPeriodsLookback
			if v != float64(int(v)) {
				return nil, errs.InvalidConfiguration("numPeriodsLookback must be an integer")
			}
			lb = int(v)
		}
		p = Balanced{Budget: budget, NumPeriodsLookback: lb}
	case TypeSpecial:
		p = Special{Budget: budget, Recipient: c.Recipient, Memo: c.Memo}
	default:
		return nil, errs.InvalidConfiguration("unknown policy type %q", c.Type)
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ToConfig is the inverse of FromConfig.
func ToConfig(p Policy) Config {
	budget := Budget(p).Decimal()
	switch p := p.(type) {
	case Immediate:
		return Config{Type: TypeImmediate, Budget: budget, NumPeriodsLookback: p.NumPeriodsLookback}
	case Recent:
		d := p.Discount
		return Config{Type: TypeRecent, Budget: budget, Discount: &d}
	case Balanced:
		c := Config{Type: TypeBalanced, Budget: budget}
		if p.NumPeriodsLookback != 0 {
			lb := float64(p.NumPeriodsLookback)
			c.NumPeriodsLookback = &lb
		}
		return c
	case Special:
		return Config{Type: TypeSpecial, Budget: budget, Recipient: p.Recipient, Memo: p.Memo}
	default:
		panic(unknownPolicy(p))
	}
}
