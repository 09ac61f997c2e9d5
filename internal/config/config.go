// Package config loads grainrank instance configuration.
//
// Configuration may be written in YAML (.yaml, .yml) or in CUE (.cue, and
// .json which CUE reads natively). CUE input is checked against the
// embedded schema before decoding; YAML input is decoded strictly. Both
// then go through the same semantic validation.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/grainrank/internal/bonus"
	"github.com/roach88/grainrank/internal/credrank"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/grain"
	"github.com/roach88/grainrank/internal/policy"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPeriodLength is one week.
const DefaultPeriodLength = 7 * 24 * time.Hour

// Instance is the full configuration of one grainrank instance.
type Instance struct {
	Currency grain.CurrencyID `yaml:"currency" json:"currency"`
	Credrank credrank.Params  `yaml:"credrank" json:"credrank"`
	Periods  Periods          `yaml:"periods" json:"periods"`
	Bonus    Bonus            `yaml:"bonus" json:"bonus"`
	Policies []policy.Config  `yaml:"policies" json:"policies"`
}

// Periods controls how timestamps are bucketed. Explicit Boundaries (ms
// since epoch) take precedence over Length.
type Periods struct {
	Length     string  `yaml:"length,omitempty" json:"length,omitempty"`
	Boundaries []int64 `yaml:"boundaries,omitempty" json:"boundaries,omitempty"`
}

// Bonus configures dependency minting. Budget is the total bonus weight
// available to all dependencies.
type Bonus struct {
	Budget       float64            `yaml:"budget" json:"budget"`
	Dependencies []bonus.Dependency `yaml:"dependencies" json:"dependencies"`
}

// Load reads and validates the configuration at path. The format is chosen
// by extension.
func Load(path string) (*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var inst *Instance
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		inst, err = decodeYAML(data)
	case ".cue", ".json":
		inst, err = decodeCUE(path, data)
	default:
		return nil, errs.InvalidConfiguration("unsupported config format %q (want .yaml, .yml, .cue or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return inst, nil
}

func decodeYAML(data []byte) (*Instance, error) {
	var inst Instance
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&inst); err != nil {
		return nil, errs.InvalidConfiguration("parse YAML: %v", err)
	}
	return &inst, nil
}

func decodeCUE(path string, data []byte) (*Instance, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, errs.InvalidConfiguration("parse CUE: %v", err)
	}
	v = schema.LookupPath(cue.ParsePath("#Instance")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, errs.InvalidConfiguration("schema: %v", err)
	}

	var inst Instance
	if err := v.Decode(&inst); err != nil {
		return nil, errs.InvalidConfiguration("decode CUE: %v", err)
	}
	return &inst, nil
}

// Validate checks everything that can be checked without a graph. Bonus
// targets are checked against the graph when minting.
func (i *Instance) Validate() error {
	if i.Currency == "" {
		return errs.InvalidConfiguration("currency is required")
	}
	if err := i.Params().Validate(); err != nil {
		return err
	}
	if _, err := i.PeriodLength(); err != nil {
		return err
	}
	if b := i.Periods.Boundaries; len(b) > 0 {
		for k := 1; k < len(b); k++ {
			if b[k] <= b[k-1] {
				return errs.InvalidConfiguration("periods.boundaries must be strictly increasing")
			}
		}
	}
	if _, err := i.ParsePolicies(); err != nil {
		return err
	}
	return nil
}

// Params returns the cred engine parameters with defaults filled in.
func (i *Instance) Params() credrank.Params {
	return i.Credrank.WithDefaults()
}

// PeriodLength parses periods.length, defaulting to DefaultPeriodLength.
func (i *Instance) PeriodLength() (time.Duration, error) {
	if i.Periods.Length == "" {
		return DefaultPeriodLength, nil
	}
	d, err := time.ParseDuration(i.Periods.Length)
	if err != nil {
		return 0, errs.InvalidConfiguration("periods.length: %v", err)
	}
	if d < time.Millisecond {
		return 0, errs.InvalidConfiguration("periods.length must be at least 1ms, got %s", d)
	}
	return d, nil
}

// ParsePolicies maps each configured policy onto its variant.
func (i *Instance) ParsePolicies() ([]policy.Policy, error) {
	out := make([]policy.Policy, len(i.Policies))
	for k, c := range i.Policies {
		p, err := policy.FromConfig(c)
		if err != nil {
			return nil, fmt.Errorf("policies[%d]: %w", k, err)
		}
		out[k] = p
	}
	return out, nil
}
