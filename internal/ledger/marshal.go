package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/grainrank/internal/canon"
	"github.com/roach88/grainrank/internal/grain"
	"github.com/roach88/grainrank/internal/policy"
)

// Canonical JSON has no floats, so optional float policy parameters are
// stored as shortest round-trip strings.
func formatFloat(f float64) canon.String {
	return canon.String(strconv.FormatFloat(f, 'g', -1, 64))
}

func policyToCanonical(c policy.Config) canon.Object {
	obj := canon.Object{
		"type":   canon.String(c.Type),
		"budget": canon.String(c.Budget),
	}
	if c.NumPeriodsLookback != nil {
		obj["numPeriodsLookback"] = formatFloat(*c.NumPeriodsLookback)
	}
	if c.Discount != nil {
		obj["discount"] = formatFloat(*c.Discount)
	}
	if c.Recipient != "" {
		obj["recipient"] = canon.String(c.Recipient)
	}
	if c.Memo != "" {
		obj["memo"] = canon.String(c.Memo)
	}
	return obj
}

func (d Distribution) toPayload() canon.Object {
	allocations := make(canon.Array, len(d.Allocations))
	for i, a := range d.Allocations {
		receipts := make(canon.Array, len(a.Receipts))
		for j, r := range a.Receipts {
			receipts[j] = canon.Object{
				"id":     canon.String(r.ID),
				"amount": canon.String(r.Amount.String()),
			}
		}
		allocations[i] = canon.Object{
			"id":       canon.String(a.ID),
			"policy":   policyToCanonical(a.Policy),
			"receipts": receipts,
		}
	}
	return canon.Object{
		"type":        canon.String(EventDistribution),
		"id":          canon.String(d.ID),
		"currency":    canon.String(d.Currency),
		"credDigest":  canon.String(d.CredDigest),
		"createdAt":   canon.Int(d.CreatedAt.UnixMilli()),
		"allocations": allocations,
	}
}

type payloadJSON struct {
	Type        string           `json:"type"`
	ID          string           `json:"id"`
	Currency    grain.CurrencyID `json:"currency"`
	CredDigest  string           `json:"credDigest"`
	CreatedAt   int64            `json:"createdAt"`
	Allocations []allocationJSON `json:"allocations"`
}

type allocationJSON struct {
	ID       string           `json:"id"`
	Policy   policyJSON       `json:"policy"`
	Receipts []policy.Receipt `json:"receipts"`
}

type policyJSON struct {
	Type               policy.Type `json:"type"`
	Budget             string      `json:"budget"`
	NumPeriodsLookback string      `json:"numPeriodsLookback"`
	Discount           string      `json:"discount"`
	Recipient          string      `json:"recipient"`
	Memo               string      `json:"memo"`
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (p policyJSON) config() (policy.Config, error) {
	lb, err := parseOptionalFloat(p.NumPeriodsLookback)
	if err != nil {
		return policy.Config{}, fmt.Errorf("numPeriodsLookback: %w", err)
	}
	discount, err := parseOptionalFloat(p.Discount)
	if err != nil {
		return policy.Config{}, fmt.Errorf("discount: %w", err)
	}
	return policy.Config{
		Type:               p.Type,
		Budget:             p.Budget,
		NumPeriodsLookback: lb,
		Discount:           discount,
		Recipient:          p.Recipient,
		Memo:               p.Memo,
	}, nil
}

// unmarshalDistribution decodes a DISTRIBUTION payload.
func unmarshalDistribution(data []byte) (Distribution, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw payloadJSON
	if err := dec.Decode(&raw); err != nil {
		return Distribution{}, fmt.Errorf("unmarshal distribution: %w", err)
	}
	if raw.Type != EventDistribution {
		return Distribution{}, fmt.Errorf("unmarshal distribution: unexpected event type %q", raw.Type)
	}

	d := Distribution{
		ID:          raw.ID,
		Currency:    raw.Currency,
		CredDigest:  raw.CredDigest,
		CreatedAt:   time.UnixMilli(raw.CreatedAt).UTC(),
		Allocations: make([]Allocation, len(raw.Allocations)),
	}
	for i, a := range raw.Allocations {
		cfg, err := a.Policy.config()
		if err != nil {
			return Distribution{}, fmt.Errorf("unmarshal distribution %s: allocation %s: %w", raw.ID, a.ID, err)
		}
		d.Allocations[i] = Allocation{ID: a.ID, Policy: cfg, Receipts: a.Receipts}
	}
	return d, nil
}
