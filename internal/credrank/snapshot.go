package credrank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roach88/grainrank/internal/canon"
	"github.com/roach88/grainrank/internal/errs"
	"github.com/roach88/grainrank/internal/graph"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// DigestDomain separates CredGraph digests from other canonical hashes.
const DigestDomain = "grainrank/credgraph/v1"

func formatFloat(f float64) canon.String {
	return canon.String(strconv.FormatFloat(f, 'g', -1, 64))
}

func floatArray(fs []float64) canon.Array {
	arr := make(canon.Array, len(fs))
	for i, f := range fs {
		arr[i] = formatFloat(f)
	}
	return arr
}

// toCanonical converts cg into a canonical value tree.
func (cg *CredGraph) toCanonical() canon.Object {
	boundaries := make(canon.Array, len(cg.boundaries))
	for i, b := range cg.boundaries {
		boundaries[i] = canon.Int(b)
	}

	participants := make(canon.Array, len(cg.participants))
	for i, p := range cg.participants {
		participants[i] = canon.Object{
			"id":          canon.String(p.ID),
			"description": canon.String(p.Description),
			"cred":        floatArray(p.Cred),
		}
	}

	edges := make(canon.Array, len(cg.edges))
	for i, e := range cg.edges {
		obj := canon.Object{
			"src":       canon.String(e.Src),
			"dst":       canon.String(e.Dst),
			"direction": canon.String(e.Direction),
			"flow":      floatArray(e.Flow),
		}
		if e.Timestamp != nil {
			obj["timestamp"] = canon.Int(*e.Timestamp)
		}
		edges[i] = obj
	}

	return canon.Object{
		"version":      canon.Int(SnapshotVersion),
		"boundaries":   boundaries,
		"participants": participants,
		"edges":        edges,
	}
}

// Marshal serializes cg to canonical JSON.
func (cg *CredGraph) Marshal() ([]byte, error) {
	data, err := canon.Marshal(cg.toCanonical())
	if err != nil {
		return nil, fmt.Errorf("marshal cred graph: %w", err)
	}
	return data, nil
}

// Digest returns a content hash of the snapshot form of cg.
func (cg *CredGraph) Digest() (string, error) {
	return canon.Digest(DigestDomain, cg.toCanonical())
}

type snapshotJSON struct {
	Version      int64                 `json:"version"`
	Boundaries   []int64               `json:"boundaries"`
	Participants []participantSnapshot `json:"participants"`
	Edges        []edgeSnapshot        `json:"edges"`
}

type participantSnapshot struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Cred        []string `json:"cred"`
}

type edgeSnapshot struct {
	Src       string          `json:"src"`
	Dst       string          `json:"dst"`
	Direction graph.Direction `json:"direction"`
	Timestamp *int64          `json:"timestamp"`
	Flow      []string        `json:"flow"`
}

func parseFloats(ss []string) ([]float64, error) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// Unmarshal parses a snapshot produced by Marshal.
func Unmarshal(data []byte) (*CredGraph, error) {
	// Reject anything canonical JSON forbids before decoding.
	if _, err := canon.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("unmarshal cred graph: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw snapshotJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal cred graph: %w", err)
	}
	if raw.Version != SnapshotVersion {
		return nil, fmt.Errorf("unmarshal cred graph: unsupported version %d", raw.Version)
	}
	if err := validateBoundaries(raw.Boundaries); err != nil {
		return nil, fmt.Errorf("unmarshal cred graph: %w", err)
	}

	n := len(raw.Boundaries)
	participants := make([]Participant, len(raw.Participants))
	seen := make(map[string]bool, len(raw.Participants))
	for i, p := range raw.Participants {
		if seen[p.ID] {
			return nil, errs.GraphIntegrity("unmarshal cred graph: duplicate participant %q", p.ID)
		}
		seen[p.ID] = true
		cred, err := parseFloats(p.Cred)
		if err != nil {
			return nil, fmt.Errorf("unmarshal cred graph: participant %q cred%w", p.ID, err)
		}
		if len(cred) != n {
			return nil, fmt.Errorf("unmarshal cred graph: participant %q has %d cred values for %d periods", p.ID, len(cred), n)
		}
		participants[i] = Participant{ID: p.ID, Description: p.Description, Cred: cred}
	}

	edges := make([]EdgeFlow, len(raw.Edges))
	for i, e := range raw.Edges {
		flow, err := parseFloats(e.Flow)
		if err != nil {
			return nil, fmt.Errorf("unmarshal cred graph: edge %s->%s flow%w", e.Src, e.Dst, err)
		}
		if len(flow) != n {
			return nil, fmt.Errorf("unmarshal cred graph: edge %s->%s has %d flow values for %d periods", e.Src, e.Dst, len(flow), n)
		}
		edges[i] = EdgeFlow{Src: e.Src, Dst: e.Dst, Direction: e.Direction, Timestamp: e.Timestamp, Flow: flow}
	}

	return newCredGraph(raw.Boundaries, participants, edges, nil), nil
}

// WriteFile writes the canonical snapshot of cg to path, creating parent
// directories as needed.
func WriteFile(path string, cg *CredGraph) error {
	data, err := cg.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write cred graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cred graph: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (*CredGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load cred graph: %w", err)
	}
	return Unmarshal(data)
}
