package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Rack is the live structural input to a generation run, as loaded from the
// relational layer. It is a read-only view; FromRack snapshots it into a
// GenerationIR without retaining any reference.
type Rack struct {
	ID       string
	Name     string
	CaseHP   int
	CaseRows int
	Modules  []RackModule
}

// RackModule is one module mounted in a Rack.
type RackModule struct {
	ID         string
	Name       string
	Type       string
	PositionHP int
	Row        int
}

// ModulePlacement is the IR snapshot of one module placement.
type ModulePlacement struct {
	ModuleID   string `json:"module_id"`
	ModuleName string `json:"module_name"`
	ModuleType string `json:"module_type"`
	PositionHP int    `json:"position_hp"`
	Row        int    `json:"row"`
}

// RackState is the IR snapshot of a rack's exact structural input.
// Modules are ordered by (row, position_hp, module_id) so that two
// snapshots of the same physical layout are identical regardless of the
// order the relational layer returned rows in.
type RackState struct {
	RackID       string            `json:"rack_id"`
	RackName     string            `json:"rack_name"`
	CaseHP       int               `json:"case_hp"`
	CaseRows     int               `json:"case_rows"`
	Modules      []ModulePlacement `json:"modules"`
	TotalModules int               `json:"total_modules"`
}

// TargetCategory models the three states of the target_category knob:
// absent, explicit null ("no category, on purpose"), and a concrete value.
// Absent and explicit null are distinct canonical forms and must remain
// distinct across serialization round trips.
type TargetCategory struct {
	Present bool
	IsNull  bool
	Value   string
}

// Category returns a concrete target category.
func Category(v string) TargetCategory {
	return TargetCategory{Present: true, Value: v}
}

// NullCategory returns an explicit-null target category.
func NullCategory() TargetCategory {
	return TargetCategory{Present: true, IsNull: true}
}

// NoCategory returns an absent target category.
func NoCategory() TargetCategory {
	return TargetCategory{}
}

// Params holds the generation knobs. Together with the rack state and seed
// they fully determine generation output.
//
// Extra is the forward-compatibility escape hatch: unknown fields survive
// round trips and participate in the canonical hash, so an IR produced by
// a newer engine still fingerprints consistently when handled here.
type Params struct {
	MaxPatches     int
	AllowFeedback  bool
	PreferSimple   bool
	TargetCategory TargetCategory
	Extra          map[string]json.RawMessage
}

// MarshalJSON implements json.Marshaler. target_category is emitted only
// when present; explicit null is emitted as null.
func (p Params) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"max_patches":    p.MaxPatches,
		"allow_feedback": p.AllowFeedback,
		"prefer_simple":  p.PreferSimple,
	}
	if p.TargetCategory.Present {
		if p.TargetCategory.IsNull {
			fields["target_category"] = nil
		} else {
			fields["target_category"] = p.TargetCategory.Value
		}
	}
	for k, raw := range p.Extra {
		if _, taken := fields[k]; !taken {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler, preserving the distinction
// between an absent target_category and an explicit null, and routing
// unknown fields into Extra.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Params{}
	for key, val := range raw {
		switch key {
		case "max_patches":
			if err := json.Unmarshal(val, &p.MaxPatches); err != nil {
				return fmt.Errorf("params.max_patches: %w", err)
			}
		case "allow_feedback":
			if err := json.Unmarshal(val, &p.AllowFeedback); err != nil {
				return fmt.Errorf("params.allow_feedback: %w", err)
			}
		case "prefer_simple":
			if err := json.Unmarshal(val, &p.PreferSimple); err != nil {
				return fmt.Errorf("params.prefer_simple: %w", err)
			}
		case "target_category":
			if bytes.Equal(val, []byte("null")) {
				p.TargetCategory = NullCategory()
				break
			}
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("params.target_category: %w", err)
			}
			p.TargetCategory = Category(s)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = val
		}
	}
	return nil
}

// canonicalValue builds the canonical Object for Params.
// Absent target_category contributes no key; explicit null contributes Null.
func (p Params) canonicalValue() (Object, error) {
	obj := Object{
		"max_patches":    Int(p.MaxPatches),
		"allow_feedback": Bool(p.AllowFeedback),
		"prefer_simple":  Bool(p.PreferSimple),
	}
	if p.TargetCategory.Present {
		if p.TargetCategory.IsNull {
			obj["target_category"] = Null{}
		} else {
			obj["target_category"] = String(p.TargetCategory.Value)
		}
	}
	for k, raw := range p.Extra {
		if _, taken := obj[k]; taken {
			continue
		}
		v, err := UnmarshalValue(raw)
		if err != nil {
			return nil, serErr(joinPath("params", k), "%v", err)
		}
		obj[k] = v
	}
	return obj, nil
}

// GenerationIR is the typed, serializable snapshot of a generation run's
// inputs. It is immutable after creation and reconstructable byte-for-byte
// from its serialized form.
type GenerationIR struct {
	RunID          string    `json:"run_id"`
	RackState      RackState `json:"rack_state"`
	Seed           int64     `json:"seed"`
	Params         Params    `json:"params"`
	EngineVersion  string    `json:"engine_version"`
	ABXCoreVersion string    `json:"abx_core_version"`
	CreatedAt      time.Time `json:"created_at"`
	GitCommit      string    `json:"git_commit,omitempty"`
	Host           string    `json:"host,omitempty"`
}

// SnapshotRack builds the ordered RackState snapshot of a live rack.
// Pure: no I/O, no clock, no randomness.
func SnapshotRack(rack Rack) RackState {
	modules := make([]ModulePlacement, len(rack.Modules))
	for i, m := range rack.Modules {
		modules[i] = ModulePlacement{
			ModuleID:   m.ID,
			ModuleName: m.Name,
			ModuleType: m.Type,
			PositionHP: m.PositionHP,
			Row:        m.Row,
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Row != modules[j].Row {
			return modules[i].Row < modules[j].Row
		}
		if modules[i].PositionHP != modules[j].PositionHP {
			return modules[i].PositionHP < modules[j].PositionHP
		}
		return modules[i].ModuleID < modules[j].ModuleID
	})

	return RackState{
		RackID:       rack.ID,
		RackName:     rack.Name,
		CaseHP:       rack.CaseHP,
		CaseRows:     rack.CaseRows,
		Modules:      modules,
		TotalModules: len(modules),
	}
}

// FromRack builds a GenerationIR from a live rack and the run's inputs.
// runID is assigned by the caller (typically a UUIDv7 from RunIDGenerator)
// so that this function stays deterministic for a fixed runID and clock
// reading. An empty rack is valid and hashes deterministically.
func FromRack(rack Rack, seed int64, params Params, runID string, createdAt time.Time) GenerationIR {
	return GenerationIR{
		RunID:          runID,
		RackState:      SnapshotRack(rack),
		Seed:           seed,
		Params:         params,
		EngineVersion:  EngineVersion,
		ABXCoreVersion: ABXCoreVersion,
		CreatedAt:      createdAt.UTC(),
	}
}

// Serialize encodes the IR to its stable JSON form.
func (g GenerationIR) Serialize() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("serialize generation IR: %w", err)
	}
	return data, nil
}

// DeserializeGenerationIR decodes an IR from its serialized form.
// Round-trip law: DeserializeGenerationIR(ir.Serialize()) equals ir in
// every field, including nested module lists and the explicit-null versus
// absent distinction on target_category.
func DeserializeGenerationIR(data []byte) (GenerationIR, error) {
	var g GenerationIR
	if err := json.Unmarshal(data, &g); err != nil {
		return GenerationIR{}, fmt.Errorf("deserialize generation IR: %w", err)
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

// CanonicalHash computes the IR's deduplication fingerprint over
// (rack_id, seed, params) only. Two IRs for the same rack, seed, and
// params hash identically no matter when or where they were created;
// timestamps, hosts, and version stamps do not participate.
func (g GenerationIR) CanonicalHash() (string, error) {
	params, err := g.Params.canonicalValue()
	if err != nil {
		return "", err
	}
	obj := Object{
		"rack_id": String(g.RackState.RackID),
		"seed":    Int(g.Seed),
		"params":  params,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainIR, canonical), nil
}
