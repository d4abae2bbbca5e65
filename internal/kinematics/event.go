package kinematics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-hep.org/x/hep/fmom"
)

// Lepton is the charged lepton of a lepton+jets event.
type Lepton struct {
	p4     fmom.PxPyPzE
	charge int
}

// NewLepton builds a lepton from its three-momentum, mass and charge (+1/-1).
func NewLepton(px, py, pz, m float64, charge int) Lepton {
	return Lepton{p4: massive(px, py, pz, m), charge: charge}
}

func (l Lepton) P4() fmom.PxPyPzE { return l.p4 }
func (l Lepton) Charge() int      { return l.charge }
func (l Lepton) Pt() float64      { return Pt(l.p4) }
func (l Lepton) M() float64       { return Mass(l.p4) }

// Scaled returns a lepton with momentum multiplied by f (mass kept).
func (l Lepton) Scaled(f float64) Lepton {
	return Lepton{p4: massive(f*l.p4.Px(), f*l.p4.Py(), f*l.p4.Pz(), l.M()), charge: l.charge}
}

type leptonJSON struct {
	Px     float64 `json:"px"`
	Py     float64 `json:"py"`
	Pz     float64 `json:"pz"`
	M      float64 `json:"m"`
	Charge int     `json:"charge"`
}

func (l Lepton) MarshalJSON() ([]byte, error) {
	return json.Marshal(leptonJSON{Px: l.p4.Px(), Py: l.p4.Py(), Pz: l.p4.Pz(), M: l.M(), Charge: l.charge})
}

func (l *Lepton) UnmarshalJSON(data []byte) error {
	var raw leptonJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Charge != 1 && raw.Charge != -1 {
		return fmt.Errorf("lepton charge must be +1 or -1, got %d", raw.Charge)
	}
	*l = NewLepton(raw.Px, raw.Py, raw.Pz, raw.M, raw.Charge)
	return nil
}

// Event is one reconstructed lepton+jets candidate.
type Event struct {
	ID         string  `json:"id"`
	Jets       []Jet   `json:"jets"`
	Lepton     Lepton  `json:"lepton"`
	BQuarkMass float64 `json:"b_quark_mass,omitempty"`
}

// Validate checks the jet multiplicity and basic kinematics.
func (e *Event) Validate() error {
	if n := len(e.Jets); n < 3 || n > 5 {
		return fmt.Errorf("event %q: need 3 to 5 jets, got %d", e.ID, n)
	}
	for i, j := range e.Jets {
		if !j.Extra() && j.P() <= 0 {
			return fmt.Errorf("event %q: jet %d has zero momentum", e.ID, i)
		}
	}
	if e.Lepton.Pt() <= 0 {
		return fmt.Errorf("event %q: lepton has zero transverse momentum", e.ID)
	}
	if e.BQuarkMass < 0 {
		return fmt.Errorf("event %q: b_quark_mass must be non-negative", e.ID)
	}
	return nil
}

// LoadEvents reads a JSON array of events from path.
func LoadEvents(path string) ([]Event, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("event file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events JSON: %w", err)
	}
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = fmt.Sprintf("event-%04d", i)
		}
		if err := events[i].Validate(); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// WriteEvents writes events as an indented JSON array.
func WriteEvents(path string, events []Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write event file: %w", err)
	}
	return nil
}
