package reference

import (
	"context"
	"strings"
)

// StaticSource serves a small built-in table keyed by name or formula.
type StaticSource struct {
	byKey map[string]Compound
}

var builtin = []Compound{
	{Name: "Water", Formula: "H2O", MolarMass: 18.015, Polar: true, Description: "Bent polar molecule; universal solvent."},
	{Name: "Sodium chloride", Formula: "NaCl", MolarMass: 58.44, Polar: true, Description: "Ionic solid; table salt."},
	{Name: "Carbon dioxide", Formula: "CO2", MolarMass: 44.009, Polar: false, Description: "Linear, nonpolar gas."},
	{Name: "Methane", Formula: "CH4", MolarMass: 16.04, Polar: false, Description: "Simplest alkane; tetrahedral."},
	{Name: "Ammonia", Formula: "NH3", MolarMass: 17.031, Polar: true, Description: "Trigonal pyramidal weak base."},
	{Name: "Ethanol", Formula: "C2H5OH", MolarMass: 46.07, Polar: true, Description: "Primary alcohol; hydrogen bonds."},
	{Name: "Benzene", Formula: "C6H6", MolarMass: 78.11, Polar: false, Description: "Planar aromatic ring."},
	{Name: "Sulfuric acid", Formula: "H2SO4", MolarMass: 98.079, Polar: true, Description: "Strong diprotic acid."},
}

func NewStaticSource(extra ...Compound) *StaticSource {
	s := &StaticSource{byKey: make(map[string]Compound)}
	for _, c := range append(append([]Compound(nil), builtin...), extra...) {
		s.byKey[key(c.Name)] = c
		s.byKey[key(c.Formula)] = c
	}
	return s
}

func (s *StaticSource) Find(_ context.Context, name string) (*Compound, error) {
	c, ok := s.byKey[key(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}
