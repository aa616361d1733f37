package primitive

import (
	"fmt"
	"math/rand"
)

// Set is the immutable, ordered collection of primitives and terminal
// kinds available to a GP run. Built once at engine construction time.
type Set struct {
	operators    []*Primitive
	functions    []*Primitive
	nFeatures    int
	variableName []string // index -> sanitized display name
}

// NewSet validates the requested operator/function names against the
// protected tables and builds an immutable primitive set for nFeatures
// input columns with the given (possibly empty) display names.
func NewSet(operatorNames, functionNames []string, nFeatures int, variableNames []string) (*Set, error) {
	if nFeatures <= 0 {
		return nil, fmt.Errorf("primitive: nFeatures must be positive, got %d", nFeatures)
	}

	s := &Set{nFeatures: nFeatures}

	for _, name := range operatorNames {
		p, ok := Operators[name]
		if !ok {
			return nil, fmt.Errorf("primitive: unknown operator %q", name)
		}
		s.operators = append(s.operators, p)
	}
	for _, name := range functionNames {
		p, ok := Functions[name]
		if !ok {
			return nil, fmt.Errorf("primitive: unknown function %q", name)
		}
		s.functions = append(s.functions, p)
	}
	if len(s.operators)+len(s.functions) == 0 {
		return nil, fmt.Errorf("primitive: at least one operator or function is required")
	}

	s.variableName = make([]string, nFeatures)
	for i := 0; i < nFeatures; i++ {
		raw := ""
		if i < len(variableNames) {
			raw = variableNames[i]
		}
		if raw == "" {
			raw = fmt.Sprintf("x%d", i)
		}
		s.variableName[i] = SanitizeName(raw, i)
	}

	return s, nil
}

// Primitives returns every internal-node building block (operators then
// functions), in registration order.
func (s *Set) Primitives() []*Primitive {
	all := make([]*Primitive, 0, len(s.operators)+len(s.functions))
	all = append(all, s.operators...)
	all = append(all, s.functions...)
	return all
}

// NFeatures returns the number of input columns this set was built for.
func (s *Set) NFeatures() int { return s.nFeatures }

// VariableName returns the sanitized display name for column i.
func (s *Set) VariableName(i int) string { return s.variableName[i] }

// RandomPrimitive returns a uniformly chosen internal-node primitive.
func (s *Set) RandomPrimitive(rng *rand.Rand) *Primitive {
	all := s.Primitives()
	return all[rng.Intn(len(all))]
}

// RandomTerminal returns a uniformly chosen terminal: with probability
// 1/(nFeatures+1) an ephemeral constant, otherwise a uniformly chosen
// variable reference.
func (s *Set) RandomTerminal(rng *rand.Rand) Terminal {
	if rng.Intn(s.nFeatures+1) == s.nFeatures {
		return NewEphemeralConstant(rng)
	}
	i := rng.Intn(s.nFeatures)
	return Terminal{Kind: VariableTerminal, VarIndex: i, Name: s.variableName[i]}
}
