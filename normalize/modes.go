package normalize

import (
	"fmt"

	"github.com/hupe1980/fvapprox/model"
)

// SqrtMode selects how signed square-rooting is applied.
type SqrtMode uint8

const (
	// SqrtNone leaves values unchanged.
	SqrtNone SqrtMode = iota
	// SqrtExact applies sign(x)·sqrt(|x|) elementwise.
	SqrtExact
	// SqrtApprox divides each visual word block by the square root of its count.
	SqrtApprox
)

// L2Mode selects how L2 normalization is applied.
type L2Mode uint8

const (
	// L2None leaves values unchanged.
	L2None L2Mode = iota
	// L2Exact divides each row by its Euclidean norm.
	L2Exact
	// L2Approx divides each row by the per-visual-word approximate norm.
	L2Approx
)

// PredictionMode selects how test videos are scored.
type PredictionMode uint8

const (
	// PredictExact materializes and normalizes video vectors.
	PredictExact PredictionMode = iota
	// PredictApprox scores from per-visual-word slice statistics.
	PredictApprox
)

var (
	sqrtNames = map[SqrtMode]string{SqrtNone: "none", SqrtExact: "exact", SqrtApprox: "approx"}
	l2Names   = map[L2Mode]string{L2None: "none", L2Exact: "exact", L2Approx: "approx"}
	predNames = map[PredictionMode]string{PredictExact: "exact", PredictApprox: "approx"}
)

func parse[M comparable](axis, s string, names map[M]string) (M, error) {
	for m, name := range names {
		if name == s {
			return m, nil
		}
	}
	var zero M
	return zero, fmt.Errorf("%w: %s mode %q", model.ErrUnknownMode, axis, s)
}

func name[M ~uint8](axis string, m M, names map[M]string) string {
	if s, ok := names[m]; ok {
		return s
	}
	return fmt.Sprintf("%s(%d)", axis, uint8(m))
}

func validate[M ~uint8](axis string, m M, names map[M]string) error {
	if _, ok := names[m]; !ok {
		return fmt.Errorf("%w: %s mode %d", model.ErrUnknownMode, axis, uint8(m))
	}
	return nil
}

// ParseSqrtMode parses "none", "exact" or "approx".
func ParseSqrtMode(s string) (SqrtMode, error) { return parse("sqrt", s, sqrtNames) }

// ParseL2Mode parses "none", "exact" or "approx".
func ParseL2Mode(s string) (L2Mode, error) { return parse("l2", s, l2Names) }

// ParsePredictionMode parses "exact" or "approx".
func ParsePredictionMode(s string) (PredictionMode, error) {
	return parse("prediction", s, predNames)
}

func (m SqrtMode) String() string       { return name("sqrt", m, sqrtNames) }
func (m L2Mode) String() string         { return name("l2", m, l2Names) }
func (m PredictionMode) String() string { return name("prediction", m, predNames) }

// Validate rejects values outside the declared variants.
func (m SqrtMode) Validate() error { return validate("sqrt", m, sqrtNames) }

// Validate rejects values outside the declared variants.
func (m L2Mode) Validate() error { return validate("l2", m, l2Names) }

// Validate rejects values outside the declared variants.
func (m PredictionMode) Validate() error { return validate("prediction", m, predNames) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SqrtMode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseSqrtMode(string(b))
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *L2Mode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseL2Mode(string(b))
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PredictionMode) UnmarshalText(b []byte) (err error) {
	*m, err = ParsePredictionMode(string(b))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (m SqrtMode) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (m L2Mode) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (m PredictionMode) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}
