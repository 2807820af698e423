package models

import "fmt"

// Covariate names a pre-treatment field of an observation.
type Covariate string

const (
	Covariate1 Covariate = "covariate_1"
	Covariate2 Covariate = "covariate_2"
)

// AllCovariates lists every covariate in design-matrix order.
var AllCovariates = []Covariate{Covariate1, Covariate2}

// Valid returns true if the covariate is a recognized field name.
func (c Covariate) Valid() bool {
	return c == Covariate1 || c == Covariate2
}

// String returns the field name.
func (c Covariate) String() string {
	return string(c)
}

// Covariates holds the pre-treatment measurements of one unit.
type Covariates struct {
	Covariate1 float64 `json:"covariate_1" yaml:"covariate_1"`
	Covariate2 float64 `json:"covariate_2" yaml:"covariate_2"`
}

// Value returns the measurement for the named covariate.
func (c Covariates) Value(name Covariate) (float64, error) {
	switch name {
	case Covariate1:
		return c.Covariate1, nil
	case Covariate2:
		return c.Covariate2, nil
	}
	return 0, fmt.Errorf("%w: unknown covariate %q", ErrInvalidInput, name)
}

// Observation is one simulated unit. Treatment is 0 or 1.
type Observation struct {
	Covariates
	Treatment int     `json:"treatment" yaml:"treatment"`
	Outcome   float64 `json:"outcome" yaml:"outcome"`
}

// Treated reports whether the unit received treatment.
func (o Observation) Treated() bool {
	return o.Treatment == 1
}

// Dataset is the set of observations for one replicate. Every computation
// over a Dataset is a symmetric reduction, so order carries no meaning.
type Dataset []Observation

// Len returns the number of observations.
func (d Dataset) Len() int {
	return len(d)
}

// TreatedCount returns the number of treated units.
func (d Dataset) TreatedCount() int {
	n := 0
	for _, o := range d {
		if o.Treated() {
			n++
		}
	}
	return n
}

// TreatedFraction returns mean(A), or 0 for an empty dataset.
func (d Dataset) TreatedFraction() float64 {
	if len(d) == 0 {
		return 0
	}
	return float64(d.TreatedCount()) / float64(len(d))
}

// Validate checks that the dataset is non-empty and every treatment is 0 or 1.
func (d Dataset) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty dataset", ErrInvalidInput)
	}
	for i, o := range d {
		if o.Treatment != 0 && o.Treatment != 1 {
			return fmt.Errorf("%w: observation %d has treatment %d", ErrInvalidInput, i, o.Treatment)
		}
	}
	return nil
}

// ValidateCovariates checks a caller-supplied covariate subset: it must be
// non-empty, contain only known names, and contain no duplicates.
func ValidateCovariates(covs []Covariate) error {
	if len(covs) == 0 {
		return fmt.Errorf("%w: empty covariate set", ErrInvalidInput)
	}
	seen := make(map[Covariate]bool, len(covs))
	for _, c := range covs {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown covariate %q", ErrInvalidInput, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate covariate %q", ErrInvalidInput, c)
		}
		seen[c] = true
	}
	return nil
}
