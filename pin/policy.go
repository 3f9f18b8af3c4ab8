package pin

import (
	"errors"
	"fmt"
)

// ErrPolicy is returned when a PIN does not satisfy the configured [Policy].
var ErrPolicy = errors.New("pin policy violation")

// Policy bounds the accepted PIN shape: ASCII digits only, length between
// MinDigits and MaxDigits inclusive.
type Policy struct {
	MinDigits int
	MaxDigits int
}

// DefaultPolicy accepts 4 to 6 digit PINs.
func DefaultPolicy() Policy {
	return Policy{MinDigits: 4, MaxDigits: 6}
}

// Check reports whether value satisfies p.
func (p Policy) Check(value string) error {
	if len(value) < p.MinDigits || len(value) > p.MaxDigits {
		return fmt.Errorf("%w: pin must be %d to %d digits", ErrPolicy, p.MinDigits, p.MaxDigits)
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return fmt.Errorf("%w: pin must contain digits only", ErrPolicy)
		}
	}
	return nil
}

func (p Policy) validate() error {
	if p.MinDigits < 4 {
		return errors.New("pin MinDigits must be >= 4")
	}
	if p.MaxDigits < p.MinDigits {
		return errors.New("pin MaxDigits must be >= MinDigits")
	}
	if p.MaxDigits > 12 {
		return errors.New("pin MaxDigits must be <= 12")
	}
	return nil
}
