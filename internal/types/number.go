// README: Decoding of stored integers that older writers may have saved as doubles.
package types

import (
	"errors"
	"fmt"
	"math"
)

var ErrNotWholeNumber = errors.New("stored value is not a whole number")

// WholeNumber reads an integer field from a decoded document. Doubles are accepted when
// they carry no fraction; missing values, strings and anything else are errors.
func WholeNumber(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("%w: %v", ErrNotWholeNumber, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %T %v", ErrNotWholeNumber, v, v)
	}
}
