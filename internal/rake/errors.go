package rake

import "errors"

// ErrConfig marks configuration failures: bad finger counts, mismatched
// delay/gain arrays, wrong pattern lengths, out-of-range thresholds. The
// offending call leaves receiver state unchanged; callers check with
// errors.Is(err, ErrConfig).
var ErrConfig = errors.New("invalid receiver configuration")
