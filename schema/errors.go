package schema

import "github.com/cockroachdb/errors"

// ErrCorruption marks every violation of the on-disk format: a mismatching
// header constant, unordered lookup tables, offsets outside their region or a
// truncated structure.
var ErrCorruption = errors.New("wavdump: corrupt dump")

// CorruptionErrorf formats an error and marks it as ErrCorruption.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// IsCorruptionError reports whether err was produced by a format violation.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}
