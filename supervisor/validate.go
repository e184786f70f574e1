package supervisor

import (
	"math"
	"path/filepath"
	"strings"
)

// maxFiniteMagnitude mirrors the original controller's FLT_MAX bound: a
// value is accepted as "finite" only if it is not NaN, not +/-Inf, and
// within the range a 32-bit float could have represented, since the
// wire value ultimately narrows to single precision on the simulator
// side.
const maxFiniteMagnitude = math.MaxFloat32

// isFinite reports whether v is safe to send across the wire as a
// scalar field value.
func isFinite(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v) <= maxFiniteMagnitude
}

func validateFinite(fn string, v float64) error {
	if !isFinite(v) {
		return newValidationError(fn, ValidationNotFinite, "value is not finite")
	}
	return nil
}

func validateFiniteSlice(fn string, vs []float64) error {
	for _, v := range vs {
		if err := validateFinite(fn, v); err != nil {
			return err
		}
	}
	return nil
}

// validateRotationAxis enforces that a rotation field's axis component
// (the first three elements) is not the zero vector: a zero axis has no
// well-defined angle and the simulator rejects it silently, so the
// engine catches it locally instead of wasting a round trip.
func validateRotationAxis(fn string, r [4]float64) error {
	if err := validateFiniteSlice(fn, r[:]); err != nil {
		return err
	}
	if r[0] == 0 && r[1] == 0 && r[2] == 0 {
		return newValidationError(fn, ValidationZeroAxis, "rotation axis must be non-zero")
	}
	return nil
}

// validateUnitRange enforces that v lies in [0, 1], used by
// wb_supervisor_set_label for its x, y, size, and transparency
// arguments (spec.md §8's boundary behavior).
func validateUnitRange(fn, name string, v float64) error {
	if !isFinite(v) || v < 0 || v > 1 {
		return newValidationError(fn, ValidationOutOfRange, name+" must be in [0, 1]")
	}
	return nil
}

// validateColor enforces the [0, 1] range the simulator requires for
// every RGB channel of a color field.
func validateColor(fn string, c [3]float64) error {
	for _, ch := range c {
		if !isFinite(ch) || ch < 0 || ch > 1 {
			return newValidationError(fn, ValidationOutOfRange, "color channel must be in [0, 1]")
		}
	}
	return nil
}

// validateIndex normalizes and bounds-checks an MF field index. Negative
// indices count from the end of the array (-1 is the last element),
// matching the original's index normalization rule; an index that is
// still out of range after normalization is rejected.
func validateIndex(fn string, index int, count int) (int, error) {
	normalized := index
	if normalized < 0 {
		normalized += count
	}
	if normalized < 0 || normalized >= count {
		return 0, newValidationError(fn, ValidationIndexBounds, "index out of range")
	}
	return normalized, nil
}

// validateInsertIndex is the insertion variant of validateIndex: an
// insert at index == count (append) is always valid, so the upper bound
// is inclusive.
func validateInsertIndex(fn string, index int, count int) (int, error) {
	normalized := index
	if normalized < 0 {
		normalized += count + 1
	}
	if normalized < 0 || normalized > count {
		return 0, newValidationError(fn, ValidationIndexBounds, "insertion index out of range")
	}
	return normalized, nil
}

// validateExtension checks that path has one of the allowed extensions
// (case-insensitive), used for the file-format gates in spec.md §6:
// export-image wants an image extension, world-save wants .wbt, and
// SF node import wants .wbo, and MF node import wants .wbo or .wrl.
func validateExtension(fn, path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return newValidationError(fn, ValidationBadExtension, "unsupported file extension: "+ext)
}

// validateFieldType checks that a field's declared type matches the
// type the caller is attempting to read or write it as.
func validateFieldType(fn string, f *Field, want FieldType) error {
	if f.Type != want {
		return newValidationError(fn, ValidationTypeMismatch, "field type mismatch: have "+f.Type.String()+", want "+want.String())
	}
	return nil
}
