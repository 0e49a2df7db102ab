package eyepiece

import "errors"

// Sentinel errors returned by builders, renderers and masks. Callers match
// them with errors.Is; wrapped forms carry the offending values.
var (
	// ErrInvalidGeometry reports a pupil that cannot be sampled, such as a
	// non-positive diameter or a sampling step coarser than the pupil itself.
	ErrInvalidGeometry = errors.New("invalid pupil geometry")

	// ErrUnknownPreset reports a telescope name outside the preset table.
	ErrUnknownPreset = errors.New("unknown telescope preset")

	// ErrInvalidParameter reports an out-of-range atmosphere or AO setting.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyField reports a render with no stars left after filtering.
	ErrEmptyField = errors.New("empty star field")

	// ErrNegativeExpectation reports a negative expected photon count handed
	// to the noise model.
	ErrNegativeExpectation = errors.New("negative expected photon count")

	// ErrGeometryOutOfBounds reports a focal-plane mask that extends past the
	// image it is applied to.
	ErrGeometryOutOfBounds = errors.New("mask geometry out of bounds")
)
