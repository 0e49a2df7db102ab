// Package eyepiece renders star fields as seen through a telescope.
//
// A Field composes per-star point spread functions from the pupil geometry
// and an optional atmosphere: Kolmogorov seeing, either raw or corrected by
// a natural guide star or laser tomography adaptive optics model. Star
// fluxes follow the photometric band zero points, photon noise is drawn per
// pixel on demand, and frames save to PNG or FITS. The ifu subpackage
// measures the flux fraction passing integral field unit apertures.
package eyepiece
