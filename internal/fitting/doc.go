// Package fitting implements nonlinear least-squares estimation of the Hill
// and Quadratic (ligand-depletion) binding models over an aggregated
// concentration-response series.
//
// The optimizer is a Levenberg-Marquardt loop with a forward-difference
// Jacobian, box bounds enforced by step projection, and explicit iteration
// and tolerance limits. Parameter standard errors come from the scaled
// inverse of J'J at the solution; a singular covariance yields NaN standard
// errors rather than a failed fit.
//
// Failure modes are typed: INSUFFICIENT_DATA before any optimization when a
// series has fewer points than free parameters, INVALID_CONFIGURATION for
// bad guesses or a non-positive target concentration, and FIT_NOT_CONVERGED
// (carrying the last estimate and iteration count) when the iteration budget
// runs out or the search goes non-finite. A convergence failure is never
// reported as a converged fit with poor parameters.
package fitting
