package optics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PhaseSpace holds the second-moment description of a Gaussian transverse
// beam distribution along one axis, at a fixed axial plane: the beam size
// sigma (mm), the angular divergence sigma' (rad) and the position-angle
// covariance (mm rad). The x and y axes of a beam each get their own
// PhaseSpace; they are never mixed.
type PhaseSpace struct {
	Sigma      float64
	SigmaPrime float64
	Cov        float64
}

// negTol is the relative tolerance under which a negative propagated variance
// is attributed to floating point cancellation and clamped to zero. Anything
// more negative means the input moments or the drift distance are inconsistent.
const negTol = 1e-9

// Drift propagates p through field-free space over the distance d, in the
// units of p.Sigma (mm here). The paraxial transfer matrix for a drift is
// M = [[1,d],[0,1]], and the second moments transform as the congruence
// M Sigma M^T, which in components reads
//
//	sigma_new^2  = sigma^2 + 2 d cov + d^2 sigma'^2
//	cov_new      = cov + d sigma'^2
//	sigma'_new   = sigma'
//
// d may be negative (propagating toward the source); the map is its own
// inverse under d -> -d. A propagated variance that comes out negative beyond
// rounding tolerance means the caller fed an unphysical descriptor or a drift
// with the wrong sign, and is returned as an ErrInvalidTransport error.
func Drift(p PhaseSpace, d float64) (PhaseSpace, error) {
	sp2 := p.SigmaPrime * p.SigmaPrime
	s2 := p.Sigma*p.Sigma + 2*d*p.Cov + d*d*sp2
	if s2 < 0 {
		scale := p.Sigma*p.Sigma + math.Abs(2*d*p.Cov) + d*d*sp2
		if s2 < -negTol*scale {
			return PhaseSpace{}, Error{ErrInvalidTransport,
				fmt.Sprintf("variance %g after drift of %g mm from (sigma=%g, sigma'=%g, cov=%g)",
					s2, d, p.Sigma, p.SigmaPrime, p.Cov),
				[]string{"Drift"}, true}
		}
		s2 = 0
	}
	return PhaseSpace{
		Sigma:      math.Sqrt(s2),
		SigmaPrime: p.SigmaPrime,
		Cov:        p.Cov + d*sp2,
	}, nil
}

// Matrix returns the 2x2 covariance matrix of the descriptor,
// [[sigma^2, cov], [cov, sigma'^2]].
func (p PhaseSpace) Matrix() *mat.SymDense {
	m := mat.NewSymDense(2, nil)
	m.SetSym(0, 0, p.Sigma*p.Sigma)
	m.SetSym(0, 1, p.Cov)
	m.SetSym(1, 1, p.SigmaPrime*p.SigmaPrime)
	return m
}

// Correlation returns the unitless position-angle correlation
// cov/(sigma sigma'), or 0 for a degenerate descriptor. This is what
// emittance-style Monte Carlo sources take as their correlation parameter.
func (p PhaseSpace) Correlation() float64 {
	den := p.Sigma * p.SigmaPrime
	if den == 0 {
		return 0
	}
	return p.Cov / den
}
