// internal/rating/glicko2.go
package rating

import "math"

const (
	// glickoScale converts between the 1500-based scale and Glicko2's mu.
	glickoScale = 173.7178
	// DefaultElo is the baseline rating for an unrated player.
	DefaultElo = 1500.0
	// DefaultRD is the baseline rating deviation.
	DefaultRD = 350.0
	// DefaultSigma is the baseline volatility.
	DefaultSigma = 0.06
	// tau constrains volatility changes between matches.
	tau = 0.5
	// epsilon is the iteration stopping tolerance.
	epsilon = 0.000001
)

// glicko2 holds a rating in Glicko2 space: mu, deviation phi and
// volatility sigma.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func toGlicko2(elo, rd, sigma float64) glicko2 {
	return glicko2{mu: (elo - DefaultElo) / glickoScale, phi: rd / glickoScale, sigma: sigma}
}

func (r glicko2) toElo() float64 {
	return r.mu*glickoScale + DefaultElo
}

// update performs a single-match Glicko2 update for r against opp, with
// score 1 for a win and 0 for a loss.
func update(r, opp glicko2, score float64) glicko2 {
	gVal := g(opp.phi)
	eVal := expected(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	a := math.Log(r.sigma * r.sigma)
	bigA := a
	var bigB float64
	if delta*delta > r.phi*r.phi+v {
		bigB = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for volatilityF(a-k*tau, r.phi, v, delta, bigA) < 0 {
			k++
		}
		bigB = a - k*tau
	}

	fA := func(x float64) float64 { return volatilityF(x, r.phi, v, delta, bigA) }
	fB := fA(bigB)
	for i := 0; i < 100; i++ {
		fAVal := fA(bigA)
		if math.Abs(fAVal) < epsilon {
			break
		}
		prev := bigA
		bigA = prev - fAVal*(prev-bigB)/(fAVal-fB)
		fB = fA(bigB)
		if math.Abs(bigA-bigB) < epsilon {
			break
		}
	}

	newSigma := math.Exp(bigA / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-eVal)

	return glicko2{mu: muPrime, phi: phiPrime, sigma: newSigma}
}

func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

func expected(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

func volatilityF(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (tau * tau))
}
