package grid

import (
	"math"

	"github.com/dot5enko/wavdump/schema"
)

// pressureScale is one atmosphere; pressures are stored in this unit.
const pressureScale = 1.01325e5

// Physics describes a planar shock running into a liquid with gas bubbles.
// Material 1 is the liquid, material 2 the gas.
type Physics struct {
	Rho0, U0, P0 float64
	RhoB, PB     float64

	Gamma1, Pc1 float64
	Gamma2, Pc2 float64

	PressureRatio float64
	// ShockX is the shock position along x, the post-shock state lies below it.
	ShockX float64
	// Smoothing is the interface half-width in cells.
	Smoothing float64
}

func DefaultPhysics() Physics {
	return Physics{
		Rho0:          1000,
		U0:            0,
		P0:            101325 / pressureScale,
		RhoB:          1,
		PB:            101325 / pressureScale,
		Gamma1:        6.12,
		Pc1:           3.43e8 / pressureScale,
		Gamma2:        1.4,
		Pc2:           0,
		PressureRatio: 400,
		ShockX:        0.05,
		Smoothing:     1.5,
	}
}

// PostShock is the state behind a normal shock moving in +x through
// material 1 at rest.
type PostShock struct {
	Rho, U, P float64
	Mach      float64
}

func (ph Physics) PostShock() PostShock {
	g, pc, p0 := ph.Gamma1, ph.Pc1, ph.P0
	psi := ph.PressureRatio
	p1 := p0 * psi

	tmp1 := (g + 1) / (g - 1)
	tmp2 := (p1 + pc) / (p0 + pc)

	c0 := math.Sqrt(g * (p0 + pc) / ph.Rho0)
	mach := math.Sqrt((g+1)/(2*g)*(psi-1)*p0/(p0+pc) + 1)

	return PostShock{
		Rho:  ph.Rho0 * (tmp1*tmp2 + 1) / (tmp1 + tmp2),
		U:    ph.U0 + c0*(psi-1)*p0/(g*(p0+pc)*mach),
		P:    p1,
		Mach: mach,
	}
}

// Bubble is a spherical gas inclusion.
type Bubble struct {
	Center [3]float64
	Radius float64
}

type state struct {
	rho, u, p float64
	gamma, pc float64
}

func (s state) conserved() (rho, ru, e, G, P float64) {
	G = 1 / (s.gamma - 1)
	P = s.gamma * s.pc * G
	return s.rho, s.rho * s.u, s.p*G + P + 0.5*s.rho*s.u*s.u, G, P
}

func mix(a, b state, alpha float64) state {
	l := func(x, y float64) float64 { return x*(1-alpha) + y*alpha }
	return state{
		rho:   l(a.rho, b.rho),
		u:     l(a.u, b.u),
		p:     l(a.p, b.p),
		gamma: 1 + 1/l(1/(a.gamma-1), 1/(b.gamma-1)),
		pc:    l(a.pc, b.pc),
	}
}

// heaviside is a smoothed step of the signed distance d, width w.
func heaviside(d, w float64) float64 {
	if w <= 0 {
		if d < 0 {
			return 1
		}
		return 0
	}
	return 0.5 * (1 - math.Tanh(d/w))
}

// FillCloud writes the shock-bubble initial condition into every resident
// block of g.
func FillCloud(g Grid, ph Physics, bubbles []Bubble) {
	post := ph.PostShock()

	pre := state{rho: ph.Rho0, u: ph.U0, p: ph.P0, gamma: ph.Gamma1, pc: ph.Pc1}
	shocked := state{rho: post.Rho, u: post.U, p: post.P, gamma: ph.Gamma1, pc: ph.Pc1}
	gas := state{rho: ph.RhoB, u: 0, p: ph.PB, gamma: ph.Gamma2, pc: ph.Pc2}

	for _, b := range g.Blocks() {
		w := ph.Smoothing * b.H
		n := b.Size

		for z := 0; z < n; z++ {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					pos := b.Pos(x, y, z)

					liquid := mix(pre, shocked, heaviside(pos[0]-ph.ShockX, w))

					alpha := 0.0
					for _, bub := range bubbles {
						dx := pos[0] - bub.Center[0]
						dy := pos[1] - bub.Center[1]
						dz := pos[2] - bub.Center[2]
						d := math.Sqrt(dx*dx+dy*dy+dz*dz) - bub.Radius
						alpha = max(alpha, heaviside(d, w))
					}

					rho, ru, e, G, P := mix(liquid, gas, alpha).conserved()

					i := b.At(x, y, z)
					b.Rho[i] = schema.Real(rho)
					b.RhoU[i] = schema.Real(ru)
					b.RhoV[i] = 0
					b.RhoW[i] = 0
					b.Energy[i] = schema.Real(e)
					b.G[i] = schema.Real(G)
					b.P[i] = schema.Real(P)
				}
			}
		}
	}
}

// RegularCloud places one bubble of the given radius at the center of every
// cell of an n×n×n lattice inside the unit cube, past the shock.
func RegularCloud(n int, radius float64, after float64) []Bubble {
	var res []Bubble
	span := 1 - after
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				res = append(res, Bubble{
					Center: [3]float64{
						after + span*(float64(i)+0.5)/float64(n),
						(float64(j) + 0.5) / float64(n),
						(float64(k) + 0.5) / float64(n),
					},
					Radius: radius,
				})
			}
		}
	}
	return res
}
