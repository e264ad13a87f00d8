package grid

import (
	"github.com/cockroachdb/errors"

	"github.com/dot5enko/wavdump/schema"
)

// Streamer extracts scalar channels from a block.
type Streamer interface {
	Name() string
	Channels() int
	Operate(b *Block, channel, x, y, z int) schema.Real
}

type Density struct{}

func (Density) Name() string  { return "density" }
func (Density) Channels() int { return 1 }
func (Density) Operate(b *Block, _, x, y, z int) schema.Real {
	return b.Rho[b.At(x, y, z)]
}

type Velocity struct{}

func (Velocity) Name() string  { return "velocity" }
func (Velocity) Channels() int { return 3 }
func (Velocity) Operate(b *Block, channel, x, y, z int) schema.Real {
	i := b.At(x, y, z)
	switch channel {
	case 0:
		return b.RhoU[i] / b.Rho[i]
	case 1:
		return b.RhoV[i] / b.Rho[i]
	default:
		return b.RhoW[i] / b.Rho[i]
	}
}

type Energy struct{}

func (Energy) Name() string  { return "energy" }
func (Energy) Channels() int { return 1 }
func (Energy) Operate(b *Block, _, x, y, z int) schema.Real {
	return b.Energy[b.At(x, y, z)]
}

// Pressure follows the stiffened gas equation of state,
// p = (E - |ρu|²/(2ρ) - P) / G.
type Pressure struct{}

func (Pressure) Name() string  { return "pressure" }
func (Pressure) Channels() int { return 1 }
func (Pressure) Operate(b *Block, _, x, y, z int) schema.Real {
	i := b.At(x, y, z)
	ru, rv, rw := b.RhoU[i], b.RhoV[i], b.RhoW[i]
	kinetic := 0.5 * (ru*ru + rv*rv + rw*rw) / b.Rho[i]
	return (b.Energy[i] - kinetic - b.P[i]) / b.G[i]
}

// Gamma recovers the ratio of specific heats from G = 1/(γ-1).
type Gamma struct{}

func (Gamma) Name() string  { return "gamma" }
func (Gamma) Channels() int { return 1 }
func (Gamma) Operate(b *Block, _, x, y, z int) schema.Real {
	return 1 + 1/b.G[b.At(x, y, z)]
}

func Streamers() []Streamer {
	return []Streamer{Density{}, Velocity{}, Energy{}, Pressure{}, Gamma{}}
}

func StreamerByName(name string) (Streamer, error) {
	for _, s := range Streamers() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, errors.Newf("grid: unknown streamer %q", name)
}
