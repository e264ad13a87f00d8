package grid

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dot5enko/wavdump/collective"
)

func TestProcessCoordsLastDimFastest(t *testing.T) {
	procs := [3]int{2, 2, 3}
	require.Equal(t, [3]int{0, 0, 1}, ProcessCoords(1, procs))
	require.Equal(t, [3]int{0, 1, 0}, ProcessCoords(3, procs))
	require.Equal(t, [3]int{1, 1, 2}, ProcessCoords(11, procs))
}

func buildGrids(t *testing.T, size, blockSize int, procs, resident [3]int) []*Cartesian {
	t.Helper()

	grids := make([]*Cartesian, size)
	err := collective.NewWorld(size).Run(context.Background(), func(ctx context.Context, comm collective.Communicator) error {
		g, err := NewCartesian(comm, blockSize, procs, resident)
		grids[comm.Rank()] = g
		return err
	})
	require.NoError(t, err)
	return grids
}

func TestCartesianBlocks(t *testing.T) {
	grids := buildGrids(t, 2, 4, [3]int{2, 1, 1}, [3]int{2, 1, 1})

	for rank, g := range grids {
		require.Equal(t, [3]int{4, 1, 1}, g.BlocksPerDimension())
		require.InDelta(t, 1.0/16, g.H(), 1e-12)
		require.Equal(t, [3]int{rank, 0, 0}, g.ProcessCoords())

		blocks := g.Blocks()
		require.Len(t, blocks, 2)

		base := rank * 2
		require.Equal(t, [3]int{base, 0, 0}, blocks[0].Index)
		require.Equal(t, [3]int{base + 1, 0, 0}, blocks[1].Index)
		require.InDelta(t, float64(base+1)*0.25, blocks[1].Origin[0], 1e-12)
	}
}

func TestCartesianRejectsBadDecomposition(t *testing.T) {
	w := collective.NewWorld(3)

	err := w.Run(context.Background(), func(ctx context.Context, comm collective.Communicator) error {
		_, err := NewCartesian(comm, 4, [3]int{2, 1, 1}, [3]int{1, 1, 1})
		return err
	})
	require.Error(t, err)
}

func TestCloudStreamers(t *testing.T) {
	ph := DefaultPhysics()
	ph.Smoothing = 0

	g := buildGrids(t, 1, 8, [3]int{1, 1, 1}, [3]int{2, 1, 1})[0]

	bubble := Bubble{Center: [3]float64{0.75, 0.25, 0.25}, Radius: 0.1}
	FillCloud(g, ph, []Bubble{bubble})

	post := ph.PostShock()
	require.Greater(t, post.Rho, ph.Rho0)
	require.Greater(t, post.Mach, 1.0)

	// first cell sits behind the shock
	b0 := g.Blocks()[0]
	p := Pressure{}.Operate(b0, 0, 0, 0, 0)
	require.InDelta(t, post.P, float64(p), post.P*1e-3)
	require.InDelta(t, post.U, float64(Velocity{}.Operate(b0, 0, 0, 0, 0)), 1e-2)
	require.InDelta(t, ph.Gamma1, float64(Gamma{}.Operate(b0, 0, 0, 0, 0)), 1e-3)

	// bubble center holds gas at rest
	b1 := g.Blocks()[1]
	require.InDelta(t, ph.RhoB, float64(Density{}.Operate(b1, 0, 4, 4, 4)), 1e-3)
	require.InDelta(t, ph.Gamma2, float64(Gamma{}.Operate(b1, 0, 4, 4, 4)), 1e-3)
	require.Zero(t, Velocity{}.Operate(b1, 1, 4, 4, 4))

	for _, b := range g.Blocks() {
		for _, v := range b.Energy {
			require.False(t, math.IsNaN(float64(v)))
		}
	}
}

func TestStreamerByName(t *testing.T) {
	s, err := StreamerByName("velocity")
	require.NoError(t, err)
	require.Equal(t, 3, s.Channels())

	_, err = StreamerByName("vorticity")
	require.Error(t, err)
}
