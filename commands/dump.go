package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dot5enko/wavdump/collective"
	"github.com/dot5enko/wavdump/compression"
	"github.com/dot5enko/wavdump/grid"
	"github.com/dot5enko/wavdump/schema"
	"github.com/dot5enko/wavdump/serializer"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write wavelet dumps of a synthetic bubble cloud",
	Long: `Run an in-process world of ranks over a cartesian block grid, fill it with a
shock hitting a regular cloud of gas bubbles and write every channel of the
selected quantities.

Examples:
  # Density and pressure of 8 ranks with 4x4x4 blocks of 16^3 each
  wavdump dump --out /tmp/cloud --procs 2,2,2 --blocks 4,4,4 --streamer density,pressure

  # Lossy half precision dump through zstd with the pipelined writer
  wavdump dump --out /tmp/cloud --threshold 1e-3 --half --encoder zstd --pipelined`,
	RunE: runDump,
}

func init() {
	f := dumpCmd.Flags()
	f.String("out", "data", "base path of the dump files")
	f.String("procs", "2,1,1", "ranks per dimension")
	f.String("blocks", "2,2,2", "resident blocks per rank and dimension")
	f.Int("block-size", 16, "points per block edge")
	f.StringSlice("streamer", []string{"density"}, "quantities to dump, or all")
	f.Float64("threshold", 0, "wavelet coefficients at or below this magnitude are dropped")
	f.Bool("half", false, "store coefficients as half floats")
	f.String("encoder", compression.DefaultName, fmt.Sprintf("chunk encoder %v", compression.Names()))
	f.Int("workers", 0, "compression goroutines per rank (0 means GOMAXPROCS)")
	f.Bool("pipelined", false, "overlap file I/O of a dump with the next one")
	f.Bool("verbose", false, "print the per channel profile report")
	f.Int("bubbles", 2, "bubbles per dimension of the cloud lattice")
	f.Float64("radius", 0.08, "bubble radius in domain units")

	bind(dumpCmd, "out", "procs", "blocks", "block-size", "streamer", "threshold", "half",
		"encoder", "workers", "pipelined", "verbose", "bubbles", "radius")
}

type dumpConfig struct {
	base      string
	procs     [3]int
	resident  [3]int
	blockSize int
	streamers []grid.Streamer
	bubbles   []grid.Bubble
	physics   grid.Physics
	opts      serializer.Options
}

func loadDumpConfig() (dumpConfig, error) {
	var c dumpConfig
	var err error

	c.base = settings.GetString("dump.out")
	c.blockSize = settings.GetInt("dump.block-size")

	if c.procs, err = tripleKey("dump.procs"); err != nil {
		return c, err
	}
	if c.resident, err = tripleKey("dump.blocks"); err != nil {
		return c, err
	}

	names := settings.GetStringSlice("dump.streamer")
	if len(names) == 1 && names[0] == "all" {
		c.streamers = grid.Streamers()
	} else {
		for _, name := range names {
			s, err := grid.StreamerByName(name)
			if err != nil {
				return c, err
			}
			c.streamers = append(c.streamers, s)
		}
	}

	c.physics = grid.DefaultPhysics()
	c.bubbles = grid.RegularCloud(settings.GetInt("dump.bubbles"), settings.GetFloat64("dump.radius"), c.physics.ShockX)

	c.opts = serializer.DefaultOptions()
	c.opts.Threshold = settings.GetFloat64("dump.threshold")
	c.opts.HalfFloat = settings.GetBool("dump.half")
	c.opts.Encoder = settings.GetString("dump.encoder")
	c.opts.Workers = settings.GetInt("dump.workers")
	c.opts.Pipelined = settings.GetBool("dump.pipelined")
	c.opts.Verbose = settings.GetBool("dump.verbose")

	if _, err := compression.ByName(c.opts.Encoder); err != nil {
		return c, err
	}
	if c.blockSize <= 0 {
		return c, errors.Newf("block size must be positive, got %d", c.blockSize)
	}

	return c, nil
}

func (c dumpConfig) ranks() int {
	return c.procs[0] * c.procs[1] * c.procs[2]
}

func runDump(cmd *cobra.Command, _ []string) error {
	c, err := loadDumpConfig()
	if err != nil {
		return err
	}
	if c.ranks() <= 0 {
		return errors.Newf("invalid process grid %v", c.procs)
	}

	slog.Info("dump started",
		"ranks", c.ranks(),
		"blocks", c.resident,
		"block_size", c.blockSize,
		"encoder", c.opts.Encoder,
		"pipelined", c.opts.Pipelined)

	world := collective.NewWorld(c.ranks())

	err = world.Run(cmd.Context(), func(ctx context.Context, comm collective.Communicator) (topErr error) {
		g, err := grid.NewCartesian(comm, c.blockSize, c.procs, c.resident)
		if err != nil {
			return err
		}
		grid.FillCloud(g, c.physics, c.bubbles)

		s, err := serializer.New(c.opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(ctx); err != nil && topErr == nil {
				topErr = err
			}
		}()

		for _, streamer := range c.streamers {
			if err := s.WriteAll(ctx, g, streamer, c.base); err != nil {
				return errors.Wrapf(err, "rank %d, %s", comm.Rank(), streamer.Name())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, streamer := range c.streamers {
		for ch := 0; ch < streamer.Channels(); ch++ {
			fmt.Fprintln(out, schema.ChannelPath(c.base, streamer.Name(), ch))
		}
	}
	return nil
}
