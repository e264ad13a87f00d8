package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dot5enko/wavdump/io"
	"github.com/dot5enko/wavdump/ops"
	"github.com/dot5enko/wavdump/reader"
	"github.com/dot5enko/wavdump/schema"
)

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Decode one block of a dump",
	Long: `Decode the block at the given global block coordinates and print its values
one x row per line, or write them as raw host order floats with --raw.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().String("at", "0,0,0", "global block coordinates x,y,z")
	readCmd.Flags().String("raw", "", "write the decoded values to this file instead")
	bind(readCmd, "at", "raw")
}

func runRead(cmd *cobra.Command, args []string) error {
	at, err := tripleKey("read.at")
	if err != nil {
		return err
	}

	r, err := reader.Open(args[0], schema.Expectation{})
	if err != nil {
		return err
	}
	defer r.Close()

	n := r.Header().BlockSize
	values := make([]schema.Real, n*n*n)
	if err := r.ReadBlock(at[0], at[1], at[2], values); err != nil {
		return err
	}

	if raw := settings.GetString("read.raw"); raw != "" {
		return io.DumpValues(raw, values)
	}

	out := cmd.OutOrStdout()
	row := make([]string, n)
	for z := 0; z < n; z++ {
		fmt.Fprintf(out, "z=%d\n", z)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				row[x] = fmt.Sprintf("%.6g", values[x+n*(y+n*z)])
			}
			fmt.Fprintln(out, strings.Join(row, " "))
		}
	}

	if b, ok := ops.MinMax(values); ok {
		fmt.Fprintf(out, "min: %.6g max: %.6g\n", b.Min, b.Max)
	}
	return nil
}
