package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dot5enko/wavdump/reader"
	"github.com/dot5enko/wavdump/schema"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the header and per rank layout of a dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().Bool("debug", false, "also dump the parsed structures")
	bind(inspectCmd, "debug")
}

func runInspect(cmd *cobra.Command, args []string) error {
	r, err := reader.Open(args[0], schema.Expectation{})
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	h := r.Header()

	printPairs(out, [][2]string{
		{"Endianess", h.Endianness},
		{"Blocksize", strconv.Itoa(h.BlockSize)},
		{"Blocks", fmt.Sprintf("%d x %d x %d", h.Blocks[0], h.Blocks[1], h.Blocks[2])},
		{"Extent", fmt.Sprintf("%g %g %g", h.Extent[0], h.Extent[1], h.Extent[2])},
		{"SubdomainBlocks", fmt.Sprintf("%d x %d x %d", h.SubdomainBlocks[0], h.SubdomainBlocks[1], h.SubdomainBlocks[2])},
		{"HalfFloat", strconv.FormatBool(h.HalfFloat)},
		{"Wavelets", h.Wavelets},
		{"WaveletThreshold", strconv.FormatFloat(h.Threshold, 'g', -1, 64)},
		{"Encoder", h.Encoder},
		{"Displacement", strconv.FormatUint(r.Displacement(), 10)},
	})
	fmt.Fprintln(out)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"rank", "base", "bytes", "chunks", "lut offset"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var compressed uint64
	for i, rank := range r.Ranks() {
		table.Append([]string{
			strconv.Itoa(i),
			strconv.FormatUint(rank.Base, 10),
			strconv.FormatUint(rank.AggregateBytes, 10),
			strconv.Itoa(rank.NChunks),
			strconv.FormatUint(rank.LUTOffset(), 10),
		})
		compressed += rank.AggregateBytes
	}
	table.SetFooter([]string{"total", "", strconv.FormatUint(compressed, 10), strconv.Itoa(len(r.Chunks())), ""})
	table.Render()

	raw := uint64(h.TotalBlocks()) * uint64(h.BlockSize*h.BlockSize*h.BlockSize) * schema.SizeofReal
	if compressed > 0 {
		fmt.Fprintf(out, "\ncompression rate: %.2f\n", float64(raw)/float64(compressed))
	}

	if settings.GetBool("inspect.debug") {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(out, h, r.Ranks(), r.Chunks())
	}
	return nil
}

func printPairs(w io.Writer, pairs [][2]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, p := range pairs {
		table.Append([]string{p[0] + ":", p[1]})
	}
	table.Render()
}
