package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/bdi"
	"github.com/sarchlab/ocsim/compression/cpack"
	"github.com/sarchlab/ocsim/compression/fpc"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/mem"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <hex line>",
	Short: "Compress one line with every codec.",
	Long: "`inspect` parses up to 64 bytes of hexadecimal data, pads them " +
		"with zeros to a full line and prints the size every codec gives it.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := parseLine(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		mbdCfg, err := cfg.MBD()
		if err != nil {
			return err
		}

		inspectLine(cmd.OutOrStdout(), &line, mbd.New(mbdCfg))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func parseLine(s string) (mem.Line, error) {
	var line mem.Line

	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")

	data, err := hex.DecodeString(s)
	if err != nil {
		return line, fmt.Errorf("bad line data: %w", err)
	}

	if len(data) > mem.LineSize {
		return line, fmt.Errorf("line data has %d bytes, at most %d allowed",
			len(data), mem.LineSize)
	}

	copy(line[:], data)

	return line, nil
}

func inspectLine(w io.Writer, line *mem.Line, codec *mbd.Codec) {
	fmt.Fprintf(w, "line %s\n\n", hex.EncodeToString(line[:]))

	t, buf := bdi.CompressBest(line)
	if t == bdi.TypeInvalid {
		fmt.Fprintf(w, "%-6s incompressible\n", compression.KindBDI)
	} else {
		fmt.Fprintf(w, "%-6s %2d bytes  %s\n",
			compression.KindBDI, bdi.ParamOf(t).CompressedSize, t)
		fmt.Fprint(w, bdi.Describe(buf, t))
	}

	stream, bits := fpc.Compress(line)
	fmt.Fprintf(w, "%-6s %2d bytes  %d bits\n",
		compression.KindFPC, compression.BytesFromBits(bits), bits)
	fmt.Fprint(w, fpc.Describe(stream))

	bits = cpack.DrySize(line)
	fmt.Fprintf(w, "%-6s %2d bytes  %d bits\n",
		compression.KindCPACK, compression.BytesFromBits(bits), bits)

	bits = codec.DrySize(line)
	fmt.Fprintf(w, "%-6s %2d bytes  %d bits, %d decode cycles\n",
		compression.KindMBD, compression.BytesFromBits(bits), bits,
		codec.DecodeCycles(line))
}
