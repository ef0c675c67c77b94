// Command huffz compresses and decompresses files with static Huffman coding.
//
//	huffz [flags] compress INPUT OUTPUT
//	huffz [flags] decompress INPUT OUTPUT
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seiflotfy/huffz"
	"github.com/seiflotfy/huffz/internal/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: huffz [flags] compress|decompress input output\n")
	flag.PrintDefaults()
}

func main() {
	useZstd := flag.Bool("zstd", false, "zstd-compress the packed payload when it helps")
	checksum := flag.Bool("checksum", true, "store an xxhash64 of the input")
	verbose := flag.Bool("v", false, "log container statistics")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 3 {
		usage()
		os.Exit(2)
	}
	log := logger.New(os.Stderr, *verbose)
	opts := []huffz.Option{
		huffz.WithPayloadCompression(*useZstd),
		huffz.WithChecksum(*checksum),
		huffz.WithLogger(log),
	}

	var err error
	switch args[0] {
	case "compress", "c":
		err = compressFile(args[1], args[2], log, opts)
		if err == nil {
			fmt.Println("compression is done")
		}
	case "decompress", "d":
		err = decompressFile(args[1], args[2], opts)
		if err == nil {
			fmt.Println("decompression is complete")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func compressFile(inputPath, outputPath string, log logger.Logger, opts []huffz.Option) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	c, err := huffz.NewEncoder(opts...).Encode(src)
	if err != nil {
		return fmt.Errorf("compress %s: %w", inputPath, err)
	}
	out, err := c.MarshalBinary()
	if err != nil {
		return fmt.Errorf("compress %s: %w", inputPath, err)
	}
	s := c.Stats()
	log.Debugf("%s: %d bytes, %d symbols, %d bits, %.3f bits/byte, container %d bytes",
		inputPath, s.OriginalBytes, s.Symbols, s.BitLength, s.MeanCodeLen, len(out))
	return writeFileAtomic(outputPath, out)
}

func decompressFile(inputPath, outputPath string, opts []huffz.Option) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	out, err := huffz.Decompress(data, opts...)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", inputPath, err)
	}
	return writeFileAtomic(outputPath, out)
}

// writeFileAtomic writes data next to path and renames it into place, so a failed
// run never leaves a complete-looking output file behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
