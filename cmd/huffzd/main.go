// Command huffzd serves compression and decompression over HTTP.
package main

import (
	"flag"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/seiflotfy/huffz"
	"github.com/seiflotfy/huffz/internal/logger"
	"github.com/seiflotfy/huffz/internal/server"
)

func main() {
	defaultAddr := os.Getenv("HUFFZ_ADDR")
	if defaultAddr == "" {
		defaultAddr = ":8080"
	}
	addr := flag.String("addr", defaultAddr, "listen address (env HUFFZ_ADDR)")
	useZstd := flag.Bool("zstd", false, "zstd-compress packed payloads when it helps")
	cacheSize := flag.Int("tree-cache", 128, "number of rebuilt trees to keep for decoding")
	maxBody := flag.Int64("max-body", server.DefaultMaxBodyBytes, "maximum request body in bytes")
	maxDecoded := flag.Uint64("max-decoded", 256<<20, "maximum decompressed size in bytes (0 = unlimited)")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	logg := logger.New(os.Stderr, *debug)

	enc := huffz.NewEncoder(huffz.WithPayloadCompression(*useZstd), huffz.WithLogger(logg))
	dec, err := huffz.NewDecoder(
		huffz.WithTreeCache(*cacheSize),
		huffz.WithMaxDecodedBytes(*maxDecoded),
		huffz.WithLogger(logg),
	)
	if err != nil {
		logg.Errorf("decoder: %v", err)
		os.Exit(1)
	}

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if *debug {
		r.Use(gin.Logger())
	}
	server.Register(r, server.Dependencies{
		Handler: server.NewHandler(enc, dec, logg, *maxBody),
	})

	logg.Infof("starting server at %s", *addr)
	if err := r.Run(*addr); err != nil {
		logg.Errorf("%v", err)
		os.Exit(1)
	}
}
