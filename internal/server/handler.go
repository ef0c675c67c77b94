// Package server exposes compression and decompression over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seiflotfy/huffz"
	"github.com/seiflotfy/huffz/internal/logger"
)

// DefaultMaxBodyBytes caps request bodies unless overridden.
const DefaultMaxBodyBytes = 64 << 20

// Handler serves compress and decompress requests with a shared encoder and decoder.
type Handler struct {
	enc     *huffz.Encoder
	dec     *huffz.Decoder
	log     logger.Logger
	maxBody int64
}

// NewHandler returns a Handler. A non-positive maxBody falls back to DefaultMaxBodyBytes.
func NewHandler(enc *huffz.Encoder, dec *huffz.Decoder, log logger.Logger, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{enc: enc, dec: dec, log: log, maxBody: maxBody}
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if int64(len(body)) > h.maxBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return nil, false
	}
	return body, true
}

// Compress answers with the serialized container for the raw request body.
func (h *Handler) Compress(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	container, err := h.enc.Encode(body)
	if err != nil {
		h.log.Errorf("compress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out, err := container.MarshalBinary()
	if err != nil {
		h.log.Errorf("compress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats := container.Stats()
	c.Header("X-Huffz-Bit-Length", strconv.FormatUint(stats.BitLength, 10))
	c.Header("X-Huffz-Symbols", strconv.Itoa(stats.Symbols))
	c.Data(http.StatusOK, "application/octet-stream", out)
}

// Decompress answers with the original bytes held by the container in the request body.
func (h *Handler) Decompress(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var container huffz.Container
	if err := container.UnmarshalBinary(body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	out, err := h.dec.Decode(&container)
	if err != nil {
		if errors.Is(err, huffz.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, huffz.ErrCorrupt) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.log.Errorf("decompress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", out)
}
