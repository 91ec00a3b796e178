package jetstream

import (
	_ "embed"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// dictionaryBytes is the fixed custom dictionary Jetstream compresses
// every frame against (spec §4.3, §5: "a fixed custom dictionary...
// process-wide, immutable, created at first use").
//
// This is a placeholder asset: the canonical dictionary published
// alongside bluesky-social/jetstream could not be fetched in this
// environment. Production deployments should replace dictionary.bin
// with that file; the decoder wiring below is unaffected by its
// contents.
//go:embed dictionary.bin
var dictionaryBytes []byte

var (
	dictOnce    sync.Once
	dictDecoder *zstd.Decoder
	dictErr     error
)

// decoder returns the process-wide zstd decoder built against the
// shared dictionary, constructing it on first use.
func decoder() (*zstd.Decoder, error) {
	dictOnce.Do(func() {
		dictDecoder, dictErr = zstd.NewReader(nil, zstd.WithDecoderDicts(dictionaryBytes))
	})
	return dictDecoder, dictErr
}
