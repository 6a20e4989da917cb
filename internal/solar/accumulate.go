package solar

import (
	"strings"

	"github.com/lehigh-university-libraries/solarscan/internal/providers"
)

// accumulator is the fold state over a provider stream.
type accumulator struct {
	text    strings.Builder
	image   *providers.Blob
	blocked string
	chunks  int
	dropped int
}

// accumulate folds one chunk into acc. Text is appended in stream order; only
// the first image is kept.
func accumulate(acc *accumulator, c providers.Chunk) {
	acc.chunks++
	switch c.Kind {
	case providers.ChunkText:
		acc.text.WriteString(c.Text)
	case providers.ChunkImage:
		if c.Image == nil || len(c.Image.Data) == 0 {
			return
		}
		if acc.image != nil {
			acc.dropped++
			return
		}
		acc.image = c.Image
	case providers.ChunkBlocked:
		if acc.blocked == "" {
			acc.blocked = c.BlockReason
		}
	}
}
