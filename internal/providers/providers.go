package providers

import (
	"context"
	"iter"
)

// Response modalities understood by multimodal providers.
const (
	ModalityImage = "IMAGE"
	ModalityText  = "TEXT"
)

// Request is a single multimodal generation request.
type Request struct {
	Model              string
	Prompt             string
	Image              []byte
	MIMEType           string
	ResponseModalities []string
}

// ChunkKind identifies what a streamed chunk carries.
type ChunkKind int

const (
	ChunkEmpty ChunkKind = iota
	ChunkText
	ChunkImage
	ChunkBlocked
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkImage:
		return "image"
	case ChunkBlocked:
		return "blocked"
	default:
		return "empty"
	}
}

// Blob is inline binary data returned by a provider.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Chunk is one unit of a streamed response.
type Chunk struct {
	Kind        ChunkKind
	Text        string
	Image       *Blob
	BlockReason string
}

func TextChunk(text string) Chunk {
	return Chunk{Kind: ChunkText, Text: text}
}

func ImageChunk(mimeType string, data []byte) Chunk {
	return Chunk{Kind: ChunkImage, Image: &Blob{MIMEType: mimeType, Data: data}}
}

// Provider defines the interface for a streaming multimodal LLM provider.
//
// GenerateStream returns a finite, single-use sequence of chunks. A non-nil
// error ends the sequence.
type Provider interface {
	GenerateStream(ctx context.Context, req Request) iter.Seq2[Chunk, error]
}
