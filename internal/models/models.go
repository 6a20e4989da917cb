package models

import (
	"errors"
	"fmt"
)

// UploadedImage is the raw upload as received from a client. It is owned by
// the request that received it and never outlives that request.
type UploadedImage struct {
	Filename string
	Data     []byte
}

// AnalysisRequest is one rooftop analysis to perform.
type AnalysisRequest struct {
	Upload         UploadedImage
	AdditionalText string
}

// StreamedResult is what the orchestrator returns after consuming the
// provider stream. ImagePath points at a transient file the caller owns.
type StreamedResult struct {
	TextResponse string `json:"text_response"`
	ImagePath    string `json:"-"`
	Error        string `json:"error,omitempty"`
}

// AnalysisResponse is the wire-facing result of POST /analyze.
type AnalysisResponse struct {
	TextResponse   string `json:"text_response" yaml:"text_response"`
	UploadedImage  string `json:"uploaded_image,omitempty" yaml:"uploaded_image,omitempty"`
	GeneratedImage string `json:"generated_image,omitempty" yaml:"generated_image,omitempty"`
}

// ErrorKind classifies a failed analysis.
type ErrorKind string

const (
	KindUpload       ErrorKind = "upload"
	KindInvalidImage ErrorKind = "invalid_image"
	KindProvider     ErrorKind = "provider"
	KindReport       ErrorKind = "report"
	KindMissingFile  ErrorKind = "missing_file"
	KindStorage      ErrorKind = "storage"
)

// Error is the error type returned by the analysis layers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
