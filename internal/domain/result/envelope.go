// Package result models the outcome of one external process invocation.
//
// An Envelope is either the JSON document the executable printed (its own
// "success" field decides the variant) or a failure synthesized by the bridge.
// Per-tool typed views are decoded from the raw document on demand.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	errs "twincat-mcp/internal/shared/errors"
)

// Envelope is the structured success/failure result of one invocation.
type Envelope struct {
	Success      bool
	ErrorMessage string
	Error        string
	Stderr       string
	Stdout       string

	// Kind is KindNone for documents produced by the executable itself.
	Kind errs.Kind

	ExitCode int
	Duration time.Duration

	raw json.RawMessage
}

// envelopeHeader holds the fields shared by every tool's document.
type envelopeHeader struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
	Error        string `json:"error"`
	Stderr       string `json:"stderr"`
}

// Decode parses stdout as exactly one JSON object.
func Decode(data []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Envelope{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Envelope{}, fmt.Errorf("unexpected data after JSON document")
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, fmt.Errorf("JSON document is not an object")
	}

	// Fields with unexpected types are skipped; the rest of the header still decodes.
	var header envelopeHeader
	_ = json.Unmarshal(trimmed, &header)
	return Envelope{
		Success:      header.Success,
		ErrorMessage: header.ErrorMessage,
		Error:        header.Error,
		Stderr:       header.Stderr,
		raw:          append(json.RawMessage(nil), trimmed...),
	}, nil
}

// Failure builds a success:false envelope from a classified error.
func Failure(err error) Envelope {
	env := Envelope{
		Success: false,
		Kind:    errs.KindOf(err),
	}
	if err != nil {
		env.ErrorMessage = err.Error()
	}
	var output *errs.ProcessOutputError
	if errors.As(err, &output) && output.InvalidJSON() {
		env.Stdout = output.Stdout
		env.Stderr = output.Stderr
	}
	return env
}

// Detail returns the most specific failure text available, or "".
func (e Envelope) Detail() string {
	if e.Error != "" {
		return e.Error
	}
	return e.ErrorMessage
}

// Raw returns the executable's JSON document, or nil for synthesized failures.
func (e Envelope) Raw() json.RawMessage {
	return e.raw
}

// MarshalJSON emits the executable's document unchanged, or the synthesized failure fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	return json.Marshal(struct {
		Success      bool   `json:"success"`
		ErrorMessage string `json:"errorMessage,omitempty"`
		Stderr       string `json:"stderr,omitempty"`
		Stdout       string `json:"stdout,omitempty"`
		Kind         string `json:"kind,omitempty"`
	}{
		Success:      e.Success,
		ErrorMessage: e.ErrorMessage,
		Stderr:       e.Stderr,
		Stdout:       e.Stdout,
		Kind:         e.Kind.String(),
	})
}
