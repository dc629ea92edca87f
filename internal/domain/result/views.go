package result

import (
	"bytes"
	"encoding/json"
)

// Scalar accepts a JSON string, number or boolean and keeps its textual form.
// The executable is not consistent about quoting line numbers and ports.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	*s = Scalar(data)
	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// Diagnostic is one compiler error or warning.
type Diagnostic struct {
	FileName    string `json:"fileName"`
	File        string `json:"file"`
	Line        Scalar `json:"line"`
	Description string `json:"description"`
}

// Source returns the file the diagnostic points at. Build output uses
// "fileName" while deploy output uses "file".
func (d Diagnostic) Source() string {
	if d.FileName != "" {
		return d.FileName
	}
	return d.File
}

// BuildResult is the document printed by "build".
type BuildResult struct {
	Summary  string       `json:"summary"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// PlcProject is a PLC sub-project reported by "info".
type PlcProject struct {
	Name    string `json:"name"`
	AmsPort Scalar `json:"amsPort"`
}

// InfoResult is the document printed by "info".
type InfoResult struct {
	SolutionPath        string       `json:"solutionPath"`
	TcVersion           string       `json:"tcVersion"`
	TcVersionPinned     bool         `json:"tcVersionPinned"`
	VisualStudioVersion string       `json:"visualStudioVersion"`
	TargetPlatform      string       `json:"targetPlatform"`
	PlcProjects         []PlcProject `json:"plcProjects"`
}

// MessageResult is the document printed by "clean".
type MessageResult struct {
	Message string `json:"message"`
}

// SetTargetResult is the document printed by "set-target".
type SetTargetResult struct {
	Message        string `json:"message"`
	PreviousTarget string `json:"previousTarget"`
	NewTarget      string `json:"newTarget"`
}

// TargetResult is the document printed by "activate" and "restart".
type TargetResult struct {
	Message     string `json:"message"`
	TargetNetID string `json:"targetNetId"`
}

// DeployStep is one stage of the deploy workflow.
type DeployStep struct {
	Step   Scalar `json:"step"`
	Action string `json:"action"`
	DryRun bool   `json:"dryRun"`
}

// DeployResult is the document printed by "deploy".
type DeployResult struct {
	Message      string       `json:"message"`
	TargetNetID  string       `json:"targetNetId"`
	DeployedPlcs []string     `json:"deployedPlcs"`
	Steps        []DeployStep `json:"steps"`
	Errors       []Diagnostic `json:"errors"`
	DryRun       bool         `json:"dryRun"`
}

// View decodes the raw document into T. Decoding is best effort: fields with
// unexpected types are left at their zero value and the rest still decode.
func View[T any](e Envelope) T {
	var out T
	if len(e.raw) == 0 {
		return out
	}
	_ = json.Unmarshal(e.raw, &out)
	return out
}
