package questionnaire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKind tags the shape an answer value takes. The stored shape depends
// on the question kind: a scalar for text/number and single selections, a
// value list for multi and addon selections, a field map plus unit for
// measurements, and a file reference list for uploads.
type AnswerKind string

const (
	AnswerNone         AnswerKind = ""
	AnswerScalar       AnswerKind = "scalar"
	AnswerMulti        AnswerKind = "multi"
	AnswerMeasurements AnswerKind = "measurements"
	AnswerFiles        AnswerKind = "files"
)

// FileRef points at an already-uploaded file; storage mechanics live outside
// this core.
type FileRef struct {
	Name        string `json:"name"`
	StoragePath string `json:"storage_path"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

type AnswerValue struct {
	Kind   AnswerKind
	Scalar string
	Values []string
	Fields map[string]string
	Unit   string
	Files  []FileRef
}

func ScalarAnswer(v string) AnswerValue {
	return AnswerValue{Kind: AnswerScalar, Scalar: v}
}

func MultiAnswer(values ...string) AnswerValue {
	return AnswerValue{Kind: AnswerMulti, Values: values}
}

func MeasurementsAnswer(fields map[string]string, unit string) AnswerValue {
	return AnswerValue{Kind: AnswerMeasurements, Fields: fields, Unit: unit}
}

func FilesAnswer(files []FileRef) AnswerValue {
	return AnswerValue{Kind: AnswerFiles, Files: files}
}

func (a AnswerValue) IsZero() bool {
	switch a.Kind {
	case AnswerScalar:
		return strings.TrimSpace(a.Scalar) == ""
	case AnswerMulti:
		return len(a.Values) == 0
	case AnswerMeasurements:
		return len(a.Fields) == 0
	case AnswerFiles:
		return len(a.Files) == 0
	default:
		return true
	}
}

// Contains reports whether the answer equals v (scalar) or includes v
// (value list). Other shapes never match; visibility rules only reference
// option values.
func (a AnswerValue) Contains(v string) bool {
	switch a.Kind {
	case AnswerScalar:
		return a.Scalar == v
	case AnswerMulti:
		for _, x := range a.Values {
			if x == v {
				return true
			}
		}
	}
	return false
}

// ValueList flattens a selection answer into a slice of option values.
func (a AnswerValue) ValueList() []string {
	switch a.Kind {
	case AnswerScalar:
		if a.Scalar == "" {
			return nil
		}
		return []string{a.Scalar}
	case AnswerMulti:
		return append([]string(nil), a.Values...)
	default:
		return nil
	}
}

// MarshalJSON emits the loose wire shapes the stored answer rows use:
// a string, an array of strings, {"unit": ..., field: value, ...} or an
// array of file objects.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerScalar:
		return json.Marshal(a.Scalar)
	case AnswerMulti:
		values := a.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	case AnswerMeasurements:
		obj := make(map[string]string, len(a.Fields)+1)
		for k, v := range a.Fields {
			obj[k] = v
		}
		if a.Unit != "" {
			obj["unit"] = a.Unit
		}
		return json.Marshal(obj)
	case AnswerFiles:
		files := a.Files
		if files == nil {
			files = []FileRef{}
		}
		return json.Marshal(files)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the same loose shapes and tags them.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*a = AnswerValue{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ScalarAnswer(s)
		return nil
	case '[':
		var values []string
		if err := json.Unmarshal(data, &values); err == nil {
			*a = MultiAnswer(values...)
			return nil
		}
		var files []FileRef
		if err := json.Unmarshal(data, &files); err != nil {
			return fmt.Errorf("answer array must hold strings or file refs: %w", err)
		}
		*a = FilesAnswer(files)
		return nil
	case '{':
		var fields map[string]string
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("answer object must map fields to strings: %w", err)
		}
		unit := fields["unit"]
		delete(fields, "unit")
		*a = MeasurementsAnswer(fields, unit)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported answer shape: %s", trimmed)
		}
		*a = ScalarAnswer(n.String())
		return nil
	}
}
