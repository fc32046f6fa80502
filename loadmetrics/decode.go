package loadmetrics

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// payloadSchemaURL names the embedded schema. It is absolute so the
// compiler does not resolve it against the working directory.
const payloadSchemaURL = "https://drone-qops/payload.schema.json"

//go:embed payload.schema.json
var payloadSchemaData []byte

var (
	payloadSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

var printer = message.NewPrinter(language.English)

// countFields are decoded into integers. Integral JSON numbers such as 10.0
// are accepted for them.
var countFields = []string{"project_id", "total_requests", "total_failures"}

// compileSchema compiles the embedded payload schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payloadSchemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal payload schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat()
		if err := compiler.AddResource(payloadSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add payload schema resource: %w", err)
			return
		}

		payloadSchema, err = compiler.Compile(payloadSchemaURL)
		if err != nil {
			compileErr = fmt.Errorf("compile payload schema: %w", err)
		}
	})

	return compileErr
}

// Decode reads a JSON load-test summary. The document is checked against
// the payload schema before it is decoded; value rules are left to Validate.
// Schema violations name the offending field, and a null value is reported
// as a missing field.
func Decode(data []byte) (*Payload, error) {
	if err := compileSchema(); err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidMetricsError{Field: "payload", Reason: "invalid JSON: " + err.Error()}
	}

	var verr *jsonschema.ValidationError
	if err := payloadSchema.Validate(doc); errors.As(err, &verr) {
		return nil, schemaViolations(verr)
	} else if err != nil {
		return nil, fmt.Errorf("validate load payload document: %w", err)
	}

	if normalizeCounts(doc) {
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("encode load payload: %w", err)
		}
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &InvalidMetricsError{Field: typeErr.Field, Reason: "cannot hold " + typeErr.Value}
		}
		return nil, &InvalidMetricsError{Field: "payload", Reason: err.Error()}
	}
	return &p, nil
}

// schemaViolations turns the leaves of a schema validation error into
// InvalidMetricsErrors, one per offending field.
func schemaViolations(verr *jsonschema.ValidationError) error {
	var merr *multierror.Error
	for _, leaf := range leafErrors(verr, nil) {
		field := "payload"
		if len(leaf.InstanceLocation) > 0 {
			field = leaf.InstanceLocation[0]
		}

		reason := leaf.ErrorKind.LocalizedString(printer)
		if t, ok := leaf.ErrorKind.(*kind.Type); ok && t.Got == "null" {
			reason = "required field is missing"
		}
		merr = multierror.Append(merr, &InvalidMetricsError{Field: field, Reason: reason})
	}
	if merr == nil {
		return &InvalidMetricsError{Field: "payload", Reason: verr.Error()}
	}
	merr.ErrorFormat = formatViolations
	return merr
}

func leafErrors(verr *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(verr.Causes) == 0 {
		return append(out, verr)
	}
	for _, cause := range verr.Causes {
		out = leafErrors(cause, out)
	}
	return out
}

// normalizeCounts rewrites integral count values written with a fraction
// or exponent (10.0, 1e3) as integers. It reports whether doc changed.
func normalizeCounts(doc any) bool {
	obj, ok := doc.(map[string]any)
	if !ok {
		return false
	}

	changed := false
	for _, field := range countFields {
		n, ok := obj[field].(json.Number)
		if !ok {
			continue
		}
		if _, err := n.Int64(); err == nil {
			continue
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			continue
		}
		obj[field] = int64(f)
		changed = true
	}
	return changed
}
