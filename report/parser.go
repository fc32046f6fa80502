// Package report parses JUnit-compatible XML test reports into classified
// test case outcomes and a run summary.
package report

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// utf8BOM is the byte-order mark some report writers put before the prolog.
var utf8BOM = []byte("\xef\xbb\xbf")

const (
	elemSuites   = "testsuites"
	elemSuite    = "testsuite"
	elemTestCase = "testcase"
)

// Parse reads a JUnit XML document and returns its outcomes in document
// order together with the derived summary.
//
// The root may be <testsuites> or a bare <testsuite>. Any other root yields
// an empty report. Every <testcase> nested at any depth under a <testsuite>
// is collected. A leading UTF-8 byte-order mark is ignored. Input that is
// not well-formed XML fails with a *MalformedReportError.
func Parse(data []byte) (*Report, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		outcomes   []Outcome
		root       string
		stack      []string
		suiteDepth int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedReportError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if root != "" {
					return nil, &MalformedReportError{Err: errors.New("extra content after document element")}
				}
				root = t.Name.Local
			}
			recognized := root == elemSuites || root == elemSuite

			if recognized && suiteDepth > 0 && t.Name.Local == elemTestCase {
				var tc testCase
				if err := dec.DecodeElement(&tc, &t); err != nil {
					return nil, &MalformedReportError{Err: err}
				}
				outcomes = append(outcomes, newOutcome(tc))
				continue
			}

			if recognized && t.Name.Local == elemSuite {
				suiteDepth++
			}
			stack = append(stack, t.Name.Local)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, &MalformedReportError{Err: errors.New("unexpected end element " + t.Name.Local)}
			}
			if stack[len(stack)-1] == elemSuite && suiteDepth > 0 {
				suiteDepth--
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, &MalformedReportError{Err: errors.New("character data outside document element")}
			}
		}
	}

	if root == "" {
		return nil, &MalformedReportError{Err: errors.New("no document element")}
	}

	if outcomes == nil {
		outcomes = []Outcome{}
	}
	return &Report{
		Outcomes: outcomes,
		Summary:  Summarize(outcomes),
	}, nil
}

// newOutcome extracts the attributes of a testcase and classifies it.
func newOutcome(tc testCase) Outcome {
	name := UnnamedCase
	if tc.Name != nil && *tc.Name != "" {
		name = *tc.Name
	}

	status, message := classify(tc)
	return Outcome{
		Name:      name,
		ClassName: tc.ClassName,
		Status:    status,
		Duration:  parseDuration(tc.Time),
		Message:   message,
	}
}

// parseDuration converts a time attribute to seconds. A missing, unparseable,
// negative or non-finite value is reported as absent.
func parseDuration(attr *string) *float64 {
	if attr == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*attr), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}
