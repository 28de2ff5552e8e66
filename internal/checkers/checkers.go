// Package checkers holds quicktest checkers shared by the package tests.
package checkers

import (
	"encoding/json"
	"fmt"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

type jsonPathChecker struct {
	path string
	qt.Checker
}

// JSONPathEquals checks that the JSON document held by got ([]byte or
// string) has a value at path deep-equal to the wanted value. Numbers in the
// document decode as float64.
//
//	c.Assert(data, checkers.JSONPathEquals("$.mcpServers.glucowatch.command"), "glucowatch")
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path, Checker: qt.DeepEquals}
}

// Check implements qt.Checker.
func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	var raw []byte
	switch v := got.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		note("got", got)
		return qt.BadCheckf("first argument is not []byte or string")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		note("document", string(raw))
		return fmt.Errorf("cannot decode JSON: %w", err)
	}
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot read path: %w", err)
	}
	note("path", c.path)
	return c.Checker.Check(value, args, note)
}
