package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/cbe/sexy"
)

func TestSexyAllTests(t *testing.T) {
	// Find all test files in the test/ directory
	testFiles, err := filepath.Glob("test/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	// Run tests for each file
	for _, testFile := range testFiles {
		// Extract a clean test name from the file path
		fileName := filepath.Base(testFile)
		testName := strings.TrimSuffix(fileName, ".md")

		t.Run(testName, func(t *testing.T) {
			// Read the test file
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			// Extract test cases
			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			// Generate a subtest for each test case
			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					runSexyTestCase(t, tc)
				})
			}
		})
	}
}

func runSexyTestCase(t *testing.T, tc sexy.TestCase) {
	ctx, module, err := compileModule(tc.Input)

	for _, assertion := range tc.Assertions {
		if assertion.Type == sexy.AssertionTypeCompileError {
			be.True(t, err != nil)
			if err != nil && !strings.Contains(err.Error(), assertion.Content) {
				t.Errorf("expected error containing %q, got %q", assertion.Content, err.Error())
			}
			continue
		}

		be.Err(t, err, nil)
		if err != nil {
			return
		}

		switch assertion.Type {
		case sexy.AssertionTypeAsm:
			var out bytes.Buffer
			_, err := module.WriteTo(&out)
			be.Err(t, err, nil)
			be.Equal(t, normalizeAsm(out.String()), normalizeAsm(assertion.Content))

		case sexy.AssertionTypeSection:
			name, body, _ := strings.Cut(assertion.Content, "\n")
			got, ok := moduleSection(module, strings.TrimSpace(name))
			if !ok {
				t.Fatalf("unknown section %q", name)
			}
			be.Equal(t, normalizeAsm(got), normalizeAsm(body))

		case sexy.AssertionTypeRegalloc:
			be.Equal(t, allocationSexy(ctx).String(), assertion.ParsedSexy.String())

		default:
			t.Fatalf("unsupported assertion type: %s", assertion.Type)
		}
	}
}

// compileModule runs the whole pipeline on IR text.
func compileModule(input string) (*Context, *Module, error) {
	ctx := NewContext(nil)
	if err := LoadIR(ctx, input); err != nil {
		return ctx, nil, err
	}
	if err := ctx.AllocateRegisters(1); err != nil {
		return ctx, nil, err
	}
	module := NewModule(ctx)
	if err := module.Generate(); err != nil {
		return ctx, nil, err
	}
	return ctx, module, nil
}

func moduleSection(m *Module, name string) (string, bool) {
	switch name {
	case "text":
		return m.Text(), true
	case "data":
		return m.Data(), true
	case "rodata":
		return m.ROData(), true
	case "bss":
		return m.BSS(), true
	}
	return "", false
}

// allocationSexy renders every interval as (name register) or
// (name (stack offset)), in interval order.
func allocationSexy(ctx *Context) *sexy.Node {
	var items []*sexy.Node
	for _, li := range ctx.Intervals {
		var home *sexy.Node
		if li.Symbol.Spilled() {
			home = sexy.NewList(sexy.NewSymbol("stack"), sexy.NewInteger(strconv.Itoa(li.Symbol.Location)))
		} else {
			home = sexy.NewSymbol(li.Symbol.Reg.String())
		}
		items = append(items, sexy.NewList(sexy.NewSymbol(li.Symbol.Name), home))
	}
	return sexy.NewList(items...)
}

// normalizeAsm drops indentation and blank lines so fixtures can be
// written without caring about tabs.
func normalizeAsm(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
