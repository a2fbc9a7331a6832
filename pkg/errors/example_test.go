// Package errors provides examples of structured error handling in nebula-chart.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "rule references undeclared series").
		WithDetail("series", "even").
		WithDetail("rule", 0)

	fmt.Println(err.Error())

	// Output:
	// config: rule references undeclared series
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.EOF

	err := errors.Wrap(originalErr, errors.ErrorTypeFile, "failed to read CSV file").
		WithDetail("file", "data.csv").
		WithDetail("line", 42)

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	fmt.Println(err)

	// Output:
	// This is a file error
	// file: failed to read CSV file: EOF
}

// Example_errorChain shows how to chain multiple error contexts.
func Example_errorChain() {
	err := presentChart()
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeRender, "presentation failed").
			WithDetail("presenter", "image")

		fmt.Println("Full error chain:", err)
	}

	// Output:
	// Full error chain: render: presentation failed: file: cannot create chart.png
}

func presentChart() error {
	return errors.New(errors.ErrorTypeFile, "cannot create chart.png")
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	capErr := errors.New(errors.ErrorTypeCapability, "chart output plugin does not support resuming")
	wrapped := errors.Wrap(capErr, errors.ErrorTypeInternal, "transaction aborted")

	fmt.Printf("Is capability error: %v\n", errors.IsType(capErr, errors.ErrorTypeCapability))
	fmt.Printf("Wrapped error is internal type: %v\n", errors.IsType(wrapped, errors.ErrorTypeInternal))
	fmt.Printf("Wrapped error reports capability type: %v\n", errors.IsType(wrapped, errors.ErrorTypeCapability))

	// Output:
	// Is capability error: true
	// Wrapped error is internal type: true
	// Wrapped error reports capability type: false
}

// ExampleNewf formats the message in place.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeConfig, "unknown chart type %q", "PIE")
	fmt.Println(err)

	// Output:
	// config: unknown chart type "PIE"
}
