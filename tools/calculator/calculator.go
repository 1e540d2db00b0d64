// Package calculator provides the sum and sub tools.
package calculator

import (
	"context"

	"github.com/effective-security/mcpweather/tools"
)

const (
	// SumToolName is the name of the sum tool
	SumToolName = "sum"
	// SubToolName is the name of the sub tool
	SubToolName = "sub"

	// Instructions are returned to the client on initialize
	Instructions = "A simple calculator"
)

// Request is the arguments of the calculator tools
type Request struct {
	Lhs float64 `json:"lhs" yaml:"lhs" jsonschema:"description=the left hand side number"`
	Rhs float64 `json:"rhs" yaml:"rhs" jsonschema:"description=the right hand side number"`
}

func Sum(lhs, rhs float64) float64 {
	return lhs + rhs
}

func Sub(lhs, rhs float64) float64 {
	return lhs - rhs
}

// Tools returns the sum and sub tools
func Tools() ([]tools.ITool, error) {
	sum, err := tools.New(SumToolName, "Calculate the sum of two numbers",
		func(_ context.Context, req *Request) (float64, error) {
			return Sum(req.Lhs, req.Rhs), nil
		})
	if err != nil {
		return nil, err
	}

	sub, err := tools.New(SubToolName, "Calculate the sub of two numbers",
		func(_ context.Context, req *Request) (float64, error) {
			return Sub(req.Lhs, req.Rhs), nil
		})
	if err != nil {
		return nil, err
	}

	return []tools.ITool{sum, sub}, nil
}
