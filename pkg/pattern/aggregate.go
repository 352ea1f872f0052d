package pattern

import (
	"fmt"

	"github.com/orneryd/hyperdb/pkg/graphstore"
	"github.com/orneryd/hyperdb/pkg/hvalue"
	"github.com/orneryd/hyperdb/pkg/patternir"
)

// Aggregate evaluates count/sum/avg/min/max over a group of bindings.
// fn.Star selects `count(*)`, which counts the group's size without
// evaluating any argument. Every other function requires exactly one
// argument expression, evaluated once per binding in the group.
func Aggregate(fn patternir.FuncCall, group []patternir.Bindings, store *graphstore.Store) (hvalue.Value, error) {
	if fn.Name == "count" && fn.Star {
		return hvalue.NewInt(int64(len(group))), nil
	}
	if len(fn.Args) != 1 {
		return hvalue.Null, fmt.Errorf("%w: %s takes exactly one argument", ErrBadArgument, fn.Name)
	}

	var nums []float64
	nonNullCount := int64(0)
	for _, b := range group {
		v, err := Eval(fn.Args[0], b, store)
		if err != nil {
			return hvalue.Null, err
		}
		if v.IsNull() {
			continue
		}
		nonNullCount++
		if f, ok := v.AsFloat64(); ok {
			nums = append(nums, f)
		}
	}

	switch fn.Name {
	case "count":
		return hvalue.NewInt(nonNullCount), nil
	case "sum":
		var total float64
		for _, n := range nums {
			total += n
		}
		return hvalue.NewFloat(total), nil
	case "avg":
		if len(nums) == 0 {
			return hvalue.Null, nil
		}
		var total float64
		for _, n := range nums {
			total += n
		}
		return hvalue.NewFloat(total / float64(len(nums))), nil
	case "min":
		if len(nums) == 0 {
			return hvalue.Null, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return hvalue.NewFloat(m), nil
	case "max":
		if len(nums) == 0 {
			return hvalue.Null, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return hvalue.NewFloat(m), nil
	default:
		return hvalue.Null, fmt.Errorf("%w: %s", ErrUnknownFunction, fn.Name)
	}
}
