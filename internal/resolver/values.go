package resolver

import (
	"strconv"
	"strings"

	language "github.com/hanpama/mongograph/internal/language"
)

// bindVariables returns the supplied variables with operation defaults filled
// in for names the caller left out.
func bindVariables(op *language.OperationDefinition, variables map[string]any) map[string]any {
	bound := make(map[string]any, len(variables)+len(op.VariableDefinitions))
	for k, v := range variables {
		bound[strings.TrimPrefix(k, "$")] = v
	}
	for _, def := range op.VariableDefinitions {
		if _, ok := bound[def.Variable]; ok {
			continue
		}
		if def.DefaultValue == nil {
			continue
		}
		if v, ok := valueFromAST(def.DefaultValue, bound); ok {
			bound[def.Variable] = v
		}
	}
	return bound
}

// valueFromAST converts an AST value to a Go value. ok is false when the value
// is an unbound variable reference.
func valueFromAST(value *language.Value, variables map[string]any) (any, bool) {
	if value == nil {
		return nil, false
	}
	switch value.Kind {
	case language.Variable:
		v, ok := variables[value.Raw]
		return v, ok
	case language.IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return iv, true
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv, true
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv, true
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw, true
	case language.BooleanValue:
		return value.Raw == "true", true
	case language.NullValue:
		return nil, true
	case language.ListValue:
		out := make([]any, 0, len(value.Children))
		for _, c := range value.Children {
			if v, ok := valueFromAST(c.Value, variables); ok {
				out = append(out, v)
			}
		}
		return out, true
	case language.ObjectValue:
		out := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			if v, ok := valueFromAST(c.Value, variables); ok {
				out[c.Name] = v
			}
		}
		return out, true
	default:
		return nil, false
	}
}
