package typer

import "github.com/sandrolain/glot/pkg/types"

// The predef table assigns types to the builtin operators and
// functions of the predicate language. Names missing here must be
// bound in scope. Overloaded builtins carry every accepted signature.

func fun(ret types.SimpleType, args ...types.SimpleType) types.FunType {
	return types.FunType{Args: args, Ret: ret}
}

var (
	intT     = types.IntType{}
	boolT    = types.BoolType{}
	stringT  = types.StringType{}
	topT     = types.TopType{}
	stringsT = types.ListType{Elem: types.StringType{}}
)

var predef = map[string]types.SimpleType{
	"prefix_-": fun(intT, intT),
	"prefix_!": fun(boolT, boolT),

	"+": types.OverloadType{Options: []types.FunType{
		fun(intT, intT, intT),
		fun(stringT, stringT, stringT),
	}},
	"-": fun(intT, intT, intT),
	"*": fun(intT, intT, intT),
	"/": fun(intT, intT, intT),
	"%": fun(intT, intT, intT),

	"<": types.OverloadType{Options: []types.FunType{
		fun(boolT, intT, intT),
		fun(boolT, stringT, stringT),
	}},
	"<=": types.OverloadType{Options: []types.FunType{
		fun(boolT, intT, intT),
		fun(boolT, stringT, stringT),
	}},
	">": types.OverloadType{Options: []types.FunType{
		fun(boolT, intT, intT),
		fun(boolT, stringT, stringT),
	}},
	">=": types.OverloadType{Options: []types.FunType{
		fun(boolT, intT, intT),
		fun(boolT, stringT, stringT),
	}},

	"==": fun(boolT, topT, topT),
	"!=": fun(boolT, topT, topT),
	"&&": fun(boolT, boolT, boolT),
	"||": fun(boolT, boolT, boolT),
	// string containment; lang membership is resolved to its own
	// expression form before checking
	"in": fun(boolT, stringT, stringT),

	"len":        fun(intT, stringT),
	"concat":     fun(stringT, stringT, stringT),
	"substr":     fun(stringT, stringT, intT, intT),
	"at":         fun(stringT, stringT, intT),
	"ord":        fun(intT, stringT),
	"chr":        fun(stringT, intT),
	"int":        fun(intT, stringT),
	"str":        fun(stringT, intT),
	"startswith": fun(boolT, stringT, stringT),
	"endswith":   fun(boolT, stringT, stringT),
	"isdigit":    fun(boolT, stringT),
	"find": types.OverloadType{Options: []types.FunType{
		fun(intT, stringT, stringT),
		fun(intT, stringT, stringT, intT),
	}},
	"index": types.OverloadType{Options: []types.FunType{
		fun(intT, stringT, stringT),
		fun(intT, stringT, stringT, intT),
	}},
	"replace": types.OverloadType{Options: []types.FunType{
		fun(stringT, stringT, stringT, stringT),
		fun(stringT, stringT, stringT, stringT, intT),
	}},

	"forall": fun(boolT, fun(boolT, stringT), stringsT),
	"exists": fun(boolT, fun(boolT, stringT), stringsT),
	"first":  fun(stringT, stringsT),
	"last":   fun(stringT, stringsT),
}

// predefType looks up the builtin type of a name.
func predefType(name string) (types.SimpleType, bool) {
	t, ok := predef[name]
	return t, ok
}
