package glot

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/sandrolain/glot/pkg/types"
)

// Ready-made rule sources for common input shapes, modelled on the
// ABNF core rules. Register one with DefinePreset.
var presetRules = map[string]string{
	"digits": `start: [0-9]+;`,

	"integer": `start: "-"? [0-9]+;`,

	"decimal": `start: "-"? [0-9]+ ("." [0-9]+)?;`,

	"identifier": `
		start: first rest*;
		first: [a-z] | [A-Z] | "_";
		rest: first | [0-9];
	`,

	"hexcolor": `
		start: "#" hexdig{6};
		hexdig: [0-9] | [a-f] | [A-F];
	`,

	"email": `
		start: local "@" domain;
		local: atom ("." atom)*;
		atom: atomchar+;
		atomchar: alnum | "_" | "-";
		domain: label ("." label)*;
		label: alnum+;
		alnum: [a-z] | [0-9];
	`,

	"csv-row": `
		start: field ("," field)*;
		field: fieldchar*;
		fieldchar: [a-z] | [A-Z] | [0-9] | " " | "_";
	`,
}

// PresetNames lists the available presets in stable order.
func PresetNames() []string {
	names := lo.Keys(presetRules)
	sort.Strings(names)
	return names
}

// DefinePreset registers one of the ready-made langs under its preset
// name.
func (e *Env) DefinePreset(name string) (*Lang, error) {
	rules, ok := presetRules[name]
	if !ok {
		return nil, types.NewError(types.ErrUndefinedName,
			fmt.Sprintf("Unknown preset %q", name), -1)
	}
	return e.DefineLang(name, rules)
}
