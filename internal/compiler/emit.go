package compiler

import (
	"fmt"

	"github.com/KromDaniel/peepgen/automaton"
	"github.com/KromDaniel/peepgen/internal/codegen"
	"github.com/KromDaniel/peepgen/rules"
	"github.com/dave/jennifer/jen"
)

// emit writes the tables and accessors into c.file.
func (c *Compiler) emit() {
	name := c.config.Name
	table := c.table

	source := c.config.Source
	if source == "" {
		source = "rule definitions"
	}
	c.file.HeaderComment(fmt.Sprintf("Code generated by %s from %s. DO NOT EDIT.", GeneratorName, source))
	c.file.HeaderComment(fmt.Sprintf("%s: %d rules, %d states, fingerprint %#016x.",
		name, len(table.Rules), len(table.Next), table.Fingerprint()))

	c.emitOpcodes()
	c.emitRules()
	c.emitTables()
	c.emitStep()
	c.emitAccepts()
	c.emitSatisfied()
}

func (c *Compiler) emitOpcodes() {
	name := c.config.Name
	if syms := c.config.Catalog.Symbols(); len(syms) > 0 {
		defs := make([]jen.Code, len(syms))
		for i, sym := range syms {
			defs[i] = jen.Id(codegen.OpcodeName(name, sym.Name)).Op("=").Lit(sym.ID)
		}
		c.file.Comment("Opcodes of the instruction catalog.")
		c.file.Const().Defs(defs...)
	}

	c.file.Const().Defs(
		jen.Comment(fmt.Sprintf("%s%s is the state to begin and reset to.", name, codegen.StartSuffix)),
		jen.Id(name+codegen.StartSuffix).Op("=").Lit(c.table.Start),
		jen.Comment(fmt.Sprintf("%s%s marks a missing transition or acceptance.", name, codegen.NoneSuffix)),
		jen.Id(name+codegen.NoneSuffix).Op("=").Lit(automaton.None),
	)
}

func (c *Compiler) emitRules() {
	name := c.config.Name
	ruleSet := c.set.Rules
	if len(ruleSet) == 0 {
		return
	}

	used := map[string]bool{
		name + codegen.RulesSuffix:      true,
		name + codegen.RuleLengthSuffix: true,
	}
	defs := make([]jen.Code, len(ruleSet))
	names := make([]jen.Code, len(ruleSet))
	lengths := make([]jen.Code, len(ruleSet))
	for i, r := range ruleSet {
		id := codegen.RuleConstName(name, r.Name)
		if used[id] {
			id = fmt.Sprintf("%s%d", id, i)
		}
		used[id] = true
		defs[i] = jen.Id(id).Op("=").Lit(i)
		names[i] = jen.Lit(r.Name)
		lengths[i] = jen.Lit(r.Len())
	}

	c.file.Comment("Rule indexes as returned by " + name + codegen.AcceptsSuffix + ".")
	c.file.Const().Defs(defs...)

	c.file.Commentf("%s%s names each rule.", name, codegen.RulesSuffix)
	c.file.Var().Id(name+codegen.RulesSuffix).Op("=").Index(jen.Lit(len(ruleSet))).String().Values(names...)

	c.file.Commentf("%s%s is the number of instructions each rule matches.", name, codegen.RuleLengthSuffix)
	c.file.Var().Id(name+codegen.RuleLengthSuffix).Op("=").Index(jen.Lit(len(ruleSet))).Int().Values(lengths...)
}

func (c *Compiler) emitTables() {
	lower := codegen.LowerFirst(c.config.Name)
	table := c.table
	syms := c.config.Catalog.Symbols()

	columns := make([]jen.Code, len(syms))
	for i, sym := range syms {
		columns[i] = jen.Lit(table.Column(sym.Name))
	}
	c.file.Comment("Opcode to table column.")
	c.file.Var().Id(lower+codegen.ColumnSuffix).Op("=").Index(jen.Lit(len(syms))).Int().Values(columns...)

	rows := make([]jen.Code, len(table.Next))
	for s, row := range table.Next {
		entries := make([]jen.Code, len(row))
		for i, target := range row {
			entries[i] = jen.Lit(target)
		}
		rows[s] = jen.Values(entries...)
	}
	c.file.Var().Id(lower+codegen.NextSuffix).Op("=").
		Index(jen.Lit(len(table.Next))).Index(jen.Lit(len(table.Symbols))).Int().Values(rows...)

	accepts := make([]jen.Code, len(table.Accept))
	for s, rule := range table.Accept {
		accepts[s] = jen.Lit(rule)
	}
	c.file.Var().Id(lower+codegen.AcceptSuffix).Op("=").Index(jen.Lit(len(table.Accept))).Int().Values(accepts...)
}

func (c *Compiler) emitStep() {
	name := c.config.Name
	lower := codegen.LowerFirst(name)
	state, symbol, col := jen.Id(codegen.StateName), jen.Id(codegen.SymbolName), jen.Id(codegen.ColumnName)

	c.file.Commentf("%s%s returns the successor of state on the opcode symbol, or %s%s.",
		name, codegen.StepSuffix, name, codegen.NoneSuffix)
	c.file.Comment("On " + name + codegen.NoneSuffix + " the caller resets to " + name + codegen.StartSuffix + " and retries the symbol once.")
	c.file.Func().Id(name+codegen.StepSuffix).Params(
		jen.List(state.Clone(), symbol.Clone()).Int(),
	).Int().Block(
		jen.If(
			symbol.Clone().Op("<").Lit(0).Op("||").
				Add(symbol.Clone()).Op(">=").Len(jen.Id(lower+codegen.ColumnSuffix)).Op("||").
				Add(state.Clone()).Op("<").Lit(0).Op("||").
				Add(state.Clone()).Op(">=").Len(jen.Id(lower+codegen.NextSuffix)),
		).Block(
			jen.Return(jen.Id(name+codegen.NoneSuffix)),
		),
		col.Clone().Op(":=").Id(lower+codegen.ColumnSuffix).Index(symbol.Clone()),
		jen.If(col.Clone().Op("<").Lit(0)).Block(
			jen.Return(jen.Id(name+codegen.NoneSuffix)),
		),
		jen.Return(jen.Id(lower+codegen.NextSuffix).Index(state.Clone()).Index(col.Clone())),
	)
}

func (c *Compiler) emitAccepts() {
	name := c.config.Name
	lower := codegen.LowerFirst(name)
	state := jen.Id(codegen.StateName)

	c.file.Commentf("%s%s returns the rule recognized in state, or %s%s.",
		name, codegen.AcceptsSuffix, name, codegen.NoneSuffix)
	c.file.Comment("The rule only applies if " + name + codegen.SatisfiedSuffix + " holds for the matched immediates.")
	c.file.Func().Id(name+codegen.AcceptsSuffix).Params(state.Clone().Int()).Int().Block(
		jen.If(
			state.Clone().Op("<").Lit(0).Op("||").
				Add(state.Clone()).Op(">=").Len(jen.Id(lower+codegen.AcceptSuffix)),
		).Block(
			jen.Return(jen.Id(name+codegen.NoneSuffix)),
		),
		jen.Return(jen.Id(lower+codegen.AcceptSuffix).Index(state.Clone())),
	)
}

// emitSatisfied writes the immediate equality checks of every conditional rule.
func (c *Compiler) emitSatisfied() {
	name := c.config.Name
	rule, values := jen.Id(codegen.RuleName), jen.Id(codegen.ValuesName)

	var cases []jen.Code
	for i, r := range c.set.Rules {
		constraints := r.Constraints()
		if len(constraints) == 0 {
			continue
		}
		var cond *jen.Statement
		and := func(term *jen.Statement) {
			if cond == nil {
				cond = term
			} else {
				cond = cond.Op("&&").Add(term)
			}
		}
		// Every indexed slot is bounds checked first.
		guarded := make(map[rules.Reference]bool)
		for _, k := range constraints {
			for _, ref := range []rules.Reference{k.Declared, k.Repeated} {
				if guarded[ref] {
					continue
				}
				guarded[ref] = true
				and(jen.Len(values.Clone().Index(jen.Lit(ref.Instruction))).Op(">").Lit(ref.Slot))
			}
		}
		for _, k := range constraints {
			and(values.Clone().Index(jen.Lit(k.Repeated.Instruction)).Index(jen.Lit(k.Repeated.Slot)).
				Op("==").
				Add(values.Clone()).Index(jen.Lit(k.Declared.Instruction)).Index(jen.Lit(k.Declared.Slot)))
		}
		cases = append(cases, jen.Case(jen.Lit(i)).Block(jen.Return(cond)))
	}

	body := []jen.Code{}
	if len(c.set.Rules) > 0 {
		body = append(body, jen.If(
			rule.Clone().Op("<").Lit(0).Op("||").
				Add(rule.Clone()).Op(">=").Len(jen.Id(name+codegen.RuleLengthSuffix)).Op("||").
				Len(values.Clone()).Op("!=").Id(name+codegen.RuleLengthSuffix).Index(rule.Clone()),
		).Block(
			jen.Return(jen.False()),
		))
	} else {
		body = append(body, jen.Return(jen.False()))
	}
	if len(cases) > 0 {
		body = append(body, jen.Switch(rule.Clone()).Block(cases...))
	}
	if len(c.set.Rules) > 0 {
		body = append(body, jen.Return(jen.True()))
	}

	c.file.Commentf("%s%s reports whether the immediates matched by rule meet its", name, codegen.SatisfiedSuffix)
	c.file.Comment("equality constraints. values[i] holds the immediates of the i-th matched instruction;")
	c.file.Comment("missing immediates fail the check.")
	c.file.Func().Id(name+codegen.SatisfiedSuffix).Params(
		rule.Clone().Int(),
		values.Clone().Index().Index().Int64(),
	).Bool().Block(body...)
}
