// Package predicate implements the hplast.Predicate capability set as a
// small conjunction-of-comparisons expression, in the same spirit as the
// teacher's scope.field-operator-value condition language (see
// internal/agent/condition.go upstream): no tokenizer, whitespace-split
// terms, typed numeric/string comparison. It adds one extra operand form —
// "@alias.field" — so properties can express cross-event references such as
// "x > @B.x", and a "len(field)" accessor for collection-valued fields.
package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/git-afsantos/hplrv/internal/hplast"
)

// Op is a comparison operator.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
	OpEQ Op = "=="
	OpNE Op = "!="
)

type operandKind int

const (
	kindField operandKind = iota
	kindFieldLen
	kindRefField
	kindRefFieldLen
	kindVarField // tagged via ReplaceThisWithVar, field pulled from a named variable rather than "this"
	kindLiteralNum
	kindLiteralStr
)

type operand struct {
	kind  operandKind
	field string
	alias string // for kindRefField/kindRefFieldLen/kindVarField
	num   float64
	str   string
}

func (o operand) referencesAlias(alias string) bool {
	switch o.kind {
	case kindRefField, kindRefFieldLen, kindVarField:
		return o.alias == alias
	default:
		return false
	}
}

func (o operand) resolve(msg hplast.Message, bindings hplast.Bindings) (float64, string, bool, error) {
	switch o.kind {
	case kindLiteralNum:
		return o.num, "", false, nil
	case kindLiteralStr:
		return 0, o.str, true, nil
	case kindField:
		return fieldValue(msg, o.field)
	case kindFieldLen:
		return lenValue(msg, o.field)
	case kindRefField, kindVarField:
		bound, ok := bindings[o.alias]
		if !ok {
			return 0, "", false, fmt.Errorf("predicate: no binding for alias %q", o.alias)
		}
		return fieldValue(bound, o.field)
	case kindRefFieldLen:
		bound, ok := bindings[o.alias]
		if !ok {
			return 0, "", false, fmt.Errorf("predicate: no binding for alias %q", o.alias)
		}
		return lenValue(bound, o.field)
	default:
		return 0, "", false, fmt.Errorf("predicate: unknown operand kind %d", o.kind)
	}
}

func fieldValue(msg hplast.Message, field string) (float64, string, bool, error) {
	v, ok := msg.Data[field]
	if !ok {
		return 0, "", false, fmt.Errorf("predicate: message on topic %q has no field %q", msg.Topic, field)
	}
	switch t := v.(type) {
	case float64:
		return t, "", false, nil
	case int:
		return float64(t), "", false, nil
	case string:
		return 0, t, true, nil
	case bool:
		if t {
			return 1, "", false, nil
		}
		return 0, "", false, nil
	default:
		return 0, "", false, fmt.Errorf("predicate: field %q has unsupported type %T", field, v)
	}
}

func lenValue(msg hplast.Message, field string) (float64, string, bool, error) {
	v, ok := msg.Data[field]
	if !ok {
		return 0, "", false, fmt.Errorf("predicate: message on topic %q has no field %q", msg.Topic, field)
	}
	switch t := v.(type) {
	case []any:
		return float64(len(t)), "", false, nil
	case string:
		return float64(len(t)), "", false, nil
	default:
		return 0, "", false, fmt.Errorf("predicate: field %q is not a collection", field)
	}
}

type term struct {
	lhs operand
	op  Op
	rhs operand
}

func (t term) referencesAlias(alias string) bool {
	return t.lhs.referencesAlias(alias) || t.rhs.referencesAlias(alias)
}

func (t term) evaluate(msg hplast.Message, bindings hplast.Bindings) (bool, error) {
	lNum, lStr, lIsStr, err := t.lhs.resolve(msg, bindings)
	if err != nil {
		return false, err
	}
	rNum, rStr, rIsStr, err := t.rhs.resolve(msg, bindings)
	if err != nil {
		return false, err
	}
	if lIsStr != rIsStr {
		return false, fmt.Errorf("predicate: type mismatch comparing string and numeric operands")
	}
	if lIsStr {
		return compareStr(lStr, t.op, rStr), nil
	}
	return compareNum(lNum, t.op, rNum), nil
}

func compareNum(l float64, op Op, r float64) bool {
	switch op {
	case OpLT:
		return l < r
	case OpLE:
		return l <= r
	case OpGT:
		return l > r
	case OpGE:
		return l >= r
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	default:
		return false
	}
}

func compareStr(l string, op Op, r string) bool {
	switch op {
	case OpEQ:
		return l == r
	case OpNE:
		return l != r
	default:
		return false
	}
}

// Expr is a conjunction of comparison terms, or the vacuous truth when it
// has no terms.
type Expr struct {
	raw   string
	terms []term
}

// Vacuous returns the "always true" predicate.
func Vacuous() *Expr {
	return &Expr{raw: "true"}
}

// Parse compiles a condition string of the form
// "field op value [and field op value ...]" into an Expr. op is one of
// < <= > >= == !=. value is a float, a quoted string, or "@alias.field"
// (optionally "len(field)"/"len(@alias.field)" on either side).
func Parse(raw string) (*Expr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "true" {
		return Vacuous(), nil
	}
	parts := strings.Split(raw, " and ")
	terms := make([]term, 0, len(parts))
	for _, p := range parts {
		t, err := parseTerm(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("predicate: parse %q: %w", raw, err)
		}
		terms = append(terms, t)
	}
	return &Expr{raw: raw, terms: terms}, nil
}

func parseTerm(s string) (term, error) {
	for _, op := range []Op{OpLE, OpGE, OpEQ, OpNE, OpLT, OpGT} {
		idx := strings.Index(s, string(op))
		if idx < 0 {
			continue
		}
		lhsStr := strings.TrimSpace(s[:idx])
		rhsStr := strings.TrimSpace(s[idx+len(op):])
		lhs, err := parseOperand(lhsStr)
		if err != nil {
			return term{}, err
		}
		rhs, err := parseOperand(rhsStr)
		if err != nil {
			return term{}, err
		}
		return term{lhs: lhs, op: op, rhs: rhs}, nil
	}
	return term{}, fmt.Errorf("no comparison operator found in %q", s)
}

func parseOperand(s string) (operand, error) {
	lenOf := false
	if strings.HasPrefix(s, "len(") && strings.HasSuffix(s, ")") {
		lenOf = true
		s = s[4 : len(s)-1]
	}
	if strings.HasPrefix(s, "@") {
		dot := strings.IndexByte(s, '.')
		if dot < 0 {
			return operand{}, fmt.Errorf("invalid reference %q, expected @alias.field", s)
		}
		alias := s[1:dot]
		field := s[dot+1:]
		if lenOf {
			return operand{kind: kindRefFieldLen, alias: alias, field: field}, nil
		}
		return operand{kind: kindRefField, alias: alias, field: field}, nil
	}
	if lenOf {
		return operand{kind: kindFieldLen, field: s}, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return operand{kind: kindLiteralNum, num: n}, nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return operand{kind: kindLiteralStr, str: s[1 : len(s)-1]}, nil
	}
	return operand{kind: kindField, field: s}, nil
}

// Evaluate implements hplast.Predicate.
func (e *Expr) Evaluate(msg hplast.Message, bindings hplast.Bindings) (bool, error) {
	for _, t := range e.terms {
		ok, err := t.evaluate(msg, bindings)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// IsVacuous implements hplast.Predicate.
func (e *Expr) IsVacuous() bool { return len(e.terms) == 0 }

// ContainsReference implements hplast.Predicate.
func (e *Expr) ContainsReference(alias string) bool {
	for _, t := range e.terms {
		if t.referencesAlias(alias) {
			return true
		}
	}
	return false
}

// RefactorReference splits e into the part independent of alias (phi) and
// the residual constraint mentioning alias (psi, nil if none). This is the
// Go re-expression of the upstream refactor_reference/replace_this_with_var/
// replace_var_with_this dance: rather than textually rewriting a generic AST,
// each term already tracks which operand (if any) refers to an alias, so the
// split is a straightforward partition, with no need for the opaque HPL
// parser's internal representation.
func (e *Expr) RefactorReference(alias string) (hplast.Predicate, hplast.Predicate) {
	var independent, dependent []term
	for _, t := range e.terms {
		if t.referencesAlias(alias) {
			dependent = append(dependent, t)
		} else {
			independent = append(independent, t)
		}
	}
	phi := &Expr{raw: e.raw, terms: independent}
	if len(dependent) == 0 {
		return phi, nil
	}
	psi := &Expr{raw: e.raw, terms: dependent}
	return phi, psi
}

// ReplaceThisWithVar returns a copy of e where every bare ("this") field
// operand is retagged as a reference to varName.
func (e *Expr) ReplaceThisWithVar(varName string) hplast.Predicate {
	terms := make([]term, len(e.terms))
	for i, t := range e.terms {
		terms[i] = term{lhs: retagThis(t.lhs, varName), op: t.op, rhs: retagThis(t.rhs, varName)}
	}
	return &Expr{raw: e.raw, terms: terms}
}

func retagThis(o operand, varName string) operand {
	switch o.kind {
	case kindField:
		return operand{kind: kindVarField, alias: varName, field: o.field}
	case kindFieldLen:
		return operand{kind: kindRefFieldLen, alias: varName, field: o.field}
	default:
		return o
	}
}

// ReplaceVarWithThis is the inverse of ReplaceThisWithVar: operands tagged
// with varName become bare ("this") fields again.
func (e *Expr) ReplaceVarWithThis(varName string) hplast.Predicate {
	terms := make([]term, len(e.terms))
	for i, t := range e.terms {
		terms[i] = term{lhs: untagVar(t.lhs, varName), op: t.op, rhs: untagVar(t.rhs, varName)}
	}
	return &Expr{raw: e.raw, terms: terms}
}

func untagVar(o operand, varName string) operand {
	switch o.kind {
	case kindVarField, kindRefField:
		if o.alias == varName {
			return operand{kind: kindField, field: o.field}
		}
	case kindRefFieldLen:
		if o.alias == varName {
			return operand{kind: kindFieldLen, field: o.field}
		}
	}
	return o
}

func (e *Expr) String() string {
	if e.IsVacuous() {
		return "true"
	}
	return e.raw
}
