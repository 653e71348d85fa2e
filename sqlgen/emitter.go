package sqlgen

import (
	"fmt"
	"strings"

	"github.com/vegasq/mapcheck/query"
	"github.com/vegasq/mapcheck/scenario"
)

// Table aliases used throughout the generated SQL
const (
	SourceAlias    = "s"
	TargetAlias    = "t"
	ReferenceAlias = "r"
)

// Labels produced by the built-in checks. The first of each pair is the
// passing label.
const (
	LabelComplete    = "Complete"
	LabelIncomplete  = "Incomplete"
	LabelWithinRange = "Within Range"
	LabelOutOfRange  = "Out of Range"
	LabelValid       = "Valid"
	LabelInvalid     = "Invalid"
)

// Emission is one derivation rendered as SQL
type Emission struct {
	Select   string   // scalar expression for the SELECT list
	GroupBy  []string // qualified GROUP BY columns when the expression aggregates
	Joins    []string // extra FROM clause fragments (reference table join)
	Numeric  bool     // compare with tolerance rather than text equality
	Expected string   // passing label of a check expression
}

// Emitter turns parsed derivation logic into SQL scalar expressions
type Emitter struct {
	cfg Config
}

// NewEmitter creates an emitter for the configured dialect
func NewEmitter(cfg Config) *Emitter {
	return &Emitter{cfg: cfg}
}

// emitState is the per-scenario rendering state
type emitState struct {
	d         Dialect
	cfg       Config
	spec      *scenario.Spec
	ref       *referenceTarget
	mappings  []query.Mapping
	needsRef  bool
	sawLookup bool
}

// referenceTarget is the resolved third table of a lookup scenario
type referenceTarget struct {
	table        string
	keys         []scenario.KeyPair
	returnColumn string
}

// Emit renders expr for spec. Source columns are qualified with the source
// alias, reference columns with the reference alias.
func (e *Emitter) Emit(expr *query.Expression, spec *scenario.Spec) (*Emission, error) {
	st := &emitState{d: e.cfg.Dialect, cfg: e.cfg, spec: spec}

	mappings, err := query.ParseHardcodedValues(spec.HardcodedValues)
	if err != nil {
		return nil, configError(spec, scenario.ColHardcodedValues, err.Error())
	}
	st.mappings = mappings

	lookup, err := singleLookup(expr, spec)
	if err != nil {
		return nil, err
	}
	if lookup != nil || spec.Reference != nil {
		st.ref, err = resolveReference(spec, lookup)
		if err != nil {
			return nil, err
		}
	}

	em := &Emission{}
	fromRef := readsReferenceColumn(expr, spec)
	switch {
	case fromRef:
		em.Select = ReferenceAlias + "." + st.d.Ident(st.ref.returnColumn)
		st.needsRef = true
	case expr.Fallback:
		em.Select = expr.Raw
		st.needsRef = spec.Reference != nil
	default:
		em.Select, err = st.node(expr.Root)
		if err != nil {
			return nil, err
		}
	}

	if len(st.mappings) > 0 && !st.sawLookup {
		em.Select = st.relabel(em.Select)
	}

	if st.needsRef || st.sawLookup {
		if st.ref == nil {
			return nil, configError(spec, scenario.ColReferenceTable, "derivation reads the reference table but none is configured")
		}
		em.Joins = append(em.Joins, st.referenceJoin())
	}

	if expr.Aggregate {
		columns := expr.GroupBy
		if len(columns) == 0 {
			columns = spec.SourceJoinKeys
		}
		for _, col := range columns {
			em.GroupBy = append(em.GroupBy, SourceAlias+"."+st.d.Ident(col))
		}
	}

	if !fromRef {
		em.Numeric = isNumeric(expr.Root) || (expr.Fallback && spec.ValidationType == scenario.Aggregation)
		em.Expected = expectedLabel(expr.Root)
	}

	return em, nil
}

// readsReferenceColumn reports whether the scenario's reference return
// column stands in for the derivation. That is the case when the logic is
// empty, is prose, or only names the source side of a reference key.
func readsReferenceColumn(expr *query.Expression, spec *scenario.Spec) bool {
	if !spec.HasReferenceReturn() {
		return false
	}
	if expr.Empty() || expr.Fallback {
		return true
	}
	col, ok := expr.Root.(*query.ColumnRef)
	if !ok || !sourceQualifier(col.Qualifier, spec) {
		return false
	}
	for _, key := range spec.Reference.Keys {
		if strings.EqualFold(key.Source, col.Column) {
			return true
		}
	}
	return false
}

func sourceQualifier(qualifier string, spec *scenario.Spec) bool {
	switch q := strings.ToLower(qualifier); q {
	case "", "s", "src", "source":
		return true
	default:
		return q == tableAlias(spec.SourceTable)
	}
}

// singleLookup returns the lookup call of expr, if any. All lookups of one
// scenario must use the same reference table.
func singleLookup(expr *query.Expression, spec *scenario.Spec) (*query.LookupExpr, error) {
	var found *query.LookupExpr
	var err error
	query.Walk(expr.Root, func(n query.Node) bool {
		lookup, ok := n.(*query.LookupExpr)
		if !ok || err != nil {
			return err == nil
		}
		if found != nil && !strings.EqualFold(found.Table, lookup.Table) {
			err = configError(spec, scenario.ColReferenceTable,
				fmt.Sprintf("lookups against %q and %q; one reference table per scenario", found.Table, lookup.Table))
			return false
		}
		if found == nil {
			found = lookup
		}
		return true
	})
	return found, err
}

// resolveReference merges the scenario's reference columns with the lookup
// call. Explicit scenario columns win for the table and keys, the lookup
// call wins for the return column.
func resolveReference(spec *scenario.Spec, lookup *query.LookupExpr) (*referenceTarget, error) {
	ref := &referenceTarget{}
	if spec.Reference != nil {
		ref.table = spec.Reference.Table
		ref.keys = spec.Reference.Keys
		ref.returnColumn = spec.Reference.ReturnColumn
	}

	if lookup != nil {
		if ref.table == "" {
			ref.table = lookup.Table
		}
		if lookup.ReturnColumn != "" {
			ref.returnColumn = lookup.ReturnColumn
		}
		if len(ref.keys) == 0 && lookup.KeyColumn != "" {
			refKey := lookup.ReferenceKey
			if refKey == "" {
				refKey = lookup.KeyColumn
			}
			ref.keys = []scenario.KeyPair{{Source: lookup.KeyColumn, Target: unqualified(refKey)}}
		}
	}
	ref.returnColumn = unqualified(ref.returnColumn)

	switch {
	case ref.table == "":
		return nil, configError(spec, scenario.ColReferenceTable, "reference table is missing")
	case len(ref.keys) == 0:
		return nil, configError(spec, scenario.ColReferenceJoinKey, "reference join key is missing")
	case lookup != nil && ref.returnColumn == "":
		return nil, configError(spec, scenario.ColReferenceReturnColumn, "reference return column is missing")
	}

	return ref, nil
}

func unqualified(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// referenceJoin renders LEFT JOIN <reference> r ON s.k = r.k [AND ...]
func (st *emitState) referenceJoin() string {
	table := st.d.Table(st.cfg.Project, st.cfg.Dataset, st.ref.table)
	return fmt.Sprintf("LEFT JOIN %s %s ON %s", table, ReferenceAlias,
		scenario.Predicate(quotePairs(st.d, st.ref.keys), SourceAlias, ReferenceAlias))
}

// quotePairs quotes both sides of each key pair for the dialect
func quotePairs(d Dialect, pairs []scenario.KeyPair) []scenario.KeyPair {
	quoted := make([]scenario.KeyPair, len(pairs))
	for i, pair := range pairs {
		quoted[i] = scenario.KeyPair{Source: d.Ident(pair.Source), Target: d.Ident(pair.Target)}
	}
	return quoted
}

// relabel wraps expr in CASE expr WHEN 'key' THEN 'value' ... ELSE expr END
func (st *emitState) relabel(expr string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(expr)
	for _, m := range st.mappings {
		fmt.Fprintf(&b, " WHEN %s THEN %s", st.d.String(m.Key), st.d.String(m.Value))
	}
	fmt.Fprintf(&b, " ELSE %s END", expr)
	return b.String()
}

// node renders one AST node
func (st *emitState) node(n query.Node) (string, error) {
	switch v := n.(type) {
	case *query.ColumnRef:
		return st.column(v)

	case *query.Literal:
		return st.literal(v), nil

	case *query.ParenExpr:
		inner, err := st.node(v.Inner)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil

	case *query.ConcatExpr:
		parts := make([]string, 0, len(v.Parts))
		for _, part := range v.Parts {
			s, err := st.node(part)
			if err != nil {
				return "", err
			}
			if _, infix := part.(*query.ArithmeticExpr); infix {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "", configError(st.spec, scenario.ColDerivationLogic, "CONCAT has no operands")
		}
		return st.d.Concat(parts), nil

	case *query.ArithmeticExpr:
		left, err := st.node(v.Left)
		if err != nil {
			return "", err
		}
		right, err := st.node(v.Right)
		if err != nil {
			return "", err
		}
		if v.Operator == query.TokenSlash {
			return st.d.Divide(left, right), nil
		}
		return left + " " + v.Operator.String() + " " + right, nil

	case *query.NegateExpr:
		inner, err := st.node(v.Inner)
		if err != nil {
			return "", err
		}
		switch v.Inner.(type) {
		case *query.ColumnRef, *query.ParenExpr, *query.FunctionCall, *query.AggregateCall:
			return "-" + inner, nil
		}
		return "-(" + inner + ")", nil

	case *query.CaseExpr:
		return st.caseExpr(v)

	case *query.AggregateCall:
		if v.Star {
			return v.Func + "(*)", nil
		}
		arg, err := st.node(v.Arg)
		if err != nil {
			return "", err
		}
		if v.Distinct {
			return v.Func + "(DISTINCT " + arg + ")", nil
		}
		return v.Func + "(" + arg + ")", nil

	case *query.LookupExpr:
		st.sawLookup = true
		value := ReferenceAlias + "." + st.d.Ident(st.ref.returnColumn)
		if len(st.mappings) > 0 {
			value = st.relabel(value)
		}
		return value, nil

	case *query.FunctionCall:
		args := make([]string, 0, len(v.Args))
		for _, arg := range v.Args {
			s, err := st.node(arg)
			if err != nil {
				return "", err
			}
			args = append(args, s)
		}
		if v.Name == "FORMAT_DATE" {
			return st.d.FormatDate(args[0], args[1]), nil
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")", nil

	case *query.CheckExpr:
		return st.check(v)

	case *query.RawExpr:
		return v.Text, nil

	default:
		return "", fmt.Errorf("unsupported expression node %T", n)
	}
}

// column qualifies a column reference. Unknown qualifiers are kept as
// written so the database can report them.
func (st *emitState) column(ref *query.ColumnRef) (string, error) {
	q := strings.ToLower(ref.Qualifier)
	col := st.d.Ident(ref.Column)

	switch {
	case sourceQualifier(q, st.spec):
		return SourceAlias + "." + col, nil
	case q == "r" || q == "ref" || q == "reference" || (st.spec.Reference != nil && q == tableAlias(st.spec.Reference.Table)):
		st.needsRef = true
		return ReferenceAlias + "." + col, nil
	case q == "t" || q == "target" || (st.spec.TargetTable != "" && q == tableAlias(st.spec.TargetTable)):
		return "", configError(st.spec, scenario.ColDerivationLogic,
			fmt.Sprintf("%s reads the target table; derivations may only use source and reference columns", ref.Name()))
	default:
		return ref.Qualifier + "." + col, nil
	}
}

// tableAlias is the last dotted part of a table name, lower-cased
func tableAlias(table string) string {
	return strings.ToLower(unqualified(strings.ReplaceAll(table, "`", "")))
}

func (st *emitState) literal(l *query.Literal) string {
	switch l.Kind {
	case query.LiteralString:
		return st.d.String(l.Value)
	case query.LiteralNull:
		return "NULL"
	default:
		return l.Value
	}
}

func (st *emitState) caseExpr(c *query.CaseExpr) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	for _, when := range c.Whens {
		cond, err := st.predicate(when.Condition)
		if err != nil {
			return "", err
		}
		result, err := st.node(when.Result)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " WHEN %s THEN %s", cond, result)
	}
	if c.Else != nil {
		elseExpr, err := st.node(c.Else)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " ELSE %s", elseExpr)
	}
	b.WriteString(" END")
	return b.String(), nil
}

func (st *emitState) predicate(p query.Predicate) (string, error) {
	switch v := p.(type) {
	case *query.Comparison:
		left, err := st.node(v.Left)
		if err != nil {
			return "", err
		}
		right, err := st.node(v.Right)
		if err != nil {
			return "", err
		}
		return left + " " + v.Operator.String() + " " + right, nil

	case *query.LogicalExpr:
		left, err := st.predicate(v.Left)
		if err != nil {
			return "", err
		}
		right, err := st.predicate(v.Right)
		if err != nil {
			return "", err
		}
		return left + " " + v.Operator.String() + " " + right, nil

	case *query.GroupedPredicate:
		inner, err := st.predicate(v.Inner)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil

	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

// check renders the built-in checks as labelled CASE expressions
func (st *emitState) check(c *query.CheckExpr) (string, error) {
	columns := make([]string, 0, len(c.Columns))
	for i := range c.Columns {
		col, err := st.column(&c.Columns[i])
		if err != nil {
			return "", err
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return "", configError(st.spec, scenario.ColDerivationLogic, "check has no columns")
	}

	var cond string
	var pass, fail string
	switch c.Check {
	case query.CheckNotNull:
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = col + " IS NOT NULL"
		}
		cond = strings.Join(parts, " AND ")
		pass, fail = LabelComplete, LabelIncomplete

	case query.CheckRange:
		var bounds []string
		if c.Min != nil {
			bounds = append(bounds, columns[0]+" >= "+c.Min.Value)
		}
		if c.Max != nil {
			bounds = append(bounds, columns[0]+" <= "+c.Max.Value)
		}
		cond = strings.Join(bounds, " AND ")
		pass, fail = LabelWithinRange, LabelOutOfRange

	case query.CheckEmail:
		cond = st.d.IsEmail(columns[0])
		pass, fail = LabelValid, LabelInvalid

	case query.CheckPattern:
		cond = columns[0] + " LIKE " + st.d.String(c.Pattern)
		pass, fail = LabelValid, LabelInvalid

	default:
		return "", fmt.Errorf("unsupported check %d", c.Check)
	}

	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, st.d.String(pass), st.d.String(fail)), nil
}

// expectedLabel is the passing label when root is a check
func expectedLabel(root query.Node) string {
	for {
		paren, ok := root.(*query.ParenExpr)
		if !ok {
			break
		}
		root = paren.Inner
	}
	check, ok := root.(*query.CheckExpr)
	if !ok {
		return ""
	}
	switch check.Check {
	case query.CheckNotNull:
		return LabelComplete
	case query.CheckRange:
		return LabelWithinRange
	default:
		return LabelValid
	}
}

// isNumeric reports whether an expression yields a number, in which case
// the comparison uses the tolerance
func isNumeric(n query.Node) bool {
	switch v := n.(type) {
	case *query.ParenExpr:
		return isNumeric(v.Inner)
	case *query.ArithmeticExpr, *query.NegateExpr:
		return true
	case *query.Literal:
		return v.Kind == query.LiteralNumber
	case *query.AggregateCall:
		switch v.Func {
		case "SUM", "AVG", "COUNT":
			return true
		}
		return v.Arg != nil && isNumeric(v.Arg)
	case *query.FunctionCall:
		switch v.Name {
		case "ROUND", "ABS", "LENGTH":
			return true
		case "COALESCE":
			return len(v.Args) > 0 && isNumeric(v.Args[0])
		}
	case *query.CaseExpr:
		for _, when := range v.Whens {
			if !isNumeric(when.Result) {
				return false
			}
		}
		return v.Else == nil || isNumeric(v.Else)
	}
	return false
}

func configError(spec *scenario.Spec, field, reason string) *scenario.ConfigError {
	return &scenario.ConfigError{Scenario: spec.Name, Row: spec.Row, Field: field, Reason: reason}
}
