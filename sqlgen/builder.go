package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/mapcheck/query"
	"github.com/vegasq/mapcheck/scenario"
)

// Mode selects the comparison template
type Mode int

const (
	// ModeCompare joins the calculated source values to the target column
	ModeCompare Mode = iota
	// ModeProfile checks the source population alone (no target table)
	ModeProfile
	// ModeEmpty produces a query returning zero compared rows
	ModeEmpty
)

func (m Mode) String() string {
	switch m {
	case ModeCompare:
		return "compare"
	case ModeProfile:
		return "profile"
	case ModeEmpty:
		return "empty"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Result set columns of every generated query
const (
	ColRowType         = "row_type"
	ColTotalRows       = "total_rows"
	ColMatchCount      = "match_count"
	ColMismatchCount   = "mismatch_count"
	ColSourceNullCount = "source_null_count"
	ColTargetNullCount = "target_null_count"
	ColBothNullCount   = "both_null_count"
	ColMatchPercentage = "match_percentage"
	ColStatus          = "validation_status"
	ColSampleKey       = "sample_key"
	ColCalculatedValue = "calculated_value"
	ColActualValue     = "actual_value"
	ColClassification  = "classification"
)

// Values of the row_type column
const (
	RowTypeSummary = "SUMMARY"
	RowTypeSample  = "SAMPLE"
)

// Plan is a built scenario: the parsed derivation, its SQL rendering and
// the final query text
type Plan struct {
	Scenario   string
	Mode       Mode
	Expression *query.Expression
	Emission   *Emission
	Keys       []scenario.KeyPair
	Source     string
	Target     string
	SQL        string
}

// Builder turns scenarios into single-statement comparison queries
type Builder struct {
	cfg     Config
	emitter *Emitter
}

// NewBuilder creates a builder after validating cfg
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid builder config: %w", err)
	}
	return &Builder{cfg: cfg, emitter: NewEmitter(cfg)}, nil
}

// Config returns the builder configuration
func (b *Builder) Config() Config {
	return b.cfg
}

// Build returns the comparison SQL for spec. Configuration problems are
// returned as *scenario.ConfigError before any SQL is produced.
func (b *Builder) Build(spec *scenario.Spec) (string, error) {
	plan, err := b.Plan(spec)
	if err != nil {
		return "", err
	}
	return plan.SQL, nil
}

// Plan builds spec and keeps the intermediate results
func (b *Builder) Plan(spec *scenario.Spec) (*Plan, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	expr, err := b.derivation(spec)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Scenario:   spec.Name,
		Expression: expr,
		Source:     b.cfg.Dialect.Table(b.cfg.Project, b.cfg.Dataset, spec.SourceTable),
	}
	if !spec.Profile() {
		plan.Target = b.cfg.Dialect.Table(b.cfg.Project, b.cfg.Dataset, spec.TargetTable)
	}

	fromRef := readsReferenceColumn(expr, spec)
	if expr.Empty() && !fromRef {
		plan.Mode = ModeEmpty
		plan.SQL = b.render(plan, spec)
		return plan, nil
	}

	if !fromRef && expr.Kind != query.KindCopy && len(expr.Operands) == 0 {
		return nil, configError(spec, scenario.ColDerivationLogic,
			fmt.Sprintf("%s expression %q has no operands", expr.Kind, expr.Raw))
	}

	plan.Emission, err = b.emitter.Emit(expr, spec)
	if err != nil {
		return nil, err
	}

	plan.Keys, err = joinKeys(expr, spec)
	if err != nil {
		return nil, err
	}

	if spec.Profile() {
		plan.Mode = ModeProfile
	}
	plan.SQL = b.render(plan, spec)

	return plan, nil
}

// derivation parses the scenario's logic, falling back to
// Business_Conditions when the logic is empty or not understood
func (b *Builder) derivation(spec *scenario.Spec) (*query.Expression, error) {
	expr := query.Parse(spec.DerivationLogic)

	if (expr.Empty() || expr.Fallback) && strings.TrimSpace(spec.BusinessConditions) != "" {
		cond, err := query.ParseBusinessConditions(spec.BusinessConditions)
		if err != nil {
			cfgErr := configError(spec, scenario.ColBusinessConditions, err.Error())
			cfgErr.Err = err
			return nil, cfgErr
		}
		return cond, nil
	}

	if readsReferenceColumn(expr, spec) {
		return expr, nil
	}

	if expr.Empty() && !spec.ValidationType.AllowsEmptyLogic() {
		return nil, configError(spec, scenario.ColDerivationLogic,
			fmt.Sprintf("is required for validation type %s", spec.ValidationType))
	}

	if expr.Fallback && b.cfg.Strict {
		cfgErr := configError(spec, scenario.ColDerivationLogic, fmt.Sprintf("cannot be translated: %v", expr.Err))
		cfgErr.Err = expr.Err
		return nil, cfgErr
	}

	return expr, nil
}

// joinKeys returns the effective key pairs. An explicit GROUP_BY list
// replaces the source join keys because those are the columns the
// aggregated rows are keyed by.
func joinKeys(expr *query.Expression, spec *scenario.Spec) ([]scenario.KeyPair, error) {
	pairs := spec.KeyPairs()
	if !expr.Aggregate || len(expr.GroupBy) == 0 {
		return pairs, nil
	}

	if !spec.Profile() && len(expr.GroupBy) != len(spec.TargetJoinKeys) {
		return nil, configError(spec, scenario.ColDerivationLogic, fmt.Sprintf(
			"GROUP_BY lists %d column(s) %v but there are %d target key(s) %v",
			len(expr.GroupBy), expr.GroupBy, len(spec.TargetJoinKeys), spec.TargetJoinKeys))
	}

	pairs = make([]scenario.KeyPair, len(expr.GroupBy))
	for i, col := range expr.GroupBy {
		pairs[i].Source = col
		if i < len(spec.TargetJoinKeys) {
			pairs[i].Target = spec.TargetJoinKeys[i]
		}
	}
	return pairs, nil
}

// render writes the whole statement. Every mode ends in the same summary
// and sample section so the result set shape never changes.
func (b *Builder) render(plan *Plan, spec *scenario.Spec) string {
	w := &sqlWriter{}
	d := b.cfg.Dialect

	w.line(0, "-- Scenario: %s", oneLine(spec.Name))
	if plan.Target != "" {
		w.line(0, "-- Source: %s | Target: %s.%s", plan.Source, plan.Target, unqualified(spec.TargetColumn))
	} else {
		w.line(0, "-- Source: %s (profile, no target table)", plan.Source)
	}
	if plan.Expression != nil && plan.Expression.Raw != "" {
		w.line(0, "-- Derivation: %s", oneLine(plan.Expression.Raw))
	}
	switch {
	case plan.Expression != nil && readsReferenceColumn(plan.Expression, spec):
		w.line(0, "-- Derivation reads reference column: %s.%s", spec.Reference.Table, spec.Reference.ReturnColumn)
	case plan.Expression != nil && plan.Expression.Fallback:
		w.line(0, "-- Derivation passed through untranslated: %s", oneLine(plan.Expression.Err.Error()))
	}

	switch plan.Mode {
	case ModeEmpty:
		w.line(0, "WITH comparison AS (")
		w.line(1, "SELECT")
		w.line(2, "%s AS join_key,", d.Null(TypeString))
		w.line(2, "%s AS calculated_value,", d.Null(TypeString))
		w.line(2, "%s AS actual_value,", d.Null(TypeString))
		w.line(2, "%s AS classification", d.Null(TypeString))
		w.line(1, "FROM (SELECT 1 AS placeholder) AS no_rows")
		w.line(1, "WHERE 1 = 0")
		w.line(0, "),")
	case ModeProfile:
		b.writeSourceCalculated(w, plan)
		b.writeProfileComparison(w, plan)
	default:
		b.writeSourceCalculated(w, plan)
		b.writeTargetActual(w, plan, spec)
		b.writeComparison(w, plan)
	}

	b.writeSummary(w)
	return w.String()
}

func (b *Builder) writeSourceCalculated(w *sqlWriter, plan *Plan) {
	d := b.cfg.Dialect

	w.line(0, "WITH source_calculated AS (")
	w.line(1, "SELECT")
	for _, pair := range plan.Keys {
		col := d.Ident(pair.Source)
		w.line(2, "%s.%s AS %s,", SourceAlias, col, col)
	}
	w.line(2, "%s AS calculated_value", plan.Emission.Select)
	w.line(1, "FROM %s %s", plan.Source, SourceAlias)
	for _, join := range plan.Emission.Joins {
		w.line(1, "%s", join)
	}
	if len(plan.Emission.GroupBy) > 0 {
		w.line(1, "GROUP BY %s", strings.Join(plan.Emission.GroupBy, ", "))
	}
	w.line(0, "),")
}

func (b *Builder) writeTargetActual(w *sqlWriter, plan *Plan, spec *scenario.Spec) {
	d := b.cfg.Dialect

	w.line(0, "target_actual AS (")
	w.line(1, "SELECT")
	for _, pair := range plan.Keys {
		col := d.Ident(pair.Target)
		w.line(2, "%s.%s AS %s,", TargetAlias, col, col)
	}
	w.line(2, "%s.%s AS actual_value", TargetAlias, d.Ident(unqualified(spec.TargetColumn)))
	w.line(1, "FROM %s %s", plan.Target, TargetAlias)
	w.line(0, "),")
}

func (b *Builder) writeComparison(w *sqlWriter, plan *Plan) {
	d := b.cfg.Dialect

	pieces := make([]string, len(plan.Keys))
	for i, pair := range plan.Keys {
		pieces[i] = fmt.Sprintf("COALESCE(%s, %s)",
			d.Cast(SourceAlias+"."+d.Ident(pair.Source), TypeString),
			d.Cast(TargetAlias+"."+d.Ident(pair.Target), TypeString))
	}

	calc := SourceAlias + ".calculated_value"
	actual := TargetAlias + ".actual_value"

	w.line(0, "comparison AS (")
	w.line(1, "SELECT")
	w.line(2, "%s AS join_key,", b.joinKey(pieces))
	w.line(2, "%s AS calculated_value,", calc)
	w.line(2, "%s AS actual_value,", actual)
	w.line(2, "CASE")
	w.line(3, "WHEN %s IS NULL AND %s IS NULL THEN 'BOTH_NULL'", calc, actual)
	w.line(3, "WHEN %s IS NULL THEN 'SOURCE_NULL'", calc)
	w.line(3, "WHEN %s IS NULL THEN 'TARGET_NULL'", actual)
	w.line(3, "WHEN %s THEN 'MATCH'", b.matchCondition(calc, actual, plan.Emission.Numeric))
	w.line(3, "ELSE 'MISMATCH'")
	w.line(2, "END AS classification")
	w.line(1, "FROM source_calculated %s", SourceAlias)
	w.line(1, "FULL OUTER JOIN target_actual %s", TargetAlias)
	w.line(2, "ON %s", scenario.Predicate(quotePairs(d, plan.Keys), SourceAlias, TargetAlias))
	w.line(0, "),")
}

// writeProfileComparison classifies source rows alone: a NULL calculated
// value is SOURCE_NULL, a check counts as MATCH only with its passing label,
// and any other value is a MATCH
func (b *Builder) writeProfileComparison(w *sqlWriter, plan *Plan) {
	d := b.cfg.Dialect

	pieces := make([]string, len(plan.Keys))
	for i, pair := range plan.Keys {
		pieces[i] = d.Cast(SourceAlias+"."+d.Ident(pair.Source), TypeString)
	}

	calc := SourceAlias + ".calculated_value"

	w.line(0, "comparison AS (")
	w.line(1, "SELECT")
	w.line(2, "%s AS join_key,", b.joinKey(pieces))
	w.line(2, "%s AS calculated_value,", calc)
	w.line(2, "%s AS actual_value,", d.Null(TypeString))
	w.line(2, "CASE")
	w.line(3, "WHEN %s IS NULL THEN 'SOURCE_NULL'", calc)
	if expected := plan.Emission.Expected; expected != "" {
		w.line(3, "WHEN %s = %s THEN 'MATCH'", d.Cast(calc, TypeString), d.String(expected))
		w.line(3, "ELSE 'MISMATCH'")
	} else {
		w.line(3, "ELSE 'MATCH'")
	}
	w.line(2, "END AS classification")
	w.line(1, "FROM source_calculated %s", SourceAlias)
	w.line(0, "),")
}

// joinKey renders the composite key as one string, parts separated by |
func (b *Builder) joinKey(pieces []string) string {
	if len(pieces) == 1 {
		return pieces[0]
	}
	sep := b.cfg.Dialect.String("|")
	parts := make([]string, 0, len(pieces)*2-1)
	for i, piece := range pieces {
		if i > 0 {
			parts = append(parts, sep)
		}
		parts = append(parts, piece)
	}
	return b.cfg.Dialect.Concat(parts)
}

// matchCondition compares numbers within the tolerance and everything else
// as text. The difference is rounded first so that decimal inputs exactly
// one tolerance apart do not match through binary float error. When the
// derivation's type is not known statically, the values decide per row and
// are read as text before any numeric cast, since a copied column may be a
// DATE or BOOL that the warehouse refuses to cast to a float directly.
func (b *Builder) matchCondition(calc, actual string, numeric bool) string {
	d := b.cfg.Dialect
	within := func(c, a string) string {
		return fmt.Sprintf("ROUND(ABS(%s - %s), 9) < %s",
			d.Cast(c, TypeFloat), d.Cast(a, TypeFloat), formatNumber(b.cfg.Tolerance))
	}
	if numeric {
		return within(calc, actual)
	}
	calcText, actualText := d.Cast(calc, TypeString), d.Cast(actual, TypeString)
	return fmt.Sprintf("CASE WHEN %s AND %s THEN %s ELSE %s END",
		d.IsNumber(calc), d.IsNumber(actual), within(calcText, actualText), calcText+" = "+actualText)
}

func (b *Builder) writeSummary(w *sqlWriter) {
	d := b.cfg.Dialect
	countIf := func(class string) string {
		return d.CountIf("classification = '" + class + "'")
	}

	w.line(0, "validation_summary AS (")
	w.line(1, "SELECT")
	w.line(2, "COUNT(*) AS total_rows,")
	w.line(2, "%s AS match_count,", countIf("MATCH"))
	w.line(2, "%s AS mismatch_count,", countIf("MISMATCH"))
	w.line(2, "%s AS source_null_count,", countIf("SOURCE_NULL"))
	w.line(2, "%s AS target_null_count,", countIf("TARGET_NULL"))
	w.line(2, "%s AS both_null_count", countIf("BOTH_NULL"))
	w.line(1, "FROM comparison")
	if b.cfg.SampleSize > 0 {
		w.line(0, "),")
		w.line(0, "mismatch_sample AS (")
		w.line(1, "SELECT join_key, calculated_value, actual_value, classification")
		w.line(1, "FROM comparison")
		w.line(1, "WHERE classification <> 'MATCH'")
		w.line(1, "ORDER BY join_key")
		w.line(1, "LIMIT %d", b.cfg.SampleSize)
	}
	w.line(0, ")")

	w.line(0, "SELECT")
	w.line(1, "'%s' AS row_type,", RowTypeSummary)
	w.line(1, "total_rows,")
	w.line(1, "match_count,")
	w.line(1, "mismatch_count,")
	w.line(1, "source_null_count,")
	w.line(1, "target_null_count,")
	w.line(1, "both_null_count,")
	w.line(1, "%s AS match_percentage,", d.Percent("match_count", "total_rows"))
	w.line(1, "CASE")
	w.line(2, "WHEN total_rows = 0 THEN 'INFO'")
	w.line(2, "WHEN match_count = total_rows THEN 'PASS'")
	w.line(2, "WHEN match_count * 100.0 >= total_rows * %s THEN 'WARN'", formatNumber(b.cfg.WarnPercent))
	w.line(2, "ELSE 'FAIL'")
	w.line(1, "END AS validation_status,")
	w.line(1, "%s AS sample_key,", d.Null(TypeString))
	w.line(1, "%s AS calculated_value,", d.Null(TypeString))
	w.line(1, "%s AS actual_value,", d.Null(TypeString))
	w.line(1, "%s AS classification", d.Null(TypeString))
	w.line(0, "FROM validation_summary")

	if b.cfg.SampleSize > 0 {
		w.line(0, "UNION ALL")
		w.line(0, "SELECT")
		w.line(1, "'%s' AS row_type,", RowTypeSample)
		for _, col := range []string{ColTotalRows, ColMatchCount, ColMismatchCount, ColSourceNullCount, ColTargetNullCount, ColBothNullCount} {
			w.line(1, "%s AS %s,", d.Null(TypeInt), col)
		}
		w.line(1, "%s AS match_percentage,", d.Null(TypeFloat))
		w.line(1, "%s AS validation_status,", d.Null(TypeString))
		w.line(1, "%s AS sample_key,", d.Cast("join_key", TypeString))
		w.line(1, "%s AS calculated_value,", d.Cast("calculated_value", TypeString))
		w.line(1, "%s AS actual_value,", d.Cast("actual_value", TypeString))
		w.line(1, "classification")
		w.line(0, "FROM mismatch_sample")
	}
	w.line(0, "ORDER BY row_type DESC, sample_key")
}

// sqlWriter accumulates indented SQL lines
type sqlWriter struct {
	b strings.Builder
}

func (w *sqlWriter) line(indent int, format string, args ...interface{}) {
	w.b.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *sqlWriter) String() string {
	return w.b.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
