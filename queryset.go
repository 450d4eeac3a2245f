package canele

import (
	"fmt"
	"strings"
)

// QuerySet is a lazy description of a SELECT: where fragments with
// their positional parameters, ordering and a row window. Chaining is
// copy-on-chain — Select and OrderBy never mutate the receiver — and
// no SQL runs until the set is materialized. A set can be materialized
// any number of times; every materialization issues exactly one
// statement.
type QuerySet struct {
	model      *Model
	where      []string
	args       []interface{}
	orders     []string
	limit      int
	hasLimit   bool
	offset     int
	distinct   bool
	selectExpr string
	err        error
}

func (qs *QuerySet) clone() *QuerySet {
	dup := *qs
	dup.where = append([]string(nil), qs.where...)
	dup.args = append([]interface{}(nil), qs.args...)
	dup.orders = append([]string(nil), qs.orders...)
	return &dup
}

// Select narrows the filter, ANDed with any existing clause.
func (qs *QuerySet) Select(where string, args ...interface{}) *QuerySet {
	dup := qs.clone()
	if where != "" {
		dup.where = append(dup.where, where)
		dup.args = append(dup.args, args...)
	}
	return dup
}

// OrderBy replaces the ordering. A leading "-" marks a descending
// column, as in OrderBy("-age", "first_name").
func (qs *QuerySet) OrderBy(names ...string) *QuerySet {
	dup := qs.clone()
	dup.orders = dup.orders[:0]
	for _, name := range names {
		if strings.HasPrefix(name, "-") {
			dup.orders = append(dup.orders, name[1:]+" DESC")
		} else {
			dup.orders = append(dup.orders, name)
		}
	}
	return dup
}

// Distinct drops duplicate rows from the result.
func (qs *QuerySet) Distinct() *QuerySet {
	dup := qs.clone()
	dup.distinct = true
	return dup
}

// Slice restricts the set to rows [start, stop). Negative bounds are
// not supported and surface as ErrNegativeIndex at materialization.
func (qs *QuerySet) Slice(start, stop int) *QuerySet {
	dup := qs.clone()
	if start < 0 || stop < 0 {
		dup.err = ErrNegativeIndex
		return dup
	}
	if stop < start {
		dup.err = fmt.Errorf("invalid slice bounds [%d, %d)", start, stop)
		return dup
	}
	dup.offset = start
	dup.limit = stop - start
	dup.hasLimit = true
	return dup
}

// Index fetches the single row at position i.
func (qs *QuerySet) Index(i int) (*Record, error) {
	if i < 0 {
		return nil, ErrNegativeIndex
	}
	rows, err := qs.Slice(i, i+1).All()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return rows[0], nil
}

// SQL returns the statement and parameters the set would execute.
func (qs *QuerySet) SQL() (string, []interface{}) {
	expr := qs.selectExpr
	if expr == "" {
		expr = "*"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if qs.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(expr)
	b.WriteString(" FROM ")
	b.WriteString(qs.model.tableName)

	if len(qs.where) > 0 {
		b.WriteString(" WHERE (")
		b.WriteString(strings.Join(qs.where, ") AND ("))
		b.WriteString(")")
	}
	if len(qs.orders) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(qs.orders, ", "))
	}
	if qs.hasLimit || qs.offset > 0 {
		limit := qs.limit
		if !qs.hasLimit {
			limit = -1 // sqlite needs a LIMIT before OFFSET
		}
		fmt.Fprintf(&b, " LIMIT %d", limit)
		if qs.offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", qs.offset)
		}
	}
	return b.String(), qs.args
}

// All materializes the set into records.
func (qs *QuerySet) All() ([]*Record, error) {
	var records []*Record
	err := qs.Each(func(r *Record) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// Each materializes the set, calling fn for every record in order.
func (qs *QuerySet) Each(fn func(*Record) error) error {
	if qs.err != nil {
		return qs.err
	}
	s, err := session()
	if err != nil {
		return err
	}
	meta, err := qs.model.Meta()
	if err != nil {
		return err
	}

	stmt, args := qs.SQL()
	rows, err := s.Query(stmt, args...)
	if err != nil {
		return fmt.Errorf("select from %s: %w", qs.model.tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		rec, err := qs.model.factory(meta, columns, raw)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// One materializes the set expecting exactly one row. Zero rows is
// ErrRecordNotFound; more than one is ErrMultipleRecords, never a
// silent first-row truncation.
func (qs *QuerySet) One() (*Record, error) {
	rows, err := qs.Slice(0, 2).All()
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%s: %w", qs.model.name, ErrRecordNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", qs.model.name, ErrMultipleRecords)
	}
}

// Aggregate issues a single aggregate SELECT and returns the scalar.
// A sliced set aggregates over the rows of its window. Count and Sum
// return int64(0) over an empty set; Avg, Max and Min return nil.
func (qs *QuerySet) Aggregate(agg Aggregation) (interface{}, error) {
	if qs.err != nil {
		return nil, qs.err
	}
	s, err := session()
	if err != nil {
		return nil, err
	}
	if _, err := qs.model.Meta(); err != nil {
		return nil, err
	}

	var (
		stmt string
		args []interface{}
	)
	if qs.hasLimit || qs.offset > 0 {
		// aggregate the windowed rows, not the one-row aggregate
		inner, innerArgs := qs.SQL()
		stmt = fmt.Sprintf("SELECT %s FROM (%s)", agg.expr(), inner)
		args = innerArgs
	} else {
		dup := qs.clone()
		dup.selectExpr = agg.expr()
		dup.orders = nil
		stmt, args = dup.SQL()
	}

	rows, err := s.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", qs.model.tableName, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var value interface{}
	if err := rows.Scan(&value); err != nil {
		return nil, err
	}
	return value, rows.Err()
}

// Count counts the matching rows.
func (qs *QuerySet) Count() (int64, error) {
	v, err := qs.Aggregate(Count("*"))
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("count returned %T", v)
	}
	return n, nil
}

// Aggregation names a column and the operation applied to it.
type Aggregation struct {
	fn     string
	column string
}

func (a Aggregation) expr() string {
	if a.fn == "SUM" {
		// sum over an empty set is 0, not NULL
		return fmt.Sprintf("COALESCE(SUM(%s), 0)", a.column)
	}
	return fmt.Sprintf("%s(%s)", a.fn, a.column)
}

// Count counts rows, or non-null values of a column.
func Count(column string) Aggregation {
	if column == "" {
		column = "*"
	}
	return Aggregation{fn: "COUNT", column: column}
}

// Sum sums a column.
func Sum(column string) Aggregation { return Aggregation{fn: "SUM", column: column} }

// Avg averages a column.
func Avg(column string) Aggregation { return Aggregation{fn: "AVG", column: column} }

// Max takes the maximum of a column.
func Max(column string) Aggregation { return Aggregation{fn: "MAX", column: column} }

// Min takes the minimum of a column.
func Min(column string) Aggregation { return Aggregation{fn: "MIN", column: column} }
