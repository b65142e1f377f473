package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Spec declares one list query. From carries the table and its fixed joins,
// Where carries fixed parameterless predicates. OrderBy must end in a unique
// column so that pages never overlap.
type Spec struct {
	Select  string
	From    string
	Where   []string
	Filters []Filter
	OrderBy string
}

// Built is the output of Spec.Build. CountSQL binds Args; PageSQL binds
// PageArgs, which is Args followed by limit and offset.
type Built struct {
	Where    string
	Args     []interface{}
	CountSQL string
	PageSQL  string
	PageArgs []interface{}
	Page     Page
}

// Build applies every filter whose value is present and non-empty, in
// declaration order. The predicate list is built once and shared by both
// statements.
func (s Spec) Build(values Values, page Page) (Built, error) {
	conds := make([]string, 0, len(s.Where)+len(s.Filters))
	conds = append(conds, s.Where...)
	args := make([]interface{}, 0, len(s.Filters)+2)
	for _, filter := range s.Filters {
		raw := strings.TrimSpace(values.Get(filter.Param))
		if raw == "" {
			continue
		}
		value, err := filter.bind(raw)
		if err != nil {
			return Built{}, err
		}
		args = append(args, value)
		conds = append(conds, filter.predicate(len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	orderBy := s.OrderBy
	if orderBy == "" {
		orderBy = "1"
	}

	pageArgs := make([]interface{}, 0, len(args)+2)
	pageArgs = append(pageArgs, args...)
	pageArgs = append(pageArgs, page.Limit, page.Offset())

	return Built{
		Where:    where,
		Args:     args,
		CountSQL: "SELECT count(*) FROM " + s.From + where,
		PageSQL: fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
			s.Select, s.From, where, orderBy, len(args)+1, len(args)+2),
		PageArgs: pageArgs,
		Page:     page,
	}, nil
}

// Fetch runs the count statement, then the page statement into dest (a
// pointer to a slice).
func Fetch(ctx context.Context, q sqlx.QueryerContext, built Built, dest interface{}) (Pagination, error) {
	var total int
	if err := sqlx.GetContext(ctx, q, &total, built.CountSQL, built.Args...); err != nil {
		return Pagination{}, fmt.Errorf("count: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, dest, built.PageSQL, built.PageArgs...); err != nil {
		return Pagination{}, fmt.Errorf("page: %w", err)
	}
	return NewPagination(built.Page, total), nil
}
