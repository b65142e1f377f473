package services

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Aggregate is one named, read-only query of a report batch.
type Aggregate struct {
	Name string
	Run  func(ctx context.Context) (interface{}, error)
}

// Gather dispatches every aggregate concurrently and returns the merged
// results once all of them have finished. The first failure cancels the rest
// and the batch returns only that error.
func Gather(ctx context.Context, aggs ...Aggregate) (map[string]interface{}, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	collected := make(map[string]interface{}, len(aggs))
	for _, agg := range aggs {
		agg := agg
		g.Go(func() error {
			value, err := agg.Run(gctx)
			if err != nil {
				return WrapError(err, "aggregate "+agg.Name)
			}
			mu.Lock()
			collected[agg.Name] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collected, nil
}

// CountQuery yields an int from a single-row count statement.
func CountQuery(db sqlx.QueryerContext, name, query string, args ...interface{}) Aggregate {
	return Aggregate{Name: name, Run: func(ctx context.Context) (interface{}, error) {
		var n int
		err := sqlx.GetContext(ctx, db, &n, query, args...)
		return n, err
	}}
}

// DecimalQuery yields a decimal from a single-row sum/avg statement. NULL
// becomes zero.
func DecimalQuery(db sqlx.QueryerContext, name, query string, args ...interface{}) Aggregate {
	return Aggregate{Name: name, Run: func(ctx context.Context) (interface{}, error) {
		var value decimal.NullDecimal
		if err := sqlx.GetContext(ctx, db, &value, query, args...); err != nil {
			return nil, err
		}
		if !value.Valid {
			return decimal.Zero, nil
		}
		return value.Decimal, nil
	}}
}

// GroupQuery yields a key -> count map from a statement selecting
// (key, count) rows.
func GroupQuery(db sqlx.QueryerContext, name, query string, args ...interface{}) Aggregate {
	return Aggregate{Name: name, Run: func(ctx context.Context) (interface{}, error) {
		rows := []struct {
			Key   *string `db:"key"`
			Count int     `db:"count"`
		}{}
		if err := sqlx.SelectContext(ctx, db, &rows, query, args...); err != nil {
			return nil, err
		}
		grouped := make(map[string]int, len(rows))
		for _, row := range rows {
			key := "unassigned"
			if row.Key != nil {
				key = *row.Key
			}
			grouped[key] += row.Count
		}
		return grouped, nil
	}}
}

// RowsQuery yields the rows of a statement scanned into a fresh slice built
// by newDest.
func RowsQuery(db sqlx.QueryerContext, name string, newDest func() interface{}, query string, args ...interface{}) Aggregate {
	return Aggregate{Name: name, Run: func(ctx context.Context) (interface{}, error) {
		dest := newDest()
		if err := sqlx.SelectContext(ctx, db, dest, query, args...); err != nil {
			return nil, err
		}
		return dest, nil
	}}
}
