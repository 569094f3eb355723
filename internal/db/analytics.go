package db

import (
	"context"
	"time"
)

// InsertPageView records one storefront impression.
func (q *Queries) InsertPageView(ctx context.Context, path string, partID *string, visitorIP string) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO page_views (path, part_id, visitor_ip) VALUES ($1, $2, $3)`,
		path, partID, visitorIP)
	return err
}

// PageViewsByDayRow aggregates views for one day.
type PageViewsByDayRow struct {
	Day   time.Time
	Views int64
}

// PageViewsByDay returns daily view counts between from (inclusive) and to (exclusive).
func (q *Queries) PageViewsByDay(ctx context.Context, from, to time.Time) ([]PageViewsByDayRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT date_trunc('day', occurred_at) AS day, count(*) AS views
		 FROM page_views WHERE occurred_at >= $1 AND occurred_at < $2
		 GROUP BY 1 ORDER BY 1`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []PageViewsByDayRow
	for rows.Next() {
		var r PageViewsByDayRow
		if err := rows.Scan(&r.Day, &r.Views); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// TopPartRow pairs a part with its view count.
type TopPartRow struct {
	PartID string
	Title  string
	Views  int64
}

// TopViewedParts returns the most viewed parts over the window.
func (q *Queries) TopViewedParts(ctx context.Context, from time.Time, limit int32) ([]TopPartRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT p.id, p.title, count(*) AS views
		 FROM page_views v JOIN parts p ON p.id = v.part_id
		 WHERE v.occurred_at >= $1 AND v.part_id IS NOT NULL
		 GROUP BY p.id, p.title ORDER BY views DESC LIMIT $2`,
		from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []TopPartRow
	for rows.Next() {
		var r TopPartRow
		if err := rows.Scan(&r.PartID, &r.Title, &r.Views); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// InventoryTotalsRow summarises stock on hand.
type InventoryTotalsRow struct {
	PartCount    int64
	ItemCount    int64
	InStockCount int64
}

// InventoryTotals returns catalogue-wide stock counts.
func (q *Queries) InventoryTotals(ctx context.Context) (InventoryTotalsRow, error) {
	var r InventoryTotalsRow
	err := q.db.QueryRow(ctx,
		`SELECT count(*), coalesce(sum(quantity), 0),
		        count(*) FILTER (WHERE in_stock)
		 FROM parts`).Scan(&r.PartCount, &r.ItemCount, &r.InStockCount)
	return r, err
}

// PrunePageViews deletes impressions older than the cutoff, returning how
// many rows were removed.
func (q *Queries) PrunePageViews(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM page_views WHERE occurred_at < $1`, cutoff)
	return tag.RowsAffected(), err
}
