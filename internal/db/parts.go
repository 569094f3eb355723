package db

import (
	"context"
	"time"
)

const partColumns = `id, title, description, make, model, year, vin, category,
	price, quantity, price_per, in_stock, photo_keys, created_at, updated_at`

func scanPart(row interface{ Scan(...any) error }) (Part, error) {
	var p Part
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Make, &p.Model, &p.Year, &p.VIN,
		&p.Category, &p.Price, &p.Quantity, &p.PricePer, &p.InStock,
		&p.PhotoKeys, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ListPartsParams filters and paginates part listings. Nil pointers mean
// the filter is not applied.
type ListPartsParams struct {
	Query       *string
	Make        *string
	Model       *string
	Year        *int
	Category    *string
	VIN         *string
	MinPrice    *float64
	MaxPrice    *float64
	InStock     *bool
	Sort        string
	LimitValue  int32
	OffsetValue int32
}

const listPartsFilter = `
	($1::text IS NULL OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
	AND ($2::text IS NULL OR make ILIKE $2)
	AND ($3::text IS NULL OR model ILIKE $3)
	AND ($4::int IS NULL OR year = $4)
	AND ($5::text IS NULL OR category = $5)
	AND ($6::text IS NULL OR vin ILIKE $6)
	AND ($7::float8 IS NULL OR price >= $7)
	AND ($8::float8 IS NULL OR price <= $8)
	AND ($9::bool IS NULL OR in_stock = $9)`

// CountParts returns the number of parts matching the filters.
func (q *Queries) CountParts(ctx context.Context, arg ListPartsParams) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM parts WHERE`+listPartsFilter,
		arg.Query, arg.Make, arg.Model, arg.Year, arg.Category, arg.VIN,
		arg.MinPrice, arg.MaxPrice, arg.InStock,
	).Scan(&total)
	return total, err
}

// ListParts returns a filtered, sorted page of parts.
func (q *Queries) ListParts(ctx context.Context, arg ListPartsParams) ([]Part, error) {
	order := "created_at DESC"
	switch arg.Sort {
	case "price:asc":
		order = "price ASC"
	case "price:desc":
		order = "price DESC"
	case "title:asc":
		order = "title ASC"
	case "title:desc":
		order = "title DESC"
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+partColumns+` FROM parts WHERE`+listPartsFilter+
			` ORDER BY `+order+` LIMIT $10 OFFSET $11`,
		arg.Query, arg.Make, arg.Model, arg.Year, arg.Category, arg.VIN,
		arg.MinPrice, arg.MaxPrice, arg.InStock,
		arg.LimitValue, arg.OffsetValue,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parts []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// GetPartByID fetches a single part.
func (q *Queries) GetPartByID(ctx context.Context, id string) (Part, error) {
	return scanPart(q.db.QueryRow(ctx,
		`SELECT `+partColumns+` FROM parts WHERE id = $1`, id))
}

// ListPartsByVIN returns parts attached to the given donor vehicle.
func (q *Queries) ListPartsByVIN(ctx context.Context, vin string) ([]Part, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+partColumns+` FROM parts WHERE vin ILIKE $1 ORDER BY created_at DESC`, vin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parts []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// CreatePartParams carries the insert payload for a part.
type CreatePartParams struct {
	ID          string
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	VIN         *string
	Category    string
	Price       float64
	Quantity    int
	PricePer    string
	InStock     bool
	PhotoKeys   []string
}

// CreatePart inserts a part and returns the stored row.
func (q *Queries) CreatePart(ctx context.Context, arg CreatePartParams) (Part, error) {
	return scanPart(q.db.QueryRow(ctx,
		`INSERT INTO parts (id, title, description, make, model, year, vin, category,
			price, quantity, price_per, in_stock, photo_keys)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 RETURNING `+partColumns,
		arg.ID, arg.Title, arg.Description, arg.Make, arg.Model, arg.Year,
		arg.VIN, arg.Category, arg.Price, arg.Quantity, arg.PricePer,
		arg.InStock, arg.PhotoKeys,
	))
}

// UpdatePartParams carries the full update payload for a part.
type UpdatePartParams struct {
	ID          string
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	VIN         *string
	Category    string
	Price       float64
	Quantity    int
	PricePer    string
	InStock     bool
	PhotoKeys   []string
}

// UpdatePart replaces the mutable columns of a part.
func (q *Queries) UpdatePart(ctx context.Context, arg UpdatePartParams) (Part, error) {
	return scanPart(q.db.QueryRow(ctx,
		`UPDATE parts SET title=$2, description=$3, make=$4, model=$5, year=$6,
			vin=$7, category=$8, price=$9, quantity=$10, price_per=$11,
			in_stock=$12, photo_keys=$13, updated_at=now()
		 WHERE id=$1
		 RETURNING `+partColumns,
		arg.ID, arg.Title, arg.Description, arg.Make, arg.Model, arg.Year,
		arg.VIN, arg.Category, arg.Price, arg.Quantity, arg.PricePer,
		arg.InStock, arg.PhotoKeys,
	))
}

// DeletePart removes a part row.
func (q *Queries) DeletePart(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM parts WHERE id = $1`, id)
	return tag.RowsAffected(), err
}

// UpdatePartPrice sets a single part's price, used by bulk adjustments.
func (q *Queries) UpdatePartPrice(ctx context.Context, id string, price float64, at time.Time) error {
	_, err := q.db.Exec(ctx,
		`UPDATE parts SET price = $2, updated_at = $3 WHERE id = $1`, id, price, at)
	return err
}

// AppendPartPhoto adds an object key to a part's photo list.
func (q *Queries) AppendPartPhoto(ctx context.Context, id, key string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE parts SET photo_keys = array_append(photo_keys, $2), updated_at = now()
		 WHERE id = $1 AND NOT ($2 = ANY(photo_keys))`, id, key)
	return tag.RowsAffected(), err
}

// RemovePartPhoto drops an object key from a part's photo list.
func (q *Queries) RemovePartPhoto(ctx context.Context, id, key string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE parts SET photo_keys = array_remove(photo_keys, $2), updated_at = now()
		 WHERE id = $1 AND $2 = ANY(photo_keys)`, id, key)
	return tag.RowsAffected(), err
}

// ListAllParts streams every part, used by backups and bulk operations.
func (q *Queries) ListAllParts(ctx context.Context) ([]Part, error) {
	rows, err := q.db.Query(ctx, `SELECT `+partColumns+` FROM parts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parts []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}
