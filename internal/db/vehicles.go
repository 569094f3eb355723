package db

import "context"

const vehicleColumns = `id, vin, make, model, year, trim_level, engine,
	acquired_price, notes, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(
		&v.ID, &v.VIN, &v.Make, &v.Model, &v.Year, &v.Trim, &v.Engine,
		&v.AcquiredPrice, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// ListVehicles returns vehicles newest first.
func (q *Queries) ListVehicles(ctx context.Context, limit, offset int32) ([]Vehicle, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// CountVehicles returns the total number of vehicles.
func (q *Queries) CountVehicles(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM vehicles`).Scan(&total)
	return total, err
}

// GetVehicleByVIN fetches a vehicle using a case-insensitive VIN match.
func (q *Queries) GetVehicleByVIN(ctx context.Context, vin string) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE vin ILIKE $1`, vin))
}

// CreateVehicleParams carries the insert payload for a vehicle.
type CreateVehicleParams struct {
	ID            string
	VIN           string
	Make          string
	Model         string
	Year          int
	Trim          string
	Engine        string
	AcquiredPrice float64
	Notes         string
}

// CreateVehicle inserts a vehicle and returns the stored row.
func (q *Queries) CreateVehicle(ctx context.Context, arg CreateVehicleParams) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx,
		`INSERT INTO vehicles (id, vin, make, model, year, trim_level, engine, acquired_price, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+vehicleColumns,
		arg.ID, arg.VIN, arg.Make, arg.Model, arg.Year, arg.Trim, arg.Engine,
		arg.AcquiredPrice, arg.Notes,
	))
}

// UpdateVehicleParams carries the update payload for a vehicle.
type UpdateVehicleParams struct {
	VIN           string
	Make          string
	Model         string
	Year          int
	Trim          string
	Engine        string
	AcquiredPrice float64
	Notes         string
}

// UpdateVehicle replaces the mutable columns of a vehicle.
func (q *Queries) UpdateVehicle(ctx context.Context, arg UpdateVehicleParams) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx,
		`UPDATE vehicles SET make=$2, model=$3, year=$4, trim_level=$5, engine=$6,
			acquired_price=$7, notes=$8, updated_at=now()
		 WHERE vin ILIKE $1
		 RETURNING `+vehicleColumns,
		arg.VIN, arg.Make, arg.Model, arg.Year, arg.Trim, arg.Engine,
		arg.AcquiredPrice, arg.Notes,
	))
}

// DeleteVehicle removes a vehicle row by VIN.
func (q *Queries) DeleteVehicle(ctx context.Context, vin string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM vehicles WHERE vin ILIKE $1`, vin)
	return tag.RowsAffected(), err
}

// ListAllVehicles streams every vehicle, used by backups.
func (q *Queries) ListAllVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := q.db.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
