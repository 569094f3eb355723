package db

import "context"

const adminColumns = `id, email, name, password_hash, created_at, updated_at`

func scanAdmin(row interface{ Scan(...any) error }) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetAdminByEmail fetches an admin account using a case-insensitive email match.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE lower(email) = lower($1)`, email))
}

// GetAdminByID fetches an admin account by id.
func (q *Queries) GetAdminByID(ctx context.Context, id string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

// CreateAdmin inserts an admin account.
func (q *Queries) CreateAdmin(ctx context.Context, id, email, name, passwordHash string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx,
		`INSERT INTO admins (id, email, name, password_hash) VALUES ($1,$2,$3,$4)
		 RETURNING `+adminColumns, id, email, name, passwordHash))
}
