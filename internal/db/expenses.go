package db

import (
	"context"
	"time"
)

const expenseColumns = `id, label, category, amount, incurred_on, recurrence,
	recurrence_until, created_at`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(
		&e.ID, &e.Label, &e.Category, &e.Amount, &e.IncurredOn, &e.Recurrence,
		&e.RecurrenceUntil, &e.CreatedAt,
	)
	return e, err
}

// ListExpenses returns expenses most recent first.
func (q *Queries) ListExpenses(ctx context.Context, limit, offset int32) ([]Expense, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY incurred_on DESC, created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CountExpenses returns the total number of expense rows.
func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM expenses`).Scan(&total)
	return total, err
}

// ListExpensesTouchingRange returns expenses relevant to a reporting
// window: one-off rows inside it plus recurring rows that started before
// its end.
func (q *Queries) ListExpensesTouchingRange(ctx context.Context, from, to time.Time) ([]Expense, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE (recurrence IS NULL AND incurred_on >= $1 AND incurred_on < $2)
		    OR (recurrence IS NOT NULL AND incurred_on < $2)
		 ORDER BY incurred_on`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// CreateExpenseParams carries the insert payload for an expense.
type CreateExpenseParams struct {
	ID              string
	Label           string
	Category        string
	Amount          float64
	IncurredOn      time.Time
	Recurrence      *string
	RecurrenceUntil *time.Time
}

// CreateExpense inserts an expense and returns the stored row.
func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	return scanExpense(q.db.QueryRow(ctx,
		`INSERT INTO expenses (id, label, category, amount, incurred_on, recurrence, recurrence_until)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+expenseColumns,
		arg.ID, arg.Label, arg.Category, arg.Amount, arg.IncurredOn,
		arg.Recurrence, arg.RecurrenceUntil,
	))
}

// UpdateExpenseParams carries the update payload for an expense.
type UpdateExpenseParams struct {
	ID              string
	Label           string
	Category        string
	Amount          float64
	IncurredOn      time.Time
	Recurrence      *string
	RecurrenceUntil *time.Time
}

// UpdateExpense replaces the mutable columns of an expense.
func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	return scanExpense(q.db.QueryRow(ctx,
		`UPDATE expenses SET label=$2, category=$3, amount=$4, incurred_on=$5,
			recurrence=$6, recurrence_until=$7
		 WHERE id=$1
		 RETURNING `+expenseColumns,
		arg.ID, arg.Label, arg.Category, arg.Amount, arg.IncurredOn,
		arg.Recurrence, arg.RecurrenceUntil,
	))
}

// DeleteExpense removes an expense row.
func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return tag.RowsAffected(), err
}

// ListAllExpenses streams every expense, used by backups.
func (q *Queries) ListAllExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.Query(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY incurred_on`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
