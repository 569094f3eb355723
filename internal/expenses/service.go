package expenses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

// Querier captures the database methods required by the expenses service.
type Querier interface {
	ListExpenses(ctx context.Context, limit, offset int32) ([]db.Expense, error)
	CountExpenses(ctx context.Context) (int64, error)
	ListExpensesTouchingRange(ctx context.Context, from, to time.Time) ([]db.Expense, error)
	CreateExpense(ctx context.Context, arg db.CreateExpenseParams) (db.Expense, error)
	UpdateExpense(ctx context.Context, arg db.UpdateExpenseParams) (db.Expense, error)
	DeleteExpense(ctx context.Context, id string) (int64, error)
}

// Input is the create/update payload for an expense.
type Input struct {
	Label           string     `json:"label" validate:"required,max=200"`
	Category        string     `json:"category" validate:"required,max=60"`
	Amount          float64    `json:"amount" validate:"required,gt=0"`
	IncurredOn      time.Time  `json:"incurred_on" validate:"required"`
	Recurrence      *string    `json:"recurrence"`
	RecurrenceUntil *time.Time `json:"recurrence_until"`
}

// Report summarises expenses over a window with recurring rows expanded.
type Report struct {
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Total       float64            `json:"total"`
	ByCategory  map[string]float64 `json:"by_category"`
	Occurrences []Occurrence       `json:"occurrences"`
}

// Service manages expense CRUD and window reports.
type Service struct {
	Q            Querier
	Validate     *validator.Validate
	MaxRangeDays int
}

// List returns a page of expenses with the total row count.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]db.Expense, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("expenses service not configured")
	}
	total, err := s.Q.CountExpenses(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	items, err := s.Q.ListExpenses(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	return items, total, nil
}

// Create validates and stores an expense.
func (s *Service) Create(ctx context.Context, in Input) (db.Expense, error) {
	if err := s.checkInput(&in); err != nil {
		return db.Expense{}, err
	}
	expense, err := s.Q.CreateExpense(ctx, db.CreateExpenseParams{
		ID:              uuid.NewString(),
		Label:           in.Label,
		Category:        in.Category,
		Amount:          in.Amount,
		IncurredOn:      in.IncurredOn,
		Recurrence:      in.Recurrence,
		RecurrenceUntil: in.RecurrenceUntil,
	})
	if err != nil {
		return db.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// Update validates and replaces an expense.
func (s *Service) Update(ctx context.Context, id string, in Input) (db.Expense, error) {
	if err := s.checkInput(&in); err != nil {
		return db.Expense{}, err
	}
	expense, err := s.Q.UpdateExpense(ctx, db.UpdateExpenseParams{
		ID:              id,
		Label:           in.Label,
		Category:        in.Category,
		Amount:          in.Amount,
		IncurredOn:      in.IncurredOn,
		Recurrence:      in.Recurrence,
		RecurrenceUntil: in.RecurrenceUntil,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Expense{}, common.NotFound("expense")
		}
		return db.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return expense, nil
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id string) error {
	affected, err := s.Q.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		return common.NotFound("expense")
	}
	return nil
}

// MonthlyReport builds a report covering one calendar month.
func (s *Service) MonthlyReport(ctx context.Context, year int, month time.Month) (Report, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.RangeReport(ctx, from, from.AddDate(0, 1, 0))
}

// RangeReport expands every stored expense over [from, to) and sums the
// concrete occurrences.
func (s *Service) RangeReport(ctx context.Context, from, to time.Time) (Report, error) {
	if !to.After(from) {
		return Report{}, common.BadRequest("range", "to must be after from", nil)
	}
	if s.MaxRangeDays > 0 && to.Sub(from) > time.Duration(s.MaxRangeDays)*24*time.Hour {
		return Report{}, common.BadRequest("range", fmt.Sprintf("range cannot exceed %d days", s.MaxRangeDays), nil)
	}
	stored, err := s.Q.ListExpensesTouchingRange(ctx, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("list expenses for range: %w", err)
	}
	report := Report{
		From:        from,
		To:          to,
		ByCategory:  map[string]float64{},
		Occurrences: []Occurrence{},
	}
	for _, e := range stored {
		occurrences := Expand(e.ID, e.Label, e.Category, e.Amount, e.IncurredOn, e.Recurrence, e.RecurrenceUntil, from, to)
		for _, occ := range occurrences {
			report.Total += occ.Amount
			report.ByCategory[occ.Category] += occ.Amount
		}
		report.Occurrences = append(report.Occurrences, occurrences...)
	}
	sort.Slice(report.Occurrences, func(i, j int) bool {
		return report.Occurrences[i].Date.Before(report.Occurrences[j].Date)
	})
	return report, nil
}

func (s *Service) checkInput(in *Input) error {
	in.Label = strings.TrimSpace(in.Label)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Recurrence != nil {
		rec := strings.ToLower(strings.TrimSpace(*in.Recurrence))
		if rec == "" {
			in.Recurrence = nil
		} else if !ValidRecurrence(rec) {
			return common.BadRequest("recurrence", "recurrence must be weekly, monthly or yearly", nil)
		} else {
			in.Recurrence = &rec
		}
	}
	if in.Recurrence == nil {
		in.RecurrenceUntil = nil
	}
	if in.RecurrenceUntil != nil && in.RecurrenceUntil.Before(in.IncurredOn) {
		return common.BadRequest("recurrence_until", "recurrence_until cannot predate incurred_on", nil)
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
		}
	}
	return nil
}
