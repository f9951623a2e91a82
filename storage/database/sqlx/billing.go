package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
)

type feeStructureRow struct {
	ID         string    `db:"id"`
	CampusID   string    `db:"campus_id"`
	GradeLevel int       `db:"grade_level"`
	Name       string    `db:"name"`
	Amount     float64   `db:"amount"`
	Term       string    `db:"term"`
	CreatedAt  null.Time `db:"created_at"`
	UpdatedAt  null.Time `db:"updated_at"`
}

func (r feeStructureRow) toFee() billing.FeeStructure {
	return billing.FeeStructure{
		ID:         r.ID,
		CampusID:   r.CampusID,
		GradeLevel: r.GradeLevel,
		Name:       r.Name,
		Amount:     r.Amount,
		Term:       r.Term,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

type invoiceRow struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	FeeStructureID string    `db:"fee_structure_id"`
	Amount         float64   `db:"amount"`
	Status         string    `db:"status"`
	IssuedAt       time.Time `db:"issued_at"`
	DueAt          time.Time `db:"due_at"`
	CreatedAt      null.Time `db:"created_at"`
	UpdatedAt      null.Time `db:"updated_at"`
}

func (r invoiceRow) toInvoice() billing.Invoice {
	return billing.Invoice{
		ID:             r.ID,
		StudentID:      r.StudentID,
		FeeStructureID: r.FeeStructureID,
		Amount:         r.Amount,
		Status:         billing.InvoiceStatus(r.Status),
		IssuedAt:       r.IssuedAt,
		DueAt:          r.DueAt,
		CreatedAt:      r.CreatedAt.Time,
		UpdatedAt:      r.UpdatedAt.Time,
	}
}

func newInvoiceRow(inv billing.Invoice) invoiceRow {
	return invoiceRow{
		ID:             inv.ID,
		StudentID:      inv.StudentID,
		FeeStructureID: inv.FeeStructureID,
		Amount:         inv.Amount,
		Status:         string(inv.Status),
		IssuedAt:       inv.IssuedAt.UTC(),
		DueAt:          inv.DueAt.UTC(),
		CreatedAt:      null.NewTime(inv.CreatedAt.UTC(), !inv.CreatedAt.IsZero()),
		UpdatedAt:      null.NewTime(inv.UpdatedAt.UTC(), !inv.UpdatedAt.IsZero()),
	}
}

type paymentRow struct {
	ID        string      `db:"id"`
	InvoiceID string      `db:"invoice_id"`
	Amount    float64     `db:"amount"`
	Method    string      `db:"method"`
	Reference null.String `db:"reference"`
	PaidAt    time.Time   `db:"paid_at"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r paymentRow) toPayment() billing.Payment {
	return billing.Payment{
		ID:        r.ID,
		InvoiceID: r.InvoiceID,
		Amount:    r.Amount,
		Method:    r.Method,
		Reference: r.Reference.String,
		PaidAt:    r.PaidAt,
		CreatedAt: r.CreatedAt.Time,
	}
}

type billingRepository struct {
	exec core.DBExecutor
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(exec core.DBExecutor) *billingRepository {
	return &billingRepository{exec: exec}
}

func (repo billingRepository) CreateFeeStructure(ctx context.Context, fee billing.FeeStructure) (billing.FeeStructure, error) {
	fee.ID = uuid.New().String()
	row := feeStructureRow{
		ID:         fee.ID,
		CampusID:   fee.CampusID,
		GradeLevel: fee.GradeLevel,
		Name:       fee.Name,
		Amount:     fee.Amount,
		Term:       fee.Term,
		CreatedAt:  null.NewTime(fee.CreatedAt.UTC(), !fee.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(fee.UpdatedAt.UTC(), !fee.UpdatedAt.IsZero()),
	}
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO fee_structure (id, campus_id, grade_level, name, amount, term, created_at, updated_at)
		VALUES (:id, :campus_id, :grade_level, :name, :amount, :term, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return billing.FeeStructure{}, errors.Wrap(err, "inserting fee structure")
	}
	return row.toFee(), nil
}

func (repo billingRepository) GetFeeStructure(ctx context.Context, id string) (billing.FeeStructure, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.FeeStructure{}, billing.ErrFeeNotFound
	}
	var row feeStructureRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM fee_structure WHERE id = $1`, id); err != nil {
		return billing.FeeStructure{}, trapNoRowsErr(err, billing.ErrFeeNotFound, "finding fee structure")
	}
	return row.toFee(), nil
}

func (repo billingRepository) QueryFeeStructures(ctx context.Context, campusID string) ([]billing.FeeStructure, error) {
	query := `SELECT * FROM fee_structure`
	var args []interface{}
	if campusID != "" {
		query += ` WHERE campus_id = $1`
		args = append(args, campusID)
	}
	query += ` ORDER BY grade_level, term`

	var rows []feeStructureRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	fees := make([]billing.FeeStructure, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, row.toFee())
	}
	return fees, nil
}

func (repo billingRepository) DeleteFeeStructuresByID(ctx context.Context, ids ...string) error {
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM fee_structure WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting fee structures")
}

func (repo billingRepository) CreateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	inv.ID = uuid.New().String()
	row := newInvoiceRow(inv)
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO invoice (id, student_id, fee_structure_id, amount, status, issued_at, due_at, created_at, updated_at)
		VALUES (:id, :student_id, :fee_structure_id, :amount, :status, :issued_at, :due_at, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return billing.Invoice{}, errors.Wrap(err, "inserting invoice")
	}
	return row.toInvoice(), nil
}

func (repo billingRepository) GetInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	var row invoiceRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT * FROM invoice WHERE id = $1`, id); err != nil {
		return billing.Invoice{}, trapNoRowsErr(err, billing.ErrInvoiceNotFound, "finding invoice")
	}
	return row.toInvoice(), nil
}

func (repo billingRepository) UpdateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	row := newInvoiceRow(inv)
	res, err := repo.exec.NamedExecContext(ctx, `
		UPDATE invoice SET status = :status, due_at = :due_at, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return billing.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	return row.toInvoice(), nil
}

func (repo billingRepository) QueryInvoicesByStudent(ctx context.Context, studentID string) ([]billing.Invoice, error) {
	return repo.queryInvoices(ctx, `SELECT * FROM invoice WHERE student_id = $1 ORDER BY issued_at DESC`, studentID)
}

func (repo billingRepository) QueryOpenInvoices(ctx context.Context) ([]billing.Invoice, error) {
	return repo.queryInvoices(ctx,
		`SELECT * FROM invoice WHERE status = ANY($1) ORDER BY due_at`,
		pq.StringArray{string(billing.StatusPending), string(billing.StatusPartial)})
}

func (repo billingRepository) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]billing.Invoice, error) {
	var rows []invoiceRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	invoices := make([]billing.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, row.toInvoice())
	}
	return invoices, nil
}

func (repo billingRepository) CreatePayment(ctx context.Context, pmt billing.Payment) (billing.Payment, error) {
	pmt.ID = uuid.New().String()
	row := paymentRow{
		ID:        pmt.ID,
		InvoiceID: pmt.InvoiceID,
		Amount:    pmt.Amount,
		Method:    pmt.Method,
		Reference: null.NewString(pmt.Reference, pmt.Reference != ""),
		PaidAt:    pmt.PaidAt.UTC(),
		CreatedAt: null.NewTime(pmt.CreatedAt.UTC(), !pmt.CreatedAt.IsZero()),
	}
	_, err := repo.exec.NamedExecContext(ctx, `
		INSERT INTO payment (id, invoice_id, amount, method, reference, paid_at, created_at)
		VALUES (:id, :invoice_id, :amount, :method, :reference, :paid_at, :created_at)`,
		row,
	)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return row.toPayment(), nil
}

func (repo billingRepository) QueryPaymentsByInvoice(ctx context.Context, invoiceID string) ([]billing.Payment, error) {
	var rows []paymentRow
	if err := repo.exec.SelectContext(ctx, &rows,
		`SELECT * FROM payment WHERE invoice_id = $1 ORDER BY paid_at`, invoiceID); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]billing.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toPayment())
	}
	return payments, nil
}
