package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrFeeNotFound           = errors.New("fee structure not found")
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrInvoiceNotPayable     = errors.New("invoice is not payable")
	ErrInvoiceHasPayments    = errors.New("invoice has payments and cannot be voided")
	ErrPaymentExceedsBalance = errors.New("payment exceeds the invoice balance")
)

type (
	Repository interface {
		CreateFeeStructure(ctx context.Context, fee FeeStructure) (FeeStructure, error)
		GetFeeStructure(ctx context.Context, id string) (FeeStructure, error)
		QueryFeeStructures(ctx context.Context, campusID string) ([]FeeStructure, error)
		DeleteFeeStructuresByID(ctx context.Context, ids ...string) error

		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		QueryInvoicesByStudent(ctx context.Context, studentID string) ([]Invoice, error)
		// QueryOpenInvoices returns pending and partial invoices.
		QueryOpenInvoices(ctx context.Context) ([]Invoice, error)

		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		QueryPaymentsByInvoice(ctx context.Context, invoiceID string) ([]Payment, error)
	}

	ServiceInterface interface {
		CreateFeeStructure(ctx context.Context, nf NewFeeStructure) (FeeStructure, error)
		GetFeeStructure(ctx context.Context, id string) (FeeStructure, error)
		QueryFeeStructures(ctx context.Context, campusID string) ([]FeeStructure, error)
		DeleteFeeStructures(ctx context.Context, ids ...string) error

		IssueInvoice(ctx context.Context, ni NewInvoice) (Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		StudentInvoices(ctx context.Context, studentID string) ([]Invoice, error)
		RecordPayment(ctx context.Context, np NewPayment) (Payment, error)
		InvoicePayments(ctx context.Context, invoiceID string) ([]Payment, error)
		VoidInvoice(ctx context.Context, id string) (Invoice, error)
		StudentBalance(ctx context.Context, studentID string) (StudentBalance, error)
		OverdueInvoices(ctx context.Context, asOf time.Time) ([]Invoice, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateFeeStructure(ctx context.Context, nf NewFeeStructure) (FeeStructure, error) {
	now := time.Now().UTC()
	fee := FeeStructure{
		CampusID:   nf.CampusID,
		GradeLevel: nf.GradeLevel,
		Name:       nf.Name,
		Amount:     nf.Amount,
		Term:       nf.Term,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	fee, err := svc.repo.CreateFeeStructure(ctx, fee)
	return fee, errors.Wrap(err, "creating fee structure")
}

func (svc *Service) GetFeeStructure(ctx context.Context, id string) (FeeStructure, error) {
	return svc.repo.GetFeeStructure(ctx, id)
}

func (svc *Service) QueryFeeStructures(ctx context.Context, campusID string) ([]FeeStructure, error) {
	return svc.repo.QueryFeeStructures(ctx, campusID)
}

func (svc *Service) DeleteFeeStructures(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteFeeStructuresByID(ctx, ids...), "deleting fee structures")
}

// IssueInvoice bills a student against a fee structure; the invoice amount
// is copied from the fee so later fee edits do not change issued invoices.
func (svc *Service) IssueInvoice(ctx context.Context, ni NewInvoice) (Invoice, error) {
	fee, err := svc.repo.GetFeeStructure(ctx, ni.FeeStructureID)
	if err != nil {
		return Invoice{}, err
	}

	now := time.Now().UTC()
	inv := Invoice{
		StudentID:      ni.StudentID,
		FeeStructureID: fee.ID,
		Amount:         fee.Amount,
		Status:         StatusPending,
		IssuedAt:       now,
		DueAt:          ni.DueAt.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	inv, err = svc.repo.CreateInvoice(ctx, inv)
	return inv, errors.Wrap(err, "creating invoice")
}

func (svc *Service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoice(ctx, id)
}

func (svc *Service) StudentInvoices(ctx context.Context, studentID string) ([]Invoice, error) {
	return svc.repo.QueryInvoicesByStudent(ctx, studentID)
}

func (svc *Service) InvoicePayments(ctx context.Context, invoiceID string) ([]Payment, error) {
	return svc.repo.QueryPaymentsByInvoice(ctx, invoiceID)
}

// RecordPayment applies a payment to an invoice and derives the new status.
// Overpayment is rejected; paying the exact balance settles the invoice.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Payment, error) {
	inv, err := svc.repo.GetInvoice(ctx, np.InvoiceID)
	if err != nil {
		return Payment{}, err
	}
	if !inv.Payable() {
		return Payment{}, ErrInvoiceNotPayable
	}

	paid, err := svc.paidTotal(ctx, inv.ID)
	if err != nil {
		return Payment{}, err
	}
	balance := inv.Amount - paid
	if np.Amount > balance {
		return Payment{}, ErrPaymentExceedsBalance
	}

	now := time.Now().UTC()
	pmt := Payment{
		InvoiceID: inv.ID,
		Amount:    np.Amount,
		Method:    np.Method,
		Reference: np.Reference,
		PaidAt:    now,
		CreatedAt: now,
	}
	pmt, err = svc.repo.CreatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}

	if paid+np.Amount >= inv.Amount {
		inv.Status = StatusPaid
	} else {
		inv.Status = StatusPartial
	}
	inv.UpdatedAt = now
	if _, err = svc.repo.UpdateInvoice(ctx, inv); err != nil {
		return Payment{}, errors.Wrap(err, "updating invoice status")
	}
	return pmt, nil
}

// VoidInvoice cancels an invoice that has taken no payments.
func (svc *Service) VoidInvoice(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == StatusVoid {
		return inv, nil // idempotent
	}

	payments, err := svc.repo.QueryPaymentsByInvoice(ctx, inv.ID)
	if err != nil {
		return Invoice{}, errors.Wrap(err, "querying payments")
	}
	if len(payments) > 0 {
		return Invoice{}, ErrInvoiceHasPayments
	}

	inv.Status = StatusVoid
	inv.UpdatedAt = time.Now().UTC()
	inv, err = svc.repo.UpdateInvoice(ctx, inv)
	return inv, errors.Wrap(err, "voiding invoice")
}

// StudentBalance sums the student's non-void invoices and their payments.
func (svc *Service) StudentBalance(ctx context.Context, studentID string) (StudentBalance, error) {
	invoices, err := svc.repo.QueryInvoicesByStudent(ctx, studentID)
	if err != nil {
		return StudentBalance{}, errors.Wrap(err, "querying invoices")
	}

	bal := StudentBalance{StudentID: studentID}
	for _, inv := range invoices {
		if inv.Status == StatusVoid {
			continue
		}
		bal.Billed += inv.Amount
		paid, err := svc.paidTotal(ctx, inv.ID)
		if err != nil {
			return StudentBalance{}, err
		}
		bal.Paid += paid
	}
	bal.Outstanding = bal.Billed - bal.Paid
	return bal, nil
}

func (svc *Service) OverdueInvoices(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	open, err := svc.repo.QueryOpenInvoices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying open invoices")
	}

	var overdue []Invoice
	for _, inv := range open {
		if inv.Overdue(asOf) {
			overdue = append(overdue, inv)
		}
	}
	return overdue, nil
}

func (svc *Service) paidTotal(ctx context.Context, invoiceID string) (float64, error) {
	payments, err := svc.repo.QueryPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return 0, errors.Wrap(err, "querying payments")
	}
	var total float64
	for _, pmt := range payments {
		total += pmt.Amount
	}
	return total, nil
}
