package billing

import (
	"time"

	"github.com/trezcool/shule/core"
)

type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "pending"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
	StatusVoid    InvoiceStatus = "void"
)

type (
	// FeeStructure defines what a grade level at a campus pays for a term.
	FeeStructure struct {
		ID         string    `json:"id"`
		CampusID   string    `json:"campus_id"`
		GradeLevel int       `json:"grade_level"`
		Name       string    `json:"name"`
		Amount     float64   `json:"amount"`
		Term       string    `json:"term"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	Invoice struct {
		ID             string        `json:"id"`
		StudentID      string        `json:"student_id"`
		FeeStructureID string        `json:"fee_structure_id"`
		Amount         float64       `json:"amount"`
		Status         InvoiceStatus `json:"status"`
		IssuedAt       time.Time     `json:"issued_at"` // UTC
		DueAt          time.Time     `json:"due_at"`    // UTC
		CreatedAt      time.Time     `json:"created_at"`
		UpdatedAt      time.Time     `json:"updated_at"`
	}

	Payment struct {
		ID        string    `json:"id"`
		InvoiceID string    `json:"invoice_id"`
		Amount    float64   `json:"amount"`
		Method    string    `json:"method"`
		Reference string    `json:"reference,omitempty"`
		PaidAt    time.Time `json:"paid_at"` // UTC
		CreatedAt time.Time `json:"created_at"`
	}

	// StudentBalance sums a student's non-void invoices against payments.
	StudentBalance struct {
		StudentID   string  `json:"student_id"`
		Billed      float64 `json:"billed"`
		Paid        float64 `json:"paid"`
		Outstanding float64 `json:"outstanding"`
	}
)

// Payable reports whether the invoice can still take payments.
func (inv Invoice) Payable() bool {
	return inv.Status == StatusPending || inv.Status == StatusPartial
}

// Overdue reports whether the invoice is unpaid past its due date.
func (inv Invoice) Overdue(asOf time.Time) bool {
	return inv.Payable() && asOf.After(inv.DueAt)
}

type NewFeeStructure struct {
	CampusID   string  `json:"campus_id" validate:"required"`
	GradeLevel int     `json:"grade_level" validate:"gte=0,lte=13"`
	Name       string  `json:"name" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Term       string  `json:"term" validate:"required"`
}

func (nf *NewFeeStructure) Validate() error {
	nf.Name = core.CleanString(nf.Name)
	nf.Term = core.CleanString(nf.Term)
	return core.Validate.Struct(nf)
}

type NewInvoice struct {
	StudentID      string    `json:"student_id" validate:"required"`
	FeeStructureID string    `json:"fee_structure_id" validate:"required"`
	DueAt          time.Time `json:"due_at" validate:"required"`
}

func (ni *NewInvoice) Validate() error {
	ni.StudentID = core.CleanString(ni.StudentID)
	ni.FeeStructureID = core.CleanString(ni.FeeStructureID)
	return core.Validate.Struct(ni)
}

type NewPayment struct {
	InvoiceID string  `json:"invoice_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required"`
	Reference string  `json:"reference"`
}

func (np *NewPayment) Validate() error {
	np.Method = core.CleanString(np.Method, true)
	np.Reference = core.CleanString(np.Reference)
	return core.Validate.Struct(np)
}
