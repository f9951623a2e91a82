package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/billing"
)

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) *billingRepository {
	return &billingRepository{db: db}
}

func (repo *billingRepository) CreateFeeStructure(_ context.Context, fee billing.FeeStructure) (billing.FeeStructure, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	fee.ID = newPK()
	repo.db.fees[fee.ID] = &fee
	return fee, nil
}

func (repo *billingRepository) GetFeeStructure(_ context.Context, id string) (billing.FeeStructure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if fee, ok := repo.db.fees[id]; ok {
		return *fee, nil
	}
	return billing.FeeStructure{}, billing.ErrFeeNotFound
}

func (repo *billingRepository) QueryFeeStructures(_ context.Context, campusID string) ([]billing.FeeStructure, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fees := make([]billing.FeeStructure, 0, len(repo.db.fees))
	for _, fee := range repo.db.fees {
		if campusID == "" || fee.CampusID == campusID {
			fees = append(fees, *fee)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].GradeLevel < fees[j].GradeLevel })
	return fees, nil
}

func (repo *billingRepository) DeleteFeeStructuresByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.fees, id)
	}
	return nil
}

func (repo *billingRepository) CreateInvoice(_ context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inv.ID = newPK()
	repo.db.invoices[inv.ID] = &inv
	return inv, nil
}

func (repo *billingRepository) GetInvoice(_ context.Context, id string) (billing.Invoice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inv, ok := repo.db.invoices[id]; ok {
		return *inv, nil
	}
	return billing.Invoice{}, billing.ErrInvoiceNotFound
}

func (repo *billingRepository) UpdateInvoice(_ context.Context, inv billing.Invoice) (billing.Invoice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.invoices[inv.ID]; !ok {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	repo.db.invoices[inv.ID] = &inv
	return inv, nil
}

func (repo *billingRepository) QueryInvoicesByStudent(_ context.Context, studentID string) ([]billing.Invoice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var invoices []billing.Invoice
	for _, inv := range repo.db.invoices {
		if inv.StudentID == studentID {
			invoices = append(invoices, *inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].IssuedAt.After(invoices[j].IssuedAt) })
	return invoices, nil
}

func (repo *billingRepository) QueryOpenInvoices(_ context.Context) ([]billing.Invoice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var invoices []billing.Invoice
	for _, inv := range repo.db.invoices {
		if inv.Payable() {
			invoices = append(invoices, *inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].DueAt.Before(invoices[j].DueAt) })
	return invoices, nil
}

func (repo *billingRepository) CreatePayment(_ context.Context, pmt billing.Payment) (billing.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	pmt.ID = newPK()
	repo.db.payments[pmt.InvoiceID] = append(repo.db.payments[pmt.InvoiceID], pmt)
	return pmt, nil
}

func (repo *billingRepository) QueryPaymentsByInvoice(_ context.Context, invoiceID string) ([]billing.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.payments[invoiceID], nil
}
