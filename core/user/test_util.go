package user

import (
	"github.com/trezcool/shule/core"
)

// NewServiceMock returns a Service suitable for tests; pair it with a
// synchronous EmailService mock so sent mail can be asserted on.
func NewServiceMock(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
	}
}
