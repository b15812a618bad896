package adapters

import (
	"context"

	accountModels "vatfiler/internal/accounts/models"
	"vatfiler/internal/registration/models"
)

// accountRegistrar is the interface the accounts service implements.
// Defined locally to avoid coupling the flow to the accounts service package.
type accountRegistrar interface {
	Register(ctx context.Context, req accountModels.RegistrationRequest) (*accountModels.Account, error)
}

// AccountsRegistrar adapts the accounts service to the flow's Registrar.
// Submissions and accounts are mapped at the boundary.
type AccountsRegistrar struct {
	accounts accountRegistrar
}

// NewAccountsRegistrar wraps the accounts service.
func NewAccountsRegistrar(svc accountRegistrar) *AccountsRegistrar {
	return &AccountsRegistrar{accounts: svc}
}

// Register creates the account described by sub.
func (a *AccountsRegistrar) Register(ctx context.Context, sub models.Submission) (*models.RegisteredAccount, error) {
	account, err := a.accounts.Register(ctx, mapSubmission(sub))
	if err != nil {
		return nil, err
	}
	return &models.RegisteredAccount{
		ID:        account.ID,
		Email:     account.Email,
		Mode:      account.Role,
		CreatedAt: account.CreatedAt,
	}, nil
}

func mapSubmission(sub models.Submission) accountModels.RegistrationRequest {
	return accountModels.RegistrationRequest{
		Role:            sub.Mode,
		Email:           sub.Email,
		ConfirmEmail:    sub.ConfirmEmail,
		Password:        sub.Password,
		ConfirmPassword: sub.ConfirmPassword,
		ContactName:     sub.ContactName,
		BusinessName:    sub.BusinessName,
		Phone:           sub.Phone,
		SoftwareVAT:     sub.SoftwareVAT,
		SoftwareITSA:    sub.SoftwareITSA,
		Agreement:       sub.Agreement,
	}
}
