package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Loan application limits
var MinLoanAmount = decimal.NewFromInt(1000)

const (
	MinTenureMonths   = 1
	MinPasswordLength = 6
)

// EmploymentStatuses are the options offered on the application form
var EmploymentStatuses = []string{"Employed", "Self-employed", "Unemployed", "Student", "Retired"}

// Credentials is the login form
type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate checks required fields
func (c *Credentials) Validate() error {
	verr := &ValidationError{}
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" {
		verr.Add("email", "Email is required")
	}
	if c.Password == "" {
		verr.Add("password", "Password is required")
	}
	return verr.OrNil()
}

// SignupInput is the registration form
type SignupInput struct {
	FullName        string `json:"fullName" form:"fullName"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// SignupRequest is the body sent to POST /signup
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the form and returns the request to send
func (s SignupInput) Validate() (*SignupRequest, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(s.FullName)
	email := strings.TrimSpace(s.Email)
	if name == "" {
		verr.Add("fullName", "Full name is required")
	}
	if email == "" {
		verr.Add("email", "Email is required")
	}
	if s.Password != s.ConfirmPassword {
		verr.Add("password", "Passwords do not match")
	} else if len(s.Password) < MinPasswordLength {
		verr.Add("password", "Password must be at least 6 characters long")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &SignupRequest{FullName: name, Email: email, Password: s.Password}, nil
}

// LoanApplication is the raw loan application form
type LoanApplication struct {
	FullName           string `json:"fullName" form:"fullName"`
	Amount             string `json:"amount" form:"amount"`
	Tenure             string `json:"tenure" form:"tenure"`
	EmploymentStatus   string `json:"employmentStatus" form:"employmentStatus"`
	Reason             string `json:"reason" form:"reason"`
	EmploymentAddress  string `json:"employmentAddress" form:"employmentAddress"`
	EmploymentAddress2 string `json:"employmentAddress2" form:"employmentAddress2"`
	AcceptTerms        bool   `json:"acceptTerms" form:"acceptTerms"`
	AcceptDisclosure   bool   `json:"acceptDisclosure" form:"acceptDisclosure"`
}

// LoanRequest is the body sent to POST /loans
type LoanRequest struct {
	FullName          string          `json:"fullName"`
	Amount            decimal.Decimal `json:"amount"`
	Tenure            int             `json:"tenure"`
	EmploymentStatus  string          `json:"employmentStatus"`
	Reason            string          `json:"reason"`
	EmploymentAddress string          `json:"employmentAddress"`
}

// Validate runs every form check and returns the request to send
func (a LoanApplication) Validate() (*LoanRequest, error) {
	verr := &ValidationError{}
	req := &LoanRequest{
		FullName:         strings.TrimSpace(a.FullName),
		EmploymentStatus: strings.TrimSpace(a.EmploymentStatus),
		Reason:           strings.TrimSpace(a.Reason),
	}

	if req.FullName == "" {
		verr.Add("fullName", "Full name is required")
	}

	if amount := strings.TrimSpace(a.Amount); amount == "" {
		verr.Add("amount", "Amount is required")
	} else if d, err := decimal.NewFromString(amount); err != nil {
		verr.Add("amount", "Amount must be a number")
	} else if d.LessThan(MinLoanAmount) {
		verr.Add("amount", "Amount must be at least 1000")
	} else {
		req.Amount = d
	}

	if tenure := strings.TrimSpace(a.Tenure); tenure == "" {
		verr.Add("tenure", "Tenure is required")
	} else if n, err := strconv.Atoi(tenure); err != nil {
		verr.Add("tenure", "Tenure must be a whole number of months")
	} else if n < MinTenureMonths {
		verr.Add("tenure", "Tenure must be at least 1 month")
	} else {
		req.Tenure = n
	}

	if req.EmploymentStatus == "" {
		verr.Add("employmentStatus", "Employment status is required")
	} else if !knownEmploymentStatus(req.EmploymentStatus) {
		verr.Add("employmentStatus", "Employment status is not recognised")
	}
	if req.Reason == "" {
		verr.Add("reason", "Reason for loan is required")
	}

	address := strings.TrimSpace(a.EmploymentAddress)
	if address == "" {
		verr.Add("employmentAddress", "Employment address is required")
	} else if line2 := strings.TrimSpace(a.EmploymentAddress2); line2 != "" {
		address += ", " + line2
	}
	req.EmploymentAddress = address

	if !a.AcceptTerms {
		verr.Add("acceptTerms", "You must accept the terms")
	}
	if !a.AcceptDisclosure {
		verr.Add("acceptDisclosure", "You must accept the disclosure")
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return req, nil
}

func knownEmploymentStatus(s string) bool {
	for _, opt := range EmploymentStatuses {
		if strings.EqualFold(opt, s) {
			return true
		}
	}
	return false
}
