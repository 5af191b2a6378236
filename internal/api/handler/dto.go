package handler

// CreateChargeRequest represents a request to create an outstanding charge
type CreateChargeRequest struct {
	CustomerID  string `json:"customer_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"` // RFC3339; defaults to now
	Actor       string `json:"actor,omitempty"`
}

// CreateCreditRequest represents a request to create a credit entry
type CreateCreditRequest struct {
	CustomerID  string `json:"customer_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// BulkChargeRequest represents a request to charge a set of customers the
// same amount in one atomic batch
type BulkChargeRequest struct {
	CustomerIDs       []string `json:"customer_ids" binding:"required,min=1,dive,uuid"`
	AmountPerCustomer string   `json:"amount_per_customer" binding:"required"`
	Category          string   `json:"category,omitempty"`
	Description       string   `json:"description,omitempty"`
	Date              string   `json:"date,omitempty"`
	Actor             string   `json:"actor,omitempty"`
}

// RecordPaymentRequest represents a payment against an outstanding charge.
// With UseCredit the amount is drawn from the customer's credit balance and
// Method is ignored.
type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method,omitempty"`
	Reference string `json:"reference,omitempty"`
	UseCredit bool   `json:"use_credit,omitempty"`
	Date      string `json:"date,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// RefundRequest represents a cash refund drawn from a credit entry
type RefundRequest struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Date   string `json:"date,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// PaymentRecord represents one payment history item in API responses
type PaymentRecord struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// RefundRecord represents one refund history item in API responses
type RefundRecord struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Actor  string `json:"actor,omitempty"`
}

// EntryResponse represents a ledger entry in API responses. Monetary values
// are decimal strings.
type EntryResponse struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	Amount          string          `json:"amount"`
	PaidAmount      string          `json:"paid_amount,omitempty"`
	RemainingAmount string          `json:"remaining_amount,omitempty"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	Category        string          `json:"category,omitempty"`
	Description     string          `json:"description,omitempty"`
	Date            string          `json:"date"`
	PaymentHistory  []PaymentRecord `json:"payment_history,omitempty"`
	RefundHistory   []RefundRecord  `json:"refund_history,omitempty"`
	AccountFrom     string          `json:"account_from,omitempty"`
	AccountTo       string          `json:"account_to,omitempty"`
	GroupID         string          `json:"group_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// EntryListResponse represents a list of ledger entries in API responses
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// CreditBalanceResponse reports a customer's total available credit
type CreditBalanceResponse struct {
	CustomerID string `json:"customer_id"`
	Balance    string `json:"balance"`
}

// CreateAccountRequest represents a request to create a new cash account
type CreateAccountRequest struct {
	Name           string `json:"name" binding:"required"`
	OpeningBalance string `json:"opening_balance,omitempty"`
	Currency       string `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents a cash account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
