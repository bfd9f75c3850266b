package handler

// CreateWalletRequest represents a request to create a new wallet
type CreateWalletRequest struct {
	Currency  string `json:"currency" binding:"required,min=3,max=5"`
	IsDefault bool   `json:"is_default"`
}

// WalletResponse represents a wallet in API responses. Monetary values are
// decimal strings.
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"is_default"`
	Disabled  bool   `json:"disabled"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MoneyMovementRequest represents a deposit or withdrawal request
type MoneyMovementRequest struct {
	Amount         string `json:"amount" binding:"required"`
	Currency       string `json:"currency" binding:"required,min=3,max=5"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	TransactionID        string `json:"transaction_id"`
	WalletID             string `json:"wallet_id"`
	Type                 string `json:"type"`
	Amount               string `json:"amount"`
	Fee                  string `json:"fee"`
	NetAmount            string `json:"net_amount"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	RelatedTransactionID string `json:"related_transaction_id,omitempty"`
	Description          string `json:"description,omitempty"`
	FailureReason        string `json:"failure_reason,omitempty"`
	CreatedAt            string `json:"created_at"`
	CompletedAt          string `json:"completed_at,omitempty"`
}

// CreateEscrowRequest represents a request to open an escrow hold
type CreateEscrowRequest struct {
	ContractID        string  `json:"contract_id" binding:"required,uuid"`
	MilestoneID       *string `json:"milestone_id,omitempty" binding:"omitempty,uuid"`
	FunderWalletID    string  `json:"funder_wallet_id" binding:"required,uuid"`
	ReceiverProfileID string  `json:"receiver_profile_id" binding:"required,uuid"`
	Amount            string  `json:"amount" binding:"required"`
	Currency          string  `json:"currency" binding:"required,min=3,max=5"`
}

// ResolveEscrowRequest represents a release or refund request on a hold
type ResolveEscrowRequest struct {
	Action string `json:"action" binding:"required,oneof=release refund"`
}

// EscrowResponse represents an escrow hold in API responses
type EscrowResponse struct {
	ID                   string `json:"id"`
	ContractID           string `json:"contract_id"`
	MilestoneID          string `json:"milestone_id,omitempty"`
	FunderWalletID       string `json:"funder_wallet_id"`
	ReceiverProfileID    string `json:"receiver_profile_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	HoldTransactionID    string `json:"hold_transaction_id"`
	ReleaseTransactionID string `json:"release_transaction_id,omitempty"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
	ResolvedAt           string `json:"resolved_at,omitempty"`
}

// TransactionListParams represents filter and pagination parameters for
// transaction history endpoints
type TransactionListParams struct {
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
	Type    string `form:"type,omitempty"`
	Status  string `form:"status,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
