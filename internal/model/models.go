// Package model defines the data models for the diamond top-up bot.
package model

import "time"

// Account represents one end user's pre-paid balance account.
// The balance is denominated in whole MMK and is only ever changed
// through the atomic increment in the account repository.
type Account struct {
	TelegramID  int64     `db:"telegram_id"`
	DisplayName string    `db:"display_name"`
	Username    string    `db:"username"`
	Balance     int64     `db:"balance"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// OrderStatus is the lifecycle state of a diamond order.
type OrderStatus string

// Order statuses. Confirmed and cancelled are terminal.
const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s OrderStatus) Terminal() bool {
	return s == OrderConfirmed || s == OrderCancelled
}

// Order is a diamond purchase request. The price is snapshotted at
// creation time and the debit is held until an admin resolves it.
type Order struct {
	OrderID    string      `db:"order_id"`
	AccountID  int64       `db:"account_id"`
	GameID     string      `db:"game_id"`
	ServerID   string      `db:"server_id"`
	ItemCode   string      `db:"item_code"`
	Price      int64       `db:"price"`
	Status     OrderStatus `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
	ResolvedBy *int64      `db:"resolved_by"`
	ResolvedAt *time.Time  `db:"resolved_at"`
}

// TopupStatus is the lifecycle state of a balance recharge request.
type TopupStatus string

// Top-up statuses. Approved and rejected are terminal.
const (
	TopupPending  TopupStatus = "pending"
	TopupApproved TopupStatus = "approved"
	TopupRejected TopupStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s TopupStatus) Terminal() bool {
	return s == TopupApproved || s == TopupRejected
}

// Topup is a balance recharge request. The amount is credited only
// when an admin approves it; the proof-of-payment file id is opaque
// to the core and is just relayed to the reviewing admin.
type Topup struct {
	TopupID     string      `db:"topup_id"`
	AccountID   int64       `db:"account_id"`
	Amount      int64       `db:"amount"`
	Channel     string      `db:"channel"`
	ProofFileID *string     `db:"proof_file_id"`
	Status      TopupStatus `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	ResolvedBy  *int64      `db:"resolved_by"`
	ResolvedAt  *time.Time  `db:"resolved_at"`
}

// PaymentChannel describes one off-platform payment method
// (KPay, WavePay, ...) shown to users submitting a top-up.
type PaymentChannel struct {
	Name          string `db:"name"`
	AccountNumber string `db:"account_number"`
	AccountName   string `db:"account_name"`
	QRFileID      string `db:"qr_file_id"`
}

// Clone is a delegate sub-account owned by an admin. It shares the
// same credit/debit contract as Account.Balance.
type Clone struct {
	ID           int64     `db:"id"`
	OwnerAdminID int64     `db:"owner_admin_id"`
	Balance      int64     `db:"balance"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Clone statuses.
const (
	CloneActive   = "active"
	CloneDisabled = "disabled"
)

// AccountSummary is the at-a-glance view of one account.
type AccountSummary struct {
	Balance           int64
	OrderCount        int64
	TopupCount        int64
	PendingTopupCount int64
}

// Report holds the totals over confirmed orders and approved
// top-ups whose terminal transition falls within a date window.
type Report struct {
	OrderTotal int64
	OrderCount int64
	TopupTotal int64
	TopupCount int64
}
