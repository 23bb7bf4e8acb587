package core

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Kind names a family of listable records. It doubles as the URL segment
// and the storage discriminator.
type Kind string

const (
	KindProducts     Kind = "products"
	KindFundraisers  Kind = "fundraisers"
	KindEvents       Kind = "events"
	KindTransactions Kind = "transactions"
	KindInvoices     Kind = "invoices"
	KindSearch       Kind = "search"
)

// Transaction types.
const (
	TxDeposit    = "deposit"
	TxPayment    = "payment"
	TxCashback   = "cashback"
	TxWithdrawal = "withdrawal"
	TxRefund     = "refund"
	TxTransfer   = "transfer"
)

// Status vocabularies. They are small fixed enumerations and are matched verbatim.
var (
	ProductStatuses     = []string{"in_stock", "out_of_stock", "archived"}
	FundraiserStatuses  = []string{"active", "paused", "completed"}
	EventStatuses       = []string{"scheduled", "sold_out", "cancelled", "past"}
	TransactionTypes    = []string{TxDeposit, TxPayment, TxCashback, TxWithdrawal, TxRefund, TxTransfer}
	TransactionStatuses = []string{"pending", "completed", "failed"}
	InvoiceStatuses     = []string{"draft", "sent", "paid", "partially_paid", "overdue", "void"}
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64 `json:"cents"`
	}

	Product struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Brand       string    `json:"brand,omitempty"`
		Description string    `json:"description,omitempty"`
		Category    string    `json:"category"`
		Status      string    `json:"status"`
		Price       Money     `json:"price"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Fundraiser struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Organizer   string    `json:"organizer,omitempty"`
		Description string    `json:"description,omitempty"`
		Category    string    `json:"category"`
		Status      string    `json:"status"`
		Goal        Money     `json:"goal"`
		Raised      Money     `json:"raised"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Event struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Venue       string    `json:"venue,omitempty"`
		Description string    `json:"description,omitempty"`
		Category    string    `json:"category"`
		Status      string    `json:"status"`
		Price       Money     `json:"price"`
		StartsAt    time.Time `json:"starts_at"`
	}

	Transaction struct {
		ID           string    `json:"id"`
		Type         string    `json:"type"`
		Status       string    `json:"status"`
		Description  string    `json:"description"`
		Counterparty string    `json:"counterparty,omitempty"`
		Amount       Money     `json:"amount"`
		OccurredAt   time.Time `json:"occurred_at"`
	}

	Invoice struct {
		ID       string `json:"id"`
		Number   string `json:"number"`
		Customer string `json:"customer"`
		Status   string `json:"status"`
		Amount   Money  `json:"amount"`
		Paid     Money  `json:"paid"`
		IssuedOn Date   `json:"issued_on"`
		DueOn    Date   `json:"due_on"`
	}

	// SearchResult is a heterogeneous hit returned by the global search box.
	SearchResult struct {
		ID        string    `json:"id"`
		Kind      Kind      `json:"kind"`
		Title     string    `json:"title"`
		Subtitle  string    `json:"subtitle,omitempty"`
		Category  string    `json:"category"`
		Score     float64   `json:"score"`
		Amount    Money     `json:"amount"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

// Record is implemented by every listable entity.
type Record interface {
	Key() string
	Validate() error
}

// Identifier is implemented by pointers to records whose id can be assigned
// after decoding (creation without a client supplied id).
type Identifier interface {
	AssignID(id string)
}

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrPaidExceedsTotal = errors.New("paid amount exceeds invoice amount")
	ErrDueBeforeIssue   = errors.New("due date before issue date")
)

// Kinds returns every listable kind in display order.
func Kinds() []Kind {
	return []Kind{KindProducts, KindFundraisers, KindEvents, KindTransactions, KindInvoices, KindSearch}
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds(), k)
}

func (k Kind) String() string {
	return string(k)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Product) Key() string { return p.ID }
func (f Fundraiser) Key() string { return f.ID }
func (e Event) Key() string { return e.ID }
func (t Transaction) Key() string { return t.ID }
func (i Invoice) Key() string { return i.ID }
func (s SearchResult) Key() string { return s.ID }
func (p *Product) AssignID(id string) { p.ID = id }
func (f *Fundraiser) AssignID(id string) { f.ID = id }
func (e *Event) AssignID(id string) { e.ID = id }
func (t *Transaction) AssignID(id string) { t.ID = id }
func (i *Invoice) AssignID(id string) { i.ID = id }
func (s *SearchResult) AssignID(id string) { s.ID = id }

func (p Product) Validate() error {
	if err := validateHeader(p.ID, p.Name); err != nil {
		return err
	}
	if err := validateStatus(p.Status, ProductStatuses); err != nil {
		return err
	}
	return p.Price.Validate()
}

func (f Fundraiser) Validate() error {
	if err := validateHeader(f.ID, f.Title); err != nil {
		return err
	}
	if err := validateStatus(f.Status, FundraiserStatuses); err != nil {
		return err
	}
	if f.Goal.Cents <= 0 {
		return ErrInvalidAmount
	}
	return f.Raised.Validate()
}

func (e Event) Validate() error {
	if err := validateHeader(e.ID, e.Title); err != nil {
		return err
	}
	if err := validateStatus(e.Status, EventStatuses); err != nil {
		return err
	}
	return e.Price.Validate()
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if !slices.Contains(TransactionTypes, t.Type) {
		return ErrInvalidType
	}
	if err := validateStatus(t.Status, TransactionStatuses); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Invoice) Validate() error {
	if err := validateHeader(i.ID, i.Number); err != nil {
		return err
	}
	if err := validateStatus(i.Status, InvoiceStatuses); err != nil {
		return err
	}
	if i.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := i.Paid.Validate(); err != nil {
		return err
	}
	if i.Paid.Cents > i.Amount.Cents {
		return ErrPaidExceedsTotal
	}
	if err := i.IssuedOn.Validate(); err != nil {
		return errors.New("invalid issue date: " + err.Error())
	}
	if !i.DueOn.IsEmpty() && i.DueOn.Before(i.IssuedOn.Time) {
		return ErrDueBeforeIssue
	}
	return nil
}

func (s SearchResult) Validate() error {
	if err := validateHeader(s.ID, s.Title); err != nil {
		return err
	}
	if !s.Kind.IsValid() || s.Kind == KindSearch {
		return errors.New("invalid result kind")
	}
	return s.Amount.Validate()
}

// Outstanding is the amount still due on the invoice.
func (i Invoice) Outstanding() Money {
	return Money{Cents: i.Amount.Cents - i.Paid.Cents}
}

func validateHeader(id, title string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	return nil
}

func validateStatus(status string, allowed []string) error {
	if !slices.Contains(allowed, status) {
		return ErrInvalidStatus
	}
	return nil
}
