// Package catalog declares how each record type is listed: which fields
// the engine searches, filters and sorts on, and which totals it shows.
package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vetrina/internal/category"
	"vetrina/internal/core"
	"vetrina/internal/listing"
)

// Aggregate names exposed by the listings.
const (
	AggCount         = "count"
	AggAveragePrice  = "average_price"
	AggInStock       = "in_stock"
	AggSoldOut       = "sold_out"
	AggRaised        = "raised"
	AggGoal          = "goal"
	AggPercentFunded = "percent_funded"
	AggTotalIncome   = "total_income"
	AggTotalExpenses = "total_expenses"
	AggNet           = "net"
	AggAmountDue     = "amount_due"
	AggAmountPaid    = "amount_paid"
	AggOutstanding   = "outstanding"
	AggOverdueCount  = "overdue_count"
)

// Catalog bundles one engine per record type.
type Catalog struct {
	Categories   *category.Normalizer
	Products     *listing.Engine[core.Product]
	Fundraisers  *listing.Engine[core.Fundraiser]
	Events       *listing.Engine[core.Event]
	Transactions *listing.Engine[core.Transaction]
	Invoices     *listing.Engine[core.Invoice]
	Search       *listing.Engine[core.SearchResult]
}

// New builds the catalog around the shared marketplace category table.
// Transactions and search results filter on their own fixed vocabularies.
func New(categories *category.Normalizer) (*Catalog, error) {
	txTypes, err := TransactionTypes()
	if err != nil {
		return nil, fmt.Errorf("transaction types: %w", err)
	}
	kinds, err := ResultKinds()
	if err != nil {
		return nil, fmt.Errorf("result kinds: %w", err)
	}
	return &Catalog{
		Categories:   categories,
		Products:     Products(categories),
		Fundraisers:  Fundraisers(categories),
		Events:       Events(categories),
		Transactions: Transactions(txTypes),
		Invoices:     Invoices(),
		Search:       Search(kinds),
	}, nil
}

// TransactionTypes is the vocabulary used when a transaction listing is
// filtered by type.
func TransactionTypes() (*category.Normalizer, error) {
	return category.NewNormalizer([]category.Definition{
		{Key: core.TxDeposit, Label: "Deposit", Aliases: []string{"top up", "top-up", "incoming"}},
		{Key: core.TxPayment, Label: "Payment", Aliases: []string{"purchase", "outgoing"}},
		{Key: core.TxCashback, Label: "Cashback", Aliases: []string{"cash back", "reward"}},
		{Key: core.TxWithdrawal, Label: "Withdrawal", Aliases: []string{"withdraw", "atm"}},
		{Key: core.TxRefund, Label: "Refund", Aliases: []string{"reversal"}},
		{Key: core.TxTransfer, Label: "Transfer", Aliases: []string{"wire", "bank transfer"}},
	})
}

// ResultKinds is the vocabulary of the search result filter.
func ResultKinds() (*category.Normalizer, error) {
	return category.NewNormalizer([]category.Definition{
		{Key: string(core.KindProducts), Label: "Products", Aliases: []string{"product"}},
		{Key: string(core.KindFundraisers), Label: "Fundraisers", Aliases: []string{"fundraiser", "campaign", "campaigns"}},
		{Key: string(core.KindEvents), Label: "Events", Aliases: []string{"event"}},
		{Key: string(core.KindTransactions), Label: "Transactions", Aliases: []string{"transaction"}},
		{Key: string(core.KindInvoices), Label: "Invoices", Aliases: []string{"invoice"}},
	})
}

func isStatus(status string) func(string) bool {
	return func(s string) bool { return s == status }
}

func inSet(values ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

func Products(categories *category.Normalizer) *listing.Engine[core.Product] {
	price := func(p core.Product) decimal.Decimal { return p.Price.Decimal() }
	inStock := isStatus("in_stock")
	return listing.New(listing.Accessors[core.Product]{
		ID:       func(p core.Product) string { return p.ID },
		Category: func(p core.Product) string { return p.Category },
		Status:   func(p core.Product) string { return p.Status },
		Amount:   price,
		Time:     func(p core.Product) time.Time { return p.CreatedAt },
		Search: []func(core.Product) string{
			func(p core.Product) string { return p.Name },
			func(p core.Product) string { return p.Brand },
			func(p core.Product) string { return p.Description },
		},
		Statuses: core.ProductStatuses,
	}, categories,
		listing.CountOf[core.Product](AggCount, nil),
		listing.AverageOf(AggAveragePrice, nil, price),
		listing.CountOf(AggInStock, func(p core.Product) bool { return inStock(p.Status) }),
	)
}

func Fundraisers(categories *category.Normalizer) *listing.Engine[core.Fundraiser] {
	raised := func(f core.Fundraiser) decimal.Decimal { return f.Raised.Decimal() }
	return listing.New(listing.Accessors[core.Fundraiser]{
		ID:       func(f core.Fundraiser) string { return f.ID },
		Category: func(f core.Fundraiser) string { return f.Category },
		Status:   func(f core.Fundraiser) string { return f.Status },
		Amount:   raised,
		Time:     func(f core.Fundraiser) time.Time { return f.CreatedAt },
		Search: []func(core.Fundraiser) string{
			func(f core.Fundraiser) string { return f.Title },
			func(f core.Fundraiser) string { return f.Organizer },
			func(f core.Fundraiser) string { return f.Description },
		},
		Statuses: core.FundraiserStatuses,
	}, categories,
		listing.CountOf[core.Fundraiser](AggCount, nil),
		listing.SumOf(AggRaised, nil, raised),
		listing.SumOf(AggGoal, nil, func(f core.Fundraiser) decimal.Decimal { return f.Goal.Decimal() }),
	).Derive(AggPercentFunded, func(v map[string]decimal.Decimal) decimal.Decimal {
		return listing.Percent(v[AggRaised], v[AggGoal], 1)
	})
}

func Events(categories *category.Normalizer) *listing.Engine[core.Event] {
	price := func(e core.Event) decimal.Decimal { return e.Price.Decimal() }
	soldOut := isStatus("sold_out")
	return listing.New(listing.Accessors[core.Event]{
		ID:       func(e core.Event) string { return e.ID },
		Category: func(e core.Event) string { return e.Category },
		Status:   func(e core.Event) string { return e.Status },
		Amount:   price,
		Time:     func(e core.Event) time.Time { return e.StartsAt },
		Search: []func(core.Event) string{
			func(e core.Event) string { return e.Title },
			func(e core.Event) string { return e.Venue },
			func(e core.Event) string { return e.Description },
		},
		Statuses: core.EventStatuses,
	}, categories,
		listing.CountOf[core.Event](AggCount, nil),
		listing.AverageOf(AggAveragePrice, nil, price),
		listing.CountOf(AggSoldOut, func(e core.Event) bool { return soldOut(e.Status) }),
	)
}

// Transactions lists account movements. The category filter selects the
// transaction type.
func Transactions(types *category.Normalizer) *listing.Engine[core.Transaction] {
	amount := func(t core.Transaction) decimal.Decimal { return t.Amount.Decimal() }
	income := inSet(core.TxDeposit, core.TxCashback, core.TxRefund)
	expense := inSet(core.TxPayment, core.TxWithdrawal, core.TxTransfer)
	return listing.New(listing.Accessors[core.Transaction]{
		ID:       func(t core.Transaction) string { return t.ID },
		Category: func(t core.Transaction) string { return t.Type },
		Status:   func(t core.Transaction) string { return t.Status },
		Amount:   amount,
		Time:     func(t core.Transaction) time.Time { return t.OccurredAt },
		Search: []func(core.Transaction) string{
			func(t core.Transaction) string { return t.Description },
			func(t core.Transaction) string { return t.Counterparty },
		},
		Statuses: core.TransactionStatuses,
	}, types,
		listing.CountOf[core.Transaction](AggCount, nil),
		listing.SumOf(AggTotalIncome, func(t core.Transaction) bool { return income(t.Type) }, amount),
		listing.SumOf(AggTotalExpenses, func(t core.Transaction) bool { return expense(t.Type) }, amount),
	).Derive(AggNet, func(v map[string]decimal.Decimal) decimal.Decimal {
		return v[AggTotalIncome].Sub(v[AggTotalExpenses])
	})
}

// Invoices have no category; a category filter on them is ignored.
func Invoices() *listing.Engine[core.Invoice] {
	return listing.New(listing.Accessors[core.Invoice]{
		ID:     func(i core.Invoice) string { return i.ID },
		Status: func(i core.Invoice) string { return i.Status },
		Amount: func(i core.Invoice) decimal.Decimal { return i.Amount.Decimal() },
		Time:   func(i core.Invoice) time.Time { return i.IssuedOn.Time },
		Search: []func(core.Invoice) string{
			func(i core.Invoice) string { return i.Number },
			func(i core.Invoice) string { return i.Customer },
		},
		Statuses: core.InvoiceStatuses,
	}, nil,
		listing.CountOf[core.Invoice](AggCount, nil),
		listing.SumOf(AggAmountDue, nil, func(i core.Invoice) decimal.Decimal { return i.Amount.Decimal() }),
		listing.SumOf(AggAmountPaid, nil, func(i core.Invoice) decimal.Decimal { return i.Paid.Decimal() }),
		listing.CountOf(AggOverdueCount, func(i core.Invoice) bool { return i.Status == "overdue" }),
	).Derive(AggOutstanding, func(v map[string]decimal.Decimal) decimal.Decimal {
		return v[AggAmountDue].Sub(v[AggAmountPaid])
	})
}

// Search lists global search hits. The category filter selects the kind of
// the hit; see DefaultSort for the ordering.
func Search(kinds *category.Normalizer) *listing.Engine[core.SearchResult] {
	return listing.New(listing.Accessors[core.SearchResult]{
		ID:        func(s core.SearchResult) string { return s.ID },
		Category:  func(s core.SearchResult) string { return string(s.Kind) },
		Amount:    func(s core.SearchResult) decimal.Decimal { return s.Amount.Decimal() },
		Time:      func(s core.SearchResult) time.Time { return s.UpdatedAt },
		Relevance: func(s core.SearchResult) float64 { return s.Score },
		Search: []func(core.SearchResult) string{
			func(s core.SearchResult) string { return s.Title },
			func(s core.SearchResult) string { return s.Subtitle },
			func(s core.SearchResult) string { return s.Category },
		},
	}, kinds,
		listing.CountOf[core.SearchResult](AggCount, nil),
	)
}

// DefaultSort is applied when a query on kind does not ask for an order.
func DefaultSort(kind core.Kind) listing.SortKey {
	if kind == core.KindSearch {
		return listing.SortRelevance
	}
	return listing.SortNone
}
