package models

import (
	"fmt"
	"time"
)

// Instrument is the identity of a tradable security. ISIN is the natural key;
// instruments are created on first sighting from any source and never deleted.
type Instrument struct {
	ID            int64
	ISIN          string
	Symbol        string
	CUSIP         string
	FIGI          string
	Currency      string
	Exchange      string
	AssetCategory string
	CreatedAt     time.Time
}

// InstrumentAlias maps a (symbol, exchange, source) sighting to an instrument
// within a validity window. At most one alias per instrument is primary.
type InstrumentAlias struct {
	ID           int64
	InstrumentID int64
	Symbol       string
	Exchange     string
	Source       string
	ValidFrom    *time.Time
	ValidTo      *time.Time
	Primary      bool
}

// Trade is one executed buy/sell/FX transaction. ExternalID is globally
// unique and is what makes re-import idempotent.
type Trade struct {
	ID          int64
	ExternalID  string
	Broker      string
	Type        TransactionType
	ISIN        string
	Symbol      string
	CompanyName string
	TradeDate   time.Time
	Quantity    float64
	Price       *float64
	Amount      *float64
	Currency    string
	Commission  *float64
	RealizedPnl *float64
	FxRate      *float64
	AmountEUR   *float64
	Aux         AuxData
}

// DividendAmountType distinguishes the two mutually exclusive ways a dividend
// amount can be recorded.
type DividendAmountType string

const (
	AmountPerShare DividendAmountType = "per_share"
	AmountTotalNet DividendAmountType = "total_net"
)

// DividendPayment is one dividend cash event per instrument per pay date.
type DividendPayment struct {
	ID             int64
	ExternalID     string
	Broker         string
	ISIN           string
	Symbol         string
	CompanyName    string
	PayDate        time.Time
	AmountType     DividendAmountType
	Amount         float64
	Currency       string
	WithholdingTax *float64
	NetAmount      *float64
	FxRate         *float64
	AmountEUR      *float64
}

// CashFlow is a non-trade cash movement (deposit, withdrawal, interest, fee).
type CashFlow struct {
	ID          int64
	ExternalID  string
	Broker      string
	FlowType    TransactionType
	Date        time.Time
	Amount      float64
	Currency    string
	Description string
}

// CorporateAction covers splits, mergers and symbol changes.
type CorporateAction struct {
	ID         int64
	ExternalID string
	Broker     string
	ActionType string
	ISIN       string
	Symbol     string
	Date       time.Time
	Details    string
}

// PortfolioSnapshot is a dated point-in-time valuation.
type PortfolioSnapshot struct {
	ID           string
	SnapshotDate time.Time
	Broker       string
	CreatedAt    time.Time
}

// Position belongs to exactly one snapshot and is uniquely keyed by
// (snapshot, ISIN-or-symbol, date) so a re-delivered report cannot duplicate.
type Position struct {
	ID            int64
	SnapshotID    string
	ISIN          string
	Symbol        string
	Description   string
	Date          time.Time
	Quantity      float64
	MarkPrice     *float64
	PositionValue *float64
	CostBasis     *float64
	UnrealizedPnl *float64
	Currency      string
	Exchange      string
}

// Identifier returns the ISIN when known, the symbol otherwise.
func (p Position) Identifier() string {
	if p.ISIN != "" {
		return p.ISIN
	}
	return p.Symbol
}

// SoldPosition is a derived closed round-trip (buy plus matching sell).
type SoldPosition struct {
	ID             int64
	IdentifierKey  string
	ISIN           string
	Symbol         string
	CompanyName    string
	Quantity       float64
	BuyDate        *time.Time
	BuyPrice       *float64
	SaleDate       time.Time
	SalePrice      float64
	Currency       string
	RealizedPnl    *float64
	FxRate         *float64
	RealizedPnlEUR *float64
}

// SoldPositionKey computes the dedup identifier: the ISIN when known,
// otherwise "symbol:" plus the symbol. It must be recomputed whenever an
// ISIN becomes known later.
func SoldPositionKey(isin, symbol string) string {
	if isin != "" {
		return isin
	}
	return fmt.Sprintf("symbol:%s", symbol)
}

// CostType classifies a derived expense record.
type CostType string

const (
	CostCommission      CostType = "commission"
	CostWithholdingTax  CostType = "withholding_tax"
	CostForeignTax      CostType = "foreign_tax"
	CostLoanInterest    CostType = "loan_interest"
	CostCapitalInterest CostType = "capital_interest"
)

// Cost is a derived, always-positive expense. BrokerTransactionID points at
// the originating transaction and prevents double-derivation.
type Cost struct {
	ID                  int64
	BrokerTransactionID int64
	Type                CostType
	Date                time.Time
	Amount              float64
	Currency            string
	ISIN                string
	Symbol              string
}

// FxRate maps (date, currency) to a rate against EUR.
type FxRate struct {
	ID       int64
	RateDate time.Time
	Currency string
	Rate     float64
}
