package models

import "time"

// TransactionType is the canonical classification a parser assigns to a row.
type TransactionType string

const (
	TxBuy             TransactionType = "buy"
	TxSell            TransactionType = "sell"
	TxFxBuy           TransactionType = "fx_buy"
	TxFxSell          TransactionType = "fx_sell"
	TxDividend        TransactionType = "dividend"
	TxWithholdingTax  TransactionType = "withholding_tax"
	TxForeignTax      TransactionType = "foreign_tax"
	TxDeposit         TransactionType = "deposit"
	TxWithdrawal      TransactionType = "withdrawal"
	TxLoanInterest    TransactionType = "loan_interest"
	TxCapitalInterest TransactionType = "capital_interest"
	TxFee             TransactionType = "fee"
	TxCorporateAction TransactionType = "corporate_action"
	TxUnknown         TransactionType = "unknown"
)

// IsTrade reports whether the type is an executed buy/sell, FX legs included.
func (t TransactionType) IsTrade() bool {
	switch t {
	case TxBuy, TxSell, TxFxBuy, TxFxSell:
		return true
	}
	return false
}

// IsCashFlow reports whether the type is a non-trade cash movement.
func (t TransactionType) IsCashFlow() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxLoanInterest, TxCapitalInterest, TxFee:
		return true
	}
	return false
}

// AuxData is semi-structured passthrough a parser captures beyond the
// canonical columns. The key set is fixed on purpose: downstream code must
// not grow an open-ended bag of per-broker fields.
type AuxData struct {
	Exchange string `json:"exchange,omitempty"`
	TradeID  string `json:"trade_id,omitempty"`
	FIGI     string `json:"figi,omitempty"`
	Ticker   string `json:"ticker,omitempty"`
}

// CanonicalTransaction is the unified representation every dialect parser
// emits. Each parser populates as many fields as its source carries,
// including the classification; optional numerics stay nil when the source
// column is blank so that "no data" never collapses into zero.
type CanonicalTransaction struct {
	Broker      string
	ExternalID  string
	Date        time.Time
	Type        TransactionType
	Symbol      string
	ISIN        string
	CompanyName string
	Quantity    *float64
	Price       *float64
	Amount      *float64
	Currency    string
	Commission  *float64
	RealizedPnl *float64
	FxRate      *float64
	Description string
	Aux         AuxData
}
