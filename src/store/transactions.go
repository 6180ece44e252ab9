package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// StoredTransaction is a raw ledger row as persisted, with its database id.
// The derived-record processors scan these.
type StoredTransaction struct {
	ID int64
	models.CanonicalTransaction
}

const transactionColumns = `id, external_id, broker, date, transaction_type, symbol, isin,
	company_name, quantity, price, amount, currency, commission, realized_pnl, fx_rate,
	description, aux_exchange, aux_trade_id, aux_figi, aux_ticker`

// InsertTransaction writes one canonical transaction into the raw ledger.
// A duplicate external_id, found either pre-insert or at the constraint, is a
// skip, never an error.
func (s *Store) InsertTransaction(tx models.CanonicalTransaction) Outcome {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM transactions WHERE external_id = ?`, tx.ExternalID).Scan(&existing)
	if err == nil {
		return skipped(fmt.Sprintf("transaction %s already imported", tx.ExternalID))
	}
	if err != sql.ErrNoRows {
		return failed(err)
	}

	res, err := s.db.Exec(`INSERT INTO transactions (external_id, broker, date, transaction_type,
		symbol, isin, company_name, quantity, price, amount, currency, commission, realized_pnl,
		fx_rate, description, aux_exchange, aux_trade_id, aux_figi, aux_ticker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ExternalID, tx.Broker, utils.FormatDate(tx.Date), string(tx.Type),
		nullString(tx.Symbol), nullString(tx.ISIN), nullString(tx.CompanyName),
		nullFloat(tx.Quantity), nullFloat(tx.Price), nullFloat(tx.Amount), nullString(tx.Currency),
		nullFloat(tx.Commission), nullFloat(tx.RealizedPnl), nullFloat(tx.FxRate),
		nullString(tx.Description), nullString(tx.Aux.Exchange), nullString(tx.Aux.TradeID),
		nullString(tx.Aux.FIGI), nullString(tx.Aux.Ticker))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("transaction %s lost insert race", tx.ExternalID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// FindTransactionsByTypes returns all raw transactions of the given types,
// ordered by date then id for stable processing.
func (s *Store) FindTransactionsByTypes(types ...models.TransactionType) ([]StoredTransaction, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, 0, len(types))
	for i, t := range types {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(t))
	}
	rows, err := s.db.Query(`SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_type IN (`+placeholders+`) ORDER BY date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions by type: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// FindEarliestBuy returns the earliest buy transaction for an ISIN, or nil.
func (s *Store) FindEarliestBuy(isin string) (*StoredTransaction, error) {
	return s.findOneTransaction(`SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_type = 'buy' AND isin = ? ORDER BY date, id LIMIT 1`, isin)
}

// FindEarliestBuyByCompanyName returns the earliest buy whose company name
// matches, used for IBKR sells that carry no ISIN.
func (s *Store) FindEarliestBuyByCompanyName(name string) (*StoredTransaction, error) {
	return s.findOneTransaction(`SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_type = 'buy' AND company_name = ? ORDER BY date, id LIMIT 1`, name)
}

// FindEarliestBuyByTicker matches on the ticker stored in auxiliary data.
func (s *Store) FindEarliestBuyByTicker(ticker string) (*StoredTransaction, error) {
	return s.findOneTransaction(`SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_type = 'buy' AND (aux_ticker = ? OR symbol = ?)
		ORDER BY date, id LIMIT 1`, ticker, ticker)
}

// FindISINForSymbolFromDividends looks for a dividend or withholding row that
// carries both the symbol and an ISIN, used by the sold-position cascade.
func (s *Store) FindISINForSymbolFromDividends(symbol string) (string, error) {
	var isin sql.NullString
	err := s.db.QueryRow(`SELECT isin FROM transactions
		WHERE symbol = ? AND isin IS NOT NULL AND isin != ''
		AND transaction_type IN ('dividend', 'withholding_tax', 'foreign_tax')
		ORDER BY date LIMIT 1`, symbol).Scan(&isin)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stringVal(isin), nil
}

// TransactionsWithCommission returns buy/sell rows carrying a nonzero
// commission, for the cost derivation pass.
func (s *Store) TransactionsWithCommission() ([]StoredTransaction, error) {
	rows, err := s.db.Query(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE transaction_type IN ('buy', 'sell') AND commission IS NOT NULL AND commission != 0
		ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying commission transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// CountTransactionsBetween counts raw rows of the given types in [from, to].
func (s *Store) CountTransactionsBetween(from, to time.Time, types ...models.TransactionType) (int, error) {
	placeholders := ""
	args := []any{utils.FormatDate(from), utils.FormatDate(to)}
	for i, t := range types {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(t))
	}
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions
		WHERE date >= ? AND date <= ? AND transaction_type IN (`+placeholders+`)`, args...).Scan(&n)
	return n, err
}

func (s *Store) findOneTransaction(query string, args ...any) (*StoredTransaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txs, err := scanTransactions(rows)
	if err != nil || len(txs) == 0 {
		return nil, err
	}
	return &txs[0], nil
}

func scanTransactions(rows *sql.Rows) ([]StoredTransaction, error) {
	var out []StoredTransaction
	for rows.Next() {
		var t StoredTransaction
		var date, txType string
		var symbol, isin, company, currency, desc, auxExch, auxTrade, auxFigi, auxTicker sql.NullString
		var qty, price, amount, commission, pnl, fx sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Broker, &date, &txType, &symbol, &isin,
			&company, &qty, &price, &amount, &currency, &commission, &pnl, &fx,
			&desc, &auxExch, &auxTrade, &auxFigi, &auxTicker); err != nil {
			return nil, err
		}
		t.Date = mustDate(date)
		t.Type = models.TransactionType(txType)
		t.Symbol = stringVal(symbol)
		t.ISIN = stringVal(isin)
		t.CompanyName = stringVal(company)
		t.Quantity = floatPtr(qty)
		t.Price = floatPtr(price)
		t.Amount = floatPtr(amount)
		t.Currency = stringVal(currency)
		t.Commission = floatPtr(commission)
		t.RealizedPnl = floatPtr(pnl)
		t.FxRate = floatPtr(fx)
		t.Description = stringVal(desc)
		t.Aux = models.AuxData{
			Exchange: stringVal(auxExch),
			TradeID:  stringVal(auxTrade),
			FIGI:     stringVal(auxFigi),
			Ticker:   stringVal(auxTicker),
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
