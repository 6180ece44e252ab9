package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/utils"
)

// InsertTrade persists one executed trade. Duplicate external_id is a skip.
func (s *Store) InsertTrade(t models.Trade) Outcome {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM trades WHERE external_id = ?`, t.ExternalID).Scan(&existing)
	if err == nil {
		return skipped(fmt.Sprintf("trade %s already imported", t.ExternalID))
	}
	if err != sql.ErrNoRows {
		return failed(err)
	}

	res, err := s.db.Exec(`INSERT INTO trades (external_id, broker, trade_type, isin, symbol,
		company_name, trade_date, quantity, price, amount, currency, commission, realized_pnl,
		fx_rate, amount_eur, aux_exchange, aux_trade_id, aux_figi, aux_ticker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ExternalID, t.Broker, string(t.Type), nullString(t.ISIN), nullString(t.Symbol),
		nullString(t.CompanyName), utils.FormatDate(t.TradeDate), t.Quantity, nullFloat(t.Price),
		nullFloat(t.Amount), nullString(t.Currency), nullFloat(t.Commission),
		nullFloat(t.RealizedPnl), nullFloat(t.FxRate), nullFloat(t.AmountEUR),
		nullString(t.Aux.Exchange), nullString(t.Aux.TradeID), nullString(t.Aux.FIGI),
		nullString(t.Aux.Ticker))
	if err != nil {
		if isUniqueViolation(err) {
			return skipped(fmt.Sprintf("trade %s lost insert race", t.ExternalID))
		}
		return failed(err)
	}
	id, _ := res.LastInsertId()
	return inserted(id)
}

// CountStockTradesBetween counts buy/sell trades in [from, to], FX legs
// excluded, for the integrity reconciliation.
func (s *Store) CountStockTradesBetween(from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades
		WHERE trade_date >= ? AND trade_date <= ? AND trade_type IN ('buy', 'sell')`,
		utils.FormatDate(from), utils.FormatDate(to)).Scan(&n)
	return n, err
}

// FindTradesMissingFx returns non-EUR trades that have no FX rate yet.
func (s *Store) FindTradesMissingFx() ([]models.Trade, error) {
	rows, err := s.db.Query(`SELECT id, external_id, broker, trade_type, isin, symbol,
		trade_date, quantity, price, amount, currency, aux_trade_id FROM trades
		WHERE currency IS NOT NULL AND currency != 'EUR'
		AND (fx_rate IS NULL OR fx_rate = 0) ORDER BY trade_date, id`)
	if err != nil {
		return nil, fmt.Errorf("querying trades missing fx: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		var tradeType, tradeDate string
		var isin, symbol, currency, auxTrade sql.NullString
		var price, amount sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Broker, &tradeType, &isin, &symbol,
			&tradeDate, &t.Quantity, &price, &amount, &currency, &auxTrade); err != nil {
			return nil, err
		}
		t.Type = models.TransactionType(tradeType)
		t.ISIN = stringVal(isin)
		t.Symbol = stringVal(symbol)
		t.TradeDate = mustDate(tradeDate)
		t.Price = floatPtr(price)
		t.Amount = floatPtr(amount)
		t.Currency = stringVal(currency)
		t.Aux.TradeID = stringVal(auxTrade)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTradeFx backfills the FX rate and EUR amount on one trade.
func (s *Store) UpdateTradeFx(id int64, rate float64, amountEUR *float64) error {
	_, err := s.db.Exec(`UPDATE trades SET fx_rate = ?, amount_eur = ? WHERE id = ?`,
		rate, nullFloat(amountEUR), id)
	return err
}

// DuplicateTradeExternalIDs is a safety net behind the unique constraint;
// a non-empty result means the constraint is not doing its job.
func (s *Store) DuplicateTradeExternalIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT external_id FROM trades
		GROUP BY external_id HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
