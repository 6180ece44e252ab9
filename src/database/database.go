package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/flexfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		stdlog.Fatalf("failed to enable foreign keys: %v", err)
	}

	logger.L.Info("Checking database schema", "databasePath", databasePath)
	if err := CreateSchema(DB); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	migrateDividendPayments(DB)
	logger.L.Info("Database tables ensured/created.")
}

// CreateSchema ensures every table and index exists. Idempotent; also used
// by tests against an in-memory database.
func CreateSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS instruments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		isin TEXT NOT NULL UNIQUE,
		symbol TEXT,
		cusip TEXT,
		figi TEXT,
		currency TEXT,
		exchange TEXT,
		asset_category TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS instrument_aliases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT,
		source TEXT,
		valid_from TEXT,
		valid_to TEXT,
		is_primary BOOLEAN DEFAULT FALSE,
		FOREIGN KEY(instrument_id) REFERENCES instruments(id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_alias_one_primary
		ON instrument_aliases(instrument_id) WHERE is_primary = TRUE;

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		broker TEXT NOT NULL,
		date TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		symbol TEXT,
		isin TEXT,
		company_name TEXT,
		quantity REAL,
		price REAL,
		amount REAL,
		currency TEXT,
		commission REAL,
		realized_pnl REAL,
		fx_rate REAL,
		description TEXT,
		aux_exchange TEXT,
		aux_trade_id TEXT,
		aux_figi TEXT,
		aux_ticker TEXT
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		broker TEXT NOT NULL,
		trade_type TEXT NOT NULL,
		isin TEXT,
		symbol TEXT,
		company_name TEXT,
		trade_date TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL,
		amount REAL,
		currency TEXT,
		commission REAL,
		realized_pnl REAL,
		fx_rate REAL,
		amount_eur REAL,
		aux_exchange TEXT,
		aux_trade_id TEXT,
		aux_figi TEXT,
		aux_ticker TEXT
	);

	CREATE TABLE IF NOT EXISTS dividend_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		broker TEXT NOT NULL,
		isin TEXT,
		symbol TEXT,
		company_name TEXT,
		pay_date TEXT NOT NULL,
		amount_type TEXT NOT NULL,
		amount REAL NOT NULL,
		currency TEXT,
		withholding_tax REAL,
		net_amount REAL,
		fx_rate REAL,
		amount_eur REAL
	);

	CREATE TABLE IF NOT EXISTS cash_flows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		broker TEXT NOT NULL,
		flow_type TEXT NOT NULL,
		date TEXT NOT NULL,
		amount REAL NOT NULL,
		currency TEXT,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS corporate_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		broker TEXT NOT NULL,
		action_type TEXT NOT NULL,
		isin TEXT,
		symbol TEXT,
		date TEXT NOT NULL,
		details TEXT
	);

	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id TEXT PRIMARY KEY,
		snapshot_date TEXT NOT NULL,
		broker TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL,
		isin TEXT,
		symbol TEXT,
		description TEXT,
		date TEXT NOT NULL,
		identifier TEXT NOT NULL,
		quantity REAL NOT NULL,
		mark_price REAL,
		position_value REAL,
		cost_basis REAL,
		unrealized_pnl REAL,
		currency TEXT,
		exchange TEXT,
		FOREIGN KEY(snapshot_id) REFERENCES portfolio_snapshots(id),
		UNIQUE(snapshot_id, identifier, date)
	);

	CREATE TABLE IF NOT EXISTS sold_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier_key TEXT NOT NULL,
		isin TEXT,
		symbol TEXT,
		company_name TEXT,
		quantity REAL NOT NULL,
		buy_date TEXT,
		buy_price REAL,
		sale_date TEXT NOT NULL,
		sale_price REAL NOT NULL,
		currency TEXT,
		realized_pnl REAL,
		fx_rate REAL,
		realized_pnl_eur REAL,
		UNIQUE(identifier_key, sale_date, quantity)
	);

	CREATE TABLE IF NOT EXISTS costs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		broker_transaction_id INTEGER NOT NULL UNIQUE,
		cost_type TEXT NOT NULL,
		date TEXT NOT NULL,
		amount REAL NOT NULL,
		currency TEXT,
		isin TEXT,
		symbol TEXT,
		FOREIGN KEY(broker_transaction_id) REFERENCES transactions(id)
	);

	CREATE TABLE IF NOT EXISTS fx_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rate_date TEXT NOT NULL,
		currency TEXT NOT NULL,
		rate REAL NOT NULL,
		UNIQUE(rate_date, currency)
	);

	CREATE TABLE IF NOT EXISTS symbol_resolutions (
		isin TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		symbol TEXT,
		reason TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(createTableStatement)
	return err
}

// migrateDividendPayments backfills the amount_type column on databases
// created before the per-share/total-net distinction existed.
func migrateDividendPayments(db *sql.DB) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='dividend_payments'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		logger.L.Error("Error checking for dividend_payments table", "error", err)
		return
	}

	rows, err := db.Query("PRAGMA table_info(dividend_payments)")
	if err != nil {
		logger.L.Error("Error querying table schema for dividend_payments", "error", err)
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for dividend_payments", "error", err)
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info for dividend_payments", "error", err)
		return
	}

	if _, ok := columnExists["amount_type"]; !ok {
		_, err := db.Exec("ALTER TABLE dividend_payments ADD COLUMN amount_type TEXT NOT NULL DEFAULT 'total_net'")
		if err != nil {
			logger.L.Error("Error adding 'amount_type' column to 'dividend_payments' table", "error", err)
		} else {
			logger.L.Info("Added 'amount_type' column to 'dividend_payments' table")
		}
	}
	if _, ok := columnExists["company_name"]; !ok {
		_, err := db.Exec("ALTER TABLE dividend_payments ADD COLUMN company_name TEXT")
		if err != nil {
			logger.L.Error("Error adding 'company_name' column to 'dividend_payments' table", "error", err)
		} else {
			logger.L.Info("Added 'company_name' column to 'dividend_payments' table")
		}
	}
}
