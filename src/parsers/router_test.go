package parsers

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data string
		want StatementType
	}{
		{
			"portfolio",
			"ClientAccountID,AccountAlias,Model,CurrencyPrimary,FXRateToBase,AssetClass,Symbol,Description,ISIN,ListingExchange,Quantity,MarkPrice,PositionValue,CostBasisPrice,CostBasisMoney,Side,ReportDate\n",
			TypePortfolio,
		},
		{
			"dividends",
			"ClientAccountID,CurrencyPrimary,Symbol,Description,ISIN,PayDate,Quantity,GrossRate,NetAmount,Tax,FXRateToBase\n",
			TypeDividends,
		},
		{
			"trades",
			"ClientAccountID,CurrencyPrimary,Symbol,Description,ISIN,Exchange,TradeDate,Quantity,TradePrice,TradeMoney,Buy/Sell,IBCommission,FifoPnlRealized,FXRateToBase,TransactionID\n",
			TypeTrades,
		},
		{
			"actions",
			"ClientAccountID,CurrencyPrimary,ActivityCode,LevelOfDetail,Symbol,ISIN,Date,Description,Amount\n",
			TypeActions,
		},
		{
			"cash report",
			"ClientAccountID,CurrencyPrimary,LevelOfDetail,ReportDate,StartingCash,EndingCash,Deposits,Withdrawals\n",
			TypeCashReport,
		},
		{
			"activity statement",
			"Field Name,Field Value\nPeriod,2024\n",
			TypeActivityStatement,
		},
		{
			"nordnet routes as trades",
			"Id\tKirjauspäivä\tKauppapäivä\tTapahtumatyyppi\tArvopaperi\tISIN\tMäärä\tKurssi\tSumma\tValuutta\n",
			TypeTrades,
		},
		{"empty input", "", TypeUnknown},
		{"blank line", "\n\n", TypeUnknown},
		{"unrecognized headers", "Foo,Bar,Baz\n1,2,3\n", TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.data); got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyActionsBeforePlainerLayouts(t *testing.T) {
	// An actions export shares ledger-style tokens with the trades layout;
	// the more specific signature must win.
	data := "ActivityCode,LevelOfDetail,Symbol,ISIN,TradePrice,Buy/Sell,Date,Amount\n"
	if got := Classify(data); got != TypeActions {
		t.Errorf("Classify = %q, want %q", got, TypeActions)
	}
}

func TestStripDuplicateHeaders(t *testing.T) {
	in := "A,B,C\n1,2,3\nA,B,C\n4,5,6\n"
	want := "A,B,C\n1,2,3\n4,5,6\n"
	if got := StripDuplicateHeaders(in); got != want {
		t.Errorf("StripDuplicateHeaders = %q, want %q", got, want)
	}
}

func TestStripDuplicateHeadersNoDuplicates(t *testing.T) {
	// Output must be bit-identical when there is nothing to strip.
	in := "A,B,C\r\n1,2,3\r\n4,5,6"
	if got := StripDuplicateHeaders(in); got != in {
		t.Errorf("StripDuplicateHeaders changed input without duplicates:\n%q\n%q", in, got)
	}
}

func TestStripDuplicateHeadersIdempotent(t *testing.T) {
	in := "A,B\n1,2\nA,B\n3,4\n"
	once := StripDuplicateHeaders(in)
	twice := StripDuplicateHeaders(once)
	if once != twice {
		t.Errorf("second pass changed output:\n%q\n%q", once, twice)
	}
}
