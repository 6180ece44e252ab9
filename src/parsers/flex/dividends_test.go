package flex

import (
	"strings"
	"testing"

	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
)

const dividendsHeader = "CurrencyPrimary,Symbol,Description,ISIN,PayDate,Quantity,GrossRate,NetAmount,Tax,FXRateToBase\n"

func TestDividendsParser(t *testing.T) {
	data := dividendsHeader +
		"USD,AAPL,AAPL(US0378331005) Cash Dividend USD 0.24 per Share,US0378331005,2024-05-16,50,0.24,10.20,-1.80,0.92\n"

	txs, err := NewDividendsParser().Parse(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want dividend plus withholding tax", len(txs))
	}

	div := txs[0]
	if div.Type != models.TxDividend {
		t.Errorf("first row type = %s, want dividend", div.Type)
	}
	if div.Amount == nil || *div.Amount != 10.20 {
		t.Errorf("net amount = %v, want 10.20", div.Amount)
	}
	if div.Price == nil || *div.Price != 0.24 {
		t.Errorf("gross rate = %v, want 0.24", div.Price)
	}

	tax := txs[1]
	if tax.Type != models.TxWithholdingTax {
		t.Errorf("second row type = %s, want withholding_tax", tax.Type)
	}
	if tax.Amount == nil || *tax.Amount != 1.80 {
		t.Errorf("tax amount = %v, want abs value 1.80", tax.Amount)
	}
	if tax.ExternalID == div.ExternalID {
		t.Error("tax row must get its own external id")
	}
}

func TestDividendsParserNegativeNetAmount(t *testing.T) {
	data := dividendsHeader +
		"EUR,NOKIA,NOKIA OYJ,FI0009005961,2024-04-25,200,0.04,-8,0,1\n"

	txs, err := NewDividendsParser().Parse(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1 (zero tax must not emit a tax row)", len(txs))
	}
	if txs[0].Amount == nil || *txs[0].Amount != 8 {
		t.Errorf("amount = %v, want abs value 8", txs[0].Amount)
	}
}

func TestDividendsParserSkipsRowWithoutNetAmount(t *testing.T) {
	data := dividendsHeader +
		"EUR,NOKIA,NOKIA OYJ,FI0009005961,2024-04-25,200,0.04,,0,1\n"

	txs, err := NewDividendsParser().Parse(strings.NewReader(data), parsers.ParseContext{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d transactions, want 0", len(txs))
	}
}

func TestDividendsParserDeterministicIDs(t *testing.T) {
	data := dividendsHeader +
		"USD,AAPL,Cash Dividend,US0378331005,2024-05-16,50,0.24,10.20,0,0.92\n"

	first, _ := NewDividendsParser().Parse(strings.NewReader(data), parsers.ParseContext{})
	second, _ := NewDividendsParser().Parse(strings.NewReader(data), parsers.ParseContext{})
	if first[0].ExternalID != second[0].ExternalID {
		t.Errorf("external ids differ across parses: %s vs %s", first[0].ExternalID, second[0].ExternalID)
	}
}
