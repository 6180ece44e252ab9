// Package nordnet parses Nordnet's unified transaction export: tab-separated,
// Finnish transaction-type vocabulary, delivered either as UTF-16LE with a
// BOM or as plain UTF-8.
package nordnet

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/utils"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const Broker = "nordnet"

// transactionTypes maps Nordnet's Finnish vocabulary to canonical types.
var transactionTypes = map[string]models.TransactionType{
	"TALLETUS":          models.TxDeposit,
	"NOSTO":             models.TxWithdrawal,
	"OSTO":              models.TxBuy,
	"MYYNTI":            models.TxSell,
	"OSINKO":            models.TxDividend,
	"ENNAKKOPIDÄTYS":    models.TxWithholdingTax,
	"ULKOM KUPONKIVERO": models.TxForeignTax,
	"LAINAKORKO":        models.TxLoanInterest,
	"PÄÄOMITETTU KORKO": models.TxCapitalInterest,
	"VALUUTAN OSTO":     models.TxFxBuy,
	"VALUUTAN MYYNTI":   models.TxFxSell,
	"PALKKIO":           models.TxFee,
}

// Parser reads the whole export into canonical transactions.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Parse(r io.Reader, ctx parsers.ParseContext) ([]models.CanonicalTransaction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read nordnet input: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, parsers.ErrEmptyCSV
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read nordnet header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read nordnet records: %w", err)
	}

	var out []models.CanonicalTransaction
	for i, record := range records {
		col := func(name string) string {
			j, ok := idx[name]
			if !ok || j >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[j])
		}

		rawType := strings.ToUpper(strings.TrimSpace(col("Tapahtumatyyppi")))
		txType, known := transactionTypes[rawType]
		if !known {
			logger.L.Debug("Skipping nordnet row with unknown transaction type", "row", i+1, "type", rawType)
			continue
		}

		date, ok := utils.ParseDate(col("Kirjauspäivä"))
		if !ok {
			if date, ok = utils.ParseDate(col("Kauppapäivä")); !ok {
				logger.L.Debug("Skipping nordnet row with unparseable date", "row", i+1)
				continue
			}
		}

		isin := col("ISIN")
		if txType == models.TxFxBuy || txType == models.TxFxSell {
			isin = ""
		}

		amount := utils.ParseDecimalPtr(col("Summa"))
		commission := utils.ParseDecimalPtr(col("Maksut"))
		if commission != nil {
			*commission = utils.AbsFloat(*commission)
		}

		out = append(out, models.CanonicalTransaction{
			Broker:      Broker,
			ExternalID:  externalID(col("Id"), col("Vahvistusnumero"), date, rawType, col("Arvopaperi"), col("Summa"), i),
			Date:        date,
			Type:        txType,
			Symbol:      col("Arvopaperi"),
			ISIN:        isin,
			CompanyName: col("Arvopaperi"),
			Quantity:    absPtr(utils.ParseDecimalPtr(col("Määrä"))),
			Price:       utils.ParseDecimalPtr(col("Kurssi")),
			Amount:      amount,
			Currency:    col("Valuutta"),
			Commission:  commission,
			RealizedPnl: utils.ParseDecimalPtr(col("Tulos")),
			FxRate:      utils.ParseDecimalPtr(col("Vaihtokurssi")),
			Description: col("Tapahtumateksti"),
		})
	}
	return out, nil
}

func absPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	*f = utils.AbsFloat(*f)
	return f
}

// externalID prefers Nordnet's own row id, then the confirmation number, and
// falls back to a deterministic digest of the identifying fields.
func externalID(id, confirmation string, date time.Time, rawType, security, amount string, row int) string {
	if id != "" {
		return Broker + "-" + id
	}
	if confirmation != "" {
		return Broker + "-" + confirmation
	}
	input := strings.Join([]string{Broker, date.Format(utils.ISODateFormat), rawType, security, amount, fmt.Sprintf("%d", row)}, "|")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:24]
}

// decode handles the export's two encodings. A UTF-16LE BOM wins; otherwise
// the bytes are taken as UTF-8 (with any UTF-8 BOM stripped).
func decode(raw []byte) (string, error) {
	if len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16LE nordnet export: %w", err)
		}
		return string(decoded), nil
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	return string(raw), nil
}
