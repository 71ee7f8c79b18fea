package platform

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Entry is one earning line from a platform statement, with the amount
// already converted to paise.
type Entry struct {
	Source   string
	Amount   int64
	EarnedAt time.Time
}

// ParseStatement reads an XML earnings statement exported by a gig platform:
//
//	<Statement platform="uber">
//	  <Earning amount="450.50" date="2024-01-12" />
//	  ...
//	</Statement>
//
// Amounts are decimal rupee strings; they are parsed exactly and converted
// to paise, rejecting anything with sub-paise precision.
func ParseStatement(raw []byte) ([]Entry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}

	root := doc.SelectElement("Statement")
	if root == nil {
		return nil, fmt.Errorf("no Statement element found")
	}
	platform := root.SelectAttrValue("platform", "unknown")

	var entries []Entry
	for _, el := range root.SelectElements("Earning") {
		amountStr := el.SelectAttrValue("amount", "")
		dateStr := el.SelectAttrValue("date", "")
		if amountStr == "" || dateStr == "" {
			return nil, fmt.Errorf("earning entry missing amount or date")
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %v", amountStr, err)
		}
		paise := amount.Shift(2)
		if !paise.IsInteger() {
			return nil, fmt.Errorf("amount %q has sub-paise precision", amountStr)
		}
		if paise.Sign() <= 0 {
			return nil, fmt.Errorf("amount %q must be positive", amountStr)
		}

		earnedAt, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %v", dateStr, err)
		}

		source := el.SelectAttrValue("source", platform)
		entries = append(entries, Entry{
			Source:   source,
			Amount:   paise.IntPart(),
			EarnedAt: earnedAt,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("statement contains no earnings")
	}
	return entries, nil
}
