package profile

// builtinProfiles returns the descriptors shipped with the engine. They
// mirror the bank template set the extraction service supports out of
// the box; a profile directory can extend or replace them.
func builtinProfiles() []*BankProfile {
	return []*BankProfile{
		{
			Name:        "Monzo",
			Identifiers: []string{"monzo bank", "monzo.com"},
			DateFormats: []string{"02/01/2006", "2/1/2006"},
			// Monzo large-print statements split DD/MM/YYY across lines,
			// with the final year digit on a later line.
			SplitYearDates:        true,
			PeriodBoundaryPattern: `(?:balance\s+)?brought\s+forward|carried\s+forward`,
			ColumnNames:           []string{"Amount", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 440,
				MoneyInRightX:  440,
				BalanceRightX:  540,
			},
			Strategy: StrategyHybrid,
			Classification: ClassificationConfig{
				MoneyInKeywords:  []string{"transfer from", "deposit", "salary", "interest", "refund"},
				MoneyOutKeywords: []string{"card payment", "direct debit", "transfer to", "atm"},
			},
			SkipPatterns: []string{
				`monzo bank limited`, `registered office`, `www\.monzo\.com`,
				`balance in pots`, `total outgoings`, `total deposits`,
				`excluding all pots`, `sort code:`, `account number:`, `\bIBAN\b`, `\bBIC\b`,
				`^\s*\(GBP\)\s*\(GBP\)\s*$`, `^\s*statement\s*$`, `personal account`,
			},
			FXMarkers:           []string{"USD", "EUR", "KES", "SGD", "AUD", "CAD", "CHF", "JPY"},
			AllowMissingBalance: true,
			TransactionTypeMap: map[string]string{
				"card payment":   "card_payment",
				"direct debit":   "direct_debit",
				"standing order": "standing_order",
				"transfer":       "transfer",
				"interest":       "interest",
				"atm":            "atm_withdrawal",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account number:?\s*(\d{8})`,
				SortCode:      `sort code:?\s*(\d{2}-\d{2}-\d{2})`,
				Period:        `(\d{1,2}/\d{1,2}/\d{4})\s*(?:-|to|–)\s*(\d{1,2}/\d{1,2}/\d{4})`,
			},
		},
		{
			Name:                  "NatWest",
			Identifiers:           []string{"national westminster", "natwest"},
			DateFormats:           []string{"02/01/2006", "2 Jan 2006", "2 Jan"},
			PeriodBoundaryPattern: `b(?:rought)?\s*/?\s*f(?:orward)?|brought\s+forward|carried\s+forward`,
			ColumnNames:           []string{"Paid In", "Withdrawn", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 380,
				MoneyInRightX:  460,
				BalanceRightX:  545,
			},
			Strategy: StrategyColumnPosition,
			SkipPatterns: []string{
				`national westminster bank`, `registered in england`,
				`financial services compensation scheme`, `period covered`,
			},
			FXMarkers: []string{"USD", "EUR"},
			TransactionTypeMap: map[string]string{
				"d/d":               "direct_debit",
				"s/o":               "standing_order",
				"automated credit":  "credit",
				"card transaction":  "card_payment",
				"online transaction": "transfer",
				"charge":            "fee",
				"interest":          "interest",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account\s*(?:number|no\.?):?\s*(\d{8})`,
				SortCode:      `(\d{2}-\d{2}-\d{2})`,
				Period:        `(\d{1,2}\s+\w{3,9}\s+\d{4})\s*(?:-|to|–)\s*(\d{1,2}\s+\w{3,9}\s+\d{4})`,
				TotalIn:       `total\s+paid\s+in\s+£?([\d,]+\.\d{2})`,
				TotalOut:      `total\s+withdrawn\s+£?([\d,]+\.\d{2})`,
			},
		},
		{
			Name:                  "Santander",
			Identifiers:           []string{"santander"},
			DateFormats:           []string{"2 Jan 2006", "02/01/2006", "2 Jan"},
			PeriodBoundaryPattern: `balance\s+brought\s+forward|balance\s+carried\s+forward`,
			ColumnNames:           []string{"Money out", "Money in", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 400,
				MoneyInRightX:  470,
				BalanceRightX:  545,
			},
			Strategy: StrategyColumnPosition,
			SkipPatterns: []string{
				`santander uk plc`, `financial conduct authority`, `your account summary`,
			},
			FXMarkers: []string{"USD", "EUR"},
			TransactionTypeMap: map[string]string{
				"card payment":   "card_payment",
				"direct debit":   "direct_debit",
				"standing order": "standing_order",
				"transfer":       "transfer",
				"interest":       "interest",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account\s*number:?\s*(\d{8})`,
				Period:        `(\d{1,2}\w{0,2}\s+\w{3,9}\s+\d{4})\s*(?:-|to|–)\s*(\d{1,2}\w{0,2}\s+\w{3,9}\s+\d{4})`,
				TotalIn:       `total\s+money\s+in\s*:?\s*£?([\d,]+\.\d{2})`,
				TotalOut:      `total\s+money\s+out\s*:?\s*£?([\d,]+\.\d{2})`,
			},
		},
		{
			Name:                  "Lloyds",
			Identifiers:           []string{"lloyds bank", "lloyds tsb"},
			DateFormats:           []string{"02 Jan 06", "2 Jan 2006", "02/01/2006"},
			PeriodBoundaryPattern: `statement\s+opening\s+balance|balance\s+brought\s+forward|statement\s+closing\s+balance`,
			ColumnNames:           []string{"Money Out", "Money In", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 420,
				MoneyInRightX:  480,
				BalanceRightX:  550,
			},
			Strategy: StrategyTypeCode,
			Classification: ClassificationConfig{
				MoneyInCodes:              []string{"FPI", "BGC", "TFR", "DEP", "CR"},
				MoneyOutCodes:             []string{"FPO", "DD", "DEB", "SO", "CHG", "CPT", "PAY"},
				TypeCodePositionThreshold: 120,
			},
			SkipPatterns: []string{
				`lloyds bank plc`, `money worries`, `registered office`,
			},
			FXMarkers: []string{"USD", "EUR"},
			TransactionTypeMap: map[string]string{
				"dd":  "direct_debit",
				"so":  "standing_order",
				"deb": "card_payment",
				"cpt": "atm_withdrawal",
				"fpi": "credit",
				"fpo": "transfer",
				"chg": "fee",
				"bgc": "credit",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account\s*number:?\s*(\d{8})`,
				SortCode:      `sort\s*code:?\s*(\d{2}-\d{2}-\d{2})`,
				Period:        `(\d{1,2}\s+\w{3,9}\s+\d{2,4})\s*(?:-|to|–)\s*(\d{1,2}\s+\w{3,9}\s+\d{2,4})`,
			},
		},
		{
			Name:                  "Barclays",
			Identifiers:           []string{"barclays bank", "barclays.co.uk"},
			DateFormats:           []string{"2 Jan 2006", "2 Jan", "02/01/2006"},
			PeriodBoundaryPattern: `start\s+balance|balance\s+brought\s+forward|end\s+balance`,
			ColumnNames:           []string{"Paid out", "Paid in", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 410,
				MoneyInRightX:  475,
				BalanceRightX:  550,
			},
			Strategy: StrategyKeyword,
			Classification: ClassificationConfig{
				MoneyInKeywords: []string{
					"automated credit", "cash & dep", "received from", "refund", "interest paid",
				},
				MoneyOutKeywords: []string{
					"card transaction", "direct debit", "online transaction", "standing order",
					"cash withdrawal", "bill payment",
				},
			},
			SkipPatterns: []string{
				`barclays bank uk plc`, `anything wrong\?`, `your deposit is`,
			},
			FXMarkers: []string{"USD", "EUR"},
			TransactionTypeMap: map[string]string{
				"card transaction":   "card_payment",
				"direct debit":       "direct_debit",
				"standing order":     "standing_order",
				"online transaction": "transfer",
				"automated credit":   "credit",
				"cash withdrawal":    "atm_withdrawal",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account:?\s*\d{2}-\d{2}-\d{2}\s+(\d{8})`,
				SortCode:      `(\d{2}-\d{2}-\d{2})`,
				Period:        `(\d{1,2}\s+\w{3,9})\s*(?:-|to|–)\s*(\d{1,2}\s+\w{3,9}\s+\d{4})`,
			},
		},
		{
			Name:                  "Halifax",
			Identifiers:           []string{"halifax"},
			DateFormats:           []string{"02 Jan 06", "2 Jan 2006"},
			PeriodBoundaryPattern: `balance\s+brought\s+forward|balance\s+carried\s+forward`,
			ColumnNames:           []string{"Money Out", "Money In", "Balance"},
			DefaultColumnThresholds: ColumnDefaults{
				MoneyOutRightX: 415,
				MoneyInRightX:  480,
				BalanceRightX:  550,
			},
			Strategy:            StrategyColumnPosition,
			AllowMissingBalance: true,
			SkipPatterns: []string{
				`halifax is a division`, `bank of scotland`, `registered in scotland`,
			},
			FXMarkers: []string{"USD", "EUR"},
			TransactionTypeMap: map[string]string{
				"dd":  "direct_debit",
				"so":  "standing_order",
				"deb": "card_payment",
				"fpi": "credit",
				"fpo": "transfer",
			},
			Headers: HeaderPatterns{
				AccountNumber: `account\s*number:?\s*(\d{8})`,
				SortCode:      `sort\s*code:?\s*(\d{2}-\d{2}-\d{2})`,
				Period:        `(\d{1,2}\s+\w{3,9}\s+\d{2,4})\s*(?:-|to|–)\s*(\d{1,2}\s+\w{3,9}\s+\d{2,4})`,
			},
		},
	}
}
