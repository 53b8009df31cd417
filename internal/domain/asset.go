package domain

import "strings"

// AssetType classifies a holding.
type AssetType string

const (
	AssetTypeStock      AssetType = "stock"
	AssetTypeBond       AssetType = "bond"
	AssetTypeETF        AssetType = "etf"
	AssetTypeMutualFund AssetType = "mutual_fund"
	AssetTypeCash       AssetType = "cash"
)

// AssetTypes lists every supported asset type in display order.
var AssetTypes = []AssetType{
	AssetTypeStock,
	AssetTypeBond,
	AssetTypeETF,
	AssetTypeMutualFund,
	AssetTypeCash,
}

// CashTicker is the reserved ticker for uninvested cash. Holdings carrying it
// are valued 1:1 by share count and never priced externally.
const CashTicker = "$$CASH"

// ParseAssetType validates s as a known asset type.
func ParseAssetType(s string) (AssetType, error) {
	t := AssetType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AssetTypes {
		if t == known {
			return t, nil
		}
	}
	return "", Invalid("asset_type", "unknown asset type %q", s)
}

// Label returns a human-readable name, e.g. "Mutual Fund".
func (t AssetType) Label() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "etf" {
			words[i] = "ETF"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeTicker trims and uppercases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// IsCashTicker reports whether ticker is the cash sentinel.
func IsCashTicker(ticker string) bool {
	return NormalizeTicker(ticker) == CashTicker
}

// IsPriceable reports whether a ticker should be looked up at a quote source.
func IsPriceable(ticker string) bool {
	t := NormalizeTicker(ticker)
	return t != "" && t != CashTicker
}

func (t AssetType) String() string {
	return string(t)
}
