package holding

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

type sample struct {
	name, ticker, assetType         string
	shares, costBasis, currentValue int64
	purchaseDate                    string
}

var samples = []sample{
	{"Apple Inc.", "AAPL", "stock", 50, 7_500, 11_200, "2021-03-15"},
	{"Microsoft Corp.", "MSFT", "stock", 30, 6_200, 9_800, "2020-11-10"},
	{"Alphabet Inc.", "GOOGL", "stock", 15, 25_000, 32_400, "2020-08-10"},
	{"Amazon.com Inc.", "AMZN", "stock", 10, 15_200, 19_800, "2021-01-22"},
	{"NVIDIA Corp.", "NVDA", "stock", 20, 4_100, 17_600, "2022-03-05"},
	{"JPMorgan Chase", "JPM", "stock", 40, 6_800, 8_400, "2020-12-14"},
	{"Johnson & Johnson", "JNJ", "stock", 30, 4_500, 4_750, "2019-09-30"},

	{"US Treasury Bond", "", "bond", 0, 20_000, 20_400, "2022-01-20"},
	{"US I Bond", "", "bond", 0, 10_000, 11_350, "2022-05-01"},
	{"iShares Bond ETF", "AGG", "bond", 100, 9_800, 9_950, "2021-08-05"},
	{"Vanguard Short-Term Bond", "VBIRX", "bond", 0, 8_500, 8_300, "2021-10-08"},

	{"Vanguard S&P 500", "VOO", "etf", 40, 12_000, 15_600, "2019-06-01"},
	{"Invesco QQQ Trust", "QQQ", "etf", 25, 9_200, 11_800, "2021-06-18"},
	{"Vanguard Intl Stock ETF", "VXUS", "etf", 80, 4_800, 5_200, "2022-01-10"},

	{"Fidelity 500 Fund", "FXAIX", "mutual_fund", 0, 5_000, 6_300, "2020-04-12"},
	{"Vanguard Total Bond", "VBTLX", "mutual_fund", 0, 8_000, 7_850, "2020-07-01"},
	{"T. Rowe Price Growth", "PRGFX", "mutual_fund", 0, 7_500, 9_900, "2019-11-15"},
	{"Schwab Total Market", "SWTSX", "mutual_fund", 0, 6_000, 7_400, "2021-04-20"},
}

var defaultTargets = map[string]int64{
	"stock":       60,
	"bond":        30,
	"etf":         5,
	"mutual_fund": 5,
}

// SeedResult reports what Seed inserted.
type SeedResult struct {
	Inserted int
	Skipped  int
	Targets  bool
}

// Seed inserts the sample holdings that are not already present (matched by name and
// asset type) and the default asset-type targets when none are stored.
func Seed(ctx context.Context, svc *Service) (SeedResult, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return SeedResult{}, fmt.Errorf("listing holdings: %w", err)
	}
	present := lo.SliceToMap(existing, func(h domain.Holding) (string, bool) {
		return seedKey(h.Name, string(h.AssetType)), true
	})

	var res SeedResult
	for _, s := range samples {
		if present[seedKey(s.name, s.assetType)] {
			res.Skipped++
			continue
		}
		_, err := svc.Create(ctx, Patch{
			Name:         lo.ToPtr(s.name),
			Ticker:       lo.ToPtr(s.ticker),
			AssetType:    lo.ToPtr(s.assetType),
			Shares:       lo.ToPtr(decimal.NewFromInt(s.shares)),
			CostBasis:    lo.ToPtr(decimal.NewFromInt(s.costBasis)),
			CurrentValue: lo.ToPtr(decimal.NewFromInt(s.currentValue)),
			PurchaseDate: lo.ToPtr(s.purchaseDate),
		})
		if err != nil {
			return res, fmt.Errorf("seeding %s: %w", s.name, err)
		}
		res.Inserted++
	}

	targets, err := svc.Targets(ctx, domain.DimensionAssetType)
	if err != nil {
		return res, fmt.Errorf("listing targets: %w", err)
	}
	if len(targets) == 0 {
		defaults := lo.MapToSlice(defaultTargets, func(key string, pct int64) domain.TargetAllocation {
			return domain.TargetAllocation{GroupKey: key, TargetPercentage: decimal.NewFromInt(pct)}
		})
		if err := svc.SaveTargets(ctx, domain.DimensionAssetType, defaults); err != nil {
			return res, fmt.Errorf("seeding targets: %w", err)
		}
		res.Targets = true
	}

	return res, nil
}

func seedKey(name, assetType string) string {
	return name + "\x00" + assetType
}
