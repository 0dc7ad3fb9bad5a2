package contracts

// UniverseSpec is the resolved selection criteria for a universe identifier.
// 선정/랭킹 정책 자체는 외부 협력자 소관 - 엔진은 결과만 소비한다.
type UniverseSpec struct {
	UniverseID   string  `json:"universe_id"`
	AssetType    string  `json:"asset_type"`    // e.g. "equity_kr", "equity_us", "crypto"
	MinLiquidity float64 `json:"min_liquidity"` // average daily traded value floor
	RankLimit    int     `json:"rank_limit"`    // max assets returned
}
