package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/pkg/logger"
	"github.com/dkwon/vigil/backend/pkg/redis"
)

// ScoreHandler handles score and fact read endpoints
// ⭐ SSOT: 점수/팩트 조회 API는 이 구조체에서만
type ScoreHandler struct {
	scores   contracts.ScoreRepository
	facts    contracts.FactRepository
	cache    *redis.Cache
	configID string
	logger   *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scores contracts.ScoreRepository, facts contracts.FactRepository, cache *redis.Cache, configID string, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		scores:   scores,
		facts:    facts,
		cache:    cache,
		configID: configID,
		logger:   log,
	}
}

// GetTopScores returns the top-N assets by signed inflection score
// GET /api/scores/top?date=YYYY-MM-DD&universe=...&direction=bullish|bearish&limit=20
func (h *ScoreHandler) GetTopScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	universeID := q.Get("universe")
	if universeID == "" {
		respondError(w, http.StatusBadRequest, "universe is required")
		return
	}

	direction := contracts.Direction(q.Get("direction"))
	if direction == "" {
		direction = contracts.DirectionBullish
	}
	if direction != contracts.DirectionBullish && direction != contracts.DirectionBearish {
		respondError(w, http.StatusBadRequest, "direction must be bullish or bearish")
		return
	}

	dateStr := q.Get("date")
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	limit := 20
	if l := q.Get("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 || limit > 100 {
			respondError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
	}

	// Cache hit path - confirmed daily scores barely change intraday
	cacheKey := redis.TopScoresKey(dateStr, universeID, string(direction), limit)
	var cached []*contracts.AssetScore
	if hit, _ := h.cache.Get(ctx, cacheKey, &cached); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	scores, err := h.scores.TopN(ctx, date, universeID, h.configID, direction, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query top scores")
		respondError(w, http.StatusInternalServerError, "Failed to query top scores")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, scores, redis.TTLMedium); err != nil {
		h.logger.WithError(err).Warn("Failed to cache top scores")
	}

	respondJSON(w, http.StatusOK, scores)
}

// GetAssetFacts returns recent facts for one asset, newest first
// GET /api/assets/{asset}/facts?limit=50
func (h *ScoreHandler) GetAssetFacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID := mux.Vars(r)["asset"]

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 || limit > 500 {
			respondError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
	}

	facts, err := h.facts.GetByAsset(ctx, assetID, h.configID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query asset facts")
		respondError(w, http.StatusInternalServerError, "Failed to query asset facts")
		return
	}

	respondJSON(w, http.StatusOK, facts)
}
