// stats.go

package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// StatsHandler 战绩处理器
type StatsHandler struct {
	store       PlayerDirectory
	leaderboard Leaderboard
	archive     MatchHistory
}

// NewStatsHandler 创建战绩处理器；leaderboard 为 nil 时排行榜由玩家文件计算
func NewStatsHandler(store PlayerDirectory, leaderboard Leaderboard, archive MatchHistory) *StatsHandler {
	return &StatsHandler{
		store:       store,
		leaderboard: leaderboard,
		archive:     archive,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *StatsHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/stats/player/", h.handlePlayerStats)
	mux.HandleFunc("/stats/matches/", h.handlePlayerMatches)
	mux.HandleFunc("/stats/leaderboard", h.handleLeaderboard)
}

// StatsResponse 战绩响应
type StatsResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PlayerStats 玩家战绩
type PlayerStats struct {
	models.PlayerRecord
	GamesPlayed uint32  `json:"games_played"`
	WinRate     float64 `json:"win_rate"`
	Rank        int     `json:"rank"`
}

// handlePlayerStats 处理玩家战绩查询
func (h *StatsHandler) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/stats/player/")
	if name == "" {
		sendErrorResponse(w, "缺少玩家名字", http.StatusBadRequest)
		return
	}

	rec, ok := h.store.FindByName(name)
	if !ok {
		sendErrorResponse(w, "玩家不存在", http.StatusNotFound)
		return
	}

	stats := PlayerStats{
		PlayerRecord: rec,
		GamesPlayed:  rec.GamesPlayed(),
		WinRate:      rec.WinRate(),
		Rank:         h.rankOf(r, name),
	}
	sendSuccessResponse(w, "查询成功", stats)
}

// rankOf 胜场排名，优先使用Redis
func (h *StatsHandler) rankOf(r *http.Request, name string) int {
	if h.leaderboard != nil {
		rank, err := h.leaderboard.GetPlayerRank(r.Context(), name, models.LeaderboardWins)
		if err == nil {
			return rank
		}
		logger.Gateway.Warn("Redis查询玩家 %s 排名失败: %v", name, err)
	}

	for _, e := range rankPlayers(h.store.All(), models.LeaderboardWins) {
		if e.Name == name {
			return e.Rank
		}
	}
	return -1
}

// handlePlayerMatches 处理玩家对局历史查询
func (h *StatsHandler) handlePlayerMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	if h.archive == nil {
		sendErrorResponse(w, "对局归档未启用", http.StatusServiceUnavailable)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/stats/matches/")
	if name == "" {
		sendErrorResponse(w, "缺少玩家名字", http.StatusBadRequest)
		return
	}

	matches, err := h.archive.RecentMatches(r.Context(), name, parseLimit(r))
	if err != nil {
		logger.Gateway.Error("查询玩家 %s 对局历史失败: %v", name, err)
		sendErrorResponse(w, "查询对局历史失败", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []models.MatchRecord{}
	}

	sendSuccessResponse(w, "查询成功", matches)
}

// handleLeaderboard 处理排行榜查询
func (h *StatsHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	t, ok := models.ParseLeaderboardType(r.URL.Query().Get("type"))
	if !ok {
		sendErrorResponse(w, "无效的排行榜类型", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r)

	if h.leaderboard != nil {
		entries, err := h.leaderboard.GetLeaderboard(r.Context(), t, limit)
		if err == nil {
			sendSuccessResponse(w, "查询成功", entries)
			return
		}
		// Redis失败时回退到玩家文件
		logger.Gateway.Warn("Redis排行榜查询失败，回退到玩家文件: %v", err)
	}

	entries := rankPlayers(h.store.All(), t)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	sendSuccessResponse(w, "查询成功", entries)
}

// rankPlayers 按分数降序、名字升序排名
func rankPlayers(players []models.PlayerRecord, t models.LeaderboardType) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		e := models.NewLeaderboardEntry(p)
		e.Score = models.ScoreOf(p, t)
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// parseLimit 解析 limit 参数，范围 1..100
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= maxLimit {
			limit = l
		}
	}
	return limit
}

// sendSuccessResponse 发送成功响应
func sendSuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendErrorResponse 发送错误响应
func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, StatsResponse{
		Success: false,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, resp StatsResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Gateway.Warn("编码响应失败: %v", err)
	}
}
