package gateway

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

var playersPage = template.Must(template.New("players").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>TicTacTwo</title></head>
<body>
<h1>在线玩家 {{len .Players}}，对局中房间 {{.Rooms}}</h1>
<table border="1">
<tr><th>槽位</th><th>名字</th><th>头像</th><th>状态</th><th>胜</th><th>负</th><th>平</th></tr>
{{range .Players}}<tr><td>{{.Slot}}</td><td>{{.Name}}</td><td>{{.Avatar}}</td><td>{{.State}}</td><td>{{.GamesWon}}</td><td>{{.GamesLost}}</td><td>{{.GamesTied}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// PlayersHandler 在线玩家页面
type PlayersHandler struct {
	server ServerDirectory
	store  PlayerDirectory
}

// NewPlayersHandler 创建在线玩家处理器
func NewPlayersHandler(server ServerDirectory, store PlayerDirectory) *PlayersHandler {
	return &PlayersHandler{server: server, store: store}
}

// RegisterHandlers 注册HTTP处理器
func (h *PlayersHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/players", h.handlePlayers)
}

// PlayersData 在线玩家数据
type PlayersData struct {
	Players []models.ActivePlayer `json:"players"`
	Rooms   []models.RoomInfo     `json:"rooms"`
	Ticks   uint64                `json:"ticks"`
}

func (h *PlayersHandler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	players := h.server.ActivePlayers()
	for i := range players {
		if rec, ok := h.store.FindByName(players[i].Name); ok {
			players[i].GamesWon = rec.GamesWon
			players[i].GamesLost = rec.GamesLost
			players[i].GamesTied = rec.GamesTied
		}
	}
	rooms := h.server.ActiveRooms()
	_, _, ticks := h.server.Stats()

	if wantsJSON(r) {
		sendSuccessResponse(w, "查询成功", PlayersData{Players: players, Rooms: rooms, Ticks: ticks})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := playersPage.Execute(w, struct {
		Players []models.ActivePlayer
		Rooms   int
	}{players, len(rooms)})
	if err != nil {
		logger.Gateway.Warn("渲染玩家页面失败: %v", err)
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
