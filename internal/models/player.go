// player.go

package models

// PlayerRecord 玩家战绩记录，以名字为唯一键
type PlayerRecord struct {
	Name      string `json:"name"`
	GamesWon  uint32 `json:"games_won"`
	GamesLost uint32 `json:"games_lost"`
	GamesTied uint32 `json:"games_tied"`
}

// GamesPlayed 总对局数
func (p PlayerRecord) GamesPlayed() uint32 {
	return p.GamesWon + p.GamesLost + p.GamesTied
}

// WinRate 胜率(百分比)
func (p PlayerRecord) WinRate() float64 {
	total := p.GamesPlayed()
	if total == 0 {
		return 0
	}
	return float64(p.GamesWon) * 100 / float64(total)
}

// SessionState 会话协议状态
type SessionState int

const (
	// StateNotConnected 未连接（空槽位）
	StateNotConnected SessionState = iota
	// StateLobby 大厅中，可被邀请
	StateLobby
	// StateWaitingForHandshake 已发出邀请，等待对方回应
	StateWaitingForHandshake
	// StateReceivedInvitation 收到邀请，等待自己回应
	StateReceivedInvitation
	// StateGameplay 对局中，由房间负责读取消息
	StateGameplay
	// StateStatScreen 对局结束后的战绩界面
	StateStatScreen
)

var sessionStateNames = map[SessionState]string{
	StateNotConnected:        "not_connected",
	StateLobby:               "lobby",
	StateWaitingForHandshake: "waiting_for_handshake",
	StateReceivedInvitation:  "received_invitation",
	StateGameplay:            "gameplay",
	StateStatScreen:          "stat_screen",
}

func (s SessionState) String() string {
	if n, ok := sessionStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText 以文本形式序列化状态
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ActivePlayer 在线玩家视图，供状态页面使用
type ActivePlayer struct {
	Slot       int          `json:"slot"`
	Name       string       `json:"name"`
	Avatar     byte         `json:"avatar"`
	State      SessionState `json:"state"`
	RemoteAddr string       `json:"remote_addr"`
	GamesWon   uint32       `json:"games_won"`
	GamesLost  uint32       `json:"games_lost"`
	GamesTied  uint32       `json:"games_tied"`
}
