package protocol

import "fmt"

// MessageType 消息标签，每条消息的首字节
type MessageType byte

const (
	Login               MessageType = '>'
	LoginSuccessful     MessageType = '<'
	DeniedDuplicateName MessageType = '-'
	RequestLobby        MessageType = 'R'
	Invite              MessageType = 'i'
	RespondAccept       MessageType = 'A'
	RespondDecline      MessageType = 'D'
	GotAccepted         MessageType = 'a'
	GotDeclined         MessageType = 'd'
	Chat                MessageType = '|'
	Move                MessageType = 'm'
	ItsYourTurn         MessageType = 'T'
	YouWin              MessageType = 'W'
	YouLose             MessageType = 'L'
	YouTie              MessageType = 'c'
	DoneWithStatScreen  MessageType = '.'
	ClientQuitting      MessageType = 'q'
	YouAreX             MessageType = 'x'
	YouAreO             MessageType = 'o'
	Failure             MessageType = 'F'
	GameplayTimedOut    MessageType = 'O'
)

// 协议常量
const (
	MaxNameLength = 30
	MaxChatLength = 30

	// LoginFrameSize 登录帧: 标签 + 名字(1..30) + NUL + 头像(32)
	LoginFrameSize  = 64
	LoginAvatarAt   = 32
	InviteFrameSize = 64
	// ChatFrameSize 聊天帧: 标签 + 文本(NUL结尾) + 头像(64)
	ChatFrameSize = 65
	ChatAvatarAt  = 64
	MoveFrameSize = 3

	// LobbyRecordSize 大厅快照中每个玩家槽位的记录长度
	LobbyRecordSize = 48
	lobbyWonAt      = 32
	lobbyLostAt     = 36
	lobbyTiedAt     = 40
	lobbyAvatarAt   = 44

	BoardCells = 9
)

var names = map[MessageType]string{
	Login:               "Login",
	LoginSuccessful:     "LoginSuccessful",
	DeniedDuplicateName: "DeniedDuplicateName",
	RequestLobby:        "RequestLobby",
	Invite:              "Invite",
	RespondAccept:       "RespondAccept",
	RespondDecline:      "RespondDecline",
	GotAccepted:         "GotAccepted",
	GotDeclined:         "GotDeclined",
	Chat:                "Chat",
	Move:                "Move",
	ItsYourTurn:         "ItsYourTurn",
	YouWin:              "YouWin",
	YouLose:             "YouLose",
	YouTie:              "YouTie",
	DoneWithStatScreen:  "DoneWithStatScreen",
	ClientQuitting:      "ClientQuitting",
	YouAreX:             "YouAreX",
	YouAreO:             "YouAreO",
	Failure:             "Failure",
	GameplayTimedOut:    "GameplayTimedOut",
}

func (t MessageType) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(t))
}

// FrameSize 返回客户端发往服务器的消息帧长度；不是客户端消息时返回 0
func FrameSize(t MessageType) int {
	switch t {
	case Login:
		return LoginFrameSize
	case Invite:
		return InviteFrameSize
	case Chat:
		return ChatFrameSize
	case Move:
		return MoveFrameSize
	case RequestLobby, RespondAccept, RespondDecline, DoneWithStatScreen, ClientQuitting:
		return 1
	}
	return 0
}

// Message 已分帧的消息
type Message struct {
	Type    MessageType
	Payload []byte // 不含标签字节
}

// LobbyEntry 大厅快照中的一条记录
type LobbyEntry struct {
	Name   string
	Won    uint32
	Lost   uint32
	Tied   uint32
	Avatar byte
}
