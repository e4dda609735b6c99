// schema.go

package db

// 对局归档的表结构定义

// CreateAllTablesSQL 创建所有表的SQL语句
const CreateAllTablesSQL = `
-- 对局记录表
CREATE TABLE IF NOT EXISTS match_records (
    id VARCHAR(50) PRIMARY KEY,
    room_slot INT NOT NULL,
    outcome VARCHAR(20) NOT NULL, -- win, tie, forfeit, abandoned, timeout
    winner VARCHAR(30),
    board CHAR(9) NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL
);

-- 玩家对局记录表
CREATE TABLE IF NOT EXISTS player_match_records (
    match_id VARCHAR(50) REFERENCES match_records(id) ON DELETE CASCADE,
    player_name VARCHAR(30) NOT NULL,
    mark CHAR(1) NOT NULL,
    result VARCHAR(10) NOT NULL, -- won, lost, tied, none
    games_won BIGINT NOT NULL,
    games_lost BIGINT NOT NULL,
    games_tied BIGINT NOT NULL,
    PRIMARY KEY (match_id, player_name)
);

-- 创建索引以提高查询性能
CREATE INDEX IF NOT EXISTS idx_player_match_records_player_name ON player_match_records(player_name);
CREATE INDEX IF NOT EXISTS idx_match_records_end_time ON match_records(end_time);
`

// DropAllTablesSQL 删除所有表的SQL语句（按依赖关系顺序）
const DropAllTablesSQL = `
DROP TABLE IF EXISTS player_match_records CASCADE;
DROP TABLE IF EXISTS match_records CASCADE;
`

// InitAllTables 初始化所有数据库表
func InitAllTables() error {
	_, err := DB.Exec(CreateAllTablesSQL)
	return err
}

// DropAllTables 删除所有数据库表
func DropAllTables() error {
	_, err := DB.Exec(DropAllTablesSQL)
	return err
}
