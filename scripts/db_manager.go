// db_manager.go

package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/internal/playerdb"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/db"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	action := flag.String("action", "help", "操作类型: init, reset, dump, help")
	file := flag.String("file", "", "dump 使用的玩家数据文件，默认取配置中的 storage.player_file")
	flag.Parse()

	if *action == "help" {
		showHelp()
		return
	}

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		logger.Server.Fatal("加载配置失败: %v", err)
	}

	switch *action {
	case "init":
		initDatabase()
	case "reset":
		resetDatabase()
	case "dump":
		path := *file
		if path == "" {
			path = config.GlobalConfig.Storage.PlayerFile
		}
		if err := dumpPlayers(path); err != nil {
			logger.Server.Fatal("读取玩家数据失败: %v", err)
		}
	default:
		logger.Server.Fatal("未知操作: %s", *action)
	}
}

// showHelp 显示帮助信息
func showHelp() {
	fmt.Println("TicTacTwo 数据管理工具")
	fmt.Println("")
	fmt.Println("用法:")
	fmt.Println("  go run scripts/db_manager.go -action=<操作> [-config=<配置文件>] [-file=<玩家数据文件>]")
	fmt.Println("")
	fmt.Println("操作:")
	fmt.Println("  init   - 创建对局归档表结构")
	fmt.Println("  reset  - 删除并重新创建对局归档表（清空所有对局记录）")
	fmt.Println("  dump   - 以表格形式打印玩家数据文件")
	fmt.Println("  help   - 显示此帮助信息")
}

// initDatabase 初始化数据库；InitPostgres 会创建缺失的表
func initDatabase() {
	if err := db.InitPostgres(config.GlobalConfig.Database); err != nil {
		logger.Server.Fatal("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	logger.Server.Info("数据库表结构已就绪")
}

// resetDatabase 重置数据库
func resetDatabase() {
	if err := db.InitPostgres(config.GlobalConfig.Database); err != nil {
		logger.Server.Fatal("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	logger.Server.Warn("正在删除所有对局记录...")
	if err := db.DropAllTables(); err != nil {
		logger.Server.Fatal("删除表失败: %v", err)
	}
	if err := db.InitAllTables(); err != nil {
		logger.Server.Fatal("创建表失败: %v", err)
	}
	logger.Server.Info("数据库已重置")
}

// dumpPlayers 打印玩家数据文件中的全部记录
func dumpPlayers(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := playerdb.ReadRecords(f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\t名字\t胜\t负\t平\t胜率")
	for i, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%.1f%%\n", i, r.Name, r.GamesWon, r.GamesLost, r.GamesTied, r.WinRate())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("共 %d 条记录 (%s)\n", len(records), path)
	return nil
}
