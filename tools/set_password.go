// 重置 Web 登录密码的命令行小工具。
// 面板密码忘记时在服务器上执行：
//
//	go run tools/set_password.go <新密码> [数据目录]
//
// 数据目录默认 ./data，与主程序的 app.data_dir 保持一致。
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("用法: go run tools/set_password.go <新密码> [数据目录]")
		os.Exit(1)
	}

	newPassword := os.Args[1]
	username := "admin"

	dataDir := "./data"
	if len(os.Args) > 2 {
		dataDir = os.Args[2]
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf("错误: 创建数据目录失败: %v\n", err)
		os.Exit(1)
	}

	dbPath := filepath.Join(dataDir, "auth.db")
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		fmt.Printf("错误: 打开认证数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 表结构与主程序保持一致，首次使用时直接建表
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		fmt.Printf("错误: 初始化用户表失败: %v\n", err)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("错误: 生成密码哈希失败: %v\n", err)
		os.Exit(1)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
	`, username, string(hash), string(hash))
	if err != nil {
		fmt.Printf("错误: 更新密码失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ 用户 %s 的密码已更新\n", username)
	fmt.Printf("  数据库: %s\n", dbPath)
	fmt.Println("  重启后用新密码登录面板")
}
