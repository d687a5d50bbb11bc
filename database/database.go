package database

import (
	"fmt"
	"log"

	"moneysync/config"
	"moneysync/remote"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init 按配置初始化远程文档存储驱动
// driver=memory 使用内存存储（开发/测试），driver=mysql 使用 MySQL 文档表
func Init(cfg *config.Config) (remote.Store, error) {
	switch cfg.Database.Driver {
	case "", "memory":
		log.Println("文档存储初始化成功 (memory)")
		return NewMemoryStore(), nil

	case "mysql":
		// 构建 MySQL DSN 连接字符串
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.DBName,
			cfg.Database.Charset,
		)

		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}

		// 获取底层 *sql.DB 连接池配置
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)

		// 自动迁移文档表
		if err := db.AutoMigrate(&documentRow{}); err != nil {
			return nil, err
		}

		log.Println("文档存储初始化成功 (mysql)")
		return NewGormStore(db), nil

	default:
		return nil, fmt.Errorf("不支持的文档存储驱动: %s", cfg.Database.Driver)
	}
}
