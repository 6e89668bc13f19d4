package main

import (
	"flag"
	"fmt"

	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/db"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/logger"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/server"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/tracing"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/gateway"
	"github.com/CustodiaTrack/CustodiaTrack/internal/loan"
	"github.com/CustodiaTrack/CustodiaTrack/internal/refdata"
	"github.com/joho/godotenv"
)

var (
	configPath = flag.String("config", "configs/custodia-service.json", "配置文件路径")
	consulKey  = flag.String("consul-kv", "", "可选：从 Consul KV 读取配置的 key")
)

func main() {
	flag.Parse()

	// .env 仅开发环境使用；不存在不报错
	_ = godotenv.Load()

	// 加载配置（Consul KV 优先于本地文件）
	var cfg *config.Config
	var err error
	if *consulKey != "" {
		bootstrap := config.GetConfig()
		cfg, err = config.LoadConfigFromConsulKV(bootstrap.Consul.Host, bootstrap.Consul.Port, *consulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪（注册为全局 tracer）
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&asset.Asset{},
		&asset.StatusRecord{},
		&custody.Assignment{},
		&custody.MovementRecord{},
		&loan.Request{},
		&loan.RequestDetail{},
		&loan.Signature{},
		&refdata.Location{},
		&refdata.Brand{},
		&refdata.Role{},
	); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	handler := gateway.NewHandler(gormDB, cfg, log)
	router := gateway.NewRouter(handler, cfg, log)

	if err := server.Run(cfg, log, router); err != nil {
		log.Fatalf("custodia-service exited with error: %v", err)
	}
}
