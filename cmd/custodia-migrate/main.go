package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/db"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/logger"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/CustodiaTrack/CustodiaTrack/internal/loan"
	"github.com/CustodiaTrack/CustodiaTrack/internal/refdata"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	configPath = flag.String("config", "configs/custodia-service.json", "配置文件路径")
	seed       = flag.Bool("seed", true, "迁移后是否写入基础参照数据")
)

// 角色目录种子：核心流程依赖的固定角色名。
var seedRoles = []refdata.Role{
	{Name: identity.RoleRequester, Description: "submits loan requests"},
	{Name: identity.RoleCustodian, Description: "responsible for assigned assets"},
	{Name: identity.RoleCoordinator, Description: "approves custodian-signed requests"},
	{Name: identity.RoleGuard, Description: "authorizes physical exit and registers return"},
	{Name: identity.RoleRegistry, Description: "maintains the asset registry"},
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

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
		log.Fatalf("failed to migrate schema: %v", err)
	}
	log.Info("schema migration done")

	if !*seed {
		return
	}

	ctx := context.Background()
	repo := refdata.NewRepo(gormDB)

	for _, role := range seedRoles {
		existing, err := repo.FindRoleByName(ctx, role.Name)
		if err == nil && existing != nil {
			continue
		}
		role.ID = uuid.NewString()
		if err := repo.UpsertRole(ctx, &role); err != nil {
			log.Fatalf("failed to seed role %s: %v", role.Name, err)
		}
		log.Infof("seeded role %s", role.Name)
	}

	locations, err := repo.ListLocations(ctx)
	if err != nil {
		log.Fatalf("failed to list locations: %v", err)
	}
	if len(locations) == 0 {
		loc := &refdata.Location{
			ID:     uuid.NewString(),
			Name:   "main-campus",
			Campus: "main",
		}
		if err := repo.UpsertLocation(ctx, loc); err != nil {
			log.Fatalf("failed to seed default location: %v", err)
		}
		log.Infof("seeded default location %s", loc.Name)
	}

	log.Info("seed done")
}
