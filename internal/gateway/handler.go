package gateway

import (
	"net/http"
	"strconv"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
	"github.com/CustodiaTrack/CustodiaTrack/internal/asset"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/logger"
	"github.com/CustodiaTrack/CustodiaTrack/internal/custody"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
	"github.com/CustodiaTrack/CustodiaTrack/internal/loan"
	"github.com/CustodiaTrack/CustodiaTrack/internal/refdata"
	"gorm.io/gorm"
)

// Handler 聚合各领域服务，承载全部 HTTP 入口。
type Handler struct {
	cfg *config.Config
	log logger.Logger

	loans   *loan.Service
	ledger  *custody.Service
	assets  *asset.Service
	refdata *refdata.Repo
}

func NewHandler(db *gorm.DB, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		log:     log,
		loans:   loan.NewService(db),
		ledger:  custody.NewService(db, loan.NewRepo(db)),
		assets:  asset.NewService(db),
		refdata: refdata.NewRepo(db),
	}
}

// caller 取鉴权后的身份；缺失时返回 Forbidden。
func caller(r *http.Request) (identity.Caller, error) {
	c, ok := CallerFromContext(r.Context())
	if !ok || !c.Valid() {
		return identity.Caller{}, apperr.Forbiddenf("caller identity required")
	}
	return c, nil
}

// pageParams 解析分页参数（page/page_size，与仓储层 offset/limit 对接）。
func pageParams(r *http.Request) (offset, limit int) {
	page := 1
	size := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 200 {
		size = v
	}
	return (page - 1) * size, size
}
