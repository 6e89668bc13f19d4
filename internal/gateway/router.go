package gateway

import (
	"net/http"

	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/logger"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/middleware"
	"github.com/gorilla/mux"
)

// NewRouter 组装路由与中间件链（按顺序执行）：
// recovery → tracing → access log → jwt auth → rate limit。
func NewRouter(h *Handler, cfg *config.Config, log logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/token", h.issueToken).Methods(http.MethodPost)

	// 借用申请生命周期
	api.HandleFunc("/requests", h.createRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests", h.listRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}", h.getRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/custodian-sign", h.custodianSign).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/coordinator-sign", h.coordinatorSign).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/authorize-exit", h.authorizeExit).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/register-entry", h.registerEntry).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/cancel", h.cancelRequest).Methods(http.MethodPost)

	// 保管台账
	api.HandleFunc("/assignments", h.assignAssets).Methods(http.MethodPost)
	api.HandleFunc("/assignments", h.listAssignments).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}", h.getAssignment).Methods(http.MethodGet)
	api.HandleFunc("/assignments/{id}", h.unassignAsset).Methods(http.MethodDelete)

	// 资产登记处
	api.HandleFunc("/assets", h.registerAsset).Methods(http.MethodPost)
	api.HandleFunc("/assets", h.listAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", h.getAsset).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", h.updateAsset).Methods(http.MethodPatch)
	api.HandleFunc("/assets/{id}/status", h.updateAssetStatus).Methods(http.MethodPut)
	api.HandleFunc("/assets/{id}/status", h.assetStatus).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/history", h.assetHistory).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/movements", h.assetMovements).Methods(http.MethodGet)

	// 参照数据
	api.HandleFunc("/locations", h.upsertLocation).Methods(http.MethodPost)
	api.HandleFunc("/locations", h.listLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", h.getLocation).Methods(http.MethodGet)
	api.HandleFunc("/brands", h.upsertBrand).Methods(http.MethodPost)
	api.HandleFunc("/brands", h.listBrands).Methods(http.MethodGet)
	api.HandleFunc("/roles", h.listRoles).Methods(http.MethodGet)

	limiter := middleware.NewPerClientLimiter(50, 25)

	var handler http.Handler = r
	handler = RateLimit(limiter)(handler)
	handler = JWTAuth(cfg.Auth, log)(handler)
	handler = AccessLog(log)(handler)
	handler = Tracing(cfg.Server.Name)(handler)
	handler = Recovery(log)(handler)
	return handler
}
