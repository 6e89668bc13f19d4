package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CustodiaTrack/CustodiaTrack/internal/apperr"
)

// errorBody 统一错误响应体：code 供调用方分流（重新输入 / 刷新状态），
// message 供人读。
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = apperr.CodeOf(err)

	var e *apperr.Error
	if errors.As(err, &e) && e.Kind != apperr.KindPersistence {
		body.Error.Message = e.Message
	} else {
		// 存储层细节不外泄
		body.Error.Message = "internal error"
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

// decodeBody 解析 JSON 请求体；失败返回 ValidationError。
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validationf("invalid request body: %v", err)
	}
	return nil
}
