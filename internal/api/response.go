package api

import (
	"net/http"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("api: marshal response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	b, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
