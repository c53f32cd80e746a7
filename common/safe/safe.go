package safe

import (
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

// Go запускает fn в отдельной goroutine; паника логируется и не роняет процесс.
// done (если не nil) закрывается после выхода fn.
func Go(log *logger.Logger, name string, fn func()) (done <-chan struct{}) {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		defer Recover(log, name)
		fn()
	}()
	return ch
}

// Recover ловит панику и логирует её. Вызывать только через defer.
func Recover(log *logger.Logger, name string) {
	if r := recover(); r != nil {
		log.Error("panic recovered",
			zap.String("goroutine", name),
			zap.Any("error", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}
