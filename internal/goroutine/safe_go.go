package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/conectacordoba/marketplace-backend/internal/logger"
)

// panicReporter получает имя задачи, значение паники и стек.
type panicReporter func(task string, recovered interface{}, stack []byte)

// Run запускает фоновую задачу. Паника внутри fn логируется и не роняет процесс.
func Run(ctx context.Context, task string, fn func(context.Context)) {
	run(ctx, task, fn, logPanic)
}

func run(ctx context.Context, task string, fn func(context.Context), report panicReporter) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report(task, r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// logPanic берёт логгер при каждом вызове: Init выполняется позже запуска задач.
func logPanic(task string, recovered interface{}, stack []byte) {
	logger.Component("goroutine").WithFields(logrus.Fields{
		"task":  task,
		"stack": string(stack),
	}).Errorf("паника в фоновой задаче: %v", recovered)
}
