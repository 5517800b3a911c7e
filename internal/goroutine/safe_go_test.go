package goroutine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type reportedPanic struct {
	task  string
	value string
	stack []byte
}

func TestRun_RecoversPanic(t *testing.T) {
	reports := make(chan reportedPanic, 1)
	report := func(task string, recovered interface{}, stack []byte) {
		reports <- reportedPanic{task: task, value: fmt.Sprint(recovered), stack: stack}
	}

	run(context.Background(), "cache-janitor", func(context.Context) {
		panic("boom")
	}, report)

	select {
	case got := <-reports:
		assert.Equal(t, "cache-janitor", got.task)
		assert.Equal(t, "boom", got.value)
		assert.NotEmpty(t, got.stack)
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}

func TestRun_PassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	Run(ctx, "wait", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}
