package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryDelayFromError(nil))
	assert.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	assert.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	assert.Equal(t, 2*time.Second, retryDelayFromError(timeoutErr{}))
	assert.Equal(t, time.Second, retryDelayFromError(errors.New("boom")))
}

func TestShortHash(t *testing.T) {
	a := shortHash("123:abc")
	assert.Len(t, a, 16)
	assert.Equal(t, a, shortHash("123:abc"))
	assert.NotEqual(t, a, shortHash("123:abd"))
}

type fakeSource struct {
	mu      sync.Mutex
	batches [][]tgbotapi.Update
	offsets []int
}

func (f *fakeSource) GetUpdates(c tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, c.Offset)
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func TestRunPolling_AdvancesOffset(t *testing.T) {
	src := &fakeSource{batches: [][]tgbotapi.Update{
		{{UpdateID: 10}, {UpdateID: 11}},
		{{UpdateID: 12}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	go func() {
		runPolling(ctx, src, zap.NewNop(), func(u tgbotapi.Update) {
			mu.Lock()
			got = append(got, u.UpdateID)
			mu.Unlock()
		})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		src.mu.Lock()
		calls := len(src.offsets)
		src.mu.Unlock()
		return n == 3 && calls >= 3
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, []int{0, 12, 13}, src.offsets[:3])
}
