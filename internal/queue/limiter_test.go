package queue

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"starbase-server/internal/shared/config"
)

func newLimiterScheduler() *Scheduler {
	cfg := config.QueueConfig{
		PollInterval:     time.Second,
		StuckTimeout:     time.Minute,
		InstantPerSecond: 1,
		InstantBurst:     1,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(nil, nil, nil, Registry{}, cfg, logger)
}

func TestLimiterReusedPerUser(t *testing.T) {
	s := newLimiterScheduler()

	first := s.limiter(1)
	second := s.limiter(1)

	assert.Same(t, first, second)
	assert.NotSame(t, first, s.limiter(2))
}

func TestLimiterMapStaysBounded(t *testing.T) {
	s := newLimiterScheduler()

	for i := 0; i < maxTrackedLimiters*2; i++ {
		s.limiter(i)
	}

	assert.LessOrEqual(t, len(s.limiters), maxTrackedLimiters)
}
