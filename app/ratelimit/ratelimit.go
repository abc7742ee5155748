package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	redisCallTimeout = 500 * time.Millisecond
	minWindow        = time.Millisecond
	failOpenLogEvery = time.Minute
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var (
	_ echomiddleware.RateLimiterStore = (*RedisStore)(nil)
	_ echomiddleware.RateLimiterStore = (*MemoryStore)(nil)
)

func validateLimit(limit int, window time.Duration) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if window < minWindow {
		return fmt.Errorf("window must be at least %s", minWindow)
	}
	return nil
}

// windowIndex numbers fixed windows since the epoch.
func windowIndex(now time.Time, window time.Duration) int64 {
	return now.UnixMilli() / window.Milliseconds()
}

func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "unknown"
	}
	return identifier
}

// RedisStore is a fixed-window limiter shared by every instance of the
// service. Redis errors let the request through.
type RedisStore struct {
	client *goredis.Client
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
	logger logrus.FieldLogger
	warn   rate.Sometimes
}

// NewRedisStore allows limit requests per identifier per window.
func NewRedisStore(client *goredis.Client, scope string, limit int, window time.Duration, logger logrus.FieldLogger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := validateLimit(limit, window); err != nil {
		return nil, err
	}
	return &RedisStore{
		client: client,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: logger.WithFields(logrus.Fields{"component": "ratelimit", "scope": scope}),
		warn:   rate.Sometimes{Interval: failOpenLogEvery},
	}, nil
}

// Allow counts one request for identifier in the current window.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s:%d", s.scope, normalizeIdentifier(identifier), windowIndex(s.now(), s.window))

	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	result, err := allowScript.Run(ctx, s.client, []string{key}, s.limit, s.window.Milliseconds()).Int()
	if err != nil {
		s.warn.Do(func() {
			s.logger.WithError(err).Warn("rate limit check failed, allowing requests")
		})
		return true, nil
	}
	return result == 1, nil
}

type memoryCounter struct {
	window int64
	count  int
}

// MemoryStore is the per-process fixed-window limiter used when Redis is
// not configured. Windows are aligned the same way as RedisStore.
type MemoryStore struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	counters map[string]memoryCounter
	swept    int64
}

// NewMemoryStore allows limit requests per identifier per window.
func NewMemoryStore(limit int, window time.Duration) (*MemoryStore, error) {
	if err := validateLimit(limit, window); err != nil {
		return nil, err
	}
	return &MemoryStore{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]memoryCounter),
	}, nil
}

// Allow counts one request for identifier in the current window.
func (s *MemoryStore) Allow(identifier string) (bool, error) {
	identifier = normalizeIdentifier(identifier)
	current := windowIndex(s.now(), s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	if current != s.swept {
		for id, c := range s.counters {
			if c.window < current {
				delete(s.counters, id)
			}
		}
		s.swept = current
	}

	c := s.counters[identifier]
	if c.window != current {
		c = memoryCounter{window: current}
	}
	c.count++
	s.counters[identifier] = c

	return c.count <= s.limit, nil
}

// Middleware rejects requests over the limit with 429 and message.
func Middleware(store echomiddleware.RateLimiterStore, message string, skipper echomiddleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = echomiddleware.DefaultSkipper
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": message})
		},
	})
}

// UnaryServerInterceptor applies store to gRPC calls keyed by peer host.
func UnaryServerInterceptor(store echomiddleware.RateLimiterStore, message string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if allowed, _ := store.Allow(peerHost(ctx)); !allowed {
			return nil, status.Error(codes.ResourceExhausted, message)
		}
		return handler(ctx, req)
	}
}

func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
