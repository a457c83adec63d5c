package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// userBreaker はアクセストークンごとのブレーカーと最終利用時刻を保持する。
type userBreaker struct {
	breaker  *gobreaker.CircuitBreaker[any]
	lastUsed time.Time
}

// breakerSet はアクセストークンごとにサーキットブレーカーを管理する。
// あるユーザーの障害が他のユーザーの呼び出しを遮断しないよう、状態はトークン単位で分離する。
// キーはトークンのSHA-256ハッシュで、トークン自体は保持しない。
type breakerSet struct {
	cfg     BreakerConfig
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	breakers  map[string]*userBreaker
	lastSweep time.Time
}

func newBreakerSet(cfg BreakerConfig) *breakerSet {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultBreakerIdleTTL
	}
	return &breakerSet{
		cfg:      cfg,
		idleTTL:  ttl,
		now:      time.Now,
		breakers: make(map[string]*userBreaker),
	}
}

// get はトークンに対応するブレーカーを取得または作成する。
// 呼び出しのついでにidleTTLを超えて使われていないエントリを削除する。
func (s *breakerSet) get(token string) *gobreaker.CircuitBreaker[any] {
	key := breakerKey(token)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.evictLocked(now)
		s.lastSweep = now
	}

	ub, ok := s.breakers[key]
	if !ok {
		ub = &userBreaker{breaker: s.newBreaker()}
		s.breakers[key] = ub
	}
	ub.lastUsed = now
	return ub.breaker
}

func (s *breakerSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.breakers)
}

// evictLocked は最終利用からidleTTLを超えたエントリを削除する。s.muを保持して呼ぶ。
func (s *breakerSet) evictLocked(now time.Time) {
	for key, ub := range s.breakers {
		if now.Sub(ub.lastUsed) > s.idleTTL {
			delete(s.breakers, key)
		}
	}
}

func (s *breakerSet) newBreaker() *gobreaker.CircuitBreaker[any] {
	threshold := s.cfg.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "google-calendar",
		MaxRequests: s.cfg.MaxRequests,
		Interval:    s.cfg.Interval,
		Timeout:     s.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
	})
}

func breakerKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
