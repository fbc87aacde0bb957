package server

import (
	"math/rand"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// netSim 调试用的入站网络模拟：按概率丢弃意图，或延迟一段随机时间后再入队。
// 读协程调用 roll，房间协程在配置更新时调用 set。
type netSim struct {
	mu       deadlock.Mutex
	rng      *rand.Rand
	dropProb float64
	delayMin time.Duration
	delayMax time.Duration
}

func newNetSim(cfg Config) *netSim {
	s := &netSim{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	s.set(cfg)
	return s
}

func (s *netSim) set(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropProb = cfg.SimulateDropProb
	s.delayMin = cfg.SimulateDelayMin
	s.delayMax = cfg.SimulateDelayMax
}

// roll 决定一条意图的命运：drop 为 true 时丢弃，否则延迟 delay 后入队（0 表示立即）
func (s *netSim) roll() (drop bool, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropProb > 0 && s.rng.Float64() < s.dropProb {
		return true, 0
	}
	if s.delayMax <= 0 {
		return false, 0
	}
	delay = s.delayMin
	if span := s.delayMax - s.delayMin; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span) + 1))
	}
	return false, delay
}
