package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
	"github.com/masambo/jukebox-joy-scan/logger"
)

// Extractor 是调度器眼中的识别客户端
type Extractor interface {
	Extract(ctx context.Context, imageDataURI string, extractMetadata bool) (*extraction.Result, error)
}

// Notifier 在条目扫描状态变化时收到其快照（认领、完成、失败）。
// 在排空goroutine中被调用，实现不能长时间阻塞。
type Notifier func(item Item)

// Scheduler 把条目ID的FIFO队列逐个送进识别客户端，任一时刻只有
// 一个条目在处理。串行处理是流水线的核心约束：它限制了对共享识别
// 服务的压力，也让完成顺序等于入队顺序。
type Scheduler struct {
	store        *Store
	extractor    Extractor
	policy       RetryPolicy
	withMetadata bool
	notify       Notifier

	// sleep 在测试中被替换，用于观察退避时长而不真正等待
	sleep func(time.Duration)

	mu      sync.Mutex
	queue   []string
	running bool
}

// SchedulerOption 配置调度器
type SchedulerOption func(*Scheduler)

// WithNotifier 安装进度回调
func WithNotifier(n Notifier) SchedulerOption {
	return func(s *Scheduler) { s.notify = n }
}

// WithMetadataMode 要求识别服务同时从照片推断专辑标题和艺人
func WithMetadataMode(on bool) SchedulerOption {
	return func(s *Scheduler) { s.withMetadata = on }
}

// NewScheduler 基于给定的存储和识别客户端创建调度器
func NewScheduler(store *Store, extractor Extractor, policy RetryPolicy, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:     store,
		extractor: extractor,
		policy:    policy,
		sleep:     time.Sleep,
		queue:     make([]string, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue 把条目ID追加到队尾，排空循环空闲时顺带启动它。
// 排空进行中再调用只是延长队列；running标志保证不会重复启动。
func (s *Scheduler) Enqueue(ids ...string) {
	s.mu.Lock()
	s.queue = append(s.queue, ids...)
	if s.running || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
}

// Rescan 把失败的条目重置为pending并重新排到队尾，尝试次数重新计算
func (s *Scheduler) Rescan(id string) error {
	if !s.store.resetForRescan(id) {
		return fmt.Errorf("item %s is not in a failed state", id)
	}
	s.Enqueue(id)
	return nil
}

// Draining 报告排空循环是否在运行
func (s *Scheduler) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	// 循环退出时必须复位running标志，panic也不例外
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scan scheduler panicked", logger.Any("panic", r))
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		id := s.queue[0]
		s.queue = s.queue[1:]
		remaining := len(s.queue)
		s.mu.Unlock()

		logger.Debug("Scan scheduler claiming item",
			logger.String("itemId", id),
			logger.Int("remaining", remaining))
		s.process(id)
	}
}

// process 对一个条目跑完整的尝试周期。返回时条目要么已扫描、
// 要么已失败（或在处理期间被删除）。
func (s *Scheduler) process(id string) {
	if !s.store.claim(id) {
		// 已删除、已结算或状态不符，跳过
		return
	}
	if item, ok := s.store.Get(id); ok {
		s.emit(item)
	}

	result, err := s.runAttempts(id)

	item, ok := s.store.completeScan(id, result, err)
	if !ok {
		logger.Debug("Discarding scan result for removed item", logger.String("itemId", id))
		return
	}
	if item.Status == StatusFailed {
		logger.Warn("Scan failed",
			logger.String("itemId", id),
			logger.String("error", item.LastError))
	} else {
		logger.Info("Scan complete",
			logger.String("itemId", id),
			logger.Int("songs", len(item.Songs)))
	}
	s.emit(item)
}

func (s *Scheduler) runAttempts(id string) (*extraction.Result, error) {
	item, ok := s.store.Get(id)
	if !ok {
		return nil, &extraction.Error{Kind: extraction.KindTransport, Message: "item removed"}
	}

	uri, err := item.Image.DataURI()
	if err != nil {
		// 图片字节已丢失，重试也救不回来
		return nil, fmt.Errorf("image unavailable: %w", err)
	}

	for attempt := 1; ; attempt++ {
		result, err := s.extractor.Extract(context.Background(), uri, s.withMetadata)
		if err == nil {
			return result, nil
		}

		delay, retry := s.policy.Decide(err, attempt)
		if !retry {
			return nil, err
		}

		logger.Warn("Extraction attempt failed, backing off",
			logger.String("itemId", id),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.ErrorField(err))
		s.sleep(delay)
	}
}

func (s *Scheduler) emit(item Item) {
	if s.notify != nil {
		s.notify(item)
	}
}
