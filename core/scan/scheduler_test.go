package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/masambo/jukebox-joy-scan/core/extraction"
)

// stubExtractor 按调用次序给出脚本化的识别结果，并记录调用顺序
// 和并发度
type stubExtractor struct {
	mu       sync.Mutex
	calls    []string
	inFlight int
	maxSeen  int
	delay    time.Duration
	block    chan struct{}

	// respond 把从1起的调用序号映射到结果。nil时默认返回
	// 单曲成功。
	respond func(call int, uri string) (*extraction.Result, error)
}

func (e *stubExtractor) Extract(ctx context.Context, uri string, withMetadata bool) (*extraction.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, uri)
	call := len(e.calls)
	e.inFlight++
	if e.inFlight > e.maxSeen {
		e.maxSeen = e.inFlight
	}
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.block != nil {
		<-e.block
	}

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	if e.respond != nil {
		return e.respond(call, uri)
	}
	return &extraction.Result{Songs: []extraction.Song{{TrackNumber: 1, Title: "Stub Song"}}}, nil
}

func (e *stubExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *stubExtractor) callOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func waitForCondition(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// addStoreItem 登记一个pending条目，其临时图片的字节就是条目ID，
// 因此数据URI能在调用记录中标识它
func addStoreItem(t *testing.T, store *Store, id string) string {
	t.Helper()
	ref, err := NewImageRef(t.TempDir(), "item-*", "image/jpeg", []byte(id))
	if err != nil {
		t.Fatalf("NewImageRef: %v", err)
	}
	item := newTestItem(id)
	item.Image = ref
	store.Add(item)

	uri, err := ref.DataURI()
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}
	return uri
}

func instantPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond}
}

func scannedOrFailed(store *Store, ids ...string) func() bool {
	return func() bool {
		for _, id := range ids {
			item, ok := store.Get(id)
			if !ok {
				continue
			}
			if item.Status != StatusScanned && item.Status != StatusFailed {
				return false
			}
		}
		return true
	}
}

func TestSchedulerProcessesInOrder(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{}
	sched := NewScheduler(store, ext, instantPolicy())

	uriA := addStoreItem(t, store, "a")
	uriB := addStoreItem(t, store, "b")
	uriC := addStoreItem(t, store, "c")

	sched.Enqueue("a", "b", "c")
	waitForCondition(t, 2*time.Second, "all items settled", scannedOrFailed(store, "a", "b", "c"))
	waitForCondition(t, 2*time.Second, "drain loop exit", func() bool { return !sched.Draining() })

	want := []string{uriA, uriB, uriC}
	got := ext.callOrder()
	if len(got) != len(want) {
		t.Fatalf("call count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d out of order", i)
		}
	}

	for _, id := range []string{"a", "b", "c"} {
		item, _ := store.Get(id)
		if item.Status != StatusScanned || len(item.Songs) != 1 {
			t.Errorf("item %s not scanned: %+v", id, item)
		}
	}
}

func TestSchedulerSingleFlight(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{delay: 20 * time.Millisecond}
	sched := NewScheduler(store, ext, instantPolicy())

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		addStoreItem(t, store, id)
	}

	// 多个goroutine同时入队，任一时刻仍只有一个调用在飞
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sched.Enqueue(id)
		}(id)
	}
	wg.Wait()

	waitForCondition(t, 3*time.Second, "all items settled", scannedOrFailed(store, ids...))

	ext.mu.Lock()
	maxSeen := ext.maxSeen
	ext.mu.Unlock()
	if maxSeen != 1 {
		t.Errorf("saw %d concurrent extractions, want 1", maxSeen)
	}
}

func TestSchedulerRetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{
		respond: func(call int, uri string) (*extraction.Result, error) {
			if call <= 2 {
				return nil, &extraction.Error{Kind: extraction.KindRateLimited, Status: 429}
			}
			return &extraction.Result{Songs: []extraction.Song{{TrackNumber: 1, Title: "Finally"}}}, nil
		},
	}
	sched := NewScheduler(store, ext, RetryPolicy{MaxAttempts: 3, BackoffBase: 2 * time.Second})

	var mu sync.Mutex
	var delays []time.Duration
	sched.sleep = func(d time.Duration) {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
	}

	addStoreItem(t, store, "a")
	sched.Enqueue("a")
	waitForCondition(t, 2*time.Second, "item settled", scannedOrFailed(store, "a"))

	item, _ := store.Get("a")
	if item.Status != StatusScanned {
		t.Fatalf("status = %v, want scanned: %s", item.Status, item.LastError)
	}
	if ext.callCount() != 3 {
		t.Errorf("extraction called %d times, want 3", ext.callCount())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("recorded %d backoffs, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("backoff %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestSchedulerStopsAtAttemptCeiling(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{
		respond: func(call int, uri string) (*extraction.Result, error) {
			return nil, &extraction.Error{Kind: extraction.KindTransport, Message: "connection reset"}
		},
	}
	sched := NewScheduler(store, ext, instantPolicy())

	addStoreItem(t, store, "a")
	sched.Enqueue("a")
	waitForCondition(t, 2*time.Second, "item settled", scannedOrFailed(store, "a"))

	if ext.callCount() != 3 {
		t.Errorf("extraction called %d times, want 3", ext.callCount())
	}
	item, _ := store.Get("a")
	if item.Status != StatusFailed || item.LastError == "" {
		t.Errorf("expected failed item with error, got %+v", item)
	}
}

func TestSchedulerTerminalFailureSkipsRetries(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{
		respond: func(call int, uri string) (*extraction.Result, error) {
			return nil, &extraction.Error{Kind: extraction.KindQuotaExhausted, Status: 402, Message: "credits depleted"}
		},
	}
	sched := NewScheduler(store, ext, instantPolicy())

	addStoreItem(t, store, "a")
	sched.Enqueue("a")
	waitForCondition(t, 2*time.Second, "item settled", scannedOrFailed(store, "a"))

	if ext.callCount() != 1 {
		t.Errorf("quota failure retried: %d calls", ext.callCount())
	}
}

func TestSchedulerEnqueueWhileDraining(t *testing.T) {
	store := NewStore()
	release := make(chan struct{})
	ext := &stubExtractor{block: release}
	sched := NewScheduler(store, ext, instantPolicy())

	uriA := addStoreItem(t, store, "a")
	uriB := addStoreItem(t, store, "b")

	sched.Enqueue("a")
	waitForCondition(t, time.Second, "first extraction to start", func() bool { return ext.callCount() == 1 })

	// 排空正处理条目中；这次入队必须只延长队列，不能再起一个循环
	sched.Enqueue("b")
	if !sched.Draining() {
		t.Error("scheduler should report draining")
	}

	close(release)
	waitForCondition(t, 2*time.Second, "both items settled", scannedOrFailed(store, "a", "b"))

	got := ext.callOrder()
	if len(got) != 2 || got[0] != uriA || got[1] != uriB {
		t.Errorf("items processed out of enqueue order")
	}
}

func TestSchedulerDiscardsRemovedItem(t *testing.T) {
	store := NewStore()
	release := make(chan struct{})
	ext := &stubExtractor{block: release}
	sched := NewScheduler(store, ext, instantPolicy())

	addStoreItem(t, store, "a")
	sched.Enqueue("a")
	waitForCondition(t, time.Second, "extraction to start", func() bool { return ext.callCount() == 1 })

	store.Remove("a")
	close(release)

	waitForCondition(t, 2*time.Second, "drain loop exit", func() bool { return !sched.Draining() })
	if _, ok := store.Get("a"); ok {
		t.Error("removed item came back after its scan finished")
	}
}

func TestSchedulerRescan(t *testing.T) {
	store := NewStore()
	var fail atomic.Bool
	fail.Store(true)
	ext := &stubExtractor{
		respond: func(call int, uri string) (*extraction.Result, error) {
			if fail.Load() {
				return nil, &extraction.Error{Kind: extraction.KindMalformed, Message: "no decodable song data"}
			}
			return &extraction.Result{Songs: []extraction.Song{{TrackNumber: 1, Title: "Recovered"}}}, nil
		},
	}
	sched := NewScheduler(store, ext, instantPolicy())

	addStoreItem(t, store, "a")

	if err := sched.Rescan("a"); err == nil {
		t.Error("Rescan accepted a pending item")
	}

	sched.Enqueue("a")
	waitForCondition(t, 2*time.Second, "first pass settled", func() bool {
		item, _ := store.Get("a")
		return item.Status == StatusFailed
	})

	fail.Store(false)
	if err := sched.Rescan("a"); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	waitForCondition(t, 2*time.Second, "rescan settled", func() bool {
		item, _ := store.Get("a")
		return item.Status == StatusScanned
	})

	item, _ := store.Get("a")
	if len(item.Songs) != 1 || item.Songs[0].Title != "Recovered" {
		t.Errorf("rescan result not stored: %+v", item.Songs)
	}
}

func TestSchedulerNotifier(t *testing.T) {
	store := NewStore()
	ext := &stubExtractor{}

	var mu sync.Mutex
	var statuses []Status
	notify := func(item Item) {
		mu.Lock()
		statuses = append(statuses, item.Status)
		mu.Unlock()
	}
	sched := NewScheduler(store, ext, instantPolicy(), WithNotifier(notify))

	addStoreItem(t, store, "a")
	sched.Enqueue("a")
	waitForCondition(t, 2*time.Second, "item settled", scannedOrFailed(store, "a"))

	waitForCondition(t, time.Second, "notifications", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if statuses[0] != StatusScanning || statuses[1] != StatusScanned {
		t.Errorf("notification sequence = %v", statuses)
	}
}
