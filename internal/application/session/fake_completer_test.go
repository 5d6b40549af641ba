package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/completion"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/memory"
)

// step 控制流式补全的一步：推送累计文本、正常结束或以错误结束
type step struct {
	text string
	done bool
	err  error
}

type fakeCompleter struct {
	steps chan step

	title      string
	titleGate  chan struct{}
	titleCalls atomic.Int32

	mu       sync.Mutex
	requests []completion.ChatRequest
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{steps: make(chan step, 16)}
}

func (f *fakeCompleter) StreamCompletion(ctx context.Context, req completion.ChatRequest, onPartial func(string)) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	var acc string
	for {
		select {
		case <-ctx.Done():
			return acc, ctx.Err()
		case st := <-f.steps:
			switch {
			case st.err != nil:
				return acc, st.err
			case st.done:
				return acc, nil
			}
			acc = st.text
			onPartial(acc)
		}
	}
}

func (f *fakeCompleter) SuggestTitle(ctx context.Context, _ string) string {
	f.titleCalls.Add(1)
	if f.titleGate != nil {
		select {
		case <-f.titleGate:
		case <-ctx.Done():
			return entity.TitleFallback
		}
	}
	return f.title
}

func (f *fakeCompleter) push(steps ...step) {
	for _, st := range steps {
		f.steps <- st
	}
}

func (f *fakeCompleter) lastRequest(t *testing.T) completion.ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no completion request recorded")
	}
	return f.requests[len(f.requests)-1]
}

var errUpstream = errors.New("upstream unavailable")

var testEpoch = time.UnixMilli(1_700_000_000_000)

// newTestStore 使用确定性的 ID 与时钟创建 Store，并在测试结束时关闭
func newTestStore(t *testing.T, fc *fakeCompleter, repo *memory.Repository) *Store {
	t.Helper()

	var ids, ticks atomic.Int64
	s := New(repo, fc,
		WithIDGenerator(func() string { return fmt.Sprintf("id-%03d", ids.Add(1)) }),
		WithClock(func() time.Time { return testEpoch.Add(time.Duration(ticks.Add(1)) * time.Second) }),
		WithSaveDebounce(time.Millisecond),
		WithTitleTimeout(2*time.Second),
		WithDriverName("memory"),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func bootstrap(t *testing.T, s *Store) *State {
	t.Helper()
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return s.Snapshot()
}

// waitState 等待快照满足条件
func createSession(t *testing.T, s *Store) *entity.Session {
	t.Helper()
	sess, err := s.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func waitState(t *testing.T, s *Store, cond func(*State) bool) *State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.Snapshot(); cond(st) {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out waiting for state")
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func waitGeneration(t *testing.T, g *Generation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := g.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("timed out waiting for generation")
	}
	return err
}

func seedRepo(t *testing.T, sessions ...*entity.Session) *memory.Repository {
	t.Helper()
	repo := memory.NewRepository()
	if err := repo.Save(context.Background(), sessions); err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	return repo
}

func msg(id string, role entity.Role, content string) entity.Message {
	return entity.Message{ID: id, Role: role, Content: content, Timestamp: testEpoch}
}

func sessionWith(id string, msgs ...entity.Message) *entity.Session {
	return &entity.Session{
		ID:           id,
		Title:        "Seeded",
		Messages:     msgs,
		LastModified: testEpoch,
		Characters:   []entity.CharacterProfile{},
	}
}

func mustSession(t *testing.T, st *State, id string) *entity.Session {
	t.Helper()
	sess, ok := st.Session(id)
	if !ok {
		t.Fatalf("session %s not found", id)
	}
	return sess
}
