package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/memory"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/snapshot"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
)

func TestBootstrapFreshWhenAbsent(t *testing.T) {
	repo := memory.NewRepository()
	s := newTestStore(t, newFakeCompleter(), repo)
	st := bootstrap(t, s)

	if len(st.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(st.Sessions))
	}
	active, ok := st.Active()
	if !ok {
		t.Fatal("no active session after bootstrap")
	}
	if active.Title != entity.TitleUntitled {
		t.Errorf("title = %q, want %q", active.Title, entity.TitleUntitled)
	}
	if len(active.Messages) != 1 || active.Messages[0].Content != entity.WelcomeText {
		t.Errorf("messages = %+v, want the welcome message", active.Messages)
	}

	waitFor(t, func() bool { return repo.SaveCount() > 0 })
}

func TestBootstrapCorruptRecord(t *testing.T) {
	for _, raw := range []string{`{not json`, `null`, `[]`, `[{"id":"x","messages":[]}]`} {
		t.Run(raw, func(t *testing.T) {
			s := newTestStore(t, newFakeCompleter(), memory.NewRepositoryWithData([]byte(raw)))
			st := bootstrap(t, s)
			if len(st.Sessions) != 1 || st.ActiveID != st.Sessions[0].ID {
				t.Fatalf("want one fresh active session, got %d (active %q)", len(st.Sessions), st.ActiveID)
			}
		})
	}
}

type failingRepo struct{ memory.Repository }

func (f *failingRepo) Load(context.Context) ([]*entity.Session, error) {
	return nil, errors.New("disk on fire")
}

func TestBootstrapLoadError(t *testing.T) {
	s := New(&failingRepo{}, newFakeCompleter())
	err := s.Bootstrap(context.Background())
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("Bootstrap error = %v, want ErrStorage", err)
	}
	if len(s.Snapshot().Sessions) != 0 {
		t.Error("failed bootstrap must not install a fresh state")
	}
}

func TestCreateAndSelectSession(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	first := bootstrap(t, s).ActiveID

	created := createSession(t, s)
	st := s.Snapshot()
	if st.Sessions[0].ID != created.ID || st.ActiveID != created.ID {
		t.Fatalf("new session should be first and active, got order %v active %q", ids(st), st.ActiveID)
	}

	s.SelectSession(first)
	if got := s.Snapshot().ActiveID; got != first {
		t.Errorf("ActiveID = %q, want %q", got, first)
	}

	before := s.Snapshot().Version
	s.SelectSession("missing")
	after := s.Snapshot()
	if after.Version != before || after.ActiveID != first {
		t.Error("selecting an unknown id must be a no-op")
	}
}

func TestActivePointerAlwaysValid(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	bootstrap(t, s)

	check := func(step string) {
		st := s.Snapshot()
		if len(st.Sessions) == 0 {
			t.Fatalf("%s: collection is empty", step)
		}
		if _, ok := st.Active(); !ok {
			t.Fatalf("%s: active id %q does not exist", step, st.ActiveID)
		}
	}

	ops := []string{"create", "create", "delete-active", "create", "delete-other", "delete-active", "delete-active", "delete-active", "create"}
	for _, op := range ops {
		st := s.Snapshot()
		switch op {
		case "create":
			createSession(t, s)
		case "delete-active":
			if err := s.DeleteSession(st.ActiveID); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
		case "delete-other":
			for _, sess := range st.Sessions {
				if sess.ID != st.ActiveID {
					if err := s.DeleteSession(sess.ID); err != nil {
						t.Fatalf("DeleteSession: %v", err)
					}
					break
				}
			}
		}
		check(op)
	}
}

func TestDeleteActiveFallsBackToMostRecent(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	oldest := bootstrap(t, s).ActiveID
	middle := createSession(t, s).ID
	newest := createSession(t, s).ID

	if err := s.DeleteSession(newest); err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.ActiveID != middle {
		t.Errorf("ActiveID = %q, want %q", st.ActiveID, middle)
	}

	s.SelectSession(oldest)
	if err := s.DeleteSession(middle); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().ActiveID; got != oldest {
		t.Errorf("deleting a non-active session changed ActiveID to %q", got)
	}
}

func TestDeleteLastSessionLeavesExactlyOne(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	only := bootstrap(t, s).ActiveID

	notify, cancel := s.Subscribe()
	defer cancel()
	before := s.Snapshot().Version

	if err := s.DeleteSession(only); err != nil {
		t.Fatal(err)
	}
	<-notify

	st := s.Snapshot()
	if st.Version != before+1 {
		t.Errorf("delete-and-replace took %d commits, want 1", st.Version-before)
	}
	if len(st.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(st.Sessions))
	}
	if st.Sessions[0].ID == only || st.ActiveID != st.Sessions[0].ID {
		t.Errorf("want a new active replacement, got %q active %q", st.Sessions[0].ID, st.ActiveID)
	}

	if err := s.DeleteSession("missing"); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("DeleteSession(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestRenameSession(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	st := bootstrap(t, s)
	id := st.ActiveID
	modified := st.Sessions[0].LastModified

	if err := s.RenameSession(id, "  Dragons  "); err != nil {
		t.Fatal(err)
	}
	sess := mustSession(t, s.Snapshot(), id)
	if sess.Title != "Dragons" {
		t.Errorf("title = %q, want Dragons", sess.Title)
	}
	if !sess.LastModified.Equal(modified) {
		t.Error("rename must not touch lastModified")
	}

	if err := s.RenameSession(id, "   "); !errors.Is(err, apperrors.ErrBlankInput) {
		t.Errorf("blank rename = %v, want ErrBlankInput", err)
	}
	if err := s.RenameSession("missing", "x"); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("rename missing = %v, want ErrSessionNotFound", err)
	}
}

func TestSendBlankNeverMutates(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	st := bootstrap(t, s)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := s.SendMessage(context.Background(), st.ActiveID, text, "")
		if !errors.Is(err, apperrors.ErrBlankInput) {
			t.Errorf("SendMessage(%q) = %v, want ErrBlankInput", text, err)
		}
	}
	after := s.Snapshot()
	if after.Version != st.Version || len(mustSession(t, after, st.ActiveID).Messages) != 1 {
		t.Error("blank send mutated the session")
	}
	if fc.titleCalls.Load() != 0 {
		t.Error("blank send requested a title")
	}
}

func TestSendUnknownSession(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	bootstrap(t, s)
	if _, err := s.SendMessage(context.Background(), "missing", "hi", ""); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("SendMessage(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestSendStreamsCumulativeContent(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	sid := bootstrap(t, s).ActiveID
	if _, err := s.AddCharacter(sid, entity.CharacterProfile{Name: "Kara"}); err != nil {
		t.Fatal(err)
	}

	gen, err := s.SendMessage(context.Background(), sid, "Once upon a time", "fast")
	if err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	sess := mustSession(t, st, sid)
	if !st.IsGenerating(sid) || st.Generating[sid] != gen.MessageID {
		t.Fatal("placeholder must be marked as generating in the same commit")
	}
	last, _ := sess.LastMessage()
	if last.ID != gen.MessageID || last.Role != entity.RoleModel || last.Content != "" {
		t.Fatalf("last message = %+v, want empty model placeholder", last)
	}
	if sess.Messages[len(sess.Messages)-2].ID != gen.UserMessageID {
		t.Error("user message must precede the placeholder")
	}

	fc.push(step{text: "There"})
	waitState(t, s, func(st *State) bool { return placeholderContent(st, gen) == "There" })
	fc.push(step{text: "There was"}, step{text: "There was a king."}, step{done: true})

	if err := waitGeneration(t, gen); err != nil {
		t.Fatalf("generation error: %v", err)
	}
	st = s.Snapshot()
	if st.IsGenerating(sid) {
		t.Error("in-flight flag not cleared after success")
	}
	if got := placeholderContent(st, gen); got != "There was a king." {
		t.Errorf("final content = %q", got)
	}

	req := fc.lastRequest(t)
	if req.Text != "Once upon a time" || req.Model != "fast" {
		t.Errorf("request text/model = %q/%q", req.Text, req.Model)
	}
	if len(req.History) != 3 || req.History[0].Content != entity.WelcomeText {
		t.Fatalf("history = %+v, want welcome + character notice + user message", req.History)
	}
	if last := req.History[2]; last.Role != entity.RoleUser || last.Content != "Once upon a time" {
		t.Errorf("history must end with the new user message, got %+v", last)
	}
	for _, m := range req.History {
		if m.ID == gen.MessageID {
			t.Error("history must not contain the placeholder")
		}
	}
	if len(req.Characters) != 1 || req.Characters[0].Name != "Kara" {
		t.Errorf("characters = %+v", req.Characters)
	}
}

func TestStreamFailureWritesErrorText(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	sid := bootstrap(t, s).ActiveID

	gen, err := s.SendMessage(context.Background(), sid, "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	fc.push(step{text: "partial"}, step{err: errUpstream})

	if err := waitGeneration(t, gen); !errors.Is(err, errUpstream) {
		t.Fatalf("Wait = %v, want upstream error", err)
	}
	st := s.Snapshot()
	if got := placeholderContent(st, gen); got != entity.GenerationErrorText {
		t.Errorf("content = %q, want error text", got)
	}
	if st.IsGenerating(sid) {
		t.Error("in-flight flag not cleared after error")
	}

	// 失败后可以再次发送
	gen2, err := s.SendMessage(context.Background(), sid, "again", "")
	if err != nil {
		t.Fatalf("send after failure: %v", err)
	}
	fc.push(step{done: true})
	waitGeneration(t, gen2)
}

func TestSecondSendRejectedWhileStreaming(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	sid := bootstrap(t, s).ActiveID

	gen, err := s.SendMessage(context.Background(), sid, "first", "")
	if err != nil {
		t.Fatal(err)
	}
	before := len(mustSession(t, s.Snapshot(), sid).Messages)

	if _, err := s.SendMessage(context.Background(), sid, "second", ""); !errors.Is(err, apperrors.ErrGenerationInFlight) {
		t.Errorf("second send = %v, want ErrGenerationInFlight", err)
	}
	if _, err := s.Regenerate(context.Background(), sid, ""); !errors.Is(err, apperrors.ErrGenerationInFlight) {
		t.Errorf("regenerate = %v, want ErrGenerationInFlight", err)
	}
	if got := len(mustSession(t, s.Snapshot(), sid).Messages); got != before {
		t.Errorf("message count changed from %d to %d", before, got)
	}

	// 其他会话不受影响
	other := createSession(t, s)
	gen2, err := s.SendMessage(context.Background(), other.ID, "parallel", "")
	if err != nil {
		t.Fatalf("send on another session: %v", err)
	}
	if got := s.Snapshot().GeneratingIDs(); len(got) != 2 {
		t.Errorf("GeneratingIDs = %v, want two sessions", got)
	}

	fc.push(step{done: true}, step{done: true})
	waitGeneration(t, gen)
	waitGeneration(t, gen2)
}

func TestLateChunksDroppedAfterMessageDelete(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	sid := bootstrap(t, s).ActiveID

	gen, err := s.SendMessage(context.Background(), sid, "tell me", "")
	if err != nil {
		t.Fatal(err)
	}
	fc.push(step{text: "early"})
	waitState(t, s, func(st *State) bool { return placeholderContent(st, gen) == "early" })

	if err := s.DeleteMessage(sid, gen.MessageID); err != nil {
		t.Fatal(err)
	}
	waitGeneration(t, gen)

	before := s.Snapshot()
	s.patch(gen, "late chunk")
	s.finish(gen, "late final", "late chunk", nil)
	after := s.Snapshot()

	if after.Version != before.Version {
		t.Error("late chunk committed a new state")
	}
	sess := mustSession(t, after, sid)
	if sess.MessageIndex(gen.MessageID) >= 0 {
		t.Error("deleted placeholder was reinserted")
	}
	for _, m := range sess.Messages {
		if m.Content == "late chunk" || m.Content == "late final" {
			t.Errorf("late content leaked into message %s", m.ID)
		}
	}
	if after.IsGenerating(sid) {
		t.Error("session still marked as generating")
	}
}

func TestLateChunksDroppedAfterSessionDelete(t *testing.T) {
	fc := newFakeCompleter()
	s := newTestStore(t, fc, memory.NewRepository())
	keep := bootstrap(t, s).ActiveID
	doomed := createSession(t, s).ID

	gen, err := s.SendMessage(context.Background(), doomed, "tell me", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSession(doomed); err != nil {
		t.Fatal(err)
	}
	waitGeneration(t, gen)
	s.patch(gen, "late")

	st := s.Snapshot()
	if _, ok := st.Session(doomed); ok {
		t.Error("deleted session came back")
	}
	if len(st.Sessions) != 1 || st.ActiveID != keep {
		t.Errorf("sessions %v active %q, want only %q", ids(st), st.ActiveID, keep)
	}
}

func TestRegenerateScenario(t *testing.T) {
	fc := newFakeCompleter()
	repo := seedRepo(t, sessionWith("s1",
		msg("m1", entity.RoleUser, "Hi"),
		msg("m2", entity.RoleModel, "Hello"),
	))
	s := newTestStore(t, fc, repo)
	bootstrap(t, s)

	gen, err := s.Regenerate(context.Background(), "s1", "")
	if err != nil {
		t.Fatal(err)
	}
	if gen.UserMessageID != "m1" {
		t.Errorf("UserMessageID = %q, want m1", gen.UserMessageID)
	}
	fc.push(step{text: "Greetings"}, step{text: "Greetings, traveller."}, step{done: true})
	if err := waitGeneration(t, gen); err != nil {
		t.Fatal(err)
	}

	sess := mustSession(t, s.Snapshot(), "s1")
	if len(sess.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Content != "Hi" || sess.Messages[1].Content != "Greetings, traveller." {
		t.Errorf("messages = %+v", sess.Messages)
	}
	if sess.Messages[1].ID == "m2" {
		t.Error("regenerated answer should be a new message")
	}

	req := fc.lastRequest(t)
	if req.Text != "Hi" || len(req.History) != 1 || req.History[0].ID != "m1" {
		t.Errorf("request = %+v, want prompt Hi with history ending at the user message", req)
	}
	if fc.titleCalls.Load() != 0 {
		t.Error("regenerate must not request a title")
	}
}

func TestRegenerateRequiresTrailingModelAnswer(t *testing.T) {
	repo := seedRepo(t,
		sessionWith("user-last", msg("a", entity.RoleModel, "Welcome"), msg("b", entity.RoleUser, "Hi")),
		sessionWith("welcome-only", msg("c", entity.RoleModel, "Welcome")),
		sessionWith("model-model", msg("d", entity.RoleModel, "Welcome"), msg("e", entity.RoleModel, "notice")),
	)
	s := newTestStore(t, newFakeCompleter(), repo)
	st := bootstrap(t, s)

	for _, id := range []string{"user-last", "welcome-only", "model-model"} {
		if _, err := s.Regenerate(context.Background(), id, ""); !errors.Is(err, apperrors.ErrNothingToRegenerate) {
			t.Errorf("Regenerate(%s) = %v, want ErrNothingToRegenerate", id, err)
		}
	}
	if s.Snapshot().Version != st.Version {
		t.Error("rejected regenerate mutated state")
	}
}

func TestKnightTitleScenario(t *testing.T) {
	fc := newFakeCompleter()
	fc.title = "The Reluctant Knight"
	fc.titleGate = make(chan struct{})
	s := newTestStore(t, fc, memory.NewRepository())
	sid := bootstrap(t, s).ActiveID

	gen, err := s.SendMessage(context.Background(), sid, "Tell me about a knight", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := mustSession(t, s.Snapshot(), sid).Title; got != "Tell me about a knight" {
		t.Errorf("fallback title = %q", got)
	}

	// 标题在用户切走之后到达也要生效
	createSession(t, s)
	close(fc.titleGate)
	waitState(t, s, func(st *State) bool {
		sess, ok := st.Session(sid)
		return ok && sess.Title == "The Reluctant Knight"
	})

	fc.push(step{done: true})
	waitGeneration(t, gen)
	if fc.titleCalls.Load() != 1 {
		t.Errorf("title calls = %d, want 1", fc.titleCalls.Load())
	}

	// 已有标题的会话不再请求标题
	gen2, err := s.SendMessage(context.Background(), sid, "More please", "")
	if err != nil {
		t.Fatal(err)
	}
	fc.push(step{done: true})
	waitGeneration(t, gen2)
	if fc.titleCalls.Load() != 1 {
		t.Errorf("title calls = %d, want still 1", fc.titleCalls.Load())
	}
}

func TestTitleResultIgnored(t *testing.T) {
	t.Run("placeholder result", func(t *testing.T) {
		fc := newFakeCompleter()
		fc.title = entity.TitleFallback
		s := newTestStore(t, fc, memory.NewRepository())
		sid := bootstrap(t, s).ActiveID

		gen, err := s.SendMessage(context.Background(), sid, "A dark and stormy night over the moor", "")
		if err != nil {
			t.Fatal(err)
		}
		fc.push(step{done: true})
		waitGeneration(t, gen)
		waitFor(t, func() bool { return fc.titleCalls.Load() == 1 })

		if got := mustSession(t, s.Snapshot(), sid).Title; got != "A dark and stormy night" {
			t.Errorf("title = %q, want fallback kept", got)
		}
	})

	t.Run("session deleted", func(t *testing.T) {
		fc := newFakeCompleter()
		fc.title = "Too Late"
		fc.titleGate = make(chan struct{})
		s := newTestStore(t, fc, memory.NewRepository())
		sid := bootstrap(t, s).ActiveID

		if _, err := s.SendMessage(context.Background(), sid, "hello", ""); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteSession(sid); err != nil {
			t.Fatal(err)
		}
		before := s.Snapshot().Version
		close(fc.titleGate)
		s.wg.Wait()

		st := s.Snapshot()
		if _, ok := st.Session(sid); ok || st.Version != before {
			t.Error("title for a deleted session must be ignored")
		}
	})
}

func TestAddCharacterScenario(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	st := bootstrap(t, s)
	sid := st.ActiveID
	modified := st.Sessions[0].LastModified

	profile, err := s.AddCharacter(sid, entity.CharacterProfile{Name: "Kara", Role: "Rogue", Goals: "Steal the crown"})
	if err != nil {
		t.Fatal(err)
	}
	if profile.ID == "" {
		t.Error("character id not assigned")
	}

	sess := mustSession(t, s.Snapshot(), sid)
	if len(sess.Characters) != 1 || sess.Characters[0].Name != "Kara" {
		t.Fatalf("characters = %+v", sess.Characters)
	}
	last, _ := sess.LastMessage()
	want := `*System: Character "Kara" has been added to the story context.*`
	if last.Role != entity.RoleModel || last.Content != want {
		t.Errorf("notice = %+v, want %q", last, want)
	}
	if !sess.LastModified.After(modified) {
		t.Error("lastModified not updated")
	}

	if _, err := s.AddCharacter("missing", entity.CharacterProfile{Name: "x"}); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("AddCharacter(missing) = %v", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	repo := seedRepo(t, sessionWith("s1",
		msg("m1", entity.RoleModel, "Welcome"),
		msg("m2", entity.RoleUser, "Hi"),
	))
	s := newTestStore(t, newFakeCompleter(), repo)
	bootstrap(t, s)

	if err := s.DeleteMessage("s1", "nope"); !errors.Is(err, apperrors.ErrMessageNotFound) {
		t.Errorf("unknown message = %v", err)
	}
	if err := s.DeleteMessage("s1", "m2"); err != nil {
		t.Fatal(err)
	}
	sess := mustSession(t, s.Snapshot(), "s1")
	if len(sess.Messages) != 1 || sess.Messages[0].ID != "m1" {
		t.Errorf("messages = %+v", sess.Messages)
	}
	if !sess.LastModified.After(testEpoch) {
		t.Error("lastModified not updated")
	}
	if err := s.DeleteMessage("s1", "m1"); !errors.Is(err, apperrors.ErrLastMessage) {
		t.Errorf("deleting the only message = %v, want ErrLastMessage", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	fc := newFakeCompleter()
	repo := memory.NewRepository()
	s := newTestStore(t, fc, repo)
	sid := bootstrap(t, s).ActiveID

	if _, err := s.AddCharacter(sid, entity.CharacterProfile{Name: "Kara", Role: "Rogue"}); err != nil {
		t.Fatal(err)
	}
	gen, err := s.SendMessage(context.Background(), sid, "Begin the tale", "")
	if err != nil {
		t.Fatal(err)
	}
	fc.push(step{text: "It began at dawn."}, step{done: true})
	waitGeneration(t, gen)
	createSession(t, s)

	want := s.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	loaded, err := snapshot.Decode(repo.Raw())
	if err != nil {
		t.Fatalf("persisted record is not decodable: %v", err)
	}
	assertSameSessions(t, loaded, want.Sessions)

	s2 := newTestStore(t, newFakeCompleter(), repo)
	st2 := bootstrap(t, s2)
	assertSameSessions(t, st2.Sessions, want.Sessions)
}

func TestClearAll(t *testing.T) {
	fc := newFakeCompleter()
	repo := memory.NewRepository()
	s := newTestStore(t, fc, repo)
	sid := bootstrap(t, s).ActiveID
	createSession(t, s)
	createSession(t, s)

	gen, err := s.SendMessage(context.Background(), sid, "streaming", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitGeneration(t, gen)

	st := s.Snapshot()
	if len(st.Sessions) != 1 || len(st.Generating) != 0 {
		t.Fatalf("after ClearAll: %d sessions, generating %v", len(st.Sessions), st.Generating)
	}
	if st.Sessions[0].ID == sid {
		t.Error("ClearAll must synthesize a new session")
	}

	persisted, err := snapshot.Decode(repo.Raw())
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 || persisted[0].ID != st.Sessions[0].ID {
		t.Errorf("persisted = %d sessions, want the fresh one", len(persisted))
	}
}

func TestCloseKeepsPartialContent(t *testing.T) {
	fc := newFakeCompleter()
	repo := memory.NewRepository()
	s := newTestStore(t, fc, repo)
	sid := bootstrap(t, s).ActiveID

	gen, err := s.SendMessage(context.Background(), sid, "go on", "")
	if err != nil {
		t.Fatal(err)
	}
	fc.push(step{text: "half a sen"})
	waitState(t, s, func(st *State) bool { return placeholderContent(st, gen) == "half a sen" })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	st := s.Snapshot()
	if got := placeholderContent(st, gen); got != "half a sen" {
		t.Errorf("content after close = %q, want partial text", got)
	}
	if st.IsGenerating(sid) {
		t.Error("generation still marked after close")
	}

	persisted, err := snapshot.Decode(repo.Raw())
	if err != nil {
		t.Fatal(err)
	}
	assertSameSessions(t, persisted, st.Sessions)

	if _, err := s.SendMessage(context.Background(), sid, "after close", ""); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v, want ErrClosed", err)
	}
}

func TestCreateSessionAfterClose(t *testing.T) {
	s := newTestStore(t, newFakeCompleter(), memory.NewRepository())
	bootstrap(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	before := s.Snapshot()
	sess, err := s.CreateSession()
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("CreateSession after close = %v, want ErrClosed", err)
	}
	if sess != nil {
		t.Errorf("CreateSession after close returned session %q", sess.ID)
	}
	if after := s.Snapshot(); after != before {
		t.Error("state changed after close")
	}
}

func placeholderContent(st *State, g *Generation) string {
	sess, ok := st.Session(g.SessionID)
	if !ok {
		return ""
	}
	if i := sess.MessageIndex(g.MessageID); i >= 0 {
		return sess.Messages[i].Content
	}
	return ""
}

func ids(st *State) []string {
	out := make([]string, 0, len(st.Sessions))
	for _, s := range st.Sessions {
		out = append(out, s.ID)
	}
	return out
}

func assertSameSessions(t *testing.T, got, want []*entity.Session) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("sessions = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Title != w.Title {
			t.Errorf("session %d = %s/%q, want %s/%q", i, g.ID, g.Title, w.ID, w.Title)
		}
		if len(g.Messages) != len(w.Messages) {
			t.Errorf("session %s messages = %d, want %d", w.ID, len(g.Messages), len(w.Messages))
			continue
		}
		for j := range w.Messages {
			if g.Messages[j].ID != w.Messages[j].ID || g.Messages[j].Role != w.Messages[j].Role ||
				g.Messages[j].Content != w.Messages[j].Content {
				t.Errorf("session %s message %d = %+v, want %+v", w.ID, j, g.Messages[j], w.Messages[j])
			}
		}
		if len(g.Characters) != len(w.Characters) {
			t.Errorf("session %s characters = %d, want %d", w.ID, len(g.Characters), len(w.Characters))
		}
	}
}
