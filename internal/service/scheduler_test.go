package service

import (
	"context"
	"testing"
	"time"

	"kanji-quiz-bot/internal/domain/entities"
)

type schedulerFixture struct {
	scheduler *Scheduler
	settings  *SettingsService
	sessions  *SessionManager
	source    *fakeSource
	notifier  *fakeNotifier
	repo      *fakeConfigRepo
}

func newSchedulerFixture() *schedulerFixture {
	repo := newFakeConfigRepo()
	settings := NewSettingsService(repo, testLogger())
	sessions := NewSessionManager(newFakeSessionRepo(), NewAnswerEvaluator(), testLogger())
	source := newFakeSource()
	notifier := &fakeNotifier{}

	scheduler := NewScheduler(settings, sessions, source, testLogger(), 30*time.Second, 4)
	scheduler.SetNotifier(notifier)

	return &schedulerFixture{
		scheduler: scheduler,
		settings:  settings,
		sessions:  sessions,
		source:    source,
		notifier:  notifier,
		repo:      repo,
	}
}

func (f *schedulerFixture) addUser(ctx context.Context, t *testing.T, userID int64, mutate func(*entities.UserConfig)) {
	t.Helper()
	_, err := f.settings.Update(ctx, userID, userID, func(cfg *entities.UserConfig) error {
		cfg.SheetURL = "https://docs.google.com/spreadsheets/d/sheet1/edit"
		if mutate != nil {
			mutate(cfg)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("add user %d: %v", userID, err)
	}
	f.source.items[userID] = testItem()
}

func TestRunTickDispatchesDueUser(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	f.addUser(ctx, t, 1, nil)
	f.scheduler.RunTick(ctx, now)

	questions, _, _ := f.notifier.counts()
	if questions != 1 {
		t.Fatalf("questions sent = %d, want 1", questions)
	}
	if f.sessions.Get(1) == nil {
		t.Fatal("no session opened for due user")
	}

	cfg, err := f.repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.LastQuizAt == nil || !cfg.LastQuizAt.Equal(now) {
		t.Fatalf("lastQuizAt = %v, want dispatch time %v", cfg.LastQuizAt, now)
	}
}

func TestRunTickHonorsQuietHoursAndInterval(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()

	f.addUser(ctx, t, 1, func(cfg *entities.UserConfig) {
		cfg.Quiet = entities.QuietWindow{Start: 22 * 60, End: 7 * 60}
	})

	night := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	f.scheduler.RunTick(ctx, night)
	if questions, _, _ := f.notifier.counts(); questions != 0 {
		t.Fatalf("dispatched during quiet hours: %d questions", questions)
	}

	morning := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	f.scheduler.RunTick(ctx, morning)
	if questions, _, _ := f.notifier.counts(); questions != 1 {
		t.Fatalf("questions after quiet hours = %d, want 1", questions)
	}

	// Immediately afterwards the interval has not elapsed.
	f.scheduler.RunTick(ctx, morning.Add(time.Minute))
	if questions, _, _ := f.notifier.counts(); questions != 1 {
		t.Fatalf("dispatched before interval elapsed: %d questions", questions)
	}
}

func TestRunTickSkipsUsersWithLiveSession(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	f.addUser(ctx, t, 1, nil)
	f.scheduler.RunTick(ctx, now)
	f.scheduler.RunTick(ctx, now.Add(2*time.Hour))

	if questions, _, _ := f.notifier.counts(); questions != 1 {
		t.Fatalf("questions = %d, want 1 (pending session must block redispatch)", questions)
	}
}

func TestRunTickSkipsAutoDisabledUsers(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()

	f.addUser(ctx, t, 1, func(cfg *entities.UserConfig) { cfg.AutoEnabled = false })
	f.scheduler.RunTick(ctx, time.Now().UTC())

	if questions, _, _ := f.notifier.counts(); questions != 0 {
		t.Fatalf("dispatched to auto-disabled user: %d questions", questions)
	}
}

func TestContentUnavailableSkipsCycle(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	f.addUser(ctx, t, 1, nil)
	delete(f.source.items, 1) // sheet linked but empty

	f.scheduler.RunTick(ctx, now)
	f.scheduler.RunTick(ctx, now.Add(time.Hour))

	questions, _, issues := f.notifier.counts()
	if questions != 0 {
		t.Fatalf("dispatched with no content: %d questions", questions)
	}
	if issues != 1 {
		t.Fatalf("content notices = %d, want 1 per failure streak", issues)
	}

	cfg, err := f.repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.LastQuizAt != nil {
		t.Fatal("lastQuizAt stamped on a skipped cycle")
	}

	// Content recovers, streak resets, a later failure notifies again.
	f.source.items[1] = testItem()
	f.scheduler.RunTick(ctx, now.Add(2*time.Hour))
	if questions, _, _ := f.notifier.counts(); questions != 1 {
		t.Fatalf("questions after recovery = %d, want 1", questions)
	}

	if err := f.sessions.ForceStop(ctx, 1); err != nil {
		t.Fatalf("ForceStop: %v", err)
	}
	delete(f.source.items, 1)
	f.scheduler.RunTick(ctx, now.Add(4*time.Hour))
	if _, _, issues := f.notifier.counts(); issues != 2 {
		t.Fatalf("content notices = %d, want 2 after a new streak", issues)
	}
}

func TestRunTickExpiresOverdueSessions(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	f.addUser(ctx, t, 1, func(cfg *entities.UserConfig) { cfg.TimeoutMinutes = 5 })
	f.scheduler.RunTick(ctx, now)
	if f.sessions.Get(1) == nil {
		t.Fatal("no session opened")
	}

	f.scheduler.RunTick(ctx, now.Add(5*time.Minute))

	_, timeouts, _ := f.notifier.counts()
	if timeouts != 1 {
		t.Fatalf("timeout notices = %d, want 1", timeouts)
	}
	if f.sessions.Get(1) != nil {
		t.Fatal("expired session still live")
	}

	// The slot is free: the same tick family can dispatch again once due.
	f.scheduler.RunTick(ctx, now.Add(40*time.Minute))
	if questions, _, _ := f.notifier.counts(); questions != 2 {
		t.Fatalf("questions = %d, want redispatch after expiry", questions)
	}
}

func TestForgetUserResetsFailureStreak(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	f.addUser(ctx, t, 1, nil)
	delete(f.source.items, 1)

	f.scheduler.RunTick(ctx, now)
	f.scheduler.RunTick(ctx, now.Add(time.Hour))
	if _, _, issues := f.notifier.counts(); issues != 1 {
		t.Fatalf("content notices = %d, want 1 for the ongoing streak", issues)
	}

	// Deleting the user's data clears the streak, so a re-registered user
	// with a broken sheet is notified afresh.
	f.scheduler.ForgetUser(1)
	f.scheduler.RunTick(ctx, now.Add(2*time.Hour))
	if _, _, issues := f.notifier.counts(); issues != 2 {
		t.Fatalf("content notices = %d, want 2 after the streak was forgotten", issues)
	}
}

type blockingNotifier struct {
	fakeNotifier
	started chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) SendQuestion(chatID int64, s *entities.Session) error {
	n.started <- struct{}{}
	<-n.release
	return n.fakeNotifier.SendQuestion(chatID, s)
}

func TestStartDrainsInFlightDispatch(t *testing.T) {
	repo := newFakeConfigRepo()
	settings := NewSettingsService(repo, testLogger())
	sessions := NewSessionManager(newFakeSessionRepo(), NewAnswerEvaluator(), testLogger())
	source := newFakeSource()
	notifier := &blockingNotifier{started: make(chan struct{}), release: make(chan struct{})}

	scheduler := NewScheduler(settings, sessions, source, testLogger(), 10*time.Millisecond, 4)
	scheduler.SetNotifier(notifier)

	_, err := settings.Update(context.Background(), 1, 1, func(cfg *entities.UserConfig) error {
		cfg.SheetURL = "https://docs.google.com/spreadsheets/d/sheet1/edit"
		return nil
	})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	source.items[1] = testItem()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		scheduler.Start(ctx)
		close(done)
	}()

	select {
	case <-notifier.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no dispatch started")
	}
	cancel()

	// Shutdown must wait for the dispatch still inside SendQuestion.
	select {
	case <-done:
		t.Fatal("Start returned with a dispatch still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(notifier.release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after the dispatch finished")
	}
}

func TestManualDispatchBypassesDueness(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	// Auto disabled and inside quiet hours; manual dispatch still works.
	f.addUser(ctx, t, 1, func(cfg *entities.UserConfig) {
		cfg.AutoEnabled = false
		cfg.Quiet = entities.QuietWindow{Start: 9 * 60, End: 11 * 60}
	})

	cfg, err := f.settings.GetOrCreate(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	session, err := f.scheduler.Dispatch(ctx, cfg, now)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if session == nil {
		t.Fatal("manual dispatch returned no session")
	}

	// A second manual quiz while one is open fails gracefully.
	if _, err := f.scheduler.Dispatch(ctx, cfg, now); err == nil {
		t.Fatal("expected ErrSessionAlreadyOpen on second manual dispatch")
	}
}
