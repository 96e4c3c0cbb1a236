package notify

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/internal/store"
	"github.com/daylist-io/daylist/tests/testutil"
)

func newPoller(t *testing.T, day time.Time) (*Poller, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := New(s, log, time.Minute)
	p.now = func() time.Time { return day }
	return p, s
}

func TestCheckOnceWritesOneReminderPerOwnerPerDay(t *testing.T) {
	day := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	p, s := newPoller(t, day)
	ctx := context.Background()
	today := model.DateOf(day)

	_, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "a", ScheduledDate: today})
	require.NoError(t, err)
	_, err = s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "b", ScheduledDate: today})
	require.NoError(t, err)
	done, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "idle", Text: "c", ScheduledDate: today})
	require.NoError(t, err)
	require.NoError(t, s.SetTodoCompleted(ctx, done.ID, true))

	p.RegisterOwner("busy")
	p.RegisterOwner("busy") // duplicate registration collapses
	p.RegisterOwner("idle")

	require.NoError(t, p.CheckOnce(ctx))
	require.NoError(t, p.CheckOnce(ctx))

	busy, err := s.GetUnreadNotifications(ctx, "busy")
	require.NoError(t, err)
	require.Len(t, busy, 1)
	require.Equal(t, "You have 2 unfinished todos for today", busy[0].Message)
	require.Equal(t, today, busy[0].Date)

	// Nothing outstanding, nothing recorded.
	idle, err := s.GetUnreadNotifications(ctx, "idle")
	require.NoError(t, err)
	require.Empty(t, idle)
}

func TestCheckOnceIgnoresOtherDays(t *testing.T) {
	day := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	p, s := newPoller(t, day)
	ctx := context.Background()

	_, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "later", ScheduledDate: "2024-06-11"})
	require.NoError(t, err)
	p.RegisterOwner("busy")

	require.NoError(t, p.CheckOnce(ctx))
	got, err := s.GetUnreadNotifications(ctx, "busy")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMarkReadClearsUnread(t *testing.T) {
	day := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)
	p, s := newPoller(t, day)
	ctx := context.Background()
	today := model.DateOf(day)

	_, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "x", ScheduledDate: today})
	require.NoError(t, err)
	p.RegisterOwner("busy")
	require.NoError(t, p.CheckOnce(ctx))

	got, err := s.GetUnreadNotifications(ctx, "busy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, s.MarkNotificationRead(ctx, got[0].ID))

	got, err = s.GetUnreadNotifications(ctx, "busy")
	require.NoError(t, err)
	require.Empty(t, got)

	// The day is still marked notified, so no second reminder appears.
	require.NoError(t, p.CheckOnce(ctx))
	got, err = s.GetUnreadNotifications(ctx, "busy")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStopThenStartRunsAgain(t *testing.T) {
	day := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	p, s := newPoller(t, day)
	ctx := context.Background()

	p.Start()
	p.Stop()

	// Work registered after the restart must still be picked up.
	_, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "x", ScheduledDate: model.DateOf(day)})
	require.NoError(t, err)
	p.RegisterOwner("busy")

	p.Start()
	defer p.Stop()
	p.TriggerNow()

	deadline := time.After(2 * time.Second)
	for {
		got, err := s.GetUnreadNotifications(ctx, "busy")
		require.NoError(t, err)
		if len(got) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("restarted poller recorded no reminder before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartStopAndTrigger(t *testing.T) {
	day := time.Date(2024, 6, 13, 9, 0, 0, 0, time.UTC)
	p, s := newPoller(t, day)
	ctx := context.Background()
	today := model.DateOf(day)

	_, err := s.CreateTodo(ctx, model.TodoRecord{OwnerID: "busy", Text: "x", ScheduledDate: today})
	require.NoError(t, err)
	p.RegisterOwner("busy")

	p.Start()
	defer p.Stop()
	p.TriggerNow()

	deadline := time.After(2 * time.Second)
	for {
		got, err := s.GetUnreadNotifications(ctx, "busy")
		require.NoError(t, err)
		if len(got) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("no reminder recorded before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
