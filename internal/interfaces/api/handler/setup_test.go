package handler

import (
	"fmt"
	"io"
	"lecturealarm/internal/application/service"
	"lecturealarm/internal/infrastructure/database/sqlite"
	"lecturealarm/internal/infrastructure/line"
	"lecturealarm/internal/infrastructure/metrics"
	"lecturealarm/internal/infrastructure/scheduler"
	"lecturealarm/internal/pkg/logger"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/require"
)

// Monday 2026-10-12 08:00 UTC.
var testNow = time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

type testStack struct {
	userSvc    service.UserService
	lectureSvc service.LectureService
	alarmSvc   service.AlarmService
	notifier   *recordingNotifier
	clock      *clock.Mock
	log        logger.Logger
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	log := logger.NewWithLevel(io.Discard, logger.LevelError)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.NewDB(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.CloseDB(db) })

	jobs := scheduler.NewScheduler(time.UTC, log)
	t.Cleanup(jobs.Stop)

	clk := clock.NewMock()
	clk.Set(testNow)

	userRepo := sqlite.NewUserRepository(db)
	lectureRepo := sqlite.NewLectureRepository(db)
	notifier := &recordingNotifier{}

	alarmSvc := service.NewAlarmService(jobs, userRepo, lectureRepo, notifier, clk, metrics.NoopSink{}, log)
	userSvc := service.NewUserService(userRepo, lectureRepo, alarmSvc, []int{10}, log)
	window := service.Window{Enabled: false}
	lectureSvc := service.NewLectureService(lectureRepo, userSvc, alarmSvc, window, time.UTC, clk, metrics.NoopSink{}, log)

	return &testStack{
		userSvc:    userSvc,
		lectureSvc: lectureSvc,
		alarmSvc:   alarmSvc,
		notifier:   notifier,
		clock:      clk,
		log:        log,
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []line.Notification
}

func (n *recordingNotifier) Notify(userID string, msg line.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakeMessenger feeds canned events to the webhook and records replies.
type fakeMessenger struct {
	mu       sync.Mutex
	events   []*linebot.Event
	parseErr error
	replies  map[string][]string
	pushes   map[string][]string
}

func newFakeMessenger(events ...*linebot.Event) *fakeMessenger {
	return &fakeMessenger{
		events:  events,
		replies: make(map[string][]string),
		pushes:  make(map[string][]string),
	}
}

func (m *fakeMessenger) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return m.events, m.parseErr
}

func (m *fakeMessenger) SendMessages(replyToken string, messages ...linebot.SendingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[replyToken] = append(m.replies[replyToken], texts(messages)...)
	return nil
}

func (m *fakeMessenger) PushMessages(to string, messages ...linebot.SendingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes[to] = append(m.pushes[to], texts(messages)...)
	return nil
}

func (m *fakeMessenger) DisplayName(userID string) (string, error) {
	return "Student " + userID, nil
}

func (m *fakeMessenger) reply(token string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.replies[token], "\n")
}

func texts(messages []linebot.SendingMessage) []string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		if tm, ok := msg.(*linebot.TextMessage); ok {
			out = append(out, tm.Text)
		}
	}
	return out
}

func followEvent(userID string) *linebot.Event {
	return &linebot.Event{
		Type:       linebot.EventTypeFollow,
		ReplyToken: "follow-" + userID,
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: userID},
	}
}

func unfollowEvent(userID string) *linebot.Event {
	return &linebot.Event{
		Type:   linebot.EventTypeUnfollow,
		Source: &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: userID},
	}
}

func textEvent(userID, token, text string) *linebot.Event {
	return &linebot.Event{
		Type:       linebot.EventTypeMessage,
		ReplyToken: token,
		Source:     &linebot.EventSource{Type: linebot.EventSourceTypeUser, UserID: userID},
		Message:    linebot.NewTextMessage(text),
	}
}
