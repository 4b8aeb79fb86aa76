package handler

import (
	"context"
	"errors"
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/application/service"
	appErrors "lecturealarm/internal/pkg/errors"
	"lecturealarm/internal/pkg/logger"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Messenger is the part of the LINE client the webhook needs.
// It is satisfied by *line.Client.
type Messenger interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
	SendMessages(replyToken string, messages ...linebot.SendingMessage) error
	PushMessages(to string, messages ...linebot.SendingMessage) error
	DisplayName(userID string) (string, error)
}

// Chat commands.
const (
	cmdHelp   = "help"
	cmdList   = "list"
	cmdToday  = "today"
	cmdNext   = "next"
	cmdAlarms = "alarms"
	cmdTest   = "test"
	cmdOn     = "on"
	cmdOff    = "off"
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// LineHandler handles incoming LINE webhook events.
type LineHandler struct {
	messenger      Messenger
	userService    service.UserService
	lectureService service.LectureService
	alarmService   service.AlarmService
	clock          clock.Clock
	loc            *time.Location
	adminUserID    string
	log            logger.Logger
}

// NewLineHandler creates a new LineHandler.
// adminUserID, when set, is told about every new follower.
func NewLineHandler(
	messenger Messenger,
	userService service.UserService,
	lectureService service.LectureService,
	alarmService service.AlarmService,
	clk clock.Clock,
	loc *time.Location,
	adminUserID string,
	log logger.Logger,
) *LineHandler {
	return &LineHandler{
		messenger:      messenger,
		userService:    userService,
		lectureService: lectureService,
		alarmService:   alarmService,
		clock:          clk,
		loc:            loc,
		adminUserID:    adminUserID,
		log:            log,
	}
}

// HandleWebhook is the main entry point for webhook requests.
func (h *LineHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.messenger.ParseRequest(c.Request())
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.log.Warn("Invalid LINE signature received")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		h.log.Error("Failed to parse LINE webhook request", err)
		return c.String(http.StatusInternalServerError, "Error parsing request")
	}

	for _, event := range events {
		h.log.Info(fmt.Sprintf("Processing event type: %s", event.Type))
		switch event.Type {
		case linebot.EventTypeMessage:
			h.handleMessageEvent(ctx, event)
		case linebot.EventTypeFollow:
			h.handleFollowEvent(ctx, event)
		case linebot.EventTypeUnfollow:
			h.handleUnfollowEvent(ctx, event)
		default:
			h.log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		}
	}

	return c.String(http.StatusOK, "OK")
}

// handleFollowEvent grants delivery permission and arms the user's alarms.
func (h *LineHandler) handleFollowEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID
	replyToken := event.ReplyToken
	h.log.Info(fmt.Sprintf("User %s followed the bot.", userID))

	result, err := h.userService.SetFollowing(ctx, userID, true)
	if err != nil && !errors.Is(err, appErrors.ErrScheduling) {
		// Error already logged by service
		h.replyWithError(replyToken, "Failed to set up your account. Please try again later.")
		return
	}

	messages := []linebot.SendingMessage{
		linebot.NewTextMessage("Welcome! I will remind you before each of your lectures and sections."),
	}
	if n := len(result.Alarms); n > 0 {
		messages = append(messages, linebot.NewTextMessage(fmt.Sprintf("Your %d alarm(s) are active again.", n)))
	}
	messages = append(messages, h.helpMessage())
	if err := h.messenger.SendMessages(replyToken, messages...); err != nil {
		h.log.Error(fmt.Sprintf("Failed to send follow reply to user %s", userID), err)
		// Don't return here, try to send admin notification anyway
	}

	h.notifyAdmin(userID)
}

// notifyAdmin tells the admin user about a new follower.
func (h *LineHandler) notifyAdmin(userID string) {
	if h.adminUserID == "" {
		h.log.Debug("ADMIN_USER_ID not set. Skipping admin notification for follow event.")
		return
	}

	var notificationMessage string
	name, err := h.messenger.DisplayName(userID)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Failed to get profile for follower %s: %v", userID, err))
		notificationMessage = fmt.Sprintf("User (ID: %s) followed the bot.", userID)
	} else {
		notificationMessage = fmt.Sprintf("User %q (ID: %s) followed the bot.", name, userID)
	}

	if pushErr := h.messenger.PushMessages(h.adminUserID, linebot.NewTextMessage(notificationMessage)); pushErr != nil {
		h.log.Error(fmt.Sprintf("Failed to send follow notification to admin %s for follower %s", h.adminUserID, userID), pushErr)
	} else {
		h.log.Info(fmt.Sprintf("Sent follow notification to admin %s for follower %s", h.adminUserID, userID))
	}
}

// handleUnfollowEvent revokes delivery permission. The timetable is kept.
func (h *LineHandler) handleUnfollowEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID
	h.log.Info(fmt.Sprintf("User %s unfollowed or blocked the bot.", userID))

	if _, err := h.userService.SetFollowing(ctx, userID, false); err != nil {
		// Error already logged by service; no reply possible for unfollow events
		return
	}
}

// handleMessageEvent dispatches text commands.
func (h *LineHandler) handleMessageEvent(ctx context.Context, event *linebot.Event) {
	userID := event.Source.UserID
	replyToken := event.ReplyToken

	message, ok := event.Message.(*linebot.TextMessage)
	if !ok {
		h.log.Info(fmt.Sprintf("Unhandled message type from user %s", userID))
		return
	}

	text := strings.ToLower(strings.TrimSpace(message.Text))
	h.log.Debug(fmt.Sprintf("Received command %q from user %s", text, userID))

	switch text {
	case cmdHelp:
		h.reply(replyToken, h.helpMessage())
	case cmdList:
		h.sendLectureList(ctx, replyToken, userID)
	case cmdToday:
		h.sendToday(ctx, replyToken, userID)
	case cmdNext:
		h.sendNext(ctx, replyToken, userID)
	case cmdAlarms:
		h.sendAlarms(replyToken, userID)
	case cmdTest:
		h.sendTest(ctx, replyToken, userID)
	case cmdOn, cmdOff:
		h.setNotifications(ctx, replyToken, userID, text == cmdOn)
	default:
		h.reply(replyToken, linebot.NewTextMessage("Sorry, I didn't understand that. Send \"help\" to see what I can do."))
	}
}

func (h *LineHandler) helpMessage() linebot.SendingMessage {
	howToUse := "Commands:\n" +
		"list - your weekly timetable\n" +
		"today - today's lectures\n" +
		"next - your next lecture\n" +
		"alarms - pending alarms\n" +
		"test - send a test alarm\n" +
		"on / off - switch all alarms"
	quickReply := linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(cmdToday, cmdToday)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(cmdNext, cmdNext)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(cmdList, cmdList)),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction(cmdTest, cmdTest)),
	)
	return linebot.NewTextMessage(howToUse).WithQuickReplies(quickReply)
}

func (h *LineHandler) sendLectureList(ctx context.Context, replyToken, userID string) {
	lectures, err := h.lectureService.List(ctx, userID)
	if err != nil {
		h.replyWithError(replyToken, "Failed to load your timetable.")
		return
	}
	if len(lectures) == 0 {
		h.reply(replyToken, linebot.NewTextMessage("Your timetable is empty."))
		return
	}

	var sb strings.Builder
	sb.WriteString("Your timetable:")
	for _, l := range lectures {
		sb.WriteString("\n")
		sb.WriteString(formatLecture(l))
	}
	h.reply(replyToken, linebot.NewTextMessage(sb.String()))
}

func (h *LineHandler) sendToday(ctx context.Context, replyToken, userID string) {
	occs, err := h.lectureService.Agenda(ctx, userID, h.clock.Now(), 1)
	if err != nil {
		h.replyWithError(replyToken, "Failed to load today's lectures.")
		return
	}
	if len(occs) == 0 {
		h.reply(replyToken, linebot.NewTextMessage("No lectures today."))
		return
	}

	var sb strings.Builder
	sb.WriteString("Today:")
	for _, o := range occs {
		sb.WriteString("\n")
		sb.WriteString(formatOccurrence(o, h.loc))
	}
	h.reply(replyToken, linebot.NewTextMessage(sb.String()))
}

func (h *LineHandler) sendNext(ctx context.Context, replyToken, userID string) {
	next, err := h.lectureService.Next(ctx, userID)
	if err != nil {
		h.replyWithError(replyToken, "Failed to load your next lecture.")
		return
	}
	if next == nil {
		h.reply(replyToken, linebot.NewTextMessage("You have no upcoming lectures."))
		return
	}
	h.reply(replyToken, linebot.NewTextMessage("Next: "+formatOccurrence(*next, h.loc)))
}

func (h *LineHandler) sendAlarms(replyToken, userID string) {
	alarms := h.alarmService.PendingAlarms(userID)
	if len(alarms) == 0 {
		h.reply(replyToken, linebot.NewTextMessage("No alarms are scheduled."))
		return
	}

	var sb strings.Builder
	sb.WriteString("Scheduled alarms:")
	for _, a := range alarms {
		at := a.FiresAt.In(h.loc)
		sb.WriteString(fmt.Sprintf("\n%s %s (%s", weekdayNames[at.Weekday()], at.Format("15:04"), a.Kind))
		if a.LeadMinutes > 0 {
			sb.WriteString(fmt.Sprintf(", %d min before", a.LeadMinutes))
		}
		sb.WriteString(")")
	}
	h.reply(replyToken, linebot.NewTextMessage(sb.String()))
}

func (h *LineHandler) sendTest(ctx context.Context, replyToken, userID string) {
	err := h.alarmService.SendTestNotification(ctx, userID)
	switch {
	case err == nil:
		h.reply(replyToken, linebot.NewTextMessage("Test alarm sent."))
	case errors.Is(err, appErrors.ErrPermissionDenied):
		h.reply(replyToken, linebot.NewTextMessage("Alarms are off. Send \"on\" to switch them on."))
	case errors.Is(err, appErrors.ErrUserNotFound):
		h.reply(replyToken, linebot.NewTextMessage("Please add some lectures first."))
	default:
		h.replyWithError(replyToken, "Failed to send the test alarm.")
	}
}

func (h *LineHandler) setNotifications(ctx context.Context, replyToken, userID string, enabled bool) {
	result, err := h.userService.SetNotificationsEnabled(ctx, userID, enabled)
	if err != nil && !errors.Is(err, appErrors.ErrScheduling) {
		h.replyWithError(replyToken, "Failed to update your alarms.")
		return
	}
	if !enabled {
		h.reply(replyToken, linebot.NewTextMessage("Alarms switched off."))
		return
	}
	h.reply(replyToken, linebot.NewTextMessage(fmt.Sprintf("Alarms switched on. %d alarm(s) scheduled.", len(result.Alarms))))
}

func (h *LineHandler) reply(replyToken string, messages ...linebot.SendingMessage) {
	if err := h.messenger.SendMessages(replyToken, messages...); err != nil {
		h.log.Error("Failed to send reply message", err)
	}
}

// replyWithError sends a generic error message to the user.
func (h *LineHandler) replyWithError(replyToken, userMessage string) {
	if err := h.messenger.SendMessages(replyToken, linebot.NewTextMessage(userMessage)); err != nil {
		h.log.Error("Failed to send error reply message", err)
	}
}

func formatLecture(l dto.LectureResponse) string {
	day := "?"
	if l.Day >= 0 && l.Day < len(weekdayNames) {
		day = weekdayNames[l.Day]
	}
	return fmt.Sprintf("%s %s-%s %s (%s)", day, l.StartTime, l.EndTime, l.Name, l.Type)
}

func formatOccurrence(o dto.Occurrence, loc *time.Location) string {
	start := o.Start.In(loc)
	return fmt.Sprintf("%s %s-%s %s (%s)", weekdayNames[start.Weekday()], start.Format("15:04"), o.End.In(loc).Format("15:04"), o.Name, o.Type)
}
