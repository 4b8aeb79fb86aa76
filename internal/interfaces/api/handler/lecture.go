package handler

import (
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/application/service"
	appErrors "lecturealarm/internal/pkg/errors"
	"lecturealarm/internal/pkg/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
)

const defaultAgendaDays = 7

// LectureHandler serves the timetable REST API.
type LectureHandler struct {
	userService    service.UserService
	lectureService service.LectureService
	alarmService   service.AlarmService
	clock          clock.Clock
	loc            *time.Location
	log            logger.Logger
}

// NewLectureHandler creates a new LectureHandler.
func NewLectureHandler(
	userService service.UserService,
	lectureService service.LectureService,
	alarmService service.AlarmService,
	clk clock.Clock,
	loc *time.Location,
	log logger.Logger,
) *LectureHandler {
	return &LectureHandler{
		userService:    userService,
		lectureService: lectureService,
		alarmService:   alarmService,
		clock:          clk,
		loc:            loc,
		log:            log,
	}
}

// ListLectures handles GET /users/:userID/lectures.
func (h *LectureHandler) ListLectures(c echo.Context) error {
	lectures, err := h.lectureService.List(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, lectures)
}

// GetLecture handles GET /users/:userID/lectures/:id.
func (h *LectureHandler) GetLecture(c echo.Context) error {
	lecture, err := h.lectureService.Get(c.Request().Context(), c.Param("userID"), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, lecture)
}

// CreateLecture handles POST /users/:userID/lectures[?replace=true].
func (h *LectureHandler) CreateLecture(c echo.Context) error {
	var req dto.LectureRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", appErrors.ErrInvalidRequest, err))
	}
	replace, err := queryBool(c, "replace")
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp, err := h.lectureService.Create(c.Request().Context(), c.Param("userID"), req, replace)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// UpdateLecture handles PUT /users/:userID/lectures/:id[?replace=true].
func (h *LectureHandler) UpdateLecture(c echo.Context) error {
	var req dto.LectureRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", appErrors.ErrInvalidRequest, err))
	}
	replace, err := queryBool(c, "replace")
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp, err := h.lectureService.Update(c.Request().Context(), c.Param("userID"), c.Param("id"), req, replace)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteLecture handles DELETE /users/:userID/lectures/:id.
func (h *LectureHandler) DeleteLecture(c echo.Context) error {
	if err := h.lectureService.Delete(c.Request().Context(), c.Param("userID"), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddBatch handles POST /users/:userID/lectures/batch.
func (h *LectureHandler) AddBatch(c echo.Context) error {
	var req dto.BatchRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", appErrors.ErrInvalidRequest, err))
	}
	resp, err := h.lectureService.AddBatch(c.Request().Context(), c.Param("userID"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

type checkConflictResponse struct {
	Conflict bool                 `json:"conflict"`
	With     *dto.LectureResponse `json:"with,omitempty"`
}

// CheckConflict handles POST /users/:userID/lectures/check[?exclude=id].
func (h *LectureHandler) CheckConflict(c echo.Context) error {
	var req dto.LectureRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", appErrors.ErrInvalidRequest, err))
	}
	with, err := h.lectureService.CheckConflict(c.Request().Context(), c.Param("userID"), c.QueryParam("exclude"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, checkConflictResponse{Conflict: with != nil, With: with})
}

// Agenda handles GET /users/:userID/agenda[?from=YYYY-MM-DD&days=N].
func (h *LectureHandler) Agenda(c echo.Context) error {
	from := h.clock.Now().In(h.loc)
	if s := c.QueryParam("from"); s != "" {
		t, err := time.ParseInLocation(time.DateOnly, s, h.loc)
		if err != nil {
			return respondError(c, h.log, fmt.Errorf("%w: from must be YYYY-MM-DD", appErrors.ErrInvalidRequest))
		}
		from = t
	}
	days := defaultAgendaDays
	if s := c.QueryParam("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return respondError(c, h.log, fmt.Errorf("%w: days must be a number", appErrors.ErrInvalidRequest))
		}
		days = n
	}

	occs, err := h.lectureService.Agenda(c.Request().Context(), c.Param("userID"), from, days)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, occs)
}

// ListAlarms handles GET /users/:userID/alarms.
func (h *LectureHandler) ListAlarms(c echo.Context) error {
	return c.JSON(http.StatusOK, h.alarmService.PendingAlarms(c.Param("userID")))
}

// Reschedule handles POST /users/:userID/alarms/reschedule.
func (h *LectureHandler) Reschedule(c echo.Context) error {
	result, err := h.alarmService.RescheduleAll(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ScheduleResponse{Permitted: result.Permitted, Alarms: result.Alarms})
}

// TestAlarm handles POST /users/:userID/alarms/test.
func (h *LectureHandler) TestAlarm(c echo.Context) error {
	if err := h.alarmService.SendTestNotification(c.Request().Context(), c.Param("userID")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// GetSettings handles GET /users/:userID/settings.
func (h *LectureHandler) GetSettings(c echo.Context) error {
	settings, err := h.userService.GetSettings(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /users/:userID/settings.
func (h *LectureHandler) UpdateSettings(c echo.Context) error {
	var req dto.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", appErrors.ErrInvalidRequest, err))
	}
	settings, err := h.userService.UpdateSettings(c.Request().Context(), c.Param("userID"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// DeleteUser handles DELETE /users/:userID.
func (h *LectureHandler) DeleteUser(c echo.Context) error {
	if err := h.userService.DeleteUser(c.Request().Context(), c.Param("userID")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func queryBool(c echo.Context, name string) (bool, error) {
	s := c.QueryParam(name)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", appErrors.ErrInvalidRequest, name)
	}
	return v, nil
}
