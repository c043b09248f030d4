package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/apperrors"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/schedule"
	"psy-booking-bot/internal/storage"
)

func respondError(c *gin.Context, err error) {
	ae := apperrors.As(err)
	ev := log.Warn()
	if ae.Code == apperrors.CodeInternal {
		ev = log.Error()
	}
	ev.Err(ae.Cause).
		Str("request_id", c.GetString(requestIDKey)).
		Str("code", string(ae.Code)).
		Str("path", c.Request.URL.Path).
		Msg(ae.Message)
	c.JSON(ae.Status(), gin.H{"error": ae.Message, "code": ae.Code})
}

func abortError(c *gin.Context, err error) {
	respondError(c, err)
	c.Abort()
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func paramID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid id")
	}
	return id, nil
}

func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// domainErr translates service and storage errors into API errors.
func domainErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, booking.ErrSlotInPast):
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "Нельзя записать на прошедшее время")
	case errors.Is(err, booking.ErrFormatNotAllowed):
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "Формат недоступен для этого слота")
	case errors.Is(err, booking.ErrSlotUnavailable):
		return apperrors.Wrap(err, apperrors.CodeConflict, "Слот уже занят")
	case errors.Is(err, booking.ErrBookingNotActive):
		return apperrors.Wrap(err, apperrors.CodeNotFound, "Активная запись не найдена")
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(err, apperrors.CodeNotFound, "Не найдено")
	case errors.Is(err, booking.ErrInvalidInput), errors.Is(err, schedule.ErrInvalidWeeks):
		return apperrors.Wrap(err, apperrors.CodeBadRequest, err.Error())
	case errors.Is(err, schedule.ErrNoTemplate):
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "Шаблон расписания не сохранён")
	}
	return apperrors.Internal(err)
}
