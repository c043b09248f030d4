package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/apperrors"
	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/models"
)

const (
	defaultCardNumber = "5208130004581850"
	diaryFeedLimit    = 50
)

func (s *Server) listSos(c *gin.Context) {
	status := models.SosStatus(c.Query("status"))
	switch status {
	case "", models.SosNew, models.SosViewed:
	default:
		respondError(c, apperrors.BadRequest("status must be new or viewed"))
		return
	}
	list, err := s.Repo.ListSosRequests(c.Request.Context(), status)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

type sosStatusRequest struct {
	Status models.SosStatus `json:"status"`
}

// updateSos marks a request as viewed unless the body asks for another status.
func (s *Server) updateSos(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req sosStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Status == "" {
		req.Status = models.SosViewed
	}
	if req.Status != models.SosNew && req.Status != models.SosViewed {
		respondError(c, apperrors.BadRequest("status must be new or viewed"))
		return
	}
	if err := s.Repo.SetSosStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

func (s *Server) listPayments(c *gin.Context) {
	list, err := s.Repo.ListPayments(c.Request.Context())
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

// deletePayment drops the screenshot and then the row. A screenshot that
// cannot be removed from the blob store does not keep the row.
func (s *Server) deletePayment(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	p, err := s.Repo.GetPayment(ctx, id)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	if p.StorageKey != "" {
		if err := s.Blobs.Delete(ctx, p.StorageKey); err != nil {
			log.Warn().Err(err).Int64("payment_id", id).Str("key", p.StorageKey).Msg("delete screenshot")
		}
	}
	if err := s.Repo.DeletePayment(ctx, id); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

func (s *Server) getPaymentCard(c *gin.Context) {
	var card models.CardSetting
	found, err := s.Repo.GetSetting(c.Request.Context(), models.SettingPaymentCard, &card)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	if !found {
		card.CardNumber = defaultCardNumber
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) putPaymentCard(c *gin.Context) {
	var card models.CardSetting
	if err := bind(c, &card); err != nil {
		respondError(c, err)
		return
	}
	card.CardNumber = strings.TrimSpace(card.CardNumber)
	if err := s.Repo.SetSetting(c.Request.Context(), models.SettingPaymentCard, card); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

type paymentSettings struct {
	PaymentLink   *string `json:"payment_link"`
	EripPath      *string `json:"erip_path"`
	AccountNumber *string `json:"account_number"`
	CardNumber    *string `json:"card_number"`
}

func (s *Server) getPaymentSettings(c *gin.Context) {
	ctx := c.Request.Context()
	res := gin.H{}
	for field, key := range map[string]string{
		"payment_link":   models.SettingPaymentLink,
		"erip_path":      models.SettingEripPath,
		"account_number": models.SettingAccountNumber,
	} {
		var v models.TextSetting
		if _, err := s.Repo.GetSetting(ctx, key, &v); err != nil {
			respondError(c, domainErr(err))
			return
		}
		res[field] = v.Value
	}
	var card models.CardSetting
	if _, err := s.Repo.GetSetting(ctx, models.SettingPaymentCard, &card); err != nil {
		respondError(c, domainErr(err))
		return
	}
	res["card_number"] = card.CardNumber
	c.JSON(http.StatusOK, res)
}

// putPaymentSettings updates only the fields present in the body; an empty
// string removes the method from the bot's payment menu.
func (s *Server) putPaymentSettings(c *gin.Context) {
	var req paymentSettings
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	for key, v := range map[string]*string{
		models.SettingPaymentLink:   req.PaymentLink,
		models.SettingEripPath:      req.EripPath,
		models.SettingAccountNumber: req.AccountNumber,
		models.SettingPaymentCard:   req.CardNumber,
	} {
		if v == nil {
			continue
		}
		var err error
		switch val := strings.TrimSpace(*v); {
		case val == "":
			err = s.Repo.DeleteSetting(ctx, key)
		case key == models.SettingPaymentCard:
			err = s.Repo.SetSetting(ctx, key, models.CardSetting{CardNumber: val})
		default:
			err = s.Repo.SetSetting(ctx, key, models.TextSetting{Value: val})
		}
		if err != nil {
			respondError(c, domainErr(err))
			return
		}
	}
	ok(c)
}

func (s *Server) aboutMe(c *gin.Context) (models.TextSetting, models.PhotoSetting, error) {
	var text models.TextSetting
	var photo models.PhotoSetting
	ctx := c.Request.Context()
	if _, err := s.Repo.GetSetting(ctx, models.SettingAboutMeText, &text); err != nil {
		return text, photo, err
	}
	_, err := s.Repo.GetSetting(ctx, models.SettingAboutMePhoto, &photo)
	return text, photo, err
}

func aboutMeBody(text models.TextSetting, photo models.PhotoSetting) gin.H {
	var url *string
	if photo.PhotoURL != "" {
		url = &photo.PhotoURL
	}
	return gin.H{"text": text.Value, "photo_url": url}
}

func (s *Server) getAboutMe(c *gin.Context) {
	text, photo, err := s.aboutMe(c)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, aboutMeBody(text, photo))
}

// putAboutMe takes a multipart form: text, an optional photo file and
// remove_photo=true to drop the current photo. Without either the photo is
// kept.
func (s *Server) putAboutMe(c *gin.Context) {
	ctx := c.Request.Context()
	_, photo, err := s.aboutMe(c)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	old := photo

	file, err := c.FormFile("photo")
	switch {
	case err == nil:
		f, err := file.Open()
		if err != nil {
			respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid photo"))
			return
		}
		url, key, err := s.Blobs.Save(ctx, blob.FolderAboutMe, blob.NewName(blob.Ext(file.Filename)), f)
		f.Close()
		if err != nil {
			respondError(c, apperrors.Internal(err))
			return
		}
		photo = models.PhotoSetting{PhotoURL: url, StorageKey: key}
		if err := s.Repo.SetSetting(ctx, models.SettingAboutMePhoto, photo); err != nil {
			_ = s.Blobs.Delete(ctx, key)
			respondError(c, domainErr(err))
			return
		}
		s.dropPhoto(c, old)
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		respondError(c, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid form"))
		return
	case c.PostForm("remove_photo") == "true":
		if err := s.Repo.DeleteSetting(ctx, models.SettingAboutMePhoto); err != nil {
			respondError(c, domainErr(err))
			return
		}
		s.dropPhoto(c, old)
		photo = models.PhotoSetting{}
	}

	text := models.TextSetting{Value: c.PostForm("text")}
	if err := s.Repo.SetSetting(ctx, models.SettingAboutMeText, text); err != nil {
		respondError(c, domainErr(err))
		return
	}

	body := aboutMeBody(text, photo)
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func (s *Server) dropPhoto(c *gin.Context, p models.PhotoSetting) {
	if p.StorageKey == "" {
		return
	}
	if err := s.Blobs.Delete(c.Request.Context(), p.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", p.StorageKey).Msg("delete about me photo")
	}
}

func (s *Server) listDiary(c *gin.Context) {
	list, err := s.Repo.ListRecentDiary(c.Request.Context(), diaryFeedLimit)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}
