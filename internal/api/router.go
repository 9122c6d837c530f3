package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"riichi-league/internal/middleware"
	"riichi-league/internal/scoring"
	"riichi-league/internal/service"
	badgesvc "riichi-league/internal/service/badge"
	"riichi-league/internal/service/leaderboard"
	playersvc "riichi-league/internal/service/player"
	"riichi-league/internal/service/round"
	walletsvc "riichi-league/internal/service/wallet"
	"riichi-league/internal/ws"
	appErr "riichi-league/pkg/errors"
	"riichi-league/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container, feed *ws.Hub) {
	handler := &Handler{services: services}
	services.Round.SetFeed(feed)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/league/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/link/exchange", handler.ExchangeLinkCode)
		}

		playerGroup := v1.Group("/")
		playerGroup.Use(middleware.AuthRequired())
		{
			playerGroup.GET("/profile", handler.GetProfile)
			playerGroup.PUT("/profile", handler.UpdateProfile)
			playerGroup.GET("/wallet", handler.GetWallet)
			playerGroup.GET("/wallet/ledger", handler.GetWalletLedger)
			playerGroup.GET("/badges", handler.ListOwnBadges)

			playerGroup.POST("/rounds", handler.SubmitRound)
			playerGroup.POST("/rounds/preview", handler.PreviewRound)
			playerGroup.GET("/rounds/:id", handler.GetRound)
		}

		v1.GET("/leaderboard", handler.GetLeaderboard)
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.POST("/link_codes", handler.AdminIssueLinkCode)

			protected.GET("/players", handler.AdminListPlayers)
			protected.PUT("/players/:id/ban", handler.AdminBanPlayer)
			protected.PUT("/players/:id/wallet", handler.AdminAdjustWallet)

			protected.GET("/badges", handler.AdminListBadges)
			protected.POST("/badges", handler.AdminCreateBadge)
			protected.POST("/badges/:id/award", handler.AdminAwardBadge)
		}
	}

	r.GET("/ws/feed", feed.HandleFeedWS)
}

type linkExchangeBody struct {
	Code string `json:"code" binding:"required"`
}

type linkIssueBody struct {
	DiscordID   string `json:"discordId" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
}

type updateProfileBody struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminBanBody struct {
	Status string `json:"status" binding:"required,oneof=normal banned"`
	Reason string `json:"reason"`
}

type adminWalletBody struct {
	CoinDelta   int64  `json:"coinDelta"`
	TicketDelta int64  `json:"ticketDelta"`
	Reason      string `json:"reason"`
}

type badgeMutationBody struct {
	Name        string `json:"name" binding:"required"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type badgeAwardBody struct {
	PlayerID int64  `json:"playerId" binding:"required"`
	RoundID  *int64 `json:"roundId"`
}

type roundSeatBody struct {
	PlayerID    *int64 `json:"playerId"`
	DisplayName string `json:"displayName" binding:"required"`
	RawPoints   int    `json:"rawPoints"`
	WinCount    int    `json:"winCount" binding:"min=0"`
	DealInCount int    `json:"dealInCount" binding:"min=0"`
}

type roundSubmitBody struct {
	Mode               int             `json:"mode" binding:"required,oneof=3 4"`
	Style              string          `json:"style" binding:"required,oneof=individual team"`
	HandCount          int             `json:"handCount" binding:"required,min=1"`
	RankPolicy         string          `json:"rankPolicy" binding:"omitempty,oneof=input_order points"`
	TobiEnabled        bool            `json:"tobiEnabled"`
	YakitoriEnabled    bool            `json:"yakitoriEnabled"`
	AllowPointMismatch bool            `json:"allowPointMismatch"`
	Seats              []roundSeatBody `json:"seats" binding:"required,dive"`
}

func (b roundSubmitBody) toRequest(recorderID int64) round.SubmitRequest {
	policy := scoring.RankByPoints
	if b.RankPolicy != "" {
		policy = scoring.RankPolicy(b.RankPolicy)
	}
	seats := make([]round.SeatInput, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = round.SeatInput{
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			RawPoints:   s.RawPoints,
			WinCount:    s.WinCount,
			DealInCount: s.DealInCount,
		}
	}
	return round.SubmitRequest{
		Mode:               scoring.Mode(b.Mode),
		Style:              scoring.MatchStyle(b.Style),
		HandCount:          b.HandCount,
		RankPolicy:         policy,
		TobiEnabled:        b.TobiEnabled,
		YakitoriEnabled:    b.YakitoriEnabled,
		AllowPointMismatch: b.AllowPointMismatch,
		RecorderID:         recorderID,
		Seats:              seats,
	}
}

func (h *Handler) ExchangeLinkCode(c *gin.Context) {
	var body linkExchangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.services.Auth.ExchangeLinkCode(c.Request.Context(), body.Code)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) AdminIssueLinkCode(c *gin.Context) {
	var body linkIssueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	code, err := h.services.Auth.IssueLinkCode(c.Request.Context(), body.DiscordID, body.DisplayName)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"code": code})
}

func (h *Handler) GetProfile(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	profile, err := h.services.Player.GetProfile(c.Request.Context(), playerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := h.services.Player.UpdateProfile(c.Request.Context(), playerID, playersvc.UpdateProfileRequest{
		DisplayName: body.DisplayName,
		Avatar:      body.Avatar,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, profile)
}

func (h *Handler) GetWallet(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), playerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, wallet)
}

func (h *Handler) GetWalletLedger(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	page := queryInt(c, "page", 1)
	size := queryInt(c, "size", 20)
	result, err := h.services.Wallet.Ledger(c.Request.Context(), playerID, page, size)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"items": result.Items, "total": result.Total})
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	q := leaderboard.Query{
		Mode:  queryInt(c, "mode", 0),
		Style: c.Query("style"),
		Sort:  c.Query("sort"),
		Limit: queryInt(c, "limit", 0),
	}
	if from, ok := queryTime(c, "from"); ok {
		q.From = &from
	}
	if to, ok := queryTime(c, "to"); ok {
		q.To = &to
	}

	entries, err := h.services.Leaderboard.Standings(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"entries": entries})
}

func (h *Handler) ListOwnBadges(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	owned, err := h.services.Badge.ListOwned(c.Request.Context(), playerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"badges": owned})
}

// resolveSeatIdentities fills in player IDs for seats submitted by display
// name only. A name with no registered match stays a guest seat.
func (h *Handler) resolveSeatIdentities(c *gin.Context, body *roundSubmitBody) error {
	for i := range body.Seats {
		if body.Seats[i].PlayerID != nil {
			continue
		}
		p, err := h.services.Player.LookupByName(c.Request.Context(), body.Seats[i].DisplayName)
		if err != nil {
			return err
		}
		if p != nil {
			body.Seats[i].PlayerID = &p.ID
		}
	}
	return nil
}

func (h *Handler) SubmitRound(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	var body roundSubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.resolveSeatIdentities(c, &body); err != nil {
		writeServiceError(c, err)
		return
	}
	result, err := h.services.Round.Submit(c.Request.Context(), body.toRequest(playerID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) PreviewRound(c *gin.Context) {
	playerID := c.GetInt64(middleware.ContextPlayerIDKey)
	var body roundSubmitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.resolveSeatIdentities(c, &body); err != nil {
		writeServiceError(c, err)
		return
	}
	result, err := h.services.Round.Preview(body.toRequest(playerID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) GetRound(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid round id")
		return
	}
	detail, err := h.services.Round.GetRound(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) AdminListPlayers(c *gin.Context) {
	filter := playersvc.AdminListFilter{
		Page:        queryInt(c, "page", 1),
		Size:        queryInt(c, "size", 20),
		Status:      c.Query("status"),
		NameKeyword: c.Query("name"),
	}
	result, err := h.services.Player.AdminList(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"items": result.Items, "total": result.Total})
}

func (h *Handler) AdminBanPlayer(c *gin.Context) {
	adminID := c.GetInt64(middleware.ContextAdminIDKey)
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || playerID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid player id")
		return
	}
	var body adminBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.services.Player.AdminSetStatus(c.Request.Context(), adminID, playerID, body.Status, body.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, updated)
}

func (h *Handler) AdminAdjustWallet(c *gin.Context) {
	adminID := c.GetInt64(middleware.ContextAdminIDKey)
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || playerID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid player id")
		return
	}
	var body adminWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	wallet, err := h.services.Wallet.AdminAdjust(c.Request.Context(), adminID, playerID, walletsvc.AdminAdjustRequest{
		CoinDelta:   body.CoinDelta,
		TicketDelta: body.TicketDelta,
		Reason:      body.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, wallet)
}

func (h *Handler) AdminListBadges(c *gin.Context) {
	badges, err := h.services.Badge.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"items": badges})
}

func (h *Handler) AdminCreateBadge(c *gin.Context) {
	var body badgeMutationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.services.Badge.Create(c.Request.Context(), badgesvc.MutationParams{
		Name:        body.Name,
		Icon:        body.Icon,
		Description: body.Description,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, created)
}

func (h *Handler) AdminAwardBadge(c *gin.Context) {
	adminID := c.GetInt64(middleware.ContextAdminIDKey)
	badgeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || badgeID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid badge id")
		return
	}
	var body badgeAwardBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	grant, err := h.services.Badge.Award(c.Request.Context(), adminID, badgeID, body.PlayerID, body.RoundID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, grant)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryTime(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrRoundValidation),
		errors.Is(err, appErr.ErrInvalidWalletPayload),
		errors.Is(err, appErr.ErrInvalidProfile),
		errors.Is(err, appErr.ErrInvalidPlayerStatus),
		errors.Is(err, appErr.ErrInvalidLinkCode),
		errors.Is(err, appErr.ErrInsufficientCoins):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrLinkCodeExpired),
		errors.Is(err, appErr.ErrUnauthorized),
		errors.Is(err, appErr.ErrInvalidAdminPassword):
		response.Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, appErr.ErrPlayerBanned),
		errors.Is(err, appErr.ErrAdminDisabled):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appErr.ErrPlayerNotFound),
		errors.Is(err, appErr.ErrAdminNotFound),
		errors.Is(err, appErr.ErrRoundNotFound),
		errors.Is(err, appErr.ErrBadgeNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrDuplicateName),
		errors.Is(err, appErr.ErrBadgeAlreadyOwned):
		response.Error(c, http.StatusConflict, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
