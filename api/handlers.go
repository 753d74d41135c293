package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"chat-server/auth"
	"chat-server/contract"
	"chat-server/errors"
	"chat-server/repositories"
	"chat-server/services"
)

// Handler wires HTTP routes to the chat services.
type Handler struct {
	log          *slog.Logger
	authService  services.IAuthService
	userService  services.IUserService
	chatService  services.IChatService
	messages     services.IMessageService
	archive      services.IArchiveService
	presence     contract.IPresence
	wsBufferSize int
}

func NewHandler(log *slog.Logger, authService services.IAuthService,
	userService services.IUserService, chatService services.IChatService,
	messages services.IMessageService, archive services.IArchiveService,
	presence contract.IPresence, wsBufferSize int) *Handler {
	return &Handler{
		log:          log,
		authService:  authService,
		userService:  userService,
		chatService:  chatService,
		messages:     messages,
		archive:      archive,
		presence:     presence,
		wsBufferSize: wsBufferSize,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	token, err := h.authService.Register(req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	user, err := h.userService.Me(userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toUserResponse(user)})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	users, err := h.userService.Search(c.Request.Context(), c.Query("search"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": lo.Map(users,
		func(u repositories.User, _ int) userResponse { return toUserResponse(u) })})
}

type accessChatRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) AccessChat(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	var req accessChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id is missing"})
		return
	}
	chat, err := h.chatService.AccessChat(userID, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

func (h *Handler) FetchChats(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	chats, err := h.chatService.FetchChats(userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chats})
}

type createGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || len(req.Users) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "please provide all required fields"})
		return
	}
	chat, err := h.chatService.CreateGroup(userID, req.Name, req.Users)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

type groupUpdateRequest struct {
	ChatID string `json:"chat_id"`
	Name   string `json:"name,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func (h *Handler) RenameGroup(c *gin.Context) {
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "chat_id and name are required"})
		return
	}
	chat, err := h.chatService.RenameGroup(req.ChatID, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

func (h *Handler) AddToGroup(c *gin.Context) {
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "chat_id and user_id are required"})
		return
	}
	chat, err := h.chatService.AddToGroup(req.ChatID, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

func (h *Handler) RemoveFromGroup(c *gin.Context) {
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "chat_id and user_id are required"})
		return
	}
	chat, err := h.chatService.RemoveFromGroup(req.ChatID, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

type sendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
	FileURL string `json:"file_url,omitempty"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c)
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid data passed into request"})
		return
	}
	message, err := h.messages.Send(userID, req.ChatID, req.Content, req.FileURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": message})
}

func (h *Handler) ListMessages(c *gin.Context) {
	var cursor *string
	if raw := c.Query("cursor"); raw != "" {
		cursor = &raw
	}
	messages, next, err := h.messages.List(c.Param("chatId"), cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(messages),
		"cursor":  next,
		"data":    messages,
	})
}

// RunArchive triggers an archival sweep and returns the cold store content,
// mirroring the administrative endpoint of the original service.
func (h *Handler) RunArchive(c *gin.Context) {
	report, err := h.archive.RunSweep(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	archived, err := h.archive.ListArchived()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
		"count":   len(archived),
		"data":    archived,
	})
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// toUserResponse strips credentials before anything leaves the API.
func toUserResponse(user repositories.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.Is(err, errors.ErrInvalidRegistration),
		stderrors.Is(err, errors.ErrGroupTooSmall):
		status = http.StatusBadRequest
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		status = http.StatusConflict
	case stderrors.Is(err, errors.ErrUserNotFound),
		stderrors.Is(err, errors.ErrChatNotFound),
		stderrors.Is(err, errors.ErrMessageNotFound):
		status = http.StatusNotFound
	case stderrors.Is(err, errors.ErrNotChatMember):
		status = http.StatusForbidden
	case stderrors.Is(err, errors.ErrSweepInProgress):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
