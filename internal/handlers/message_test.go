package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/delivery"
	"messenger-service/internal/lifecycle"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/quota"
	"messenger-service/internal/repositories"
)

type handlerFixture struct {
	messageRepo *mocks.MessageRepositoryMock
	userRepo    *mocks.UserRepositoryMock
	groupRepo   *mocks.GroupRepositoryMock
	registry    *presence.Registry
	router      *gin.Engine
}

func newFixture() *handlerFixture {
	f := &handlerFixture{
		messageRepo: new(mocks.MessageRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
		groupRepo:   new(mocks.GroupRepositoryMock),
		registry:    presence.NewRegistry(),
	}

	ledger := quota.NewLedger(f.userRepo, 10)
	coordinator := delivery.NewCoordinator(f.messageRepo, f.groupRepo, ledger, f.registry)
	manager := lifecycle.NewManager(f.messageRepo, f.groupRepo, f.registry)
	handler := NewMessageHandler(coordinator, manager, f.messageRepo, f.groupRepo, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/messages", handler.SendMessage)
	r.POST("/messages/:id/forward", handler.ForwardMessage)
	r.GET("/messages/:id", handler.GetMessages)
	r.PUT("/messages/delete-for-me/:id", handler.DeleteForMe)
	r.PUT("/messages/delete-everyone/:id", handler.DeleteForEveryone)
	f.router = r
	return f
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func (f *handlerFixture) allowSender() {
	f.userRepo.On("GetUser", mock.Anything, 1).
		Return(models.User{ID: 1, IsPremium: true, QuotaDay: today(), QuotaRemaining: 10}, nil).Once()
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func msgIntPtr(v int) *int { return &v }

func TestSendMessageSuccess(t *testing.T) {
	f := newFixture()
	f.allowSender()

	stored := models.Message{ID: 7, SenderID: 1, ReceiverID: msgIntPtr(2), Content: "hi"}
	f.messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()

	rec := f.do(http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 7, resp.ID)
	f.messageRepo.AssertExpectations(t)
}

func TestSendMessageQuotaExceeded(t *testing.T) {
	f := newFixture()
	f.userRepo.On("GetUser", mock.Anything, 1).
		Return(models.User{ID: 1, QuotaDay: today(), QuotaRemaining: 0}, nil).Once()

	rec := f.do(http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageInvalidTarget(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/messages", `{"receiver_id":2,"group_id":3,"content":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageUnknownSender(t *testing.T) {
	f := newFixture()
	f.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{}, repositories.ErrUserNotFound).Once()

	rec := f.do(http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMessagesDirect(t *testing.T) {
	f := newFixture()

	msgs := []models.Message{{ID: 1, SenderID: 2, ReceiverID: msgIntPtr(1), Content: "hello"}}
	f.messageRepo.On("DirectHistory", mock.Anything, 1, 2).Return(msgs, nil).Once()

	rec := f.do(http.MethodGet, "/messages/2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	f.messageRepo.AssertExpectations(t)
}

func TestGetMessagesGroupRequiresMembership(t *testing.T) {
	f := newFixture()

	f.groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5, Name: "g"}, nil).Once()
	f.groupRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	rec := f.do(http.MethodGet, "/messages/5?type=group", "")

	require.Equal(t, http.StatusForbidden, rec.Code)
	f.groupRepo.AssertExpectations(t)
}

func TestGetMessagesGroupNotFound(t *testing.T) {
	f := newFixture()

	f.groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{}, repositories.ErrGroupNotFound).Once()

	rec := f.do(http.MethodGet, "/messages/5?type=group", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMessagesGroupSuccess(t *testing.T) {
	f := newFixture()

	f.groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5, Name: "g"}, nil).Once()
	f.groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	f.messageRepo.On("GroupHistory", mock.Anything, 5, 1).Return([]models.Message{{ID: 2, SenderID: 3, GroupID: msgIntPtr(5)}}, nil).Once()

	rec := f.do(http.MethodGet, "/messages/5?type=group", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f.messageRepo.AssertExpectations(t)
}

func TestDeleteForMeSuccess(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 9).Return(models.Message{ID: 9, SenderID: 2, ReceiverID: msgIntPtr(1)}, nil).Once()
	f.messageRepo.On("AddViewerDeletion", mock.Anything, 9, 1).Return(nil).Once()

	rec := f.do(http.MethodPut, "/messages/delete-for-me/9", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestDeleteForMeMissingMessageStillSucceeds(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 99).Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	rec := f.do(http.MethodPut, "/messages/delete-for-me/99", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestDeleteForEveryoneForbidden(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 9).Return(models.Message{ID: 9, SenderID: 2, ReceiverID: msgIntPtr(1)}, nil).Once()

	rec := f.do(http.MethodPut, "/messages/delete-everyone/9", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteForEveryoneNotFound(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 99).Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	rec := f.do(http.MethodPut, "/messages/delete-everyone/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteForEveryoneSuccess(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 9).Return(models.Message{ID: 9, SenderID: 1, ReceiverID: msgIntPtr(2)}, nil).Once()
	f.messageRepo.On("RedactForEveryone", mock.Anything, 9).Return(nil).Once()

	rec := f.do(http.MethodPut, "/messages/delete-everyone/9", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
	f.messageRepo.AssertExpectations(t)
}

func TestForwardMessageSuccess(t *testing.T) {
	f := newFixture()
	f.allowSender()

	f.messageRepo.On("GetMessage", mock.Anything, 4).Return(models.Message{ID: 4, SenderID: 2, ReceiverID: msgIntPtr(1), Content: "hi"}, nil).Once()
	f.messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(models.Message{ID: 13, SenderID: 1, ReceiverID: msgIntPtr(3), Content: "hi"}, nil).Once()

	rec := f.do(http.MethodPost, "/messages/4/forward", `{"receiver_id":3}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	f.messageRepo.AssertExpectations(t)
}

func TestForwardMessageNotFound(t *testing.T) {
	f := newFixture()

	f.messageRepo.On("GetMessage", mock.Anything, 44).Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	rec := f.do(http.MethodPost, "/messages/44/forward", `{"receiver_id":3}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
