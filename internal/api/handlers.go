package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/mburgess/go-dms/internal/database"
	"github.com/mburgess/go-dms/internal/events"
	"github.com/mburgess/go-dms/internal/messaging"
	"github.com/mburgess/go-dms/internal/stats"
	"github.com/mburgess/go-dms/internal/types"
)

const maxUsernameLen = 12

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func (app *DmApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.log.Printf("json encode: %v", err)
	}
}

func (app *DmApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := app.db.Ping(); err != nil {
		app.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (app *DmApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewUnprocessableEntityError("username and password are required")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if len(req.Username) > maxUsernameLen {
		errResp := NewUnprocessableEntityError("username must be at most 12 characters")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		PasswordHash: pwdHash,
	}

	if _, err := app.db.CreateAccount(params); err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateUsername) {
			errResp = NewConflictError("username already taken")
		} else {
			errResp = NewInternalServerError(err)
		}
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if app.stats != nil {
		app.stats.Incr(stats.AccountsCreated)
	}

	app.writeJson(w, http.StatusCreated, StatusResponse{Status: "created"})
}

func (app *DmApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Username == "" || lr.Password == "" {
		errResp := NewUnprocessableEntityError("username and password are required")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := app.db.GetAccountByUsername(lr.Username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			// unknown username and wrong password look identical
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:       dbUser.Id,
		Username: dbUser.Username,
	}

	token, err := app.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	app.writeJson(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

func (app *DmApp) listAllUsers(w http.ResponseWriter, _ *http.Request) {
	app.listAccounts(w, 0)
}

func (app *DmApp) listUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	app.listAccounts(w, userId)
}

func (app *DmApp) listAccounts(w http.ResponseWriter, excludeId int) {
	dbUsers, err := app.db.ListAccounts(excludeId)
	if err != nil {
		app.log.Println("list accounts:", err)
		errResp := NewInternalServerError(err)
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, types.User{
			Id:       u.Id,
			Username: u.Username,
		})
	}

	app.writeJson(w, http.StatusOK, users)
}

func (app *DmApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms, err := app.svc.Rooms(userId)
	if err != nil {
		app.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	app.writeJson(w, http.StatusOK, rooms)
}

func (app *DmApp) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := strconv.Atoi(r.PathValue("room_id"))
	if err != nil {
		errResp := NewUnprocessableEntityError("room id must be an integer")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msgs, err := app.svc.OpenRoom(userId, roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, messaging.ErrNotMember) {
			errResp = NewNotFoundError()
		} else {
			app.log.Println("open room:", err)
			errResp = NewInternalServerError(err)
		}
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	app.writeJson(w, http.StatusOK, msgs)
}

func (app *DmApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	receiverId, err := strconv.Atoi(r.PathValue("receiver_id"))
	if err != nil {
		errResp := NewUnprocessableEntityError("receiver id must be an integer")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Content == "" {
		errResp := NewUnprocessableEntityError("content is required")
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := app.svc.Send(userId, receiverId, req.Content); err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, messaging.ErrSelfMessage):
			errResp = NewUnprocessableEntityError("cannot send a message to yourself")
		case errors.Is(err, messaging.ErrUnknownReceiver):
			errResp = NewNotFoundError()
		default:
			app.log.Println("send message:", err)
			errResp = NewInternalServerError(err)
		}
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	app.writeJson(w, http.StatusCreated, StatusResponse{Status: "sent"})
}

func (app *DmApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := app.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		app.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(app.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.log.Println("error upgrading connection:", err)
		return
	}

	client := events.NewClient(types.User{
		Id:       user.Id,
		Username: user.Username,
	}, conn, app.hub, app.log)

	app.hub.Register(client)
	go client.Write()
	go client.Read()
}
