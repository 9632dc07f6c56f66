package httpapi

import (
	"net/http"

	"latiafanny/backend/internal/domain"
)

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.UserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	user, err := a.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.service.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "User deleted successfully")
}
