package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"postservice/auth"
	"postservice/plain"
	"postservice/posts"
	"postservice/schemas"
)

const (
	BasePath     = "/api/post-service"
	maxBodyBytes = 1 << 20
)

func NewHTTPHandler(manager *posts.Manager) *HTTPHandler {
	return &HTTPHandler{
		Manager: manager,
	}
}

type HTTPHandler struct {
	Manager *posts.Manager
}

// NewRouter wires every route. Only the welcome and ping routes skip identity
// resolution.
func NewRouter(h *HTTPHandler, resolver auth.Resolver, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	for _, mw := range requestLogging(logger) {
		r.Use(mw)
	}
	r.Use(recoverPanics)

	authed := func(next http.HandlerFunc) http.Handler {
		return requireIdentity(resolver, next)
	}

	r.HandleFunc(BasePath+"/", h.HandleWelcome).Methods(http.MethodGet)
	r.HandleFunc(BasePath, h.HandleWelcome).Methods(http.MethodGet)

	r.Handle(BasePath+"/posts/create", authed(h.HandleCreatePost)).Methods(http.MethodPost)
	r.Handle(BasePath+"/posts/user/{userId}", authed(h.HandleGetUserPosts)).Methods(http.MethodGet)
	r.Handle(BasePath+"/posts/{postId}", authed(h.HandleGetPost)).Methods(http.MethodGet)
	r.Handle(BasePath+"/posts", authed(h.HandleListPosts)).Methods(http.MethodGet)
	r.Handle(BasePath+"/posts/delete/{postId}", authed(h.HandleDeletePost)).Methods(http.MethodDelete)
	r.Handle(BasePath+"/posts/update/{postId}", authed(h.HandleEditPost)).Methods(http.MethodPut)
	r.Handle(BasePath+"/posts/{postId}/addcomment", authed(h.HandleAddComment)).Methods(http.MethodPost)
	r.Handle(BasePath+"/posts/{postId}/comments/{commentId}/delete", authed(h.HandleDeleteComment)).Methods(http.MethodDelete)

	r.HandleFunc("/maintenance/ping", h.HandlePing).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		writeFailure(rw, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		writeFailure(rw, r, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (h *HTTPHandler) HandleWelcome(rw http.ResponseWriter, r *http.Request) {
	writeOK(rw, r, envelope{Message: "Welcome to the Post Service of Learn Sphere!"})
}

func (h *HTTPHandler) HandleCreatePost(rw http.ResponseWriter, r *http.Request) {
	var data plain.PostContentData
	if !decodeBody(rw, r, &data) {
		return
	}

	newPost, err := h.Manager.Create(r.Context(), caller(r), data.ToContent())
	if err != nil {
		handleManagerError(rw, r, err, "Unauthorized to create a post")
		return
	}
	writeOK(rw, r, envelope{Message: "Post created successfully", Post: newPost})
}

func (h *HTTPHandler) HandleGetPost(rw http.ResponseWriter, r *http.Request) {
	postId, ok := postIdFrom(rw, r)
	if !ok {
		return
	}

	post, err := h.Manager.GetByID(r.Context(), postId)
	if err != nil {
		handleManagerError(rw, r, err, "")
		return
	}
	writeOK(rw, r, envelope{Message: "Post found", Post: post})
}

func (h *HTTPHandler) HandleGetUserPosts(rw http.ResponseWriter, r *http.Request) {
	userId := schemas.UserId(mux.Vars(r)["userId"])

	postList, err := h.Manager.GetByUser(r.Context(), userId)
	if err != nil {
		handleManagerError(rw, r, err, "")
		return
	}
	writeOK(rw, r, envelope{Message: "Posts found", Post: postList})
}

func (h *HTTPHandler) HandleListPosts(rw http.ResponseWriter, r *http.Request) {
	postList, err := h.Manager.ListAll(r.Context())
	if err != nil {
		handleManagerError(rw, r, err, "")
		return
	}
	writeOK(rw, r, envelope{Message: "Posts found", Post: postList})
}

func (h *HTTPHandler) HandleDeletePost(rw http.ResponseWriter, r *http.Request) {
	postId, ok := postIdFrom(rw, r)
	if !ok {
		return
	}

	if err := h.Manager.Delete(r.Context(), postId, caller(r)); err != nil {
		handleManagerError(rw, r, err, "Unauthorized to delete this post")
		return
	}
	writeOK(rw, r, envelope{Message: "Post deleted successfully"})
}

func (h *HTTPHandler) HandleEditPost(rw http.ResponseWriter, r *http.Request) {
	postId, ok := postIdFrom(rw, r)
	if !ok {
		return
	}

	var data plain.PostContentData
	if !decodeBody(rw, r, &data) {
		return
	}

	editedPost, err := h.Manager.Update(r.Context(), postId, caller(r), data.ToContent())
	if err != nil {
		handleManagerError(rw, r, err, "Unauthorized to update this post")
		return
	}
	writeOK(rw, r, envelope{Message: "Post updated successfully", Post: editedPost})
}

func (h *HTTPHandler) HandleAddComment(rw http.ResponseWriter, r *http.Request) {
	postId, ok := postIdFrom(rw, r)
	if !ok {
		return
	}

	var data plain.AddCommentData
	if !decodeBody(rw, r, &data) {
		return
	}

	identity := caller(r)
	newComment, err := h.Manager.AddComment(r.Context(), postId, data.AuthorOr(identity.Username), data.Comment)
	if err != nil {
		handleManagerError(rw, r, err, "")
		return
	}
	writeOK(rw, r, envelope{Message: "Comment added successfully", Comment: newComment})
}

func (h *HTTPHandler) HandleDeleteComment(rw http.ResponseWriter, r *http.Request) {
	postId, ok := postIdFrom(rw, r)
	if !ok {
		return
	}
	commentId := schemas.CommentId(mux.Vars(r)["commentId"])

	if err := h.Manager.DeleteComment(r.Context(), postId, commentId, caller(r)); err != nil {
		handleManagerError(rw, r, err, "Unauthorized to delete this comment")
		return
	}
	writeOK(rw, r, envelope{Message: "Comment deleted successfully"})
}

func (h *HTTPHandler) HandlePing(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// caller is only used behind requireIdentity, which guarantees the identity.
func caller(r *http.Request) schemas.Identity {
	identity, _ := auth.IdentityFrom(r.Context())
	return identity
}

func postIdFrom(rw http.ResponseWriter, r *http.Request) (schemas.PostId, bool) {
	postId, err := schemas.IDFromRawString(mux.Vars(r)["postId"])
	if err != nil {
		writeFailure(rw, r, http.StatusNotFound, "Post not found")
		return "", false
	}
	return postId, true
}

// decodeBody treats an empty body as an empty object.
func decodeBody(rw http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(rw, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeFailure(rw, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
