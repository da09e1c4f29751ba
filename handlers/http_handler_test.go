package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postservice/auth"
	"postservice/posts"
	"postservice/schemas"
	"postservice/storage"
	"postservice/storage/inmemory"
)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T, store storage.Storage) *testServer {
	handler := NewHTTPHandler(posts.NewManager(store))
	return &testServer{
		t:      t,
		router: NewRouter(handler, auth.HeaderResolver{}, zerolog.Nop()),
	}
}

type response struct {
	Status  int
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Post    json.RawMessage `json:"post"`
	Comment json.RawMessage `json:"comment"`
}

func (s *testServer) do(method, path string, identity *schemas.Identity, body string) response {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != nil {
		req.Header.Set(auth.UsernameHeader, string(identity.Username))
		req.Header.Set(auth.RoleHeader, string(identity.Role))
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	resp.Status = rec.Code
	assert.Equal(s.t, "application/json", rec.Header().Get("Content-Type"))
	return resp
}

func (s *testServer) createPost(identity schemas.Identity, title string) schemas.Post {
	resp := s.do(http.MethodPost, BasePath+"/posts/create", &identity,
		`{"title":"`+title+`","description":"d","image":"i.png","lectureURL":"https://lec"}`)
	require.Equal(s.t, http.StatusOK, resp.Status, resp.Message)
	var post schemas.Post
	require.NoError(s.t, json.Unmarshal(resp.Post, &post))
	return post
}

var (
	alice = &schemas.Identity{Username: "alice", Role: schemas.RoleTeacher}
	bob   = &schemas.Identity{Username: "bob", Role: "student"}
	admin = &schemas.Identity{Username: "root", Role: schemas.RoleAdmin}
)

func TestWelcomeSkipsAuth(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodGet, BasePath+"/", nil, "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.Success)
	assert.Equal(t, "Welcome to the Post Service of Learn Sphere!", resp.Message)
}

func TestProtectedRoutesNeedIdentity(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodGet, BasePath+"/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, resp.Success)
}

func TestCreatePost(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodPost, BasePath+"/posts/create", bob, `{"title":"Intro"}`)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Unauthorized to create a post", resp.Message)

	resp = s.do(http.MethodPost, BasePath+"/posts/create", alice,
		`{"title":"Intro","description":"first","image":"a.png","lectureURL":"https://lec/1"}`)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.Success)
	assert.Equal(t, "Post created successfully", resp.Message)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Post, &body))
	assert.Equal(t, "Intro", body["title"])
	assert.Equal(t, "first", body["description"])
	assert.Equal(t, "a.png", body["image"])
	assert.Equal(t, "https://lec/1", body["lectureURL"])
	assert.Equal(t, "alice", body["postedBy"])
	assert.Equal(t, []interface{}{}, body["comments"])
	assert.NotEmpty(t, body["postId"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotContains(t, body, "version")
}

func TestCreatePost_BadBody(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodPost, BasePath+"/posts/create", alice, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.False(t, resp.Success)
}

func TestGetPost(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodGet, BasePath+"/posts/unknown", bob, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Post not found", resp.Message)

	created := s.createPost(*alice, "Intro")
	resp = s.do(http.MethodGet, BasePath+"/posts/"+created.PostID.String(), bob, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Post found", resp.Message)

	var got schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &got))
	assert.Equal(t, created.PostID, got.PostID)
	assert.Equal(t, "Intro", got.Title)
}

func TestGetUserPostsAndList(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())
	carol := &schemas.Identity{Username: "carol", Role: schemas.RoleTeacher}

	s.createPost(*alice, "one")
	s.createPost(*carol, "two")
	s.createPost(*alice, "three")

	resp := s.do(http.MethodGet, BasePath+"/posts/user/alice", bob, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Posts found", resp.Message)
	var alicePosts []schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &alicePosts))
	assert.Len(t, alicePosts, 2)

	resp = s.do(http.MethodGet, BasePath+"/posts/user/nobody", bob, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[]`, string(resp.Post))

	resp = s.do(http.MethodGet, BasePath+"/posts", bob, "")
	require.Equal(t, http.StatusOK, resp.Status)
	var all []schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &all))
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt))
	}
}

func TestUpdatePost(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())
	created := s.createPost(*alice, "Intro")
	path := BasePath + "/posts/update/" + created.PostID.String()
	body := `{"title":"Intro v2","description":"new","image":"b.png","lectureURL":"https://lec/2"}`

	resp := s.do(http.MethodPut, path, bob, body)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Unauthorized to update this post", resp.Message)

	resp = s.do(http.MethodPut, BasePath+"/posts/update/missing", alice, body)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = s.do(http.MethodPut, path, alice, body)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Post updated successfully", resp.Message)
	var updated schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &updated))
	assert.Equal(t, "Intro v2", updated.Title)
	assert.Equal(t, "https://lec/2", updated.LectureURL)
	assert.Equal(t, created.PostID, updated.PostID)
	assert.Equal(t, created.PostedBy, updated.PostedBy)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestDeletePost(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())
	created := s.createPost(*alice, "Intro")
	path := BasePath + "/posts/delete/" + created.PostID.String()

	resp := s.do(http.MethodDelete, path, bob, "")
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Unauthorized to delete this post", resp.Message)

	resp = s.do(http.MethodDelete, path, admin, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Post deleted successfully", resp.Message)

	resp = s.do(http.MethodGet, BasePath+"/posts/"+created.PostID.String(), bob, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = s.do(http.MethodDelete, path, admin, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestCommentLifecycle(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())
	created := s.createPost(*alice, "Intro")
	postPath := BasePath + "/posts/" + created.PostID.String()

	resp := s.do(http.MethodPost, BasePath+"/posts/missing/addcomment", bob, `{"userId":"bob","comment":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Post not found", resp.Message)

	resp = s.do(http.MethodPost, postPath+"/addcomment", bob, `{"userId":"bob","comment":"nice!"}`)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Comment added successfully", resp.Message)
	var comment schemas.Comment
	require.NoError(t, json.Unmarshal(resp.Comment, &comment))
	assert.Equal(t, schemas.UserId("bob"), comment.Author)
	assert.Equal(t, "nice!", comment.Comment)
	assert.NotEmpty(t, comment.ID)

	resp = s.do(http.MethodGet, BasePath+"/posts", bob, "")
	var all []schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &all))
	require.Len(t, all, 1)
	require.Len(t, all[0].Comments, 1)
	assert.Equal(t, schemas.UserId("bob"), all[0].Comments[0].Author)

	deletePath := postPath + "/comments/" + string(comment.ID) + "/delete"
	eve := &schemas.Identity{Username: "eve", Role: "student"}
	resp = s.do(http.MethodDelete, deletePath, eve, "")
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Unauthorized to delete this comment", resp.Message)

	resp = s.do(http.MethodDelete, postPath+"/comments/missing/delete", admin, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Comment not found", resp.Message)

	resp = s.do(http.MethodDelete, deletePath, admin, "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Comment deleted successfully", resp.Message)

	resp = s.do(http.MethodGet, postPath, bob, "")
	var got schemas.Post
	require.NoError(t, json.Unmarshal(resp.Post, &got))
	assert.Empty(t, got.Comments)
}

func TestAddComment_AuthorDefaultsToCaller(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())
	created := s.createPost(*alice, "Intro")

	resp := s.do(http.MethodPost, BasePath+"/posts/"+created.PostID.String()+"/addcomment", bob, `{"comment":"no user id"}`)
	require.Equal(t, http.StatusOK, resp.Status)
	var comment schemas.Comment
	require.NoError(t, json.Unmarshal(resp.Comment, &comment))
	assert.Equal(t, schemas.UserId("bob"), comment.Author)
}

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) GetAllPosts(context.Context) ([]*schemas.Post, error) {
	return nil, errors.New("connection reset by peer")
}

func (brokenStorage) FindPost(context.Context, schemas.PostId) (*schemas.Post, error) {
	panic("driver exploded")
}

func TestBackendFailuresBecomeInternalError(t *testing.T) {
	s := newTestServer(t, brokenStorage{Storage: inmemory.NewInMemoryStorage()})

	resp := s.do(http.MethodGet, BasePath+"/posts", bob, "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Internal Server Error", resp.Message)

	resp = s.do(http.MethodGet, BasePath+"/posts/some-id", bob, "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal Server Error", resp.Message)
}

func TestPing(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnmatchedRoutesAnswerWithEnvelope(t *testing.T) {
	s := newTestServer(t, inmemory.NewInMemoryStorage())

	resp := s.do(http.MethodGet, "/api/unknown", bob, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Not found", resp.Message)

	resp = s.do(http.MethodPatch, BasePath+"/posts", bob, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Method not allowed", resp.Message)
}
