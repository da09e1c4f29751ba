package plain

import (
	"postservice/schemas"
)

// Wire shapes of request bodies.

type PostContentData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	LectureURL  string `json:"lectureURL"`
}

func (d PostContentData) ToContent() schemas.PostContent {
	return schemas.PostContent{
		Title:       d.Title,
		Description: d.Description,
		Image:       d.Image,
		LectureURL:  d.LectureURL,
	}
}

type AddCommentData struct {
	UserID  string `json:"userId"`
	Comment string `json:"comment"`
}

// AuthorOr returns the author named in the body, or fallback when the body
// leaves it out.
func (d AddCommentData) AuthorOr(fallback schemas.UserId) schemas.UserId {
	if d.UserID == "" {
		return fallback
	}
	return schemas.UserId(d.UserID)
}
