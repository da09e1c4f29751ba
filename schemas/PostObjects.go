package schemas

import (
	"time"
)

type UserId string

// Post is stored as a single document. ID and PostID always hold the same
// value: the first is the document key, the second the queryable field.
type Post struct {
	ID          PostId    `bson:"_id" json:"-"`
	PostID      PostId    `bson:"postId" json:"postId"`
	Version     int       `bson:"version" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	PostedBy    UserId    `bson:"postedBy" json:"postedBy"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Image       string    `bson:"image" json:"image"`
	LectureURL  string    `bson:"lectureURL" json:"lectureURL"`
	Comments    []Comment `bson:"comments" json:"comments"`
}

type Comment struct {
	ID        CommentId `bson:"id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	Author    UserId    `bson:"author" json:"author"`
	Comment   string    `bson:"comment" json:"comment"`
}

// PostContent is the mutable part of a post, replaced as a whole on update.
type PostContent struct {
	Title       string
	Description string
	Image       string
	LectureURL  string
}

func (p *Post) Content() PostContent {
	return PostContent{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		LectureURL:  p.LectureURL,
	}
}

func (p *Post) ApplyContent(c PostContent) {
	p.Title = c.Title
	p.Description = c.Description
	p.Image = c.Image
	p.LectureURL = c.LectureURL
}

func (p Post) GetVersion() int {
	return p.Version
}

// Copy returns a post that shares no comment storage with p.
func (p Post) Copy() *Post {
	p.Comments = CopyComments(p.Comments)
	return &p
}

func CopyComments(comments []Comment) []Comment {
	cp := make([]Comment, len(comments))
	copy(cp, comments)
	return cp
}

// FindComment scans in sequence order and returns the position of the first
// comment with the given id, or -1.
func (p *Post) FindComment(id CommentId) int {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// Now is the timestamp source for documents: UTC, truncated to what the
// store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
