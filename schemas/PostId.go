package schemas

import (
	"fmt"

	"github.com/google/uuid"
)

type PostId string
type CommentId string

func NewPostId() PostId {
	return PostId(uuid.NewString())
}

func NewCommentId() CommentId {
	return CommentId(uuid.NewString())
}

// IDFromRawString accepts any non-blank identifier. Ids are opaque: documents
// created elsewhere are not required to carry a uuid.
func IDFromRawString(s string) (PostId, error) {
	if s == "" {
		return "", fmt.Errorf("blank post id")
	}
	return PostId(s), nil
}

func (id PostId) String() string {
	return string(id)
}
