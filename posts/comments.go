package posts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"postservice/schemas"
)

// AddComment appends a comment by author. There is no role restriction.
// The sequence is read, extended and written back as a whole.
func (m *Manager) AddComment(ctx context.Context, postId schemas.PostId, author schemas.UserId, text string) (*schemas.Comment, error) {
	post, err := m.storage.GetPost(ctx, postId)
	if err != nil {
		return nil, translate(err, "load post %s", postId)
	}

	newComment := schemas.Comment{
		ID:        schemas.NewCommentId(),
		CreatedAt: m.now(),
		Author:    author,
		Comment:   text,
	}
	comments := append(schemas.CopyComments(post.Comments), newComment)

	if _, err := m.storage.SetComments(ctx, postId, comments, m.expected(post.Version)); err != nil {
		return nil, translate(err, "add comment to post %s", postId)
	}
	return &newComment, nil
}

// DeleteComment removes the first comment with commentId. Admins, the
// comment's author and the post's owner may do it.
func (m *Manager) DeleteComment(ctx context.Context, postId schemas.PostId, commentId schemas.CommentId, identity schemas.Identity) error {
	post, err := m.storage.GetPost(ctx, postId)
	if err != nil {
		return translate(err, "load post %s", postId)
	}

	position := post.FindComment(commentId)
	if position == -1 {
		return fmt.Errorf("comment %s on post %s: %w", commentId, postId, ErrCommentNotFound)
	}

	comment := post.Comments[position]
	if !identity.IsAdmin() && identity.Username != comment.Author && identity.Username != post.PostedBy {
		return fmt.Errorf("%w: %s cannot delete comment %s", ErrForbidden, identity.Username, commentId)
	}

	remaining := make([]schemas.Comment, 0, len(post.Comments)-1)
	remaining = append(remaining, post.Comments[:position]...)
	remaining = append(remaining, post.Comments[position+1:]...)

	if _, err := m.storage.SetComments(ctx, postId, remaining, m.expected(post.Version)); err != nil {
		return translate(err, "delete comment %s", commentId)
	}

	log.Info().Str("postId", postId.String()).Str("commentId", string(commentId)).Msg("Comment deleted")
	return nil
}
