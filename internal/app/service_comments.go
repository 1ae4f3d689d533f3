package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/pasinduf/blog-platform/internal/moderation"
	"github.com/pasinduf/blog-platform/internal/store"
	"github.com/pasinduf/blog-platform/internal/util"
)

var allowedReactionTypes = map[string]struct{}{
	"LIKE":    {},
	"HEART":   {},
	"DISLIKE": {},
}

type CommentInput struct {
	BlogID   string `json:"blogId"`
	ParentID string `json:"parentId"`
	Content  string `json:"content"`
}

// AddComment posts a comment or a reply on a published blog. Replies
// nest exactly one level deep; a reply's parent must itself be
// top-level.
func (s *Service) AddComment(ctx context.Context, sess Session, input CommentInput) (map[string]any, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Comment cannot be empty", nil)
	}

	blog, err := s.store.GetBlog(ctx, input.BlogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if blog.Status != string(moderation.StatusPublished) {
		return nil, errBlogNotFound
	}

	comment := store.Comment{
		ID:      util.NewID("cmt"),
		BlogID:  blog.ID,
		UserID:  sess.UserID,
		Content: content,
	}

	if input.ParentID != "" {
		parent, err := s.store.GetComment(ctx, input.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
			}
			return nil, err
		}
		if parent.BlogID != blog.ID {
			return nil, domainError(http.StatusBadRequest, "VALIDATION", "Parent comment belongs to another blog", nil)
		}
		if parent.ParentID != nil {
			return nil, domainError(http.StatusBadRequest, "VALIDATION", "Replies cannot be nested", nil)
		}
		comment.ParentID = &parent.ID
	}

	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}

	return map[string]any{
		"comment": map[string]any{
			"id":       comment.ID,
			"blogId":   comment.BlogID,
			"parentId": input.ParentID,
			"content":  comment.Content,
		},
	}, nil
}

// EditComment replaces the comment body. Author only; deleted comments
// stay deleted.
func (s *Service) EditComment(ctx context.Context, sess Session, commentID, content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Comment cannot be empty", nil)
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
		}
		return nil, err
	}
	if comment.UserID != sess.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You can only edit your own comments", nil)
	}
	if comment.IsDeleted {
		return nil, domainError(http.StatusConflict, "INVALID_STATE", "Deleted comments cannot be edited", nil)
	}

	if err := s.store.UpdateCommentContent(ctx, commentID, content); err != nil {
		return nil, err
	}
	return map[string]any{
		"comment": map[string]any{"id": commentID, "content": content, "isEdited": true},
	}, nil
}

// DeleteComment soft-deletes to a tombstone so replies keep their
// anchor. Deleting an already deleted comment is a no-op.
func (s *Service) DeleteComment(ctx context.Context, sess Session, commentID string) (map[string]any, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
		}
		return nil, err
	}
	if comment.UserID != sess.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "You can only delete your own comments", nil)
	}

	if !comment.IsDeleted {
		if err := s.store.SoftDeleteComment(ctx, commentID); err != nil {
			return nil, err
		}
	}
	return map[string]any{"message": "Comment deleted"}, nil
}

// ToggleReaction keeps at most one reaction per user per comment.
// Repeating the same type removes it; a different type replaces it.
func (s *Service) ToggleReaction(ctx context.Context, sess Session, commentID, reactionType string) (map[string]any, error) {
	reactionType = strings.ToUpper(strings.TrimSpace(reactionType))
	if _, ok := allowedReactionTypes[reactionType]; !ok {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Unknown reaction type", nil)
	}

	if _, err := s.store.GetComment(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Comment not found", nil)
		}
		return nil, err
	}

	existing, err := s.store.GetReaction(ctx, sess.UserID, commentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.store.InsertReaction(ctx, store.Reaction{
			ID:        util.NewID("rct"),
			CommentID: commentID,
			UserID:    sess.UserID,
			Type:      reactionType,
		}); err != nil {
			return nil, err
		}
		return map[string]any{"reacted": true, "type": reactionType}, nil
	case err != nil:
		return nil, err
	case existing.Type == reactionType:
		if err := s.store.DeleteReaction(ctx, existing.ID); err != nil {
			return nil, err
		}
		return map[string]any{"reacted": false, "type": nil}, nil
	default:
		if err := s.store.UpdateReactionType(ctx, existing.ID, reactionType); err != nil {
			return nil, err
		}
		return map[string]any{"reacted": true, "type": reactionType}, nil
	}
}

// ToggleBookmark adds or removes the caller's bookmark on a blog.
func (s *Service) ToggleBookmark(ctx context.Context, sess Session, blogID string) (map[string]any, error) {
	blog, err := s.store.GetBlog(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if blog.Status != string(moderation.StatusPublished) {
		return nil, errBlogNotFound
	}

	existing, err := s.store.GetBookmark(ctx, sess.UserID, blogID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.store.InsertBookmark(ctx, store.Bookmark{
			ID:     util.NewID("bmk"),
			UserID: sess.UserID,
			BlogID: blogID,
		}); err != nil {
			return nil, err
		}
		return map[string]any{"bookmarked": true}, nil
	case err != nil:
		return nil, err
	default:
		if err := s.store.DeleteBookmark(ctx, existing.ID); err != nil {
			return nil, err
		}
		return map[string]any{"bookmarked": false}, nil
	}
}

// Bookmarks lists the caller's bookmarked blogs.
func (s *Service) Bookmarks(ctx context.Context, userID string) (map[string]any, error) {
	blogs, err := s.store.ListBookmarkedBlogs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"blogs": blogSummaries(blogs)}, nil
}
