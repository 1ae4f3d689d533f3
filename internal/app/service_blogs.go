package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pasinduf/blog-platform/internal/export"
	"github.com/pasinduf/blog-platform/internal/moderation"
	"github.com/pasinduf/blog-platform/internal/rbac"
	"github.com/pasinduf/blog-platform/internal/search"
	"github.com/pasinduf/blog-platform/internal/store"
	"github.com/pasinduf/blog-platform/internal/util"
)

const (
	defaultFeedLimit = 10
	maxFeedLimit     = 50
	excerptLength    = 150
	leaderboardSize  = 10
)

var errBlogNotFound = domainError(http.StatusNotFound, "NOT_FOUND", "Blog not found", nil)

func (s *Service) actor(sess Session) moderation.Actor {
	return moderation.Actor{ID: sess.UserID, Role: rbac.Normalize(sess.Role)}
}

func blogState(blog store.Blog) moderation.BlogState {
	return moderation.BlogState{ID: blog.ID, AuthorID: blog.AuthorID, Status: moderation.Status(blog.Status)}
}

// Feed returns published blogs newest first with a peek-ahead cursor.
// Queries of three or more characters switch to title search instead.
func (s *Service) Feed(ctx context.Context, cursor string, limit int, query string) (map[string]any, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	query = strings.TrimSpace(query)
	if len(query) >= search.MinQueryLength {
		response := s.search.Search(search.Query{Text: query, Limit: limit})
		results := make([]map[string]any, 0, len(response.Results))
		for _, hit := range response.Results {
			results = append(results, map[string]any{
				"id":      hit.ID,
				"title":   hit.Title,
				"excerpt": hit.Excerpt,
				"author":  map[string]any{"name": hit.AuthorName},
			})
		}
		return map[string]any{
			"blogs":      results,
			"total":      response.Total,
			"query":      response.Query,
			"nextCursor": nil,
		}, nil
	}

	blogs, err := s.store.ListPublishedBlogs(ctx, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	var nextCursor any
	if len(blogs) > limit {
		blogs = blogs[:limit]
		nextCursor = blogs[len(blogs)-1].ID
	}

	return map[string]any{
		"blogs":      blogSummaries(blogs),
		"nextCursor": nextCursor,
	}, nil
}

// GetArticle assembles the full article view. Unpublished blogs are
// only visible to their author and to admins; everyone else sees a 404.
func (s *Service) GetArticle(ctx context.Context, blogID string, viewer Session) (map[string]any, error) {
	blog, err := s.store.GetBlogWithAuthor(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}

	isAuthor := viewer.UserID != "" && viewer.UserID == blog.AuthorID
	isAdmin := s.Can(viewer.Role, rbac.ActionReviewBlog)
	if blog.Status != string(moderation.StatusPublished) && !isAuthor && !isAdmin {
		return nil, errBlogNotFound
	}

	var (
		comments      []store.Comment
		counts        []store.ReactionCount
		ownReactions  []store.Reaction
		adminComments []store.AdminComment
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		comments, err = s.store.ListCommentsForBlog(groupCtx, blogID)
		return err
	})
	group.Go(func() error {
		var err error
		counts, err = s.store.ListReactionCounts(groupCtx, blogID)
		return err
	})
	if viewer.UserID != "" {
		group.Go(func() error {
			var err error
			ownReactions, err = s.store.ListUserReactions(groupCtx, viewer.UserID, blogID)
			return err
		})
	}
	if isAuthor || isAdmin {
		group.Go(func() error {
			var err error
			adminComments, err = s.store.ListAdminCommentsForBlog(groupCtx, blogID)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"blog":           articlePayload(blog, isAuthor || isAdmin),
		"comments":       commentTree(comments),
		"reactionCounts": reactionCountPayload(counts),
		"userReactions":  userReactionPayload(ownReactions),
	}
	if isAuthor || isAdmin {
		payload["adminComments"] = adminCommentPayload(adminComments)
	}
	return payload, nil
}

// RecordView bumps the view counter. Per-viewer deduplication happens
// at the HTTP layer with a cookie.
func (s *Service) RecordView(ctx context.Context, blogID string) error {
	return s.store.IncrementBlogViews(ctx, blogID)
}

type DraftInput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CoverImage string `json:"coverImage"`
}

// SaveDraft creates or updates a draft. A blank title on a new draft
// becomes "Untitled Draft".
func (s *Service) SaveDraft(ctx context.Context, sess Session, input DraftInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)

	if input.ID == "" {
		if title == "" {
			title = "Untitled Draft"
		}
		blog := store.Blog{
			ID:         util.NewID("blg"),
			AuthorID:   sess.UserID,
			Title:      title,
			Content:    input.Content,
			CoverImage: input.CoverImage,
			Status:     string(moderation.StatusDraft),
		}
		if err := s.store.InsertBlog(ctx, blog); err != nil {
			return nil, err
		}
		return map[string]any{"blog": map[string]any{"id": blog.ID, "title": blog.Title, "status": blog.Status}}, nil
	}

	blog, err := s.store.GetBlog(ctx, input.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if decision := moderation.Decide(s.actor(sess), blogState(blog), moderation.ActionSaveDraft); !decision.Allowed {
		return nil, moderationError(decision)
	}
	if title == "" {
		title = blog.Title
	}
	if err := s.store.UpdateBlogDraft(ctx, blog.ID, title, input.Content, input.CoverImage); err != nil {
		return nil, err
	}
	return map[string]any{"blog": map[string]any{"id": blog.ID, "title": title, "status": blog.Status}}, nil
}

// SubmitForReview saves the draft and transitions it to SUBMITTED,
// running writer analysis while the per-blog attempt budget lasts.
// Analysis failure surfaces an error but the draft write stays.
func (s *Service) SubmitForReview(ctx context.Context, sess Session, input DraftInput) (map[string]any, error) {
	blogID := input.ID
	title := strings.TrimSpace(input.Title)
	content := input.Content

	if blogID == "" {
		if title == "" {
			return nil, domainError(http.StatusBadRequest, "VALIDATION", "Title is required", nil)
		}
		blog := store.Blog{
			ID:         util.NewID("blg"),
			AuthorID:   sess.UserID,
			Title:      title,
			Content:    content,
			CoverImage: input.CoverImage,
			Status:     string(moderation.StatusDraft),
		}
		if err := s.store.InsertBlog(ctx, blog); err != nil {
			return nil, err
		}
		blogID = blog.ID
	} else {
		blog, err := s.store.GetBlog(ctx, blogID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errBlogNotFound
			}
			return nil, err
		}
		if decision := moderation.Decide(s.actor(sess), blogState(blog), moderation.ActionSubmit); !decision.Allowed {
			return nil, moderationError(decision)
		}
		if title == "" {
			title = blog.Title
		}
		if content == "" {
			content = blog.Content
		}
		if input.CoverImage == "" {
			input.CoverImage = blog.CoverImage
		}
		if err := s.store.UpdateBlogDraft(ctx, blogID, title, content, input.CoverImage); err != nil {
			return nil, err
		}
	}

	attempts, err := s.store.IncrementAnalysisAttempts(ctx, blogID)
	if err != nil {
		return nil, err
	}

	var analysis *store.WriterAnalysis
	if attempts <= moderation.MaxAnalysisAttempts {
		analysis, err = s.advisor.PerformWriterAnalysis(ctx, title, content)
		if err != nil {
			return nil, domainError(http.StatusBadGateway, "ADVISOR_FAILED", "Failed to submit for review", nil)
		}
	}

	if err := s.store.SubmitBlog(ctx, blogID, analysis); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"blog": map[string]any{"id": blogID, "title": title, "status": string(moderation.StatusSubmitted)},
	}
	if analysis != nil {
		payload["analysis"] = analysis
	}
	return payload, nil
}

// Publish moves a submitted blog live. The clarity score is generated
// once at publish time and never changed afterwards.
func (s *Service) Publish(ctx context.Context, sess Session, blogID string) (map[string]any, error) {
	blog, err := s.store.GetBlog(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if decision := moderation.Decide(s.actor(sess), blogState(blog), moderation.ActionPublish); !decision.Allowed {
		return nil, moderationError(decision)
	}

	score, err := s.advisor.GenerateClarityScore(ctx, blog.Title, blog.Content)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "ADVISOR_FAILED", "Failed to publish post", nil)
	}
	if err := s.store.PublishBlog(ctx, blogID, score); err != nil {
		return nil, err
	}

	if published, err := s.store.GetBlogWithAuthor(ctx, blogID); err == nil {
		s.search.IndexBlog(search.BlogRecord{
			ID:         published.ID,
			Title:      published.Title,
			AuthorName: strings.TrimSpace(published.AuthorFirstName + " " + published.AuthorLastName),
			Excerpt:    util.Excerpt(published.Content, excerptLength),
		})
	}

	return map[string]any{
		"blog": map[string]any{"id": blogID, "status": string(moderation.StatusPublished), "clarityScore": score},
	}, nil
}

// RequestRevision sends a submitted blog back to draft with a required
// feedback comment for the author.
func (s *Service) RequestRevision(ctx context.Context, sess Session, blogID, comment string) (map[string]any, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Feedback comment is required", nil)
	}

	blog, err := s.store.GetBlog(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if decision := moderation.Decide(s.actor(sess), blogState(blog), moderation.ActionRequestRevision); !decision.Allowed {
		return nil, moderationError(decision)
	}

	if err := s.store.InsertAdminComment(ctx, store.AdminComment{
		ID:      util.NewID("adc"),
		BlogID:  blogID,
		AdminID: sess.UserID,
		Content: comment,
	}); err != nil {
		return nil, err
	}
	if err := s.store.SetBlogStatus(ctx, blogID, string(moderation.StatusDraft)); err != nil {
		return nil, err
	}

	return map[string]any{
		"blog": map[string]any{"id": blogID, "status": string(moderation.StatusDraft)},
	}, nil
}

// GenerateSummary produces the reviewer-facing summary for a submitted
// blog. The blog stays SUBMITTED.
func (s *Service) GenerateSummary(ctx context.Context, sess Session, blogID string) (map[string]any, error) {
	blog, err := s.store.GetBlog(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if decision := moderation.Decide(s.actor(sess), blogState(blog), moderation.ActionGenerateSummary); !decision.Allowed {
		return nil, moderationError(decision)
	}

	summary, err := s.advisor.GenerateAdminSummary(ctx, blog.Title, blog.Content)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "ADVISOR_FAILED", "Failed to generate summary", nil)
	}
	if err := s.store.SetAdminSummary(ctx, blogID, *summary); err != nil {
		return nil, err
	}

	return map[string]any{"summary": summary}, nil
}

// WriterBlogs lists the caller's own blogs with optional status filter
// and title search.
func (s *Service) WriterBlogs(ctx context.Context, userID, status, query string) (map[string]any, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", string(moderation.StatusDraft), string(moderation.StatusSubmitted), string(moderation.StatusPublished):
	default:
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Unknown status filter", nil)
	}

	blogs, err := s.store.ListBlogsByAuthor(ctx, userID, status, searchTerm(query))
	if err != nil {
		return nil, err
	}
	return map[string]any{"blogs": blogSummaries(blogs)}, nil
}

// ReviewQueue lists blogs waiting for an admin decision.
func (s *Service) ReviewQueue(ctx context.Context, query string) (map[string]any, error) {
	blogs, err := s.store.ListSubmittedBlogs(ctx, searchTerm(query))
	if err != nil {
		return nil, err
	}
	return map[string]any{"blogs": blogSummaries(blogs)}, nil
}

// Leaderboard ranks authors with at least one published blog by total
// clarity score.
func (s *Service) Leaderboard(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	entries := make([]map[string]any, 0, len(rows))
	for rank, row := range rows {
		entries = append(entries, map[string]any{
			"rank":           rank + 1,
			"userId":         row.UserID,
			"name":           strings.TrimSpace(row.FirstName + " " + row.LastName),
			"profileImage":   row.ProfileImage,
			"publishedCount": row.PublishedCount,
			"totalScore":     row.TotalScore,
			"averageScore":   row.AverageScore,
		})
	}
	return map[string]any{"leaderboard": entries}, nil
}

// ExportArticle renders a published blog as PDF or DOCX.
func (s *Service) ExportArticle(ctx context.Context, blogID, format string, includeComments bool) (*export.Result, error) {
	var exportFormat export.Format
	switch format {
	case "pdf":
		exportFormat = export.FormatPDF
	case "docx":
		exportFormat = export.FormatDOCX
	default:
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Unsupported export format", nil)
	}

	blog, err := s.store.GetBlogWithAuthor(ctx, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBlogNotFound
		}
		return nil, err
	}
	if blog.Status != string(moderation.StatusPublished) {
		return nil, errBlogNotFound
	}

	article := export.Article{
		ID:          blog.ID,
		Title:       blog.Title,
		AuthorName:  strings.TrimSpace(blog.AuthorFirstName + " " + blog.AuthorLastName),
		CoverImage:  blog.CoverImage,
		ContentHTML: blog.Content,
		PublishedAt: blog.UpdatedAt,
	}
	if includeComments {
		comments, err := s.store.ListCommentsForBlog(ctx, blogID)
		if err != nil {
			return nil, err
		}
		article.Comments = exportComments(comments)
	}

	result, err := s.exporter.Export(article, exportFormat, includeComments)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export renderer is not available", nil)
		}
		return nil, err
	}
	return result, nil
}

// searchTerm applies the minimum query length rule; shorter inputs
// disable filtering entirely.
func searchTerm(query string) string {
	query = strings.TrimSpace(query)
	if len(query) < search.MinQueryLength {
		return ""
	}
	return query
}

func blogSummaries(blogs []store.BlogWithAuthor) []map[string]any {
	summaries := make([]map[string]any, 0, len(blogs))
	for _, blog := range blogs {
		summaries = append(summaries, blogSummaryPayload(blog))
	}
	return summaries
}

func blogSummaryPayload(blog store.BlogWithAuthor) map[string]any {
	payload := map[string]any{
		"id":           blog.ID,
		"title":        blog.Title,
		"excerpt":      util.Excerpt(blog.Content, excerptLength),
		"coverImage":   blog.CoverImage,
		"status":       blog.Status,
		"views":        blog.Views,
		"commentCount": blog.CommentCount,
		"createdAt":    blog.CreatedAt,
		"author": map[string]any{
			"id":           blog.AuthorID,
			"name":         strings.TrimSpace(blog.AuthorFirstName + " " + blog.AuthorLastName),
			"profileImage": blog.AuthorImage,
		},
	}
	if blog.ClarityScore != nil {
		payload["clarityScore"] = *blog.ClarityScore
	}
	return payload
}

// articlePayload is the full blog body. The writer analysis and admin
// summary only go to the author and admins.
func articlePayload(blog store.BlogWithAuthor, includeReview bool) map[string]any {
	payload := blogSummaryPayload(blog)
	payload["content"] = blog.Content
	payload["updatedAt"] = blog.UpdatedAt
	if includeReview {
		payload["analysisAttempts"] = blog.AnalysisAttempts
		if blog.WriterAnalysis != nil {
			payload["writerAnalysis"] = blog.WriterAnalysis
		}
		if blog.AdminSummary != nil {
			payload["adminSummary"] = blog.AdminSummary
		}
	}
	return payload
}

// commentTree shapes the flat comment list into top-level comments
// newest first, each with its replies oldest first. Deleted comments
// keep their place; the store already replaced their content with the
// tombstone text.
func commentTree(comments []store.Comment) []map[string]any {
	replies := make(map[string][]map[string]any)
	var topLevel []map[string]any

	for _, comment := range comments {
		payload := commentPayload(comment)
		if comment.ParentID != nil {
			replies[*comment.ParentID] = append(replies[*comment.ParentID], payload)
			continue
		}
		topLevel = append(topLevel, payload)
	}

	tree := make([]map[string]any, 0, len(topLevel))
	for i := len(topLevel) - 1; i >= 0; i-- {
		payload := topLevel[i]
		id, _ := payload["id"].(string)
		children := replies[id]
		if children == nil {
			children = []map[string]any{}
		}
		payload["replies"] = children
		tree = append(tree, payload)
	}
	return tree
}

func commentPayload(comment store.Comment) map[string]any {
	return map[string]any{
		"id":        comment.ID,
		"content":   comment.Content,
		"isEdited":  comment.IsEdited,
		"isDeleted": comment.IsDeleted,
		"createdAt": comment.CreatedAt,
		"author": map[string]any{
			"id":           comment.UserID,
			"name":         strings.TrimSpace(comment.AuthorFirstName + " " + comment.AuthorLastName),
			"profileImage": comment.AuthorImage,
		},
	}
}

func reactionCountPayload(counts []store.ReactionCount) map[string]map[string]int {
	payload := make(map[string]map[string]int)
	for _, count := range counts {
		if payload[count.CommentID] == nil {
			payload[count.CommentID] = make(map[string]int)
		}
		payload[count.CommentID][count.Type] = count.Count
	}
	return payload
}

func userReactionPayload(reactions []store.Reaction) map[string]string {
	payload := make(map[string]string)
	for _, reaction := range reactions {
		payload[reaction.CommentID] = reaction.Type
	}
	return payload
}

func adminCommentPayload(comments []store.AdminComment) []map[string]any {
	payload := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, map[string]any{
			"id":        comment.ID,
			"content":   comment.Content,
			"createdAt": comment.CreatedAt,
			"admin": map[string]any{
				"id":   comment.AdminID,
				"name": strings.TrimSpace(comment.AdminFirstName + " " + comment.AdminLastName),
			},
		})
	}
	return payload
}

// exportComments mirrors commentTree for the document renderer,
// skipping deleted comments outright.
func exportComments(comments []store.Comment) []export.ArticleComment {
	replies := make(map[string][]export.ArticleComment)
	var topLevel []store.Comment

	for _, comment := range comments {
		if comment.IsDeleted {
			continue
		}
		if comment.ParentID != nil {
			replies[*comment.ParentID] = append(replies[*comment.ParentID], export.ArticleComment{
				AuthorName: strings.TrimSpace(comment.AuthorFirstName + " " + comment.AuthorLastName),
				Content:    comment.Content,
				CreatedAt:  comment.CreatedAt,
			})
			continue
		}
		topLevel = append(topLevel, comment)
	}

	result := make([]export.ArticleComment, 0, len(topLevel))
	for i := len(topLevel) - 1; i >= 0; i-- {
		comment := topLevel[i]
		result = append(result, export.ArticleComment{
			AuthorName: strings.TrimSpace(comment.AuthorFirstName + " " + comment.AuthorLastName),
			Content:    comment.Content,
			CreatedAt:  comment.CreatedAt,
			Replies:    replies[comment.ID],
		})
	}
	return result
}
