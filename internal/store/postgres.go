package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, status, bio, profile_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Role, user.Status, user.Bio, user.ProfileImage)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, first_name, last_name, email, password_hash, role, status, bio, profile_image, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
		&user.Role, &user.Status, &user.Bio, &user.ProfileImage, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ResetUserPassword applies a reset in one transaction: the new hash is
// written and every outstanding reset token for the user is consumed.
func (s *PostgresStore) ResetUserPassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update password: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id=$1`, userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("consume reset tokens: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID, firstName, lastName, bio, profileImage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET first_name=$2, last_name=$3, bio=$4, profile_image=$5, updated_at=NOW()
		WHERE id=$1
	`, userID, firstName, lastName, bio, profileImage)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserStatus(ctx context.Context, userID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET status=$2, updated_at=NOW() WHERE id=$1`, userID, status)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1`, userID, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role='ADMIN'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// ListUsers pages through users by offset, optionally filtering by a
// case-insensitive name/email match, and returns the total match count.
func (s *PostgresStore) ListUsers(ctx context.Context, offset, limit int, query string) ([]User, int, error) {
	pattern := "%" + query + "%"
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE $1='' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
	`, query, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE $1='' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`, query, pattern, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
			&user.Role, &user.Status, &user.Bio, &user.ProfileImage, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return items, total, nil
}

// ---- password reset tokens ----

func (s *PostgresStore) CreatePasswordResetToken(ctx context.Context, token PasswordResetToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID, token.UserID, token.Token, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordResetToken(ctx context.Context, token string) (PasswordResetToken, error) {
	var item PasswordResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM password_reset_tokens WHERE token=$1
	`, token).Scan(&item.ID, &item.UserID, &item.Token, &item.ExpiresAt, &item.CreatedAt)
	if err != nil {
		return PasswordResetToken{}, err
	}
	return item, nil
}

// ---- blogs ----

func (s *PostgresStore) InsertBlog(ctx context.Context, blog Blog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blogs (id, author_id, title, content, cover_image, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, blog.ID, blog.AuthorID, blog.Title, blog.Content, blog.CoverImage, blog.Status)
	if err != nil {
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBlogDraft(ctx context.Context, blogID, title, content, coverImage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE blogs SET title=$2, content=$3, cover_image=$4, updated_at=NOW()
		WHERE id=$1
	`, blogID, title, content, coverImage)
	if err != nil {
		return fmt.Errorf("update blog draft: %w", err)
	}
	return nil
}

const blogColumns = `b.id, b.author_id, b.title, b.content, b.cover_image, b.status, b.views,
	b.clarity_score, b.analysis_attempts, b.writer_analysis, b.admin_summary, b.created_at, b.updated_at`

func scanBlogFields(blog *Blog, analysisRaw, summaryRaw *[]byte) []any {
	return []any{&blog.ID, &blog.AuthorID, &blog.Title, &blog.Content, &blog.CoverImage, &blog.Status,
		&blog.Views, &blog.ClarityScore, &blog.AnalysisAttempts, analysisRaw, summaryRaw,
		&blog.CreatedAt, &blog.UpdatedAt}
}

func decodePayloads(blog *Blog, analysisRaw, summaryRaw []byte) error {
	if len(analysisRaw) > 0 {
		var analysis WriterAnalysis
		if err := json.Unmarshal(analysisRaw, &analysis); err != nil {
			return fmt.Errorf("decode writer analysis: %w", err)
		}
		blog.WriterAnalysis = &analysis
	}
	if len(summaryRaw) > 0 {
		var summary AdminSummary
		if err := json.Unmarshal(summaryRaw, &summary); err != nil {
			return fmt.Errorf("decode admin summary: %w", err)
		}
		blog.AdminSummary = &summary
	}
	return nil
}

func (s *PostgresStore) GetBlog(ctx context.Context, blogID string) (Blog, error) {
	var blog Blog
	var analysisRaw, summaryRaw []byte
	err := s.db.QueryRowContext(ctx, `SELECT `+blogColumns+` FROM blogs b WHERE b.id=$1`, blogID).
		Scan(scanBlogFields(&blog, &analysisRaw, &summaryRaw)...)
	if err != nil {
		return Blog{}, err
	}
	if err := decodePayloads(&blog, analysisRaw, summaryRaw); err != nil {
		return Blog{}, err
	}
	return blog, nil
}

const blogAuthorColumns = blogColumns + `, u.first_name, u.last_name, u.profile_image,
	(SELECT COUNT(*) FROM comments c WHERE c.blog_id = b.id) AS comment_count`

func scanBlogWithAuthor(rows *sql.Rows) (BlogWithAuthor, error) {
	var item BlogWithAuthor
	var analysisRaw, summaryRaw []byte
	fields := scanBlogFields(&item.Blog, &analysisRaw, &summaryRaw)
	fields = append(fields, &item.AuthorFirstName, &item.AuthorLastName, &item.AuthorImage, &item.CommentCount)
	if err := rows.Scan(fields...); err != nil {
		return BlogWithAuthor{}, err
	}
	if err := decodePayloads(&item.Blog, analysisRaw, summaryRaw); err != nil {
		return BlogWithAuthor{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetBlogWithAuthor(ctx context.Context, blogID string) (BlogWithAuthor, error) {
	var item BlogWithAuthor
	var analysisRaw, summaryRaw []byte
	fields := scanBlogFields(&item.Blog, &analysisRaw, &summaryRaw)
	fields = append(fields, &item.AuthorFirstName, &item.AuthorLastName, &item.AuthorImage, &item.CommentCount)
	err := s.db.QueryRowContext(ctx, `
		SELECT `+blogAuthorColumns+`
		FROM blogs b JOIN users u ON u.id = b.author_id
		WHERE b.id=$1
	`, blogID).Scan(fields...)
	if err != nil {
		return BlogWithAuthor{}, err
	}
	if err := decodePayloads(&item.Blog, analysisRaw, summaryRaw); err != nil {
		return BlogWithAuthor{}, err
	}
	return item, nil
}

func (s *PostgresStore) collectBlogsWithAuthor(rows *sql.Rows) ([]BlogWithAuthor, error) {
	defer rows.Close()
	items := make([]BlogWithAuthor, 0)
	for rows.Next() {
		item, err := scanBlogWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blogs: %w", err)
	}
	return items, nil
}

// ListPublishedBlogs returns published blogs newest first. A non-empty
// cursor is the id of the last blog of the previous page; rows strictly
// older than it are returned. Callers pass limit+1 to peek for more.
func (s *PostgresStore) ListPublishedBlogs(ctx context.Context, cursorID string, limit int) ([]BlogWithAuthor, error) {
	var rows *sql.Rows
	var err error
	if cursorID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+blogAuthorColumns+`
			FROM blogs b JOIN users u ON u.id = b.author_id
			WHERE b.status='PUBLISHED'
			ORDER BY b.created_at DESC, b.id DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+blogAuthorColumns+`
			FROM blogs b JOIN users u ON u.id = b.author_id
			WHERE b.status='PUBLISHED'
				AND (b.created_at, b.id) < (SELECT created_at, id FROM blogs WHERE id=$1)
			ORDER BY b.created_at DESC, b.id DESC
			LIMIT $2
		`, cursorID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list published blogs: %w", err)
	}
	return s.collectBlogsWithAuthor(rows)
}

func (s *PostgresStore) ListBlogsByAuthor(ctx context.Context, authorID, status, query string) ([]BlogWithAuthor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+blogAuthorColumns+`
		FROM blogs b JOIN users u ON u.id = b.author_id
		WHERE b.author_id=$1
			AND ($2='' OR b.status=$2)
			AND ($3='' OR b.title ILIKE '%' || $3 || '%')
		ORDER BY b.updated_at DESC
	`, authorID, status, query)
	if err != nil {
		return nil, fmt.Errorf("list author blogs: %w", err)
	}
	return s.collectBlogsWithAuthor(rows)
}

func (s *PostgresStore) ListSubmittedBlogs(ctx context.Context, query string) ([]BlogWithAuthor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+blogAuthorColumns+`
		FROM blogs b JOIN users u ON u.id = b.author_id
		WHERE b.status='SUBMITTED'
			AND ($1='' OR b.title ILIKE '%' || $1 || '%')
		ORDER BY b.updated_at ASC
	`, query)
	if err != nil {
		return nil, fmt.Errorf("list submitted blogs: %w", err)
	}
	return s.collectBlogsWithAuthor(rows)
}

func (s *PostgresStore) SetBlogStatus(ctx context.Context, blogID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE blogs SET status=$2, updated_at=NOW() WHERE id=$1`, blogID, status)
	if err != nil {
		return fmt.Errorf("set blog status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementAnalysisAttempts bumps the per-blog analysis counter and
// returns the new value.
func (s *PostgresStore) IncrementAnalysisAttempts(ctx context.Context, blogID string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE blogs SET analysis_attempts = analysis_attempts + 1, updated_at=NOW()
		WHERE id=$1
		RETURNING analysis_attempts
	`, blogID).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment analysis attempts: %w", err)
	}
	return attempts, nil
}

// SubmitBlog moves a blog to SUBMITTED, storing the writer analysis
// when one was produced (nil clears nothing and stores NULL).
func (s *PostgresStore) SubmitBlog(ctx context.Context, blogID string, analysis *WriterAnalysis) error {
	var raw any
	if analysis != nil {
		encoded, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("encode writer analysis: %w", err)
		}
		raw = encoded
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE blogs SET status='SUBMITTED', writer_analysis=$2, updated_at=NOW()
		WHERE id=$1
	`, blogID, raw)
	if err != nil {
		return fmt.Errorf("submit blog: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAdminSummary(ctx context.Context, blogID string, summary AdminSummary) error {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode admin summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE blogs SET admin_summary=$2, updated_at=NOW()
		WHERE id=$1
	`, blogID, encoded)
	if err != nil {
		return fmt.Errorf("set admin summary: %w", err)
	}
	return nil
}

// PublishBlog records the clarity score alongside the status change.
// The score is written once at publish time and never cleared after.
func (s *PostgresStore) PublishBlog(ctx context.Context, blogID string, clarityScore int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE blogs SET status='PUBLISHED', clarity_score=$2, updated_at=NOW()
		WHERE id=$1
	`, blogID, clarityScore)
	if err != nil {
		return fmt.Errorf("publish blog: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementBlogViews(ctx context.Context, blogID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE blogs SET views = views + 1 WHERE id=$1`, blogID)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (s *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.profile_image,
			COUNT(b.id) AS published,
			COALESCE(SUM(b.clarity_score), 0) AS total,
			COALESCE(AVG(b.clarity_score), 0) AS average
		FROM users u
		JOIN blogs b ON b.author_id = u.id AND b.status='PUBLISHED'
		GROUP BY u.id, u.first_name, u.last_name, u.profile_image
		ORDER BY total DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	items := make([]LeaderboardRow, 0)
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.FirstName, &row.LastName, &row.ProfileImage,
			&row.PublishedCount, &row.TotalScore, &row.AverageScore); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return items, nil
}

// ---- comments ----

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, blog_id, user_id, parent_id, content)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.BlogID, comment.UserID, comment.ParentID, comment.Content)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, blog_id, user_id, parent_id, content, is_edited, is_deleted, created_at, updated_at
		FROM comments WHERE id=$1
	`, commentID).Scan(&comment.ID, &comment.BlogID, &comment.UserID, &comment.ParentID,
		&comment.Content, &comment.IsEdited, &comment.IsDeleted, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) UpdateCommentContent(ctx context.Context, commentID, content string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content=$2, is_edited=TRUE, updated_at=NOW()
		WHERE id=$1
	`, commentID, content)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// SoftDeleteComment overwrites the stored content with the tombstone
// text so the original never survives in the row.
func (s *PostgresStore) SoftDeleteComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content=$2, is_deleted=TRUE, updated_at=NOW()
		WHERE id=$1
	`, commentID, DeletedCommentContent)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCommentsForBlog(ctx context.Context, blogID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.blog_id, c.user_id, c.parent_id, c.content, c.is_edited, c.is_deleted,
			c.created_at, c.updated_at, u.first_name, u.last_name, u.profile_image
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.blog_id=$1
		ORDER BY c.created_at ASC
	`, blogID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(&comment.ID, &comment.BlogID, &comment.UserID, &comment.ParentID,
			&comment.Content, &comment.IsEdited, &comment.IsDeleted, &comment.CreatedAt, &comment.UpdatedAt,
			&comment.AuthorFirstName, &comment.AuthorLastName, &comment.AuthorImage); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// ---- reactions ----

func (s *PostgresStore) GetReaction(ctx context.Context, userID, commentID string) (Reaction, error) {
	var reaction Reaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, comment_id, user_id, type, created_at
		FROM reactions WHERE user_id=$1 AND comment_id=$2
	`, userID, commentID).Scan(&reaction.ID, &reaction.CommentID, &reaction.UserID, &reaction.Type, &reaction.CreatedAt)
	if err != nil {
		return Reaction{}, err
	}
	return reaction, nil
}

func (s *PostgresStore) InsertReaction(ctx context.Context, reaction Reaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reactions (id, comment_id, user_id, type)
		VALUES ($1, $2, $3, $4)
	`, reaction.ID, reaction.CommentID, reaction.UserID, reaction.Type)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateReactionType(ctx context.Context, reactionID, reactionType string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE reactions SET type=$2 WHERE id=$1`, reactionID, reactionType)
	if err != nil {
		return fmt.Errorf("update reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reactionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reactions WHERE id=$1`, reactionID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReactionCounts(ctx context.Context, blogID string) ([]ReactionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.comment_id, r.type, COUNT(*)
		FROM reactions r JOIN comments c ON c.id = r.comment_id
		WHERE c.blog_id=$1
		GROUP BY r.comment_id, r.type
	`, blogID)
	if err != nil {
		return nil, fmt.Errorf("list reaction counts: %w", err)
	}
	defer rows.Close()

	items := make([]ReactionCount, 0)
	for rows.Next() {
		var count ReactionCount
		if err := rows.Scan(&count.CommentID, &count.Type, &count.Count); err != nil {
			return nil, fmt.Errorf("scan reaction count: %w", err)
		}
		items = append(items, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction counts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListUserReactions(ctx context.Context, userID, blogID string) ([]Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.comment_id, r.user_id, r.type, r.created_at
		FROM reactions r JOIN comments c ON c.id = r.comment_id
		WHERE r.user_id=$1 AND c.blog_id=$2
	`, userID, blogID)
	if err != nil {
		return nil, fmt.Errorf("list user reactions: %w", err)
	}
	defer rows.Close()

	items := make([]Reaction, 0)
	for rows.Next() {
		var reaction Reaction
		if err := rows.Scan(&reaction.ID, &reaction.CommentID, &reaction.UserID, &reaction.Type, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		items = append(items, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user reactions: %w", err)
	}
	return items, nil
}

// ---- bookmarks ----

func (s *PostgresStore) GetBookmark(ctx context.Context, userID, blogID string) (Bookmark, error) {
	var bookmark Bookmark
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, blog_id, created_at
		FROM bookmarks WHERE user_id=$1 AND blog_id=$2
	`, userID, blogID).Scan(&bookmark.ID, &bookmark.UserID, &bookmark.BlogID, &bookmark.CreatedAt)
	if err != nil {
		return Bookmark{}, err
	}
	return bookmark, nil
}

func (s *PostgresStore) InsertBookmark(ctx context.Context, bookmark Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, user_id, blog_id)
		VALUES ($1, $2, $3)
	`, bookmark.ID, bookmark.UserID, bookmark.BlogID)
	if err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id=$1`, bookmarkID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBookmarkedBlogs(ctx context.Context, userID string) ([]BlogWithAuthor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+blogAuthorColumns+`
		FROM bookmarks bm
		JOIN blogs b ON b.id = bm.blog_id
		JOIN users u ON u.id = b.author_id
		WHERE bm.user_id=$1 AND b.status='PUBLISHED'
		ORDER BY bm.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return s.collectBlogsWithAuthor(rows)
}

// ---- admin comments ----

func (s *PostgresStore) InsertAdminComment(ctx context.Context, comment AdminComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_comments (id, blog_id, admin_id, content)
		VALUES ($1, $2, $3, $4)
	`, comment.ID, comment.BlogID, comment.AdminID, comment.Content)
	if err != nil {
		return fmt.Errorf("insert admin comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAdminCommentsForBlog(ctx context.Context, blogID string) ([]AdminComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ac.id, ac.blog_id, ac.admin_id, ac.content, ac.created_at, u.first_name, u.last_name
		FROM admin_comments ac JOIN users u ON u.id = ac.admin_id
		WHERE ac.blog_id=$1
		ORDER BY ac.created_at DESC
	`, blogID)
	if err != nil {
		return nil, fmt.Errorf("list admin comments: %w", err)
	}
	defer rows.Close()

	items := make([]AdminComment, 0)
	for rows.Next() {
		var comment AdminComment
		if err := rows.Scan(&comment.ID, &comment.BlogID, &comment.AdminID, &comment.Content,
			&comment.CreatedAt, &comment.AdminFirstName, &comment.AdminLastName); err != nil {
			return nil, fmt.Errorf("scan admin comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin comments: %w", err)
	}
	return items, nil
}

// ---- settings ----

func (s *PostgresStore) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.description, s.value, s.updated_by, s.updated_at,
			COALESCE(u.first_name || ' ' || u.last_name, '')
		FROM settings s LEFT JOIN users u ON u.id = s.updated_by
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	items := make([]Setting, 0)
	for rows.Next() {
		var setting Setting
		if err := rows.Scan(&setting.ID, &setting.Name, &setting.Description, &setting.Value,
			&setting.UpdatedBy, &setting.UpdatedAt, &setting.UpdatedByName); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		items = append(items, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSettingByName(ctx context.Context, name string) (Setting, error) {
	var setting Setting
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, value, updated_by, updated_at FROM settings WHERE name=$1
	`, name).Scan(&setting.ID, &setting.Name, &setting.Description, &setting.Value,
		&setting.UpdatedBy, &setting.UpdatedAt)
	if err != nil {
		return Setting{}, err
	}
	return setting, nil
}

func (s *PostgresStore) UpdateSetting(ctx context.Context, settingID, value, updatedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE settings SET value=$2, updated_by=$3, updated_at=NOW() WHERE id=$1
	`, settingID, value, updatedBy)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
