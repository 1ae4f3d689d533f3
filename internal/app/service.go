package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/pasinduf/blog-platform/internal/accounts"
	"github.com/pasinduf/blog-platform/internal/auth"
	"github.com/pasinduf/blog-platform/internal/config"
	"github.com/pasinduf/blog-platform/internal/export"
	"github.com/pasinduf/blog-platform/internal/rbac"
	"github.com/pasinduf/blog-platform/internal/search"
	"github.com/pasinduf/blog-platform/internal/session"
	"github.com/pasinduf/blog-platform/internal/store"
)

// Session is the authenticated caller attached to a request. A session
// is only valid while both the signed token and the registry entry
// exist, so logout revokes it server-side.
type Session struct {
	Token     string
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Role      string
	ExpiresAt time.Time
}

func (s Session) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type dataStore interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user store.User) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	ResetUserPassword(ctx context.Context, userID, passwordHash string) error
	UpdateUserProfile(ctx context.Context, userID, firstName, lastName, bio, profileImage string) error
	UpdateUserStatus(ctx context.Context, userID, status string) error
	UpdateUserRole(ctx context.Context, userID, role string) error
	CountAdmins(ctx context.Context) (int, error)
	ListUsers(ctx context.Context, offset, limit int, query string) ([]store.User, int, error)
	CreatePasswordResetToken(ctx context.Context, token store.PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, token string) (store.PasswordResetToken, error)

	InsertBlog(ctx context.Context, blog store.Blog) error
	UpdateBlogDraft(ctx context.Context, blogID, title, content, coverImage string) error
	GetBlog(ctx context.Context, blogID string) (store.Blog, error)
	GetBlogWithAuthor(ctx context.Context, blogID string) (store.BlogWithAuthor, error)
	ListPublishedBlogs(ctx context.Context, cursorID string, limit int) ([]store.BlogWithAuthor, error)
	ListBlogsByAuthor(ctx context.Context, authorID, status, query string) ([]store.BlogWithAuthor, error)
	ListSubmittedBlogs(ctx context.Context, query string) ([]store.BlogWithAuthor, error)
	SetBlogStatus(ctx context.Context, blogID, status string) error
	IncrementAnalysisAttempts(ctx context.Context, blogID string) (int, error)
	SubmitBlog(ctx context.Context, blogID string, analysis *store.WriterAnalysis) error
	SetAdminSummary(ctx context.Context, blogID string, summary store.AdminSummary) error
	PublishBlog(ctx context.Context, blogID string, clarityScore int) error
	IncrementBlogViews(ctx context.Context, blogID string) error
	Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardRow, error)

	InsertComment(ctx context.Context, comment store.Comment) error
	GetComment(ctx context.Context, commentID string) (store.Comment, error)
	UpdateCommentContent(ctx context.Context, commentID, content string) error
	SoftDeleteComment(ctx context.Context, commentID string) error
	ListCommentsForBlog(ctx context.Context, blogID string) ([]store.Comment, error)

	GetReaction(ctx context.Context, userID, commentID string) (store.Reaction, error)
	InsertReaction(ctx context.Context, reaction store.Reaction) error
	UpdateReactionType(ctx context.Context, reactionID, reactionType string) error
	DeleteReaction(ctx context.Context, reactionID string) error
	ListReactionCounts(ctx context.Context, blogID string) ([]store.ReactionCount, error)
	ListUserReactions(ctx context.Context, userID, blogID string) ([]store.Reaction, error)

	GetBookmark(ctx context.Context, userID, blogID string) (store.Bookmark, error)
	InsertBookmark(ctx context.Context, bookmark store.Bookmark) error
	DeleteBookmark(ctx context.Context, bookmarkID string) error
	ListBookmarkedBlogs(ctx context.Context, userID string) ([]store.BlogWithAuthor, error)

	InsertAdminComment(ctx context.Context, comment store.AdminComment) error
	ListAdminCommentsForBlog(ctx context.Context, blogID string) ([]store.AdminComment, error)

	ListSettings(ctx context.Context) ([]store.Setting, error)
	GetSettingByName(ctx context.Context, name string) (store.Setting, error)
	UpdateSetting(ctx context.Context, settingID, value, updatedBy string) error
}

type sessionRegistry interface {
	Save(ctx context.Context, tokenHash string, data session.Data, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Data, error)
	Revoke(ctx context.Context, tokenHash string) error
}

type blogAdvisor interface {
	PerformWriterAnalysis(ctx context.Context, title, blogContent string) (*store.WriterAnalysis, error)
	GenerateAdminSummary(ctx context.Context, title, blogContent string) (*store.AdminSummary, error)
	GenerateClarityScore(ctx context.Context, title, blogContent string) (int, error)
}

type blogSearcher interface {
	Search(q search.Query) search.Response
	IndexBlog(record search.BlogRecord)
}

type mailer interface {
	IsConfigured() bool
	SendWelcomeEmail(to, userName string) error
	SendPasswordResetEmail(to, userName, token string) error
}

type articleExporter interface {
	Export(article export.Article, format export.Format, includeComments bool) (*export.Result, error)
}

type mediaUploader interface {
	Upload(ctx context.Context, reader io.Reader, size int64, contentType, prefix string) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	accounts *accounts.Service
	sessions sessionRegistry
	advisor  blogAdvisor
	search   blogSearcher
	mail     mailer
	exporter articleExporter
	media    mediaUploader
}

// Deps carries the infrastructure the service talks to besides the
// database. Search and advisor are always present; mail degrades to
// dev-bypass behavior when unconfigured and media may be nil.
type Deps struct {
	Sessions sessionRegistry
	Advisor  blogAdvisor
	Search   blogSearcher
	Mail     mailer
	Exporter articleExporter
	Media    mediaUploader
}

func New(cfg config.Config, dataStore dataStore, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		accounts: accounts.NewService(dataStore),
		sessions: deps.Sessions,
		advisor:  deps.Advisor,
		search:   deps.Search,
		mail:     deps.Mail,
		exporter: deps.Exporter,
		media:    deps.Media,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register creates a PENDING account. The caller cannot sign in until
// an admin approves it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (map[string]any, error) {
	user, err := s.accounts.Register(ctx, accounts.RegisterRequest{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.Password,
	})
	if err != nil {
		return nil, accountError(err)
	}
	return map[string]any{
		"userId":  user.ID,
		"message": "Registration successful. Your account is pending approval.",
	}, nil
}

// Login authenticates the user, signs a session token and registers it
// so it can be revoked later.
func (s *Service) Login(ctx context.Context, email, password string) (Session, map[string]any, error) {
	user, err := s.accounts.Login(ctx, email, password)
	if err != nil {
		return Session{}, nil, accountError(err)
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}, s.cfg.SessionTTL)
	if err != nil {
		return Session{}, nil, err
	}

	if err := s.sessions.Save(ctx, auth.HashToken(token), session.Data{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: time.Now(),
	}, expiresAt); err != nil {
		return Session{}, nil, err
	}

	sess := Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}
	return sess, map[string]any{"user": userPayload(user)}, nil
}

// Logout revokes the session registry entry. The signed token becomes
// useless immediately even though it has not expired.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(token))
}

// SessionFromToken validates the signature and requires a live registry
// entry. Either failing means the caller is unauthenticated.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.sessions.Lookup(ctx, auth.HashToken(token)); err != nil {
		return Session{}, err
	}
	sess := Session{
		Token:     token,
		UserID:    claims.Subject,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      claims.Role,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next, confirm string) (map[string]any, error) {
	if err := s.accounts.ChangePassword(ctx, userID, current, next, confirm); err != nil {
		return nil, accountError(err)
	}
	return map[string]any{"message": "Password updated"}, nil
}

// ForgotPassword always answers with the same message so the endpoint
// does not reveal which emails exist. When SMTP is unconfigured the
// token rides along in the response for local development.
func (s *Service) ForgotPassword(ctx context.Context, email string) (map[string]any, error) {
	user, token, err := s.accounts.ForgotPassword(ctx, email)
	if err != nil {
		return nil, accountError(err)
	}

	payload := map[string]any{
		"message": "If an account exists for that email, a reset link has been sent",
	}
	if token == "" {
		return payload, nil
	}

	if s.mail.IsConfigured() {
		if err := s.mail.SendPasswordResetEmail(user.Email, user.FirstName, token); err != nil {
			return nil, domainError(http.StatusBadGateway, "EMAIL_FAILED", "Failed to send reset email", nil)
		}
	} else {
		payload["devResetToken"] = token
	}
	return payload, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, next, confirm string) (map[string]any, error) {
	if err := s.accounts.ResetPassword(ctx, token, next, confirm); err != nil {
		return nil, accountError(err)
	}
	return map[string]any{"message": "Password reset successfully"}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userPayload(user)}, nil
}

type UpdateProfileInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profileImage"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (map[string]any, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "First and last name are required", nil)
	}
	if err := s.store.UpdateUserProfile(ctx, userID, firstName, lastName, strings.TrimSpace(input.Bio), input.ProfileImage); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// UploadImage stores a cover or avatar image and returns its public
// URL. Kind selects the object prefix.
func (s *Service) UploadImage(ctx context.Context, reader io.Reader, size int64, contentType, kind string) (map[string]any, error) {
	if s.media == nil {
		return nil, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	}

	var prefix string
	switch kind {
	case "avatar":
		prefix = "avatars"
	case "", "cover":
		prefix = "covers"
	default:
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Unknown upload kind", nil)
	}

	url, err := s.media.Upload(ctx, reader, size, contentType, prefix)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "UPLOAD_FAILED", err.Error(), nil)
	}
	return map[string]any{"url": url}, nil
}

// sendWelcome fires the approval email without blocking or failing the
// approval itself.
func (s *Service) sendWelcome(user store.User) {
	if !s.mail.IsConfigured() {
		return
	}
	go func() {
		if err := s.mail.SendWelcomeEmail(user.Email, user.FirstName); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("welcome email failed")
		}
	}()
}

func userPayload(user store.User) map[string]any {
	return map[string]any{
		"id":           user.ID,
		"firstName":    user.FirstName,
		"lastName":     user.LastName,
		"email":        user.Email,
		"role":         user.Role,
		"status":       user.Status,
		"bio":          user.Bio,
		"profileImage": user.ProfileImage,
		"createdAt":    user.CreatedAt,
	}
}
