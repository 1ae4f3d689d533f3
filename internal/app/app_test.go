package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pasinduf/blog-platform/internal/config"
	"github.com/pasinduf/blog-platform/internal/export"
	"github.com/pasinduf/blog-platform/internal/search"
	"github.com/pasinduf/blog-platform/internal/session"
	"github.com/pasinduf/blog-platform/internal/store"
)

// fakeStore implements dataStore through optional function fields.
// Unset getters report sql.ErrNoRows; unset writers succeed silently.
type fakeStore struct {
	pingFn func(context.Context) error

	createUserFn               func(context.Context, store.User) error
	getUserByIDFn              func(context.Context, string) (store.User, error)
	getUserByEmailFn           func(context.Context, string) (store.User, error)
	updateUserPasswordFn       func(context.Context, string, string) error
	resetUserPasswordFn        func(context.Context, string, string) error
	updateUserProfileFn        func(context.Context, string, string, string, string, string) error
	updateUserStatusFn         func(context.Context, string, string) error
	updateUserRoleFn           func(context.Context, string, string) error
	countAdminsFn              func(context.Context) (int, error)
	listUsersFn                func(context.Context, int, int, string) ([]store.User, int, error)
	createPasswordResetTokenFn func(context.Context, store.PasswordResetToken) error
	getPasswordResetTokenFn    func(context.Context, string) (store.PasswordResetToken, error)

	insertBlogFn                func(context.Context, store.Blog) error
	updateBlogDraftFn           func(context.Context, string, string, string, string) error
	getBlogFn                   func(context.Context, string) (store.Blog, error)
	getBlogWithAuthorFn         func(context.Context, string) (store.BlogWithAuthor, error)
	listPublishedBlogsFn        func(context.Context, string, int) ([]store.BlogWithAuthor, error)
	listBlogsByAuthorFn         func(context.Context, string, string, string) ([]store.BlogWithAuthor, error)
	listSubmittedBlogsFn        func(context.Context, string) ([]store.BlogWithAuthor, error)
	setBlogStatusFn             func(context.Context, string, string) error
	incrementAnalysisAttemptsFn func(context.Context, string) (int, error)
	submitBlogFn                func(context.Context, string, *store.WriterAnalysis) error
	setAdminSummaryFn           func(context.Context, string, store.AdminSummary) error
	publishBlogFn               func(context.Context, string, int) error
	incrementBlogViewsFn        func(context.Context, string) error
	leaderboardFn               func(context.Context, int) ([]store.LeaderboardRow, error)

	insertCommentFn        func(context.Context, store.Comment) error
	getCommentFn           func(context.Context, string) (store.Comment, error)
	updateCommentContentFn func(context.Context, string, string) error
	softDeleteCommentFn    func(context.Context, string) error
	listCommentsForBlogFn  func(context.Context, string) ([]store.Comment, error)

	getReactionFn        func(context.Context, string, string) (store.Reaction, error)
	insertReactionFn     func(context.Context, store.Reaction) error
	updateReactionTypeFn func(context.Context, string, string) error
	deleteReactionFn     func(context.Context, string) error
	listReactionCountsFn func(context.Context, string) ([]store.ReactionCount, error)
	listUserReactionsFn  func(context.Context, string, string) ([]store.Reaction, error)

	getBookmarkFn         func(context.Context, string, string) (store.Bookmark, error)
	insertBookmarkFn      func(context.Context, store.Bookmark) error
	deleteBookmarkFn      func(context.Context, string) error
	listBookmarkedBlogsFn func(context.Context, string) ([]store.BlogWithAuthor, error)

	insertAdminCommentFn       func(context.Context, store.AdminComment) error
	listAdminCommentsForBlogFn func(context.Context, string) ([]store.AdminComment, error)

	listSettingsFn     func(context.Context) ([]store.Setting, error)
	getSettingByNameFn func(context.Context, string) (store.Setting, error)
	updateSettingFn    func(context.Context, string, string, string) error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	if f.updateUserPasswordFn != nil {
		return f.updateUserPasswordFn(ctx, userID, hash)
	}
	return nil
}

func (f *fakeStore) ResetUserPassword(ctx context.Context, userID, hash string) error {
	if f.resetUserPasswordFn != nil {
		return f.resetUserPasswordFn(ctx, userID, hash)
	}
	return nil
}

func (f *fakeStore) UpdateUserProfile(ctx context.Context, userID, firstName, lastName, bio, image string) error {
	if f.updateUserProfileFn != nil {
		return f.updateUserProfileFn(ctx, userID, firstName, lastName, bio, image)
	}
	return nil
}

func (f *fakeStore) UpdateUserStatus(ctx context.Context, userID, status string) error {
	if f.updateUserStatusFn != nil {
		return f.updateUserStatusFn(ctx, userID, status)
	}
	return nil
}

func (f *fakeStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	if f.updateUserRoleFn != nil {
		return f.updateUserRoleFn(ctx, userID, role)
	}
	return nil
}

func (f *fakeStore) CountAdmins(ctx context.Context) (int, error) {
	if f.countAdminsFn != nil {
		return f.countAdminsFn(ctx)
	}
	return 1, nil
}

func (f *fakeStore) ListUsers(ctx context.Context, offset, limit int, query string) ([]store.User, int, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx, offset, limit, query)
	}
	return nil, 0, nil
}

func (f *fakeStore) CreatePasswordResetToken(ctx context.Context, token store.PasswordResetToken) error {
	if f.createPasswordResetTokenFn != nil {
		return f.createPasswordResetTokenFn(ctx, token)
	}
	return nil
}

func (f *fakeStore) GetPasswordResetToken(ctx context.Context, token string) (store.PasswordResetToken, error) {
	if f.getPasswordResetTokenFn != nil {
		return f.getPasswordResetTokenFn(ctx, token)
	}
	return store.PasswordResetToken{}, sql.ErrNoRows
}

func (f *fakeStore) InsertBlog(ctx context.Context, blog store.Blog) error {
	if f.insertBlogFn != nil {
		return f.insertBlogFn(ctx, blog)
	}
	return nil
}

func (f *fakeStore) UpdateBlogDraft(ctx context.Context, blogID, title, content, cover string) error {
	if f.updateBlogDraftFn != nil {
		return f.updateBlogDraftFn(ctx, blogID, title, content, cover)
	}
	return nil
}

func (f *fakeStore) GetBlog(ctx context.Context, blogID string) (store.Blog, error) {
	if f.getBlogFn != nil {
		return f.getBlogFn(ctx, blogID)
	}
	return store.Blog{}, sql.ErrNoRows
}

func (f *fakeStore) GetBlogWithAuthor(ctx context.Context, blogID string) (store.BlogWithAuthor, error) {
	if f.getBlogWithAuthorFn != nil {
		return f.getBlogWithAuthorFn(ctx, blogID)
	}
	return store.BlogWithAuthor{}, sql.ErrNoRows
}

func (f *fakeStore) ListPublishedBlogs(ctx context.Context, cursor string, limit int) ([]store.BlogWithAuthor, error) {
	if f.listPublishedBlogsFn != nil {
		return f.listPublishedBlogsFn(ctx, cursor, limit)
	}
	return nil, nil
}

func (f *fakeStore) ListBlogsByAuthor(ctx context.Context, authorID, status, query string) ([]store.BlogWithAuthor, error) {
	if f.listBlogsByAuthorFn != nil {
		return f.listBlogsByAuthorFn(ctx, authorID, status, query)
	}
	return nil, nil
}

func (f *fakeStore) ListSubmittedBlogs(ctx context.Context, query string) ([]store.BlogWithAuthor, error) {
	if f.listSubmittedBlogsFn != nil {
		return f.listSubmittedBlogsFn(ctx, query)
	}
	return nil, nil
}

func (f *fakeStore) SetBlogStatus(ctx context.Context, blogID, status string) error {
	if f.setBlogStatusFn != nil {
		return f.setBlogStatusFn(ctx, blogID, status)
	}
	return nil
}

func (f *fakeStore) IncrementAnalysisAttempts(ctx context.Context, blogID string) (int, error) {
	if f.incrementAnalysisAttemptsFn != nil {
		return f.incrementAnalysisAttemptsFn(ctx, blogID)
	}
	return 1, nil
}

func (f *fakeStore) SubmitBlog(ctx context.Context, blogID string, analysis *store.WriterAnalysis) error {
	if f.submitBlogFn != nil {
		return f.submitBlogFn(ctx, blogID, analysis)
	}
	return nil
}

func (f *fakeStore) SetAdminSummary(ctx context.Context, blogID string, summary store.AdminSummary) error {
	if f.setAdminSummaryFn != nil {
		return f.setAdminSummaryFn(ctx, blogID, summary)
	}
	return nil
}

func (f *fakeStore) PublishBlog(ctx context.Context, blogID string, score int) error {
	if f.publishBlogFn != nil {
		return f.publishBlogFn(ctx, blogID, score)
	}
	return nil
}

func (f *fakeStore) IncrementBlogViews(ctx context.Context, blogID string) error {
	if f.incrementBlogViewsFn != nil {
		return f.incrementBlogViewsFn(ctx, blogID)
	}
	return nil
}

func (f *fakeStore) Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardRow, error) {
	if f.leaderboardFn != nil {
		return f.leaderboardFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeStore) InsertComment(ctx context.Context, comment store.Comment) error {
	if f.insertCommentFn != nil {
		return f.insertCommentFn(ctx, comment)
	}
	return nil
}

func (f *fakeStore) GetComment(ctx context.Context, commentID string) (store.Comment, error) {
	if f.getCommentFn != nil {
		return f.getCommentFn(ctx, commentID)
	}
	return store.Comment{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateCommentContent(ctx context.Context, commentID, content string) error {
	if f.updateCommentContentFn != nil {
		return f.updateCommentContentFn(ctx, commentID, content)
	}
	return nil
}

func (f *fakeStore) SoftDeleteComment(ctx context.Context, commentID string) error {
	if f.softDeleteCommentFn != nil {
		return f.softDeleteCommentFn(ctx, commentID)
	}
	return nil
}

func (f *fakeStore) ListCommentsForBlog(ctx context.Context, blogID string) ([]store.Comment, error) {
	if f.listCommentsForBlogFn != nil {
		return f.listCommentsForBlogFn(ctx, blogID)
	}
	return nil, nil
}

func (f *fakeStore) GetReaction(ctx context.Context, userID, commentID string) (store.Reaction, error) {
	if f.getReactionFn != nil {
		return f.getReactionFn(ctx, userID, commentID)
	}
	return store.Reaction{}, sql.ErrNoRows
}

func (f *fakeStore) InsertReaction(ctx context.Context, reaction store.Reaction) error {
	if f.insertReactionFn != nil {
		return f.insertReactionFn(ctx, reaction)
	}
	return nil
}

func (f *fakeStore) UpdateReactionType(ctx context.Context, reactionID, reactionType string) error {
	if f.updateReactionTypeFn != nil {
		return f.updateReactionTypeFn(ctx, reactionID, reactionType)
	}
	return nil
}

func (f *fakeStore) DeleteReaction(ctx context.Context, reactionID string) error {
	if f.deleteReactionFn != nil {
		return f.deleteReactionFn(ctx, reactionID)
	}
	return nil
}

func (f *fakeStore) ListReactionCounts(ctx context.Context, blogID string) ([]store.ReactionCount, error) {
	if f.listReactionCountsFn != nil {
		return f.listReactionCountsFn(ctx, blogID)
	}
	return nil, nil
}

func (f *fakeStore) ListUserReactions(ctx context.Context, userID, blogID string) ([]store.Reaction, error) {
	if f.listUserReactionsFn != nil {
		return f.listUserReactionsFn(ctx, userID, blogID)
	}
	return nil, nil
}

func (f *fakeStore) GetBookmark(ctx context.Context, userID, blogID string) (store.Bookmark, error) {
	if f.getBookmarkFn != nil {
		return f.getBookmarkFn(ctx, userID, blogID)
	}
	return store.Bookmark{}, sql.ErrNoRows
}

func (f *fakeStore) InsertBookmark(ctx context.Context, bookmark store.Bookmark) error {
	if f.insertBookmarkFn != nil {
		return f.insertBookmarkFn(ctx, bookmark)
	}
	return nil
}

func (f *fakeStore) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	if f.deleteBookmarkFn != nil {
		return f.deleteBookmarkFn(ctx, bookmarkID)
	}
	return nil
}

func (f *fakeStore) ListBookmarkedBlogs(ctx context.Context, userID string) ([]store.BlogWithAuthor, error) {
	if f.listBookmarkedBlogsFn != nil {
		return f.listBookmarkedBlogsFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) InsertAdminComment(ctx context.Context, comment store.AdminComment) error {
	if f.insertAdminCommentFn != nil {
		return f.insertAdminCommentFn(ctx, comment)
	}
	return nil
}

func (f *fakeStore) ListAdminCommentsForBlog(ctx context.Context, blogID string) ([]store.AdminComment, error) {
	if f.listAdminCommentsForBlogFn != nil {
		return f.listAdminCommentsForBlogFn(ctx, blogID)
	}
	return nil, nil
}

func (f *fakeStore) ListSettings(ctx context.Context) ([]store.Setting, error) {
	if f.listSettingsFn != nil {
		return f.listSettingsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) GetSettingByName(ctx context.Context, name string) (store.Setting, error) {
	if f.getSettingByNameFn != nil {
		return f.getSettingByNameFn(ctx, name)
	}
	return store.Setting{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateSetting(ctx context.Context, settingID, value, updatedBy string) error {
	if f.updateSettingFn != nil {
		return f.updateSettingFn(ctx, settingID, value, updatedBy)
	}
	return nil
}

// fakeSessions is an in-memory session registry.
type fakeSessions struct {
	mu      sync.Mutex
	entries map[string]session.Data
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{entries: make(map[string]session.Data)}
}

func (f *fakeSessions) Save(ctx context.Context, tokenHash string, data session.Data, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[tokenHash] = data
	return nil
}

func (f *fakeSessions) Lookup(ctx context.Context, tokenHash string) (session.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[tokenHash]
	if !ok {
		return session.Data{}, session.ErrNotFound
	}
	return data, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, tokenHash)
	return nil
}

// fakeAdvisor returns canned results, or errors when failing is set.
type fakeAdvisor struct {
	failing bool
	score   int
}

func (f *fakeAdvisor) PerformWriterAnalysis(ctx context.Context, title, content string) (*store.WriterAnalysis, error) {
	if f.failing {
		return nil, context.DeadlineExceeded
	}
	return &store.WriterAnalysis{
		SchemaVersion: store.PayloadSchemaVersion,
		ClarityScore:  72,
		Strengths:     []string{"clear structure"},
		Issues:        []string{"long intro"},
		Suggestions:   []string{"trim the opening"},
	}, nil
}

func (f *fakeAdvisor) GenerateAdminSummary(ctx context.Context, title, content string) (*store.AdminSummary, error) {
	if f.failing {
		return nil, context.DeadlineExceeded
	}
	return &store.AdminSummary{
		SchemaVersion: store.PayloadSchemaVersion,
		Summary:       "A solid draft.",
		KeyPoints:     []string{"one"},
	}, nil
}

func (f *fakeAdvisor) GenerateClarityScore(ctx context.Context, title, content string) (int, error) {
	if f.failing {
		return 0, context.DeadlineExceeded
	}
	if f.score == 0 {
		return 85, nil
	}
	return f.score, nil
}

// fakeSearch records index activity and serves canned results.
type fakeSearch struct {
	mu      sync.Mutex
	indexed []search.BlogRecord
	results []search.Result
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	return search.Response{Results: f.results, Total: len(f.results), Query: q.Text}
}

func (f *fakeSearch) IndexBlog(record search.BlogRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, record)
}

// fakeMailer records sends; configured controls the dev bypass path.
type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	welcomes   []string
	resets     []string
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendWelcomeEmail(to, userName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(to, userName, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, to)
	return nil
}

type fakeExporter struct{}

func (f *fakeExporter) Export(article export.Article, format export.Format, includeComments bool) (*export.Result, error) {
	return &export.Result{Data: []byte("doc"), Filename: "article.pdf", MimeType: "application/pdf"}, nil
}

type testEnv struct {
	store    *fakeStore
	sessions *fakeSessions
	advisor  *fakeAdvisor
	search   *fakeSearch
	mail     *fakeMailer
	service  *Service
	server   *HTTPServer
}

func newTestEnv(fs *fakeStore) *testEnv {
	env := &testEnv{
		store:    fs,
		sessions: newFakeSessions(),
		advisor:  &fakeAdvisor{},
		search:   &fakeSearch{},
		mail:     &fakeMailer{},
	}
	cfg := config.Config{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		CORSOrigin: "*",
	}
	env.service = New(cfg, fs, Deps{
		Sessions: env.sessions,
		Advisor:  env.advisor,
		Search:   env.search,
		Mail:     env.mail,
		Exporter: &fakeExporter{},
	})
	env.server = NewHTTPServer(env.service, "*", false)
	return env
}

// loginAs creates a live session directly and returns its token.
func (e *testEnv) loginAs(t *testing.T, user store.User) string {
	t.Helper()
	sess, _, err := e.loginSession(user)
	if err != nil {
		t.Fatalf("login session: %v", err)
	}
	return sess.Token
}

func (e *testEnv) loginSession(user store.User) (Session, map[string]any, error) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	user.PasswordHash = string(hash)
	if user.Status == "" {
		user.Status = "APPROVED"
	}
	prev := e.store.getUserByEmailFn
	e.store.getUserByEmailFn = func(ctx context.Context, email string) (store.User, error) {
		if email == user.Email {
			return user, nil
		}
		if prev != nil {
			return prev(ctx, email)
		}
		return store.User{}, sql.ErrNoRows
	}
	return e.service.Login(context.Background(), user.Email, "password1")
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	recorder := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, recorder.Body.String())
	}
	return payload
}
