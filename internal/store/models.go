package store

import "time"

// Schema version stamped into the jsonb advisory payloads so older
// rows stay readable when the payload shape evolves.
const PayloadSchemaVersion = 1

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	Bio          string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WriterAnalysis is the advisory feedback generated when a blog is
// submitted for review.
type WriterAnalysis struct {
	SchemaVersion int      `json:"schemaVersion"`
	ClarityScore  int      `json:"clarityScore"`
	Strengths     []string `json:"strengths"`
	Issues        []string `json:"issues"`
	Suggestions   []string `json:"suggestions"`
}

// AdminSummary is the advisory digest generated for reviewers.
type AdminSummary struct {
	SchemaVersion int      `json:"schemaVersion"`
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"keyPoints"`
	Risks         []string `json:"risks"`
}

type Blog struct {
	ID               string
	AuthorID         string
	Title            string
	Content          string
	CoverImage       string
	Status           string
	Views            int
	ClarityScore     *int
	AnalysisAttempts int
	WriterAnalysis   *WriterAnalysis
	AdminSummary     *AdminSummary
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BlogWithAuthor carries the author columns joined in for list and
// detail responses.
type BlogWithAuthor struct {
	Blog
	AuthorFirstName string
	AuthorLastName  string
	AuthorImage     string
	CommentCount    int
}

// DeletedCommentContent replaces a comment's stored content when it is
// soft-deleted, so the original text is gone from the row while the
// thread position survives.
const DeletedCommentContent = "[This comment was deleted]"

type Comment struct {
	ID        string
	BlogID    string
	UserID    string
	ParentID  *string
	Content   string
	IsEdited  bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
	// Joined author fields for API responses
	AuthorFirstName string
	AuthorLastName  string
	AuthorImage     string
}

type Reaction struct {
	ID        string
	CommentID string
	UserID    string
	Type      string
	CreatedAt time.Time
}

type ReactionCount struct {
	CommentID string
	Type      string
	Count     int
}

type Bookmark struct {
	ID        string
	UserID    string
	BlogID    string
	CreatedAt time.Time
}

type AdminComment struct {
	ID             string
	BlogID         string
	AdminID        string
	Content        string
	CreatedAt      time.Time
	AdminFirstName string
	AdminLastName  string
}

type Setting struct {
	ID          string
	Name        string
	Description string
	Value       string
	UpdatedBy   *string
	UpdatedAt   time.Time
	// Joined updater name for API responses
	UpdatedByName string
}

type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type LeaderboardRow struct {
	UserID         string
	FirstName      string
	LastName       string
	ProfileImage   string
	PublishedCount int
	TotalScore     int
	AverageScore   float64
}
