// Package moderation holds the blog lifecycle state machine. Every
// status transition and review action is authorized through Decide so
// the rules live in exactly one place.
package moderation

import "github.com/pasinduf/blog-platform/internal/rbac"

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusPublished Status = "PUBLISHED"
)

type Action string

const (
	ActionSaveDraft       Action = "save_draft"
	ActionSubmit          Action = "submit"
	ActionPublish         Action = "publish"
	ActionRequestRevision Action = "request_revision"
	ActionGenerateSummary Action = "generate_summary"
)

// MaxAnalysisAttempts caps how many times writer analysis runs for a
// single blog across submissions.
const MaxAnalysisAttempts = 3

type Actor struct {
	ID   string
	Role rbac.Role
}

type BlogState struct {
	ID       string
	AuthorID string
	Status   Status
}

// Decision is the result of an authorization-and-transition check.
// Allowed carries the status the blog moves to (unchanged for actions
// that do not transition); Denied carries the reason shown to the caller.
type Decision struct {
	Allowed bool
	Next    Status
	Reason  string
}

func allow(next Status) Decision {
	return Decision{Allowed: true, Next: next}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide authorizes action for actor against the blog's current state
// and returns the transition. It never mutates anything; callers apply
// the Next status only when Allowed is true.
func Decide(actor Actor, blog BlogState, action Action) Decision {
	switch action {
	case ActionSaveDraft:
		if actor.ID != blog.AuthorID {
			return deny("Unauthorized")
		}
		if blog.Status != StatusDraft {
			return deny("Only draft blogs can be edited")
		}
		return allow(StatusDraft)

	case ActionSubmit:
		if actor.ID != blog.AuthorID {
			return deny("Unauthorized")
		}
		if blog.Status != StatusDraft {
			return deny("Only draft blogs can be submitted")
		}
		return allow(StatusSubmitted)

	case ActionPublish:
		if !rbac.Can(actor.Role, rbac.ActionReviewBlog) {
			return deny("Unauthorized")
		}
		if actor.ID == blog.AuthorID {
			return deny("Cannot publish your own post")
		}
		if blog.Status != StatusSubmitted {
			return deny("Only submitted blogs can be published")
		}
		return allow(StatusPublished)

	case ActionRequestRevision:
		if !rbac.Can(actor.Role, rbac.ActionReviewBlog) {
			return deny("Unauthorized")
		}
		if actor.ID == blog.AuthorID {
			return deny("Cannot review your own post")
		}
		if blog.Status != StatusSubmitted {
			return deny("Only submitted blogs can be sent back for revision")
		}
		return allow(StatusDraft)

	case ActionGenerateSummary:
		if !rbac.Can(actor.Role, rbac.ActionReviewBlog) {
			return deny("Unauthorized")
		}
		if actor.ID == blog.AuthorID {
			return deny("Cannot review your own post")
		}
		if blog.Status != StatusSubmitted {
			return deny("Only submitted blogs can be summarized")
		}
		return allow(StatusSubmitted)

	default:
		return deny("Unknown action")
	}
}
