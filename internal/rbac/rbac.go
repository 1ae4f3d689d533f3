package rbac

type Role string
type Action string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

const (
	ActionReadFeed        Action = "read_feed"
	ActionWriteBlog       Action = "write_blog"
	ActionComment         Action = "comment"
	ActionReact           Action = "react"
	ActionBookmark        Action = "bookmark"
	ActionReviewBlog      Action = "review_blog"
	ActionManageUsers     Action = "manage_users"
	ActionManageSettings  Action = "manage_settings"
	ActionViewLeaderboard Action = "view_leaderboard"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		switch action {
		case ActionReadFeed, ActionWriteBlog, ActionComment, ActionReact, ActionBookmark:
			return true
		}
		return false
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}
