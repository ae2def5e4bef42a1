package types

import (
	"time"
)

// Identity is the user identity resolved from a verified credential.
type Identity struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type NotificationType string

const (
	TaskAssigned       NotificationType = "task_assigned"
	TaskUpdated        NotificationType = "task_updated"
	Mentioned          NotificationType = "mentioned"
	CommentAdded       NotificationType = "comment_added"
	OrgMemberAdded     NotificationType = "org_member_added"
	OrgRoleUpdated     NotificationType = "org_role_updated"
	ProjectMemberAdded NotificationType = "project_member_added"
)

var notificationTypes = map[NotificationType]struct{}{
	TaskAssigned:       {},
	TaskUpdated:        {},
	Mentioned:          {},
	CommentAdded:       {},
	OrgMemberAdded:     {},
	OrgRoleUpdated:     {},
	ProjectMemberAdded: {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// NotificationData is the input for creating a notification.
type NotificationData struct {
	Recipient           string           `json:"recipient"`
	Sender              string           `json:"sender"`
	Type                NotificationType `json:"type"`
	Title               string           `json:"title"`
	Message             string           `json:"message"`
	RelatedTask         string           `json:"relatedTask,omitempty"`
	RelatedComment      string           `json:"relatedComment,omitempty"`
	RelatedOrganization string           `json:"relatedOrganization,omitempty"`
	RelatedProject      string           `json:"relatedProject,omitempty"`
}

// Notification is a stored notification. Only Read changes after creation.
type Notification struct {
	Id                  string           `json:"_id"`
	Recipient           string           `json:"recipient"`
	Sender              string           `json:"sender"`
	Type                NotificationType `json:"type"`
	Title               string           `json:"title"`
	Message             string           `json:"message"`
	RelatedTask         string           `json:"relatedTask,omitempty"`
	RelatedComment      string           `json:"relatedComment,omitempty"`
	RelatedOrganization string           `json:"relatedOrganization,omitempty"`
	RelatedProject      string           `json:"relatedProject,omitempty"`
	Read                bool             `json:"read"`
	CreatedAt           time.Time        `json:"createdAt"`
}

// Profile is the cached presence view of a user.
type Profile struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

func (p Profile) Identity() Identity {
	return Identity{Id: p.Id, Name: p.Name, Email: p.Email}
}
