package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/taskpulse/internal/types"
)

var ErrUnknownEvent = errors.New("unknown event kind")

type Actor struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type TaskRef struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	ProjectId string `json:"projectId,omitempty"`
}

type OrgRef struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type ProjectRef struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	OrganizationId string `json:"organizationId,omitempty"`
}

// Event is a domain event reported by the task, comment or membership
// services. Kind selects which fields are read.
type Event struct {
	Kind       types.NotificationType `json:"kind"`
	Actor      Actor                  `json:"actor"`
	Task       TaskRef                `json:"task"`
	Org        OrgRef                 `json:"organization"`
	Project    ProjectRef             `json:"project"`
	CommentId  string                 `json:"commentId,omitempty"`
	Role       string                 `json:"role,omitempty"`
	Recipients []string               `json:"recipients"`
}

func (d *Dispatcher) NotifyTaskAssigned(ctx context.Context, task TaskRef, assignee string, actor Actor) (*types.Notification, error) {
	return d.CreateAndDispatch(ctx, Event{Kind: types.TaskAssigned, Actor: actor, Task: task}.data(assignee))
}

// NotifyTaskUpdated notifies every assignee except the actor.
func (d *Dispatcher) NotifyTaskUpdated(ctx context.Context, task TaskRef, assignees []string, actor Actor) ([]*types.Notification, error) {
	return d.fanOut(ctx, Event{Kind: types.TaskUpdated, Actor: actor, Task: task, Recipients: assignees})
}

// NotifyMentioned expects user ids; resolving the handles returned by
// ExtractMentions is up to the caller.
func (d *Dispatcher) NotifyMentioned(ctx context.Context, task TaskRef, commentId string, mentioned []string, actor Actor) ([]*types.Notification, error) {
	return d.fanOut(ctx, Event{Kind: types.Mentioned, Actor: actor, Task: task, CommentId: commentId, Recipients: mentioned})
}

// NotifyCommentAdded notifies every watcher except the commenter.
func (d *Dispatcher) NotifyCommentAdded(ctx context.Context, task TaskRef, commentId string, watchers []string, actor Actor) ([]*types.Notification, error) {
	return d.fanOut(ctx, Event{Kind: types.CommentAdded, Actor: actor, Task: task, CommentId: commentId, Recipients: watchers})
}

func (d *Dispatcher) NotifyOrgMemberAdded(ctx context.Context, org OrgRef, member, role string, actor Actor) (*types.Notification, error) {
	return d.CreateAndDispatch(ctx, Event{Kind: types.OrgMemberAdded, Actor: actor, Org: org, Role: role}.data(member))
}

func (d *Dispatcher) NotifyOrgRoleUpdated(ctx context.Context, org OrgRef, member, role string, actor Actor) (*types.Notification, error) {
	return d.CreateAndDispatch(ctx, Event{Kind: types.OrgRoleUpdated, Actor: actor, Org: org, Role: role}.data(member))
}

func (d *Dispatcher) NotifyProjectMemberAdded(ctx context.Context, project ProjectRef, member string, actor Actor) (*types.Notification, error) {
	return d.CreateAndDispatch(ctx, Event{Kind: types.ProjectMemberAdded, Actor: actor, Project: project}.data(member))
}

// Handle dispatches one notification per recipient of e. Recipients are
// user ids; mention handles must be resolved before calling.
func (d *Dispatcher) Handle(ctx context.Context, e Event) ([]*types.Notification, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Kind)
	}
	if len(e.Recipients) == 0 {
		return nil, ErrMissingRecipient
	}

	return d.fanOut(ctx, e)
}

// data builds the notification e produces for recipient.
func (e Event) data(recipient string) types.NotificationData {
	n := types.NotificationData{
		Recipient: recipient,
		Sender:    e.Actor.Id,
		Type:      e.Kind,
	}

	switch e.Kind {
	case types.TaskAssigned:
		n.Title = "New Task Assigned"
		n.Message = fmt.Sprintf("%s assigned you to task: %s", e.Actor.Name, e.Task.Title)
	case types.TaskUpdated:
		n.Title = "Task Updated"
		n.Message = fmt.Sprintf("%s updated task: %s", e.Actor.Name, e.Task.Title)
	case types.Mentioned:
		n.Title = "You were mentioned"
		n.Message = fmt.Sprintf("%s mentioned you in a comment on task: %s", e.Actor.Name, e.Task.Title)
	case types.CommentAdded:
		n.Title = "New Comment"
		n.Message = fmt.Sprintf("%s commented on task: %s", e.Actor.Name, e.Task.Title)
	case types.OrgMemberAdded:
		n.Title = "Added to Organization"
		n.Message = fmt.Sprintf("%s added you to %s as %s", e.Actor.Name, e.Org.Name, e.Role)
	case types.OrgRoleUpdated:
		n.Title = "Role Updated"
		n.Message = fmt.Sprintf("%s changed your role in %s to %s", e.Actor.Name, e.Org.Name, e.Role)
	case types.ProjectMemberAdded:
		n.Title = "Added to Project"
		n.Message = fmt.Sprintf("%s added you to project: %s", e.Actor.Name, e.Project.Name)
	}

	switch e.Kind {
	case types.TaskAssigned, types.TaskUpdated, types.Mentioned, types.CommentAdded:
		n.RelatedTask = e.Task.Id
		n.RelatedComment = e.CommentId
		n.RelatedProject = e.Task.ProjectId
	case types.OrgMemberAdded, types.OrgRoleUpdated:
		n.RelatedOrganization = e.Org.Id
	case types.ProjectMemberAdded:
		n.RelatedOrganization = e.Project.OrganizationId
		n.RelatedProject = e.Project.Id
	}

	return n
}
