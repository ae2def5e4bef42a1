package database

import (
	"time"

	"github.com/npezzotti/taskpulse/internal/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type notificationRow struct {
	Id                  string    `db:"id"`
	Recipient           string    `db:"recipient"`
	Sender              string    `db:"sender"`
	Type                string    `db:"type"`
	Title               string    `db:"title"`
	Message             string    `db:"message"`
	RelatedTask         string    `db:"related_task"`
	RelatedComment      string    `db:"related_comment"`
	RelatedOrganization string    `db:"related_organization"`
	RelatedProject      string    `db:"related_project"`
	Read                bool      `db:"read"`
	CreatedAt           time.Time `db:"created_at"`
}

func (r notificationRow) notification() types.Notification {
	return types.Notification{
		Id:                  r.Id,
		Recipient:           r.Recipient,
		Sender:              r.Sender,
		Type:                types.NotificationType(r.Type),
		Title:               r.Title,
		Message:             r.Message,
		RelatedTask:         r.RelatedTask,
		RelatedComment:      r.RelatedComment,
		RelatedOrganization: r.RelatedOrganization,
		RelatedProject:      r.RelatedProject,
		Read:                r.Read,
		CreatedAt:           r.CreatedAt.UTC(),
	}
}

type notificationDoc struct {
	Id                  primitive.ObjectID `bson:"_id,omitempty"`
	Recipient           string             `bson:"recipient"`
	Sender              string             `bson:"sender"`
	Type                string             `bson:"type"`
	Title               string             `bson:"title"`
	Message             string             `bson:"message"`
	RelatedTask         string             `bson:"relatedTask,omitempty"`
	RelatedComment      string             `bson:"relatedComment,omitempty"`
	RelatedOrganization string             `bson:"relatedOrganization,omitempty"`
	RelatedProject      string             `bson:"relatedProject,omitempty"`
	Read                bool               `bson:"read"`
	CreatedAt           time.Time          `bson:"createdAt"`
}

func (d notificationDoc) notification() types.Notification {
	return types.Notification{
		Id:                  d.Id.Hex(),
		Recipient:           d.Recipient,
		Sender:              d.Sender,
		Type:                types.NotificationType(d.Type),
		Title:               d.Title,
		Message:             d.Message,
		RelatedTask:         d.RelatedTask,
		RelatedComment:      d.RelatedComment,
		RelatedOrganization: d.RelatedOrganization,
		RelatedProject:      d.RelatedProject,
		Read:                d.Read,
		CreatedAt:           d.CreatedAt.UTC(),
	}
}

func newTimestamp() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
