package types

import "strings"

const (
	userRoomPrefix         = "user:"
	organizationRoomPrefix = "org:"
	projectRoomPrefix      = "project:"
)

// Wire event names.
const (
	EventJoinOrganization  = "join-organization"
	EventLeaveOrganization = "leave-organization"
	EventJoinProject       = "join-project"
	EventLeaveProject      = "leave-project"

	EventNewNotification  = "newNotification"
	EventUserStatusChange = "userStatusChange"
	EventOnlineUsers      = "onlineUsers"
	EventError            = "error"
)

func UserRoom(userId string) string {
	return userRoomPrefix + userId
}

func OrganizationRoom(orgId string) string {
	return organizationRoomPrefix + orgId
}

func ProjectRoom(projectId string) string {
	return projectRoomPrefix + projectId
}

// IsUserRoom reports whether room is a personal user:<id> room.
func IsUserRoom(room string) bool {
	return strings.HasPrefix(room, userRoomPrefix)
}
