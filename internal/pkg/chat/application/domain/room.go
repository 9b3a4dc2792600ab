package chat

import "strconv"

// RoomName derives the broadcast room for a channel. The tenant id is part of
// the name so equal channel ids in different tenants never share a room.
func RoomName(tenantID, channelID int64) string {
	return "tenant:" + strconv.FormatInt(tenantID, 10) + ":channel:" + strconv.FormatInt(channelID, 10)
}

// UserRoom derives the private room every connection of a user joins.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
