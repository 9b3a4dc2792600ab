package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/controller"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps controller.Deps) {
	createCtl := controller.NewCreateChannelController(deps)
	listCtl := controller.NewListChannelsController(deps)
	getMsgCtl := controller.NewGetMessageController(deps)
	sendMsgCtl := controller.NewSendMessageController(deps)
	membersCtl := controller.NewListMembersController(deps)
	socketCtl := controller.NewChatSocketController(deps)

	// GET /api/v1/chat/ws -> websocket endpoint; authenticates with its first frame
	g.GET("/chat/ws", socketCtl.Handle())

	authed := g.Group("", middleware.Authenticate(deps.Auth, deps.InflightTimeout, deps.Log, deps.Metrics))

	// POST /api/v1/channels -> create a channel with its initial members
	authed.POST("/channels", createCtl.Handle())

	// GET /api/v1/channels -> list the caller's channels
	authed.GET("/channels", listCtl.Handle())

	// GET /api/v1/channels/:channelId/messages -> page through history
	authed.GET("/channels/:channelId/messages", getMsgCtl.Handle())

	// POST /api/v1/channels/:channelId/messages -> persist and broadcast a message
	authed.POST("/channels/:channelId/messages", sendMsgCtl.Handle())

	// GET /api/v1/channels/:channelId/members -> active members and their presence
	authed.GET("/channels/:channelId/members", membersCtl.Handle())
}
