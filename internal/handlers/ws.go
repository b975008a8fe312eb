package handlers

import "github.com/gin-gonic/gin"

// Socket upgrades to a websocket that streams the caller's post events.
func (h HandlerSet) Socket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.hub.Serve(c.Writer, c.Request, user.ID)
}
