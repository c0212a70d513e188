package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmtrend/pagerelay/internal/relay"
)

// VerifySubscription answers the provider's one-time subscription handshake.
// It is a pure function of its inputs: the challenge is echoed back only when
// mode is "subscribe" and the caller presented the configured verify token.
func VerifySubscription(mode, token, verifyToken string) bool {
	return mode == "subscribe" && verifyToken != "" && token == verifyToken
}

func (s *Server) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if !VerifySubscription(mode, token, s.verifyToken) {
		s.logger.InfoContext(c.Request.Context(), "Webhook verification rejected", "mode", mode)
		c.Status(http.StatusForbidden)
		return
	}

	s.logger.InfoContext(c.Request.Context(), "Webhook verified")
	c.String(http.StatusOK, challenge)
}

// handleWebhook receives provider events. The acknowledgment is decided by
// parse outcome alone and is written before ingestion runs: failing the
// response on internal errors would trigger provider-side retries and
// duplicate user-visible replies.
func (s *Server) handleWebhook(c *gin.Context) {
	var payload relay.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	if payload.Object != "page" {
		c.Status(http.StatusNotFound)
		return
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")

	// The provider may drop the connection as soon as it sees the ack; the
	// request context would be cancelled with it, so ingestion detaches.
	s.ingestor.Ingest(context.WithoutCancel(c.Request.Context()), &payload)
}
