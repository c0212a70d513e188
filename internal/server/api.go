package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kmtrend/pagerelay/internal/database"
)

// messageResponse is the API projection of a stored message. Credentials
// never appear here; provider message IDs are included for inbound messages.
type messageResponse struct {
	ID                uint      `json:"id"`
	PageID            string    `json:"pageId"`
	PartnerID         string    `json:"partnerId"`
	Direction         string    `json:"direction"`
	Text              string    `json:"text"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type customerResponse struct {
	PartnerID   string    `json:"partnerId"`
	DisplayName string    `json:"displayName,omitempty"`
	Platform    string    `json:"platform"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
}

func toMessageResponses(messages []database.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:                m.ID,
			PageID:            m.PageID,
			PartnerID:         m.PartnerID,
			Direction:         string(m.Direction),
			Text:              m.Content,
			ProviderMessageID: m.ProviderMessageID.String,
			CreatedAt:         m.CreatedAt,
		})
	}
	return out
}

// handleListMessages serves recent messages, newest first. With a partnerId
// filter it serves that partner's thread chronologically instead.
func (s *Server) handleListMessages(c *gin.Context) {
	pageID := c.Query("pageId")
	partnerID := c.Query("partnerId")

	if partnerID != "" {
		messages, err := s.store.ListConversation(c.Request.Context(), pageID, partnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		c.JSON(http.StatusOK, toMessageResponses(messages))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := s.store.ListRecentMessages(c.Request.Context(), pageID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, toMessageResponses(messages))
}

// handleHistory serves one conversation, oldest first.
func (s *Server) handleHistory(c *gin.Context) {
	partnerID := c.Param("partnerId")
	pageID := c.Query("pageId")

	messages, err := s.store.ListConversation(c.Request.Context(), pageID, partnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, toMessageResponses(messages))
}

func (s *Server) handleListCustomers(c *gin.Context) {
	customers, err := s.store.ListCustomers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customers"})
		return
	}

	out := make([]customerResponse, 0, len(customers))
	for _, cust := range customers {
		out = append(out, customerResponse{
			PartnerID:   cust.PartnerID,
			DisplayName: cust.DisplayName,
			Platform:    cust.Platform,
			FirstSeenAt: cust.FirstSeenAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
