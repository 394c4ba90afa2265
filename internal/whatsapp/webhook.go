package whatsapp

// WebhookPayload mirrors the Graph API webhook envelope for inbound messages.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one business-account entry in a webhook delivery.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange carries the changed field and its value.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue holds the inbound messages of one change.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
}

// InboundMessage is a single customer message.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *InboundText        `json:"text,omitempty"`
	Interactive *InboundInteractive `json:"interactive,omitempty"`
	Context     *InboundContext     `json:"context,omitempty"`
}

// InboundText is the body of a text message.
type InboundText struct {
	Body string `json:"body"`
}

// InboundInteractive carries button and list replies.
type InboundInteractive struct {
	Type        string              `json:"type"`
	ButtonReply *InboundButtonReply `json:"button_reply,omitempty"`
	ListReply   *InboundListReply   `json:"list_reply,omitempty"`
}

// InboundButtonReply identifies the pressed button.
type InboundButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundListReply identifies the chosen list row.
type InboundListReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InboundContext links a message to the one it replies to.
type InboundContext struct {
	ID string `json:"id"`
}

// kind classifies the message the way the dispatcher switches on it.
func (m InboundMessage) kind() string {
	switch {
	case m.Text != nil:
		return "text"
	case m.Interactive != nil:
		return "interactive"
	case m.Type == "image" || m.Type == "video" || m.Type == "document":
		return "media"
	default:
		if m.Type != "" {
			return m.Type
		}
		return "unknown"
	}
}
