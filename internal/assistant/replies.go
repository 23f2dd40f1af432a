package assistant

import (
	"fmt"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/intent"
)

// Fixed replies.
const (
	EmptyMessageReply = "Please type a message 😊"
	FallbackReply     = "I'm still learning 🤖. I've saved this question for future training."
)

// IntentReplies holds the canned answer for every conversational intent.
var IntentReplies = map[intent.Label]string{
	intent.Greeting: "Hello 😊 How can I help you today?",
	intent.Farewell: "Goodbye 👋 Have a great day!",
	intent.Thanks:   "You're welcome! 😊",
	intent.Identity: "I'm an AI chatbot that learns from conversations! I save questions I don't know and improve over time. Feel free to teach me anything! 🤖",
	intent.Help:     "I'm here to help! You can ask me questions on various topics, and I can even write code for you FREE! 💻 Feel free to teach me anything! 😊",
}

// LimitReply is returned once a user has used up the daily generation quota.
func LimitReply(limit int) string {
	return fmt.Sprintf("⚠️ You've reached your **%d daily request limit** for new questions.\n\n"+
		"Your limit resets tomorrow. In the meantime:\n"+
		"- Try rephrasing questions you've already asked\n"+
		"- Questions already in our knowledge base are **unlimited** and free! 😊", limit)
}
