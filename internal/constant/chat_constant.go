package constant

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	// DefaultConversationTitle is used until the first question names it.
	DefaultConversationTitle = "New chat"

	// AutoTitleMaxLen caps titles derived from the first question.
	AutoTitleMaxLen = 60

	// StreamFailureNotice replaces the assistant turn shown to the user
	// when the answer backend fails mid-stream.
	StreamFailureNotice = "Sorry, something went wrong while generating the answer. Please try again."
)
