package access

import "fmt"

// Rejection reasons. They double as the error codes returned to clients.
const (
	ReasonQuotaNewChat     = "quota_new_chat"
	ReasonQuotaMessages    = "quota_messages"
	ReasonPremiumRequired  = "premium_required"
	ReasonSessionForbidden = "session_forbidden"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	// Allowed is true when the turn may proceed.
	Allowed bool

	// Reason is set when Allowed is false.
	Reason string

	// Subscribed is the resolved subscription state.
	Subscribed bool

	// Existing is true when a durable record for the session exists.
	Existing bool

	// MessageCount is the durable record's count (0 for a new chat).
	MessageCount int
}

// AccessDeniedError rejects a turn for a quota, subscription or ownership
// reason.
type AccessDeniedError struct {
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *AccessDeniedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("access denied: %s", e.Reason)
	}
	return fmt.Sprintf("access denied: %s: %s", e.Reason, e.Message)
}

// Code returns the client-facing error code.
func (e *AccessDeniedError) Code() string {
	return e.Reason
}

// Denied builds the error for a rejection reason with its standard message.
func Denied(reason string) *AccessDeniedError {
	return &AccessDeniedError{Reason: reason, Message: messages[reason]}
}

var messages = map[string]string{
	ReasonQuotaNewChat:     "free plan chat limit reached, subscribe to start more chats",
	ReasonQuotaMessages:    "free plan message limit reached for this chat",
	ReasonPremiumRequired:  "this model requires a subscription",
	ReasonSessionForbidden: "session belongs to another user",
}
