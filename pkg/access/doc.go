// Package access decides whether a user may send another chat turn.
//
// Unsubscribed users may own a limited number of chats (quota_new_chat), each
// holding a limited number of stored exchanges (quota_messages), and may not
// use premium models (premium_required). Subscribed users are unrestricted.
//
// Subscription state is cached on the user row. When a billing subscription
// id is on file the Billing collaborator (Stripe) is asked first and any
// change is written back; if it cannot be reached the cached flag is used.
package access
